package middleware

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "bikepulse/internal/errors"
	"bikepulse/internal/shared/testutil"
)

type sampleQuery struct {
	From    string `query:"from" validate:"omitempty,isodate"`
	HourMin *int   `query:"hour_min" validate:"omitempty,min=0,max=23"`
	Seasons []int  `query:"season" validate:"dive,min=1,max=4"`
	Lang    string `query:"lang" validate:"omitempty,oneof=en id"`
}

func intPtr(v int) *int { return &v }

func TestQueryValidator(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	v := NewQueryValidator(logger)

	t.Run("valid", func(t *testing.T) {
		q := sampleQuery{From: "2011-01-01", HourMin: intPtr(0), Seasons: []int{1, 4}, Lang: "id"}
		assert.NoError(t, v.ValidateStruct(q))
	})

	t.Run("empty is valid", func(t *testing.T) {
		assert.NoError(t, v.ValidateStruct(sampleQuery{}))
	})

	t.Run("collects every invalid field", func(t *testing.T) {
		q := sampleQuery{From: "2011-13-01", HourMin: intPtr(24), Seasons: []int{5}, Lang: "fr"}

		err := v.ValidateStruct(q)
		require.Error(t, err)

		var apiErr *apierrors.APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "VALIDATION_FAILED", apiErr.ErrorCode)

		details, ok := apiErr.Details.(apierrors.ValidationErrors)
		require.True(t, ok)

		messages := make(map[string]string)
		for _, e := range details.Errors {
			messages[e.Field] = e.Message
		}
		assert.Equal(t, "from must be a date in YYYY-MM-DD format", messages["from"])
		assert.Equal(t, "hour_min must be at most 23", messages["hour_min"])
		assert.Equal(t, "season[0] must be at most 4", messages["season[0]"])
		assert.Equal(t, "lang must be one of: en, id", messages["lang"])
	})
}
