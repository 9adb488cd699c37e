package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bikepulse/internal/dataset"
)

func TestSampleDaysAreConsistent(t *testing.T) {
	for _, d := range SampleDays() {
		assert.Equal(t, d.Casual+d.Registered, d.Total, d.Date)
		assert.True(t, d.Season.Valid())
		assert.True(t, d.Weather.Valid())
	}
}

func TestSampleSourceRoundTrips(t *testing.T) {
	logger, _ := NewTestLogger(t)
	store := dataset.NewStore(NewSampleSource(), logger)

	ds, err := store.Reload(context.Background())
	require.NoError(t, err)
	assert.Len(t, ds.Days, len(SampleDays()))
	assert.Len(t, ds.Hours, 48)
	assert.Equal(t, SampleDays()[5].Total, ds.Days[5].Total)
	assert.Equal(t, 23, ds.Hours[47].Hour)
}

func TestMemorySourceMissingFile(t *testing.T) {
	src := &MemorySource{Files: map[string][]byte{}}
	_, err := src.Open(context.Background(), dataset.DayFile)
	assert.ErrorIs(t, err, dataset.ErrDatasetNotFound)
}
