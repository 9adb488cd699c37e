package dataset

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Load fetches and parses both tables concurrently.
func Load(ctx context.Context, src Source) (*Dataset, error) {
	var (
		days  []DayRecord
		hours []HourRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rc, err := src.Open(gctx, DayFile)
		if err != nil {
			return err
		}
		defer rc.Close()

		days, err = ParseDays(rc)
		if err != nil {
			return fmt.Errorf("%s: %w", DayFile, err)
		}
		return nil
	})
	g.Go(func() error {
		rc, err := src.Open(gctx, HourFile)
		if err != nil {
			return err
		}
		defer rc.Close()

		hours, err = ParseHours(rc)
		if err != nil {
			return fmt.Errorf("%s: %w", HourFile, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Dataset{
		Days:     days,
		Hours:    hours,
		Source:   src.String(),
		LoadedAt: time.Now(),
	}, nil
}
