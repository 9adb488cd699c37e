package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// LoadRecorder receives the outcome of each load attempt.
type LoadRecorder interface {
	RecordDatasetLoad(ctx context.Context, duration time.Duration, days, hours int, err error)
}

// Store holds the current dataset snapshot. Snapshots are never mutated after
// publication, so readers may keep using one while a reload is in flight.
type Store struct {
	src      Source
	logger   *slog.Logger
	recorder LoadRecorder

	mu        sync.RWMutex
	current   *Dataset
	lastErr   error
	listeners []func(*Dataset)
	failures  []func(error)

	reloadMu sync.Mutex
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLoadRecorder reports every load to r.
func WithLoadRecorder(r LoadRecorder) StoreOption {
	return func(s *Store) { s.recorder = r }
}

// NewStore creates an empty store reading from src.
func NewStore(src Source, logger *slog.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		src:    src,
		logger: logger.With("component", "dataset_store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Source returns the configured source.
func (s *Store) Source() Source { return s.src }

// Get returns the current snapshot. Before the first successful load it
// returns ErrDatasetNotLoaded, joined with the last load failure if any.
func (s *Store) Get() (*Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		if s.lastErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatasetNotLoaded, s.lastErr)
		}
		return nil, ErrDatasetNotLoaded
	}
	return s.current, nil
}

// LastError returns the error of the most recent load attempt.
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// OnReload registers fn to run after every successful reload.
func (s *Store) OnReload(fn func(*Dataset)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// OnReloadFailure registers fn to run after every failed reload.
func (s *Store) OnReloadFailure(fn func(error)) {
	s.mu.Lock()
	s.failures = append(s.failures, fn)
	s.mu.Unlock()
}

// Reload loads a fresh snapshot from the source and publishes it. On failure
// the previous snapshot stays in place.
func (s *Store) Reload(ctx context.Context) (*Dataset, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	ds, err := Load(ctx, s.src)
	elapsed := time.Since(start)

	if s.recorder != nil {
		var days, hours int
		if ds != nil {
			days, hours = len(ds.Days), len(ds.Hours)
		}
		s.recorder.RecordDatasetLoad(ctx, elapsed, days, hours, err)
	}

	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		failures := append([]func(error){}, s.failures...)
		s.mu.Unlock()

		s.logger.ErrorContext(ctx, "dataset load failed",
			slog.String("source", s.src.String()),
			slog.String("error", err.Error()),
			slog.Duration("duration", elapsed))
		for _, fn := range failures {
			fn(err)
		}
		return nil, err
	}

	s.Replace(ds)
	s.logger.InfoContext(ctx, "dataset loaded",
		slog.String("source", ds.Source),
		slog.Int("days", len(ds.Days)),
		slog.Int("hours", len(ds.Hours)),
		slog.Duration("duration", elapsed))
	return ds, nil
}

// Replace publishes ds as the current snapshot and notifies listeners.
func (s *Store) Replace(ds *Dataset) {
	s.mu.Lock()
	s.current = ds
	s.lastErr = nil
	listeners := append([]func(*Dataset){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(ds)
	}
}

// RefreshEvery reloads the dataset every interval until ctx is done.
// A non-positive interval returns immediately.
func (s *Store) RefreshEvery(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.Reload(ctx)
		}
	}
}
