package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/toejough/deepstub/internal/core"
)

// Source is a place a recording is saved to and loaded from.
type Source interface {
	Save(ctx context.Context, model Model) error
	Load(ctx context.Context) (Model, error)
	String() string
}

// Manager records to, and replays from, a list of sources.
type Manager struct {
	sources []Source
	logger  zerolog.Logger
	now     func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger. The default discards everything.
func WithManagerLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock sets the time source used to stamp recordings.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager returns a manager over sources. Load consults them in order.
func NewManager(sources []Source, opts ...ManagerOption) *Manager {
	m := &Manager{sources: sources, logger: zerolog.Nop(), now: time.Now}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Sources returns the configured sources.
func (m *Manager) Sources() []Source {
	return append([]Source(nil), m.sources...)
}

// Record saves the run to every source concurrently. Every source is attempted; the first
// failure is returned.
func (m *Manager) Record(ctx context.Context, id string, records []core.Record) error {
	model := FromRecords(id, m.now().UTC(), records)

	var group errgroup.Group

	for _, source := range m.sources {
		group.Go(func() error {
			if err := source.Save(ctx, model); err != nil {
				return fmt.Errorf("%s: %w", source, err)
			}

			m.logger.Info().
				Str("source", source.String()).
				Str("recording", id).
				Int("calls", len(records)).
				Msg("saved recording")

			return nil
		})
	}

	return group.Wait()
}

// Load reads every source and merges the recordings into one replay. Sources without a
// recording are skipped; when a method appears in several sources the earlier source wins.
func (m *Manager) Load(ctx context.Context) (core.Replay, error) {
	merged := core.Replay{}
	seen := make(map[string]bool)
	found := false

	for _, source := range m.sources {
		model, err := source.Load(ctx)
		if errors.Is(err, ErrSourceNotFound) {
			m.logger.Debug().Str("source", source.String()).Msg("no recording")
			continue
		}

		if err != nil {
			return core.Replay{}, fmt.Errorf("%s: %w", source, err)
		}

		replay, err := ToReplay(model)
		if err != nil {
			return core.Replay{}, fmt.Errorf("%s: %w", source, err)
		}

		found = true

		for _, method := range replay.Methods {
			if seen[method.Method.Key()] {
				continue
			}

			seen[method.Method.Key()] = true
			merged.Methods = append(merged.Methods, method)
		}

		m.logger.Info().
			Str("source", source.String()).
			Int("methods", len(replay.Methods)).
			Msg("loaded recording")
	}

	if !found {
		return core.Replay{}, ErrNothingLoaded
	}

	return merged, nil
}
