// Package fixture ties a deepstub Context to the lifecycle of a test: it loads a recording before
// the test body in replay mode, and records, verifies and resets when the test completes.
//
//	func TestCheckout(t *testing.T) {
//	    f := fixture.New(t)
//	    inventory := NewStubInventory(f.Context)
//	    f.Stub(StubInventoryMethods.Reserve, "sku-1").Return(true)
//	    ...
//	}
package fixture

import (
	"context"
	"path/filepath"
	"regexp"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/toejough/deepstub/internal/config"
	"github.com/toejough/deepstub/internal/core"
	"github.com/toejough/deepstub/internal/logging"
	"github.com/toejough/deepstub/persistence"
)

// T is the part of testing.TB a Fixture needs.
type T interface {
	core.TestReporter
	Name() string
	Cleanup(fn func())
}

// Fixture is the per-test deepstub state. The embedded Context declares samples and is what
// stand-ins are built with.
type Fixture struct {
	*core.Context

	t        T
	cfg      config.Config
	cfgSet   bool
	fs       afero.Fs
	logger   *zerolog.Logger
	sources  []persistence.Source
	prepared []preparedSample
	manager  *persistence.Manager
	store    *persistence.SQLiteStore
}

type preparedSample struct {
	method core.MethodIdentity
	id     string
	args   []any
}

// Option configures a Fixture.
type Option func(*Fixture)

// WithConfig replaces the configuration loaded from deepstub.yaml and the environment.
func WithConfig(cfg config.Config) Option {
	return func(f *Fixture) {
		f.cfg = cfg
		f.cfgSet = true
	}
}

// WithSource adds a recording source. Once any source is given, the configured sources are not
// opened.
func WithSource(source persistence.Source) Option {
	return func(f *Fixture) {
		f.sources = append(f.sources, source)
	}
}

// WithFs sets the filesystem file recordings are read from and written to.
func WithFs(fs afero.Fs) Option {
	return func(f *Fixture) {
		f.fs = fs
	}
}

// WithLogger sets the logger. The default is built from the configuration.
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Fixture) {
		f.logger = &logger
	}
}

// WithPrepare declares a replay target before the recording is loaded. In strict mode only
// prepared sample ids may be replayed, and with args their recorded arguments must match.
func WithPrepare(method core.MethodIdentity, id string, args ...any) Option {
	return func(f *Fixture) {
		f.prepared = append(f.prepared, preparedSample{method: method, id: id, args: args})
	}
}

// New returns the fixture of t. In replay mode the recording is installed before New returns;
// failures to load it are reported through t.Errorf.
func New(t T, opts ...Option) *Fixture {
	t.Helper()

	f := &Fixture{t: t, fs: afero.NewOsFs()}

	for _, opt := range opts {
		opt(f)
	}

	if !f.cfgSet {
		cfg, err := config.Load()
		if err != nil {
			t.Errorf("deepstub: %v", err)

			cfg = config.Default()
		}

		f.cfg = cfg
	}

	logger := f.buildLogger()
	f.Context = core.NewContext(core.WithLogger(logger))

	t.Cleanup(f.finish)

	if f.cfg.Mode != config.ModeReplay || f.cfg.Strict {
		f.prepare()
	}

	if f.cfg.Mode == config.ModeOff {
		return f
	}

	if err := f.openSources(); err != nil {
		t.Errorf("deepstub: %v", err)
		return f
	}

	f.manager = persistence.NewManager(f.sources, persistence.WithManagerLogger(logger))

	if f.cfg.Mode == config.ModeReplay {
		f.replay()

		if !f.cfg.Strict {
			f.prepare()
		}
	}

	return f
}

// Config returns the effective configuration.
func (f *Fixture) Config() config.Config {
	return f.cfg
}

// Sources returns the recording sources in use.
func (f *Fixture) Sources() []persistence.Source {
	return append([]persistence.Source(nil), f.sources...)
}

// RecordingPath is where the file source of this test lives.
func (f *Fixture) RecordingPath() string {
	return filepath.Join(f.cfg.Root, filepath.FromSlash(safeName(f.t.Name()))+"."+f.cfg.Format)
}

func (f *Fixture) buildLogger() zerolog.Logger {
	if f.logger != nil {
		return *f.logger
	}

	level, err := logging.ParseLevel(f.cfg.LogLevel)
	if err != nil {
		f.t.Errorf("deepstub: %v", err)

		level = logging.WarnLevel
	}

	return logging.NewLogger(logging.Config{File: f.cfg.LogFile, Level: level, Component: "fixture"}).
		With().Str("test", f.t.Name()).Logger()
}

func (f *Fixture) openSources() error {
	if len(f.sources) > 0 {
		return nil
	}

	if f.cfg.UsesSource(config.SourceFile) {
		codec, err := persistence.CodecFor(f.cfg.Format)
		if err != nil {
			return err
		}

		f.sources = append(f.sources, persistence.NewFileSource(f.fs, f.RecordingPath(), codec))
	}

	if f.cfg.UsesSource(config.SourceSQLite) {
		store, err := persistence.OpenSQLite(context.Background(), f.cfg.SQLiteDSN)
		if err != nil {
			return err
		}

		f.store = store
		f.sources = append(f.sources, store.Source(f.t.Name()))
	}

	return nil
}

func (f *Fixture) replay() {
	f.t.Helper()

	replay, err := f.manager.Load(context.Background())
	if err != nil {
		f.t.Errorf("deepstub: replay %s: %v", f.t.Name(), err)
		return
	}

	if err := f.InstallReplay(replay); err != nil {
		f.t.Errorf("deepstub: replay %s: %v", f.t.Name(), err)
	}
}

// prepare declares the prepared sample ids. Before a replay is installed they make it strict.
func (f *Fixture) prepare() {
	for _, p := range f.prepared {
		f.Prepare(p.method, p.id, p.args...)
	}
}

// finish records, verifies and resets, in that order.
func (f *Fixture) finish() {
	f.t.Helper()

	if f.cfg.Mode == config.ModeRecord && f.manager != nil {
		if err := f.manager.Record(context.Background(), f.t.Name(), f.Export()); err != nil {
			f.t.Errorf("deepstub: record %s: %v", f.t.Name(), err)
		}
	}

	if err := f.Check(); err != nil {
		f.t.Errorf("%v", err)
	}

	f.Reset()

	if f.store != nil {
		if err := f.store.Close(); err != nil {
			f.t.Errorf("deepstub: %v", err)
		}
	}
}

//nolint:gochecknoglobals // compiled once
var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_./-]+`)

// safeName keeps subtest slashes as directories and replaces everything else unusual.
func safeName(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}
