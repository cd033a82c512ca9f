package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toejough/deepstub/internal/core"
	"github.com/toejough/deepstub/persistence"
)

var errUnavailable = errors.New("unavailable")

// failingSource fails every operation.
type failingSource struct{}

func (failingSource) Save(context.Context, persistence.Model) error { return errUnavailable }

func (failingSource) Load(context.Context) (persistence.Model, error) {
	return persistence.Model{}, errUnavailable
}

func (failingSource) String() string { return "failing" }

func TestManager_RecordSavesToEverySource(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	store := openStore(t, ":memory:")
	file := persistence.NewFileSource(fs, "samples/TestFind.json", persistence.JSON{})
	manager := persistence.NewManager(
		[]persistence.Source{file, store.Source("TestFind")},
		persistence.WithClock(func() time.Time { return recordedAt }),
	)

	require.NoError(t, manager.Record(context.Background(), "TestFind", sampleRecords()))

	for _, source := range manager.Sources() {
		model, err := source.Load(context.Background())
		require.NoError(t, err, source.String())
		assert.Equal(t, 3, model.CallCount(), source.String())
		assert.True(t, model.RecordedAt.Equal(recordedAt), source.String())
	}
}

func TestManager_RecordReportsFailures(t *testing.T) {
	t.Parallel()

	file := persistence.NewFileSource(afero.NewMemMapFs(), "ok.json", persistence.JSON{})
	manager := persistence.NewManager([]persistence.Source{failingSource{}, file})

	err := manager.Record(context.Background(), "TestFail", sampleRecords())

	require.ErrorIs(t, err, errUnavailable)

	_, err = file.Load(context.Background())
	require.NoError(t, err, "the healthy source is still written")
}

func TestManager_LoadMergesEarlierSourceFirst(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	primary := persistence.NewFileSource(fs, "primary.json", persistence.JSON{})
	secondary := persistence.NewFileSource(fs, "secondary.yaml", persistence.YAML{})
	missing := persistence.NewFileSource(fs, "missing.json", persistence.JSON{})

	ctx := context.Background()
	records := sampleRecords()

	require.NoError(t, primary.Save(ctx, persistence.FromRecords("p", recordedAt, records[:1])))
	require.NoError(t, secondary.Save(ctx, persistence.FromRecords("s", recordedAt, records)))

	replay, err := persistence.NewManager([]persistence.Source{missing, primary, secondary}).Load(ctx)
	require.NoError(t, err)

	require.Len(t, replay.Methods, 2)
	assert.Equal(t, findMethod, replay.Methods[0].Method)
	assert.Len(t, replay.Methods[0].Calls, 1, "primary wins for find")
	assert.Equal(t, countMethod, replay.Methods[1].Method)
	assert.Equal(t, []string{countMethod.Key()}, replay.Methods[1].SampleIDs())
}

func TestManager_LoadNothing(t *testing.T) {
	t.Parallel()

	manager := persistence.NewManager([]persistence.Source{
		persistence.NewFileSource(afero.NewMemMapFs(), "missing.json", persistence.JSON{}),
	})

	_, err := manager.Load(context.Background())

	require.ErrorIs(t, err, persistence.ErrNothingLoaded)
}

func TestManager_LoadPropagatesErrors(t *testing.T) {
	t.Parallel()

	_, err := persistence.NewManager([]persistence.Source{failingSource{}}).Load(context.Background())

	require.ErrorIs(t, err, errUnavailable)
}

// TestManager_RecordThenReplay drives a full round trip through the engine.
func TestManager_RecordThenReplay(t *testing.T) {
	t.Parallel()

	recording := core.NewContext()
	lookup := core.NewMethodIdentity("example.com/geo.Service", "Lookup", "string")

	recording.Stub(lookup, "paris").Return(48.85)
	recording.Stub(lookup, "oslo").Return(59.91)

	for _, city := range []string{"paris", "oslo", "paris"} {
		_, err := recording.Intercept(core.Call{Method: lookup, Args: []any{city}})
		require.NoError(t, err)
	}

	manager := persistence.NewManager([]persistence.Source{
		persistence.NewFileSource(afero.NewMemMapFs(), "geo.json", persistence.JSON{}),
	})
	require.NoError(t, manager.Record(context.Background(), "TestGeo", recording.Export()))

	replay, err := manager.Load(context.Background())
	require.NoError(t, err)

	replaying := core.NewContext()
	require.NoError(t, replaying.InstallReplay(replay))

	got := make([]float64, 0, 3)

	for range 3 {
		out, err := replaying.Intercept(core.Call{Method: lookup, Args: []any{"anywhere"}})
		require.NoError(t, err)

		got = append(got, core.Value[float64](out, 0))
	}

	assert.Equal(t, []float64{48.85, 59.91, 48.85}, got)
}
