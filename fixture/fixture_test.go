package fixture_test

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/toejough/deepstub/fixture"
	"github.com/toejough/deepstub/internal/config"
	"github.com/toejough/deepstub/internal/core"
)

// fakeT records Errorf calls and runs cleanups when the fake test ends.
type fakeT struct {
	name     string
	errors   []string
	cleanups []func()
}

func (f *fakeT) Helper() {}

func (f *fakeT) Name() string { return f.name }

func (f *fakeT) Errorf(format string, args ...any) {
	f.errors = append(f.errors, fmt.Sprintf(format, args...))
}

func (f *fakeT) Cleanup(fn func()) {
	f.cleanups = append(f.cleanups, fn)
}

func (f *fakeT) end() {
	for i := len(f.cleanups) - 1; i >= 0; i-- {
		f.cleanups[i]()
	}
}

type priceFunc func(sku string) (float64, error)

//nolint:gochecknoglobals // method identity of the stubbed function
var priceMethod = core.NewMethodIdentity("example.com/shop.Catalog", "Price", "string")

func realPrice(sku string) (float64, error) {
	if sku == "missing" {
		return 0, fmt.Errorf("no price for %s", sku)
	}

	return float64(len(sku)), nil
}

func cfgWith(mode config.Mode) config.Config {
	cfg := config.Default()
	cfg.Mode = mode

	return cfg
}

func quiet() fixture.Option {
	return fixture.WithLogger(zerolog.Nop())
}

func TestFixture_OffModeVerifiesAtCleanup(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fake := &fakeT{name: "TestOff"}
	f := fixture.New(fake, fixture.WithConfig(cfgWith(config.ModeOff)), quiet())

	f.Stub(priceMethod, "a").Return(1.0).Times(core.Once())
	fake.end()

	g.Expect(fake.errors).To(HaveLen(1))
	g.Expect(fake.errors[0]).To(ContainSubstring("expected Exactly(1), got 0"))
	g.Expect(f.Samples()).To(BeEmpty(), "the context is reset after verification")
	g.Expect(f.Sources()).To(BeEmpty())
}

func TestFixture_RecordThenReplay(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fs := afero.NewMemMapFs()

	recorder := &fakeT{name: "TestCheckout"}
	rec := fixture.New(recorder, fixture.WithConfig(cfgWith(config.ModeRecord)), fixture.WithFs(fs), quiet())
	livePrice := core.Func[priceFunc](rec.Context, priceMethod, realPrice)

	for _, sku := range []string{"ab", "abcd", "missing"} {
		_, _ = livePrice(sku)
	}

	recorder.end()
	g.Expect(recorder.errors).To(BeEmpty())

	exists, err := afero.Exists(fs, filepath.Join("testdata", "samples", "TestCheckout.json"))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(exists).To(BeTrue())

	replayer := &fakeT{name: "TestCheckout"}
	rep := fixture.New(replayer, fixture.WithConfig(cfgWith(config.ModeReplay)), fixture.WithFs(fs), quiet())
	price := core.Func[priceFunc](rep.Context, priceMethod, nil)

	first, err := price("anything")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(first).To(Equal(2.0))

	second, _ := price("anything")
	g.Expect(second).To(Equal(4.0))

	_, err = price("anything")
	g.Expect(err).To(MatchError("no price for missing"))

	replayer.end()
	g.Expect(replayer.errors).To(BeEmpty())
}

func TestFixture_ReplayWithoutRecordingReports(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fake := &fakeT{name: "TestNeverRecorded"}
	fixture.New(fake, fixture.WithConfig(cfgWith(config.ModeReplay)), fixture.WithFs(afero.NewMemMapFs()), quiet())

	g.Expect(fake.errors).To(HaveLen(1))
	g.Expect(fake.errors[0]).To(ContainSubstring("no recording found in any source"))

	fake.end()
}

func TestFixture_StrictReplaySuggestsPreparedID(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fs := afero.NewMemMapFs()

	recorder := &fakeT{name: "TestStrict"}
	rec := fixture.New(recorder, fixture.WithConfig(cfgWith(config.ModeRecord)), fixture.WithFs(fs), quiet())
	rec.Stub(priceMethod, "x").Return(9.5).HasID("catalog.price")

	_, _ = core.Func[priceFunc](rec.Context, priceMethod, nil)("x")

	recorder.end()
	g.Expect(recorder.errors).To(BeEmpty())

	strict := cfgWith(config.ModeReplay)
	strict.Strict = true

	replayer := &fakeT{name: "TestStrict"}
	fixture.New(replayer, fixture.WithConfig(strict), fixture.WithFs(fs), quiet(),
		fixture.WithPrepare(priceMethod, "catalog.prices"))

	g.Expect(replayer.errors).To(HaveLen(1))
	g.Expect(replayer.errors[0]).To(ContainSubstring(`did you mean "catalog.prices"`))

	replayer.end()
}

func TestFixture_StrictReplayChecksPreparedArguments(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fs := afero.NewMemMapFs()

	recorder := &fakeT{name: "TestStrictArgs"}
	rec := fixture.New(recorder, fixture.WithConfig(cfgWith(config.ModeRecord)), fixture.WithFs(fs), quiet())
	rec.Stub(priceMethod, "x").Return(9.5).HasID("catalog.price")

	_, _ = core.Func[priceFunc](rec.Context, priceMethod, nil)("x")

	recorder.end()
	g.Expect(recorder.errors).To(BeEmpty())

	strict := cfgWith(config.ModeReplay)
	strict.Strict = true

	mismatched := &fakeT{name: "TestStrictArgs"}
	fixture.New(mismatched, fixture.WithConfig(strict), fixture.WithFs(fs), quiet(),
		fixture.WithPrepare(priceMethod, "catalog.price", "y"))

	g.Expect(mismatched.errors).To(HaveLen(1))
	g.Expect(mismatched.errors[0]).To(ContainSubstring("recorded parameters not matched"))

	mismatched.end()

	matched := &fakeT{name: "TestStrictArgs"}
	rep := fixture.New(matched, fixture.WithConfig(strict), fixture.WithFs(fs), quiet(),
		fixture.WithPrepare(priceMethod, "catalog.price", "x"))

	value, err := core.Func[priceFunc](rep.Context, priceMethod, nil)("x")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(value).To(Equal(9.5))

	matched.end()
	g.Expect(matched.errors).To(BeEmpty())
}

func TestFixture_SQLiteSource(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	cfg := cfgWith(config.ModeRecord)
	cfg.Sources = []string{config.SourceSQLite}
	cfg.SQLiteDSN = filepath.Join(t.TempDir(), "samples.db")

	recorder := &fakeT{name: "TestSQLite"}
	rec := fixture.New(recorder, fixture.WithConfig(cfg), quiet())
	_, _ = core.Func[priceFunc](rec.Context, priceMethod, realPrice)("abc")

	g.Expect(rec.Sources()).To(HaveLen(1))
	g.Expect(rec.Sources()[0].String()).To(Equal("sqlite:TestSQLite"))

	recorder.end()
	g.Expect(recorder.errors).To(BeEmpty())

	cfg.Mode = config.ModeReplay

	replayer := &fakeT{name: "TestSQLite"}
	rep := fixture.New(replayer, fixture.WithConfig(cfg), quiet())

	value, err := core.Func[priceFunc](rep.Context, priceMethod, nil)("zzz")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(value).To(Equal(3.0))

	replayer.end()
	g.Expect(replayer.errors).To(BeEmpty())
}

func TestFixture_RecordingPathOfSubtests(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	cfg := cfgWith(config.ModeOff)
	cfg.Format = "yaml"
	cfg.Root = "fixtures"

	fake := &fakeT{name: "TestPrices/with spaces & symbols"}
	f := fixture.New(fake, fixture.WithConfig(cfg), quiet())

	path := filepath.ToSlash(f.RecordingPath())
	g.Expect(path).To(Equal("fixtures/TestPrices/with_spaces_symbols.yaml"))
	g.Expect(strings.Count(path, "/")).To(Equal(2))

	fake.end()
}
