package config_test

import (
	"testing"

	. "github.com/onsi/gomega"
	"github.com/spf13/afero"

	"github.com/toejough/deepstub/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	cfg, err := config.Load(config.WithFs(afero.NewMemMapFs()))

	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cfg.Mode).To(Equal(config.ModeOff))
	g.Expect(cfg.Format).To(Equal("json"))
	g.Expect(cfg.Root).To(Equal("testdata/samples"))
	g.Expect(cfg.Sources).To(Equal([]string{config.SourceFile}))
	g.Expect(cfg.SQLiteDSN).To(HaveSuffix("samples.db"))
	g.Expect(cfg.Strict).To(BeFalse())
}

func TestLoad_File(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fs := afero.NewMemMapFs()
	g.Expect(afero.WriteFile(fs, "/project/deepstub.yaml", []byte(`
mode: replay
format: yaml
root: fixtures
sources: [file, sqlite]
sqlite:
  dsn: /tmp/samples.db
log:
  file: /tmp/deepstub.log
  level: debug
strict: true
`), 0o600)).To(Succeed())

	cfg, err := config.Load(config.WithFs(fs), config.WithSearchPath("/project"))

	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cfg).To(Equal(config.Config{
		Mode:      config.ModeReplay,
		Format:    "yaml",
		Root:      "fixtures",
		Sources:   []string{config.SourceFile, config.SourceSQLite},
		SQLiteDSN: "/tmp/samples.db",
		LogFile:   "/tmp/deepstub.log",
		LogLevel:  "debug",
		Strict:    true,
	}))
	g.Expect(cfg.UsesSource(config.SourceSQLite)).To(BeTrue())
}

func TestLoad_InvalidFileValues(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fs := afero.NewMemMapFs()
	g.Expect(afero.WriteFile(fs, "/c/custom.yaml", []byte("mode: rewind\n"), 0o600)).To(Succeed())

	_, err := config.Load(config.WithFs(fs), config.WithFile("/c/custom.yaml"))

	g.Expect(err).To(MatchError(ContainSubstring(`invalid mode: "rewind"`)))
}

//nolint:paralleltest // t.Setenv
func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	g := NewWithT(t)

	fs := afero.NewMemMapFs()
	g.Expect(afero.WriteFile(fs, "/p/deepstub.yaml", []byte("mode: replay\nformat: yaml\n"), 0o600)).To(Succeed())

	t.Setenv("DEEPSTUB_MODE", "RECORD")
	t.Setenv("DEEPSTUB_SOURCES", "sqlite, file")
	t.Setenv("DEEPSTUB_SQLITE_DSN", ":memory:")

	cfg, err := config.Load(config.WithFs(fs), config.WithSearchPath("/p"))

	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cfg.Mode).To(Equal(config.ModeRecord))
	g.Expect(cfg.Format).To(Equal("yaml"))
	g.Expect(cfg.Sources).To(Equal([]string{config.SourceSQLite, config.SourceFile}))
	g.Expect(cfg.SQLiteDSN).To(Equal(":memory:"))
}

func TestValidate(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	g.Expect(config.Default().Validate()).To(Succeed())

	badFormat := config.Default()
	badFormat.Format = "xml"
	g.Expect(badFormat.Validate()).To(MatchError(ContainSubstring("invalid format")))

	badSource := config.Default()
	badSource.Sources = []string{"s3"}
	g.Expect(badSource.Validate()).To(MatchError(ContainSubstring("invalid source")))
}
