package output_test

import (
	"bytes"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/spf13/afero"

	output "github.com/toejough/deepstub/stubgen/run/6_output"
)

func TestFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, stub, pkgName, goFile, want string
	}{
		{"regular package", "StubStore", "store", "store.go", "generated_StubStore.go"},
		{"name with .go suffix", "StubStore.go", "store", "store.go", "generated_StubStore.go"},
		{"test package", "StubStore", "store_test", "store.go", "generated_StubStore_test.go"},
		{"test file", "StubStore", "store", "store_test.go", "generated_StubStore_test.go"},
		{"name already _test", "StubStore_test", "store_test", "store.go", "generated_StubStore_test.go"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			getEnv := func(key string) string {
				if key == "GOFILE" {
					return tt.goFile
				}

				return ""
			}

			NewWithT(t).Expect(output.Filename(tt.stub, tt.pkgName, getEnv)).To(Equal(tt.want))
		})
	}
}

func TestWriteGeneratedCode(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fs := afero.NewMemMapFs()
	out := &bytes.Buffer{}
	code := []byte("package store\nimport (\n\"strings\"\n\"fmt\"\n)\nfunc b() string { return fmt.Sprint(1) }\nfunc a() {}\n")

	path, err := output.WriteGeneratedCode(fs, "/work", code, "StubStore", "store", func(string) string { return "" }, out)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(path).To(Equal("/work/generated_StubStore.go"))
	g.Expect(out.String()).To(ContainSubstring("written successfully"))

	written, err := afero.ReadFile(fs, path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(string(written)).To(ContainSubstring("import \"fmt\""))
	g.Expect(string(written)).NotTo(ContainSubstring("strings"))
}

func TestWriteGeneratedCode_InvalidCode(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	fs := afero.NewMemMapFs()

	_, err := output.WriteGeneratedCode(fs, "/work", []byte("package store\nfunc {"), "StubStore", "store",
		func(string) string { return "" }, &bytes.Buffer{})
	g.Expect(err).To(HaveOccurred())

	exists, _ := afero.Exists(fs, "/work/generated_StubStore.go")
	g.Expect(exists).To(BeFalse())
}
