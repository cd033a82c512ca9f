// Package load finds interface declarations by parsing package sources with dst.
package load

import (
	"errors"
	"fmt"
	"go/build"
	"go/token"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dave/dst"
	"github.com/dave/dst/decorator"
	"github.com/spf13/afero"
)

// Exported errors.
var (
	ErrNoPackagesFound   = errors.New("no packages found")
	ErrInterfaceNotFound = errors.New("interface not found")
	ErrImportNotFound    = errors.New("import not found")
)

// Interface is an interface declaration and the file it was found in.
type Interface struct {
	Name string
	// Package is the declaring package name.
	Package    string
	Type       *dst.InterfaceType
	TypeParams *dst.FieldList
	File       *dst.File
	// Files are all parsed files of the declaring package.
	Files []*dst.File
}

// Package is a parsed package directory.
type Package struct {
	Dir   string
	Files []*dst.File
	// Names are the base names of Files, index for index.
	Names []string
}

// File returns the parsed file with the given base name, or nil.
func (p *Package) File(name string) *dst.File {
	for i, fileName := range p.Names {
		if fileName == name {
			return p.Files[i]
		}
	}

	return nil
}

// ResolveDir returns the source directory of an import path. "." is the working directory.
func ResolveDir(importPath, workDir string) (string, error) {
	if importPath == "." {
		return workDir, nil
	}

	pkg, err := build.Import(importPath, workDir, build.FindOnly)
	if err != nil {
		return "", fmt.Errorf("failed to find package %q: %w", importPath, err)
	}

	return pkg.Dir, nil
}

// PackageDST parses every .go file of dir. Test files are only included when includeTests is
// set; files that fail to parse are skipped.
func PackageDST(fsys afero.Fs, dir string, includeTests bool) (*Package, error) {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	fset := token.NewFileSet()
	dec := decorator.NewDecorator(fset)
	pkg := &Package{Dir: dir}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") {
			continue
		}

		if !includeTests && strings.HasSuffix(name, "_test.go") {
			continue
		}

		src, err := afero.ReadFile(fsys, filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}

		file, err := dec.ParseFile(filepath.Join(dir, name), src, 0)
		if err != nil {
			continue
		}

		pkg.Files = append(pkg.Files, file)
		pkg.Names = append(pkg.Names, name)
	}

	if len(pkg.Files) == 0 {
		return nil, fmt.Errorf("%w: no parsable .go files in %s", ErrNoPackagesFound, dir)
	}

	return pkg, nil
}

// FindInterface returns the interface named name declared in files.
func FindInterface(files []*dst.File, name string) (*Interface, error) {
	for _, file := range files {
		for _, decl := range file.Decls {
			gen, ok := decl.(*dst.GenDecl)
			if !ok || gen.Tok != token.TYPE {
				continue
			}

			for _, spec := range gen.Specs {
				typeSpec, ok := spec.(*dst.TypeSpec)
				if !ok || typeSpec.Name.Name != name {
					continue
				}

				ifaceType, ok := typeSpec.Type.(*dst.InterfaceType)
				if !ok {
					return nil, fmt.Errorf("%w: %s is not an interface", ErrInterfaceNotFound, name)
				}

				return &Interface{
					Name:       name,
					Package:    file.Name.Name,
					Type:       ifaceType,
					TypeParams: typeSpec.TypeParams,
					File:       file,
					Files:      files,
				}, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrInterfaceNotFound, name)
}

// FindImportPath returns the import path file refers to as pkgName, by alias or by the last
// path element.
func FindImportPath(file *dst.File, pkgName string) (string, error) {
	for _, spec := range file.Imports {
		importPath, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}

		if spec.Name != nil {
			if spec.Name.Name == pkgName {
				return importPath, nil
			}

			continue
		}

		if importPathMatchesPackageName(importPath, pkgName) {
			return importPath, nil
		}
	}

	return "", fmt.Errorf("%w: %s in %s", ErrImportNotFound, pkgName, file.Name.Name)
}

// ImportsOf returns the import paths of file keyed by the name the file uses for them.
func ImportsOf(file *dst.File) map[string]string {
	imports := make(map[string]string, len(file.Imports))

	for _, spec := range file.Imports {
		importPath, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}

		name := guessPackageName(importPath)
		if spec.Name != nil {
			name = spec.Name.Name
		}

		imports[name] = importPath
	}

	return imports
}

// guessPackageName strips a trailing major version and a "go-" prefix from the last element.
func guessPackageName(importPath string) string {
	base := path.Base(importPath)
	if isMajorVersion(base) {
		base = path.Base(path.Dir(importPath))
	}

	return strings.TrimPrefix(base, "go-")
}

func isMajorVersion(elem string) bool {
	return len(elem) > 1 && elem[0] == 'v' && strings.TrimLeft(elem[1:], "0123456789") == ""
}

// importPathMatchesPackageName accepts "example.com/pkg" and versioned "example.com/pkg/v2".
func importPathMatchesPackageName(importPath, pkgName string) bool {
	return path.Base(importPath) == pkgName || guessPackageName(importPath) == pkgName
}
