// Package run implements the stubgen tool in a testable way.
package run

import (
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/dave/dst"
	"github.com/spf13/afero"

	astutil "github.com/toejough/deepstub/stubgen/run/0_util"
	load "github.com/toejough/deepstub/stubgen/run/2_load"
	generate "github.com/toejough/deepstub/stubgen/run/5_generate"
	output "github.com/toejough/deepstub/stubgen/run/6_output"
)

// Exported errors.
var (
	ErrGenericInterface = errors.New("generic interfaces are not supported")
	ErrUnsupportedEmbed = errors.New("unsupported interface element")
	ErrNoGoFile         = errors.New("GOFILE is not set; run stubgen from a go:generate directive")
)

// Run parses args, finds the named interface and writes its stand-in into workDir.
// getEnv supplies GOPACKAGE and GOFILE as set by go generate.
func Run(args []string, getEnv func(string) string, fsys afero.Fs, workDir string, out io.Writer) error {
	parsed, err := parseArgs(args)
	if err != nil {
		return err
	}

	qualifier, localName := splitInterfaceName(parsed.Interface)

	stubName := parsed.Name
	if stubName == "" {
		stubName = "Stub" + localName
	}

	target, err := findTarget(fsys, workDir, getEnv, qualifier, localName)
	if err != nil {
		return err
	}

	if target.iface.TypeParams != nil && len(target.iface.TypeParams.List) > 0 {
		return fmt.Errorf("%w: %s", ErrGenericInterface, parsed.Interface)
	}

	collector := &methodCollector{fsys: fsys, workDir: workDir, imports: target.imports}

	err = collector.collect(target.iface, target.qualify, map[string]bool{})
	if err != nil {
		return err
	}

	pkgName := getEnv("GOPACKAGE")
	if pkgName == "" {
		pkgName = target.iface.Package
	}

	code, err := generate.Stub(generate.Request{
		Package:   pkgName,
		Name:      stubName,
		Interface: parsed.Interface,
		Imports:   collector.sortedImports(),
		Methods:   collector.methods,
	})
	if err != nil {
		return err
	}

	_, err = output.WriteGeneratedCode(fsys, workDir, code, stubName, pkgName, getEnv, out)

	return err
}

// cliArgs defines the command-line arguments for the generator.
type cliArgs struct {
	Interface string `arg:"positional,required" help:"interface to stand in for (e.g. Store or pkg.Store)"`
	Name      string `arg:"--name"              help:"name of the generated stand-in (defaults to Stub<Interface>)"`
}

func (cliArgs) Description() string {
	return "stubgen generates a deepstub stand-in for an interface."
}

// target is the interface to generate for, as seen from the generating package.
type target struct {
	iface   *load.Interface
	qualify astutil.Qualifier
	imports map[string]string
}

// methodCollector flattens an interface and its embedded interfaces into methods.
type methodCollector struct {
	fsys    afero.Fs
	workDir string
	imports map[string]string
	methods []generate.Method
}

func (c *methodCollector) collect(iface *load.Interface, qualify astutil.Qualifier, visiting map[string]bool) error {
	key := iface.Package + "." + iface.Name
	if visiting[key] {
		return nil
	}

	visiting[key] = true

	for _, field := range iface.Type.Methods.List {
		err := c.collectField(iface, field, qualify, visiting)
		if err != nil {
			return err
		}
	}

	return nil
}

func (c *methodCollector) collectField(
	iface *load.Interface, field *dst.Field, qualify astutil.Qualifier, visiting map[string]bool,
) error {
	switch typ := field.Type.(type) {
	case *dst.FuncType:
		for _, name := range field.Names {
			c.methods = append(c.methods, generate.Method{Name: name.Name, Func: typ, Qualify: qualify})
		}

		return nil
	case *dst.Ident:
		embedded, err := load.FindInterface(iface.Files, typ.Name)
		if err != nil {
			return fmt.Errorf("embedded %s in %s: %w", typ.Name, iface.Name, err)
		}

		c.addImports("", "", embedded.File)

		return c.collect(embedded, qualify, visiting)
	case *dst.SelectorExpr:
		pkgIdent, ok := typ.X.(*dst.Ident)
		if !ok {
			break
		}

		embedded, importPath, err := c.loadExternal(iface.File, pkgIdent.Name, typ.Sel.Name)
		if err != nil {
			return err
		}

		c.addImports(pkgIdent.Name, importPath, embedded.File)

		return c.collect(embedded, astutil.QualifyExported(pkgIdent.Name), visiting)
	}

	return fmt.Errorf("%w: %s in %s", ErrUnsupportedEmbed, astutil.StringifyExpr(field.Type), iface.Name)
}

func (c *methodCollector) loadExternal(from *dst.File, pkgName, name string) (*load.Interface, string, error) {
	importPath, err := load.FindImportPath(from, pkgName)
	if err != nil {
		return nil, "", err
	}

	iface, err := loadInterface(c.fsys, c.workDir, importPath, name)
	if err != nil {
		return nil, "", err
	}

	return iface, importPath, nil
}

// addImports records the package itself, when named, and the imports its types may refer to.
// Names already taken keep their first import.
func (c *methodCollector) addImports(pkgName, importPath string, file *dst.File) {
	if _, taken := c.imports[pkgName]; pkgName != "" && !taken {
		c.imports[pkgName] = importPath
	}

	for name, p := range load.ImportsOf(file) {
		if _, taken := c.imports[name]; !taken {
			c.imports[name] = p
		}
	}
}

func (c *methodCollector) sortedImports() []generate.Import {
	names := make([]string, 0, len(c.imports))
	for name := range c.imports {
		names = append(names, name)
	}

	sort.Strings(names)

	result := make([]generate.Import, 0, len(names))

	for _, name := range names {
		importPath := c.imports[name]

		alias := name
		if path.Base(importPath) == name {
			alias = ""
		}

		result = append(result, generate.Import{Alias: alias, Path: importPath})
	}

	return result
}

func findTarget(
	fsys afero.Fs, workDir string, getEnv func(string) string, qualifier, localName string,
) (target, error) {
	local, err := load.PackageDST(fsys, workDir, true)
	if err != nil {
		return target{}, err
	}

	if qualifier == "" {
		iface, err := load.FindInterface(local.Files, localName)
		if err != nil {
			return target{}, err
		}

		return target{iface: iface, imports: load.ImportsOf(iface.File)}, nil
	}

	goFile, err := generatingFile(local, getEnv)
	if err != nil {
		return target{}, err
	}

	importPath, err := load.FindImportPath(goFile, qualifier)
	if err != nil {
		return target{}, err
	}

	iface, err := loadInterface(fsys, workDir, importPath, localName)
	if err != nil {
		return target{}, err
	}

	imports := load.ImportsOf(iface.File)
	imports[qualifier] = importPath

	return target{iface: iface, qualify: astutil.QualifyExported(qualifier), imports: imports}, nil
}

// generatingFile is the parsed file holding the go:generate directive.
func generatingFile(local *load.Package, getEnv func(string) string) (*dst.File, error) {
	goFile := getEnv("GOFILE")
	if goFile == "" {
		return nil, ErrNoGoFile
	}

	if file := local.File(goFile); file != nil {
		return file, nil
	}

	return nil, fmt.Errorf("%w: %s not found in %s", load.ErrNoPackagesFound, goFile, local.Dir)
}

func loadInterface(fsys afero.Fs, workDir, importPath, name string) (*load.Interface, error) {
	dir, err := load.ResolveDir(importPath, workDir)
	if err != nil {
		return nil, err
	}

	pkg, err := load.PackageDST(fsys, dir, false)
	if err != nil {
		return nil, err
	}

	return load.FindInterface(pkg.Files, name)
}

func parseArgs(args []string) (cliArgs, error) {
	var parsed cliArgs

	parser, err := arg.NewParser(arg.Config{Program: "stubgen"}, &parsed)
	if err != nil {
		return cliArgs{}, fmt.Errorf("failed to create argument parser: %w", err)
	}

	var cmdArgs []string
	if len(args) > 1 {
		cmdArgs = args[1:]
	}

	err = parser.Parse(cmdArgs)
	if err != nil {
		return cliArgs{}, fmt.Errorf("failed to parse arguments: %w", err)
	}

	return parsed, nil
}

// splitInterfaceName splits "pkg.Store" into "pkg" and "Store".
func splitInterfaceName(name string) (string, string) {
	qualifier, local, found := strings.Cut(name, ".")
	if !found {
		return "", name
	}

	return qualifier, local
}
