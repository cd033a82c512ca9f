// Package generate renders deepstub stand-in source for an interface.
package generate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dave/dst"

	astutil "github.com/toejough/deepstub/stubgen/run/0_util"
)

// Exported errors.
var (
	ErrReservedMethod = errors.New("method name is reserved by the stand-in")
	ErrNoMethods      = errors.New("interface has no methods")
)

// Import is an import of the generated file. An empty Alias imports by path only.
type Import struct {
	Alias string
	Path  string
}

// Method is one interface method to forward. Qualify rewrites identifiers of the declaring
// package, nil leaves them alone.
type Method struct {
	Name    string
	Func    *dst.FuncType
	Qualify astutil.Qualifier
}

// Request describes the stand-in to generate.
type Request struct {
	// Package is the package the generated file belongs to.
	Package string
	// Name is the stand-in type name.
	Name string
	// Interface is the interface type as written in the generated file.
	Interface string
	Imports   []Import
	Methods   []Method
}

// Stub renders the stand-in source. The result is unformatted.
func Stub(req Request) ([]byte, error) {
	if len(req.Methods) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMethods, req.Interface)
	}

	data := stubData{
		Package:   req.Package,
		Name:      req.Name,
		Interface: req.Interface,
		Imports:   req.Imports,
	}

	seen := make(map[string]bool, len(req.Methods))

	for _, method := range req.Methods {
		if method.Name == "Intercepted" {
			return nil, fmt.Errorf("%w: %s.%s", ErrReservedMethod, req.Interface, method.Name)
		}

		// identical methods may arrive through several embedded interfaces
		if seen[method.Name] {
			continue
		}

		seen[method.Name] = true

		data.Methods = append(data.Methods, newMethodData(method))
	}

	return render(data)
}

type stubData struct {
	Package   string
	Name      string
	Interface string
	Imports   []Import
	Methods   []methodData
}

type methodData struct {
	Name       string
	Params     string
	Results    string
	Args       string
	RealBody   string
	ReturnBody string
}

type param struct {
	name     string
	typ      string
	variadic bool
}

// reservedNames collide with identifiers of the generated method bodies.
//
//nolint:gochecknoglobals // fixed lookup
var (
	reservedNames = map[string]bool{"s": true, "out": true, "err": true, "any": true, "deepstub": true}
	resultName    = regexp.MustCompile(`^r[0-9]+$`)
)

func newMethodData(method Method) methodData {
	results := resultTypes(method.Func.Results, method.Qualify)
	params := paramsOf(method.Func.Params, method.Qualify, strings.Join(results, " "))

	hasErr := len(results) > 0 && results[len(results)-1] == "error"
	values := results
	if hasErr {
		values = results[:len(results)-1]
	}

	return methodData{
		Name:       method.Name,
		Params:     paramList(params),
		Results:    resultList(results),
		Args:       argList(params),
		RealBody:   realBody(method.Name, params, len(values), hasErr),
		ReturnBody: returnBody(values, hasErr),
	}
}

// paramsOf names every parameter. Blank, reserved and shadowing names are replaced by p<i>.
func paramsOf(fields *dst.FieldList, qualify astutil.Qualifier, resultText string) []param {
	if fields == nil {
		return nil
	}

	var params []param

	for _, field := range fields.List {
		_, variadic := field.Type.(*dst.Ellipsis)
		typ := astutil.Stringify(field.Type, qualify)

		names := field.Names
		if len(names) == 0 {
			names = []*dst.Ident{nil}
		}

		for _, ident := range names {
			name := "p" + strconv.Itoa(len(params))
			if ident != nil && usableName(ident.Name, resultText) {
				name = ident.Name
			}

			params = append(params, param{name: name, typ: typ, variadic: variadic})
		}
	}

	return params
}

// usableName rejects names the method body needs, including package names used by result types.
func usableName(name, resultText string) bool {
	if name == "_" || reservedNames[name] || resultName.MatchString(name) {
		return false
	}

	return !strings.Contains(resultText, name+".")
}

func resultTypes(fields *dst.FieldList, qualify astutil.Qualifier) []string {
	if fields == nil {
		return nil
	}

	return astutil.ExpandFieldListTypes(fields.List, func(expr dst.Expr) string {
		return astutil.Stringify(expr, qualify)
	})
}

func paramList(params []param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.name + " " + p.typ
	}

	return strings.Join(parts, ", ")
}

func resultList(results []string) string {
	switch len(results) {
	case 0:
		return ""
	case 1:
		return " " + results[0]
	default:
		return " (" + strings.Join(results, ", ") + ")"
	}
}

// argList records a variadic parameter as its slice.
func argList(params []param) string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.name
	}

	return strings.Join(names, ", ")
}

func callExpr(name string, params []param) string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.name
		if p.variadic {
			names[i] += "..."
		}
	}

	return "s.real." + name + "(" + strings.Join(names, ", ") + ")"
}

func realBody(name string, params []param, values int, hasErr bool) string {
	call := callExpr(name, params)

	switch {
	case values == 0 && !hasErr:
		return call + "\n\n\t\treturn nil, nil"
	case values == 0:
		return "return nil, " + call
	case values == 1 && !hasErr:
		return "return []any{" + call + "}, nil"
	}

	vars := make([]string, values)
	for i := range vars {
		vars[i] = "r" + strconv.Itoa(i)
	}

	collected := "[]any{" + strings.Join(vars, ", ") + "}"

	if hasErr {
		return strings.Join(vars, ", ") + ", err := " + call + "\n\n\t\treturn " + collected + ", err"
	}

	return strings.Join(vars, ", ") + " := " + call + "\n\n\t\treturn " + collected + ", nil"
}

func returnBody(values []string, hasErr bool) string {
	returned := make([]string, 0, len(values)+1)
	for i, typ := range values {
		returned = append(returned, "deepstub.Value["+typ+"](out, "+strconv.Itoa(i)+")")
	}

	if hasErr {
		returned = append(returned, "deepstub.Err(out, "+strconv.Itoa(len(values))+")")

		return "\n\treturn " + strings.Join(returned, ", ")
	}

	if len(returned) == 0 {
		return "\tdeepstub.Raise(out)"
	}

	return "\tdeepstub.Raise(out)\n\n\treturn " + strings.Join(returned, ", ")
}
