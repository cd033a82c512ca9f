// Package astutil renders dst type expressions back to Go source.
package astutil

import (
	"fmt"
	"go/token"
	"go/types"
	"strings"

	"github.com/dave/dst"
)

// Qualifier rewrites a bare identifier, e.g. adding a package selector. nil keeps identifiers
// as they are.
type Qualifier func(name string) string

// ExpandFieldListTypes expands a field list into individual type strings.
// For fields with multiple names (e.g., "a, b int"), outputs the type once per name.
// For unnamed fields, outputs the type once.
func ExpandFieldListTypes(fields []*dst.Field, typeFormatter func(dst.Expr) string) []string {
	var parts []string

	for _, f := range fields {
		typeStr := typeFormatter(f.Type)

		count := len(f.Names)
		if count == 0 {
			count = 1
		}

		for range count {
			parts = append(parts, typeStr)
		}
	}

	return parts
}

// QualifyExported returns a Qualifier that prefixes exported, non-predeclared identifiers with
// pkg. Type parameters named in skip are left alone.
func QualifyExported(pkg string, skip ...string) Qualifier {
	return func(name string) string {
		if !token.IsExported(name) || types.Universe.Lookup(name) != nil {
			return name
		}

		for _, s := range skip {
			if s == name {
				return name
			}
		}

		return pkg + "." + name
	}
}

// StringifyExpr converts a DST expression to its string representation.
func StringifyExpr(expr dst.Expr) string {
	return Stringify(expr, nil)
}

// Stringify converts a DST expression to its string representation, passing every bare
// identifier through qualify.
//
//nolint:cyclop,funlen // Type-switch dispatcher handling all DST expression types; complexity is inherent
func Stringify(expr dst.Expr, qualify Qualifier) string {
	if expr == nil {
		return ""
	}

	recurse := func(e dst.Expr) string { return Stringify(e, qualify) }

	switch typedExpr := expr.(type) {
	case *dst.Ident:
		if qualify != nil && typedExpr.Path == "" {
			return qualify(typedExpr.Name)
		}

		return typedExpr.Name
	case *dst.BasicLit:
		return typedExpr.Value
	case *dst.SelectorExpr:
		// Selectors are already qualified: only the package part is an identifier.
		return StringifyExpr(typedExpr.X) + "." + typedExpr.Sel.Name
	case *dst.StarExpr:
		return "*" + recurse(typedExpr.X)
	case *dst.ArrayType:
		if typedExpr.Len != nil {
			return "[" + recurse(typedExpr.Len) + "]" + recurse(typedExpr.Elt)
		}

		return "[]" + recurse(typedExpr.Elt)
	case *dst.MapType:
		return "map[" + recurse(typedExpr.Key) + "]" + recurse(typedExpr.Value)
	case *dst.ChanType:
		switch typedExpr.Dir {
		case dst.SEND:
			return "chan<- " + recurse(typedExpr.Value)
		case dst.RECV:
			return "<-chan " + recurse(typedExpr.Value)
		default:
			return "chan " + recurse(typedExpr.Value)
		}
	case *dst.InterfaceType:
		if typedExpr.Methods == nil || len(typedExpr.Methods.List) == 0 {
			return "interface{}"
		}

		return stringifyInterfaceType(typedExpr, recurse)
	case *dst.StructType:
		return stringifyStructType(typedExpr, recurse)
	case *dst.FuncType:
		return "func" + Signature(typedExpr, qualify)
	case *dst.Ellipsis:
		return "..." + recurse(typedExpr.Elt)
	case *dst.IndexExpr:
		return recurse(typedExpr.X) + "[" + recurse(typedExpr.Index) + "]"
	case *dst.IndexListExpr:
		indices := make([]string, len(typedExpr.Indices))
		for i, idx := range typedExpr.Indices {
			indices[i] = recurse(idx)
		}

		return recurse(typedExpr.X) + "[" + strings.Join(indices, ", ") + "]"
	case *dst.ParenExpr:
		return "(" + recurse(typedExpr.X) + ")"
	default:
		return fmt.Sprintf("%T", expr)
	}
}

// Signature renders the parameter and result lists of a function type, without the func
// keyword.
func Signature(funcType *dst.FuncType, qualify Qualifier) string {
	format := func(e dst.Expr) string { return Stringify(e, qualify) }

	var buf strings.Builder

	buf.WriteString("(")

	if funcType.Params != nil {
		buf.WriteString(strings.Join(ExpandFieldListTypes(funcType.Params.List, format), ", "))
	}

	buf.WriteString(")")

	if funcType.Results != nil && len(funcType.Results.List) > 0 {
		resultParts := ExpandFieldListTypes(funcType.Results.List, format)
		if len(resultParts) > 1 {
			buf.WriteString(" (" + strings.Join(resultParts, ", ") + ")")
		} else {
			buf.WriteString(" " + resultParts[0])
		}
	}

	return buf.String()
}

func stringifyInterfaceType(interfaceType *dst.InterfaceType, format func(dst.Expr) string) string {
	parts := make([]string, 0, len(interfaceType.Methods.List))

	for _, method := range interfaceType.Methods.List {
		funcType, ok := method.Type.(*dst.FuncType)
		if !ok || len(method.Names) == 0 {
			parts = append(parts, format(method.Type))
			continue
		}

		sig := strings.TrimPrefix(format(funcType), "func")
		parts = append(parts, method.Names[0].Name+sig)
	}

	return "interface{ " + strings.Join(parts, "; ") + " }"
}

func stringifyStructType(structType *dst.StructType, format func(dst.Expr) string) string {
	if structType.Fields == nil || len(structType.Fields.List) == 0 {
		return "struct{}"
	}

	fields := make([]string, 0, len(structType.Fields.List))

	for _, field := range structType.Fields.List {
		var fieldStr strings.Builder

		if len(field.Names) > 0 {
			nameStrs := make([]string, len(field.Names))
			for i, name := range field.Names {
				nameStrs[i] = name.Name
			}

			fieldStr.WriteString(strings.Join(nameStrs, ", ") + " ")
		}

		fieldStr.WriteString(format(field.Type))

		if field.Tag != nil {
			fieldStr.WriteString(" " + field.Tag.Value)
		}

		fields = append(fields, fieldStr.String())
	}

	return fmt.Sprintf("struct{ %s }", strings.Join(fields, "; "))
}
