package generate

import (
	"bytes"
	"fmt"
	"text/template"
)

const stubTemplate = `// Code generated by stubgen. DO NOT EDIT.

package {{.Package}}

import (
	"github.com/toejough/deepstub"
{{- range .Imports}}
	{{.Alias}} "{{.Path}}"
{{- end}}
)

// {{.Name}} is a deepstub stand-in for {{.Interface}}.
type {{.Name}} struct {
	proxy *deepstub.Proxy
	real  {{.Interface}}
}

// New{{.Name}} returns a pure stand-in: unstubbed calls panic.
func New{{.Name}}(ctx *deepstub.Context) *{{.Name}} {
	s := &{{.Name}}{}
	s.proxy = deepstub.NewProxy(ctx, s)

	return s
}

// Wrap{{.Name}} returns a stand-in that delegates unstubbed calls to real. A nil real gives
// the pure stand-in of New{{.Name}}.
func Wrap{{.Name}}(ctx *deepstub.Context, real {{.Interface}}) *{{.Name}} {
	if real == nil {
		return New{{.Name}}(ctx)
	}

	s := &{{.Name}}{real: real}
	s.proxy = deepstub.WrapProxy(ctx, s)

	return s
}

// Intercepted returns the proxy every method forwards to.
func (s *{{.Name}}) Intercepted() *deepstub.Proxy {
	return s.proxy
}
{{range .Methods}}
func (s *{{$.Name}}) {{.Name}}({{.Params}}){{.Results}} {
	out := s.proxy.Call({{$.Name}}Methods.{{.Name}}, []any{ {{- .Args -}} }, func() ([]any, error) {
		{{.RealBody}}
	})
{{.ReturnBody}}
}
{{end}}
// {{.Name}}Methods are the method identities of {{.Interface}}, for stubbing and verification.
//
//nolint:gochecknoglobals // method identities of the stubbed interface
var {{.Name}}Methods = struct {
{{- range .Methods}}
	{{.Name}} deepstub.MethodIdentity
{{- end}}
}{
{{- range .Methods}}
	{{.Name}}: deepstub.MethodOf({{$.Interface}}.{{.Name}}),
{{- end}}
}
`

//nolint:gochecknoglobals // parsed once
var stubTmpl = template.Must(template.New("stub").Parse(stubTemplate))

func render(data stubData) ([]byte, error) {
	var buf bytes.Buffer

	err := stubTmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute stub template: %w", err)
	}

	return buf.Bytes(), nil
}
