package core

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// MethodIdentity identifies a stubbable method: the declaring type, the method name and the
// parameter type signature. It is immutable and used as the lookup key for samples.
type MethodIdentity struct {
	Type   string
	Name   string
	Params []string
}

// NewMethodIdentity builds a MethodIdentity explicitly.
func NewMethodIdentity(typ, name string, params ...string) MethodIdentity {
	return MethodIdentity{Type: typ, Name: name, Params: append([]string(nil), params...)}
}

// MethodOf derives a MethodIdentity from a method expression (Store.Get, (*Svc).Do), a method
// value (svc.Do) or a plain function. For method expressions the receiver parameter is not part
// of the signature.
func MethodOf(fn any) MethodIdentity {
	panicIfNotFunc(fn)

	fullName := runtime.FuncForPC(uintptr(reflect.ValueOf(fn).UnsafePointer())).Name()
	methodValue := strings.HasSuffix(fullName, "-fm")
	fullName = strings.TrimSuffix(fullName, "-fm")

	typ, name, isMethod := splitFuncName(fullName)

	fnType := reflect.TypeOf(fn)
	first := 0

	if isMethod && !methodValue && fnType.NumIn() > 0 {
		first = 1
	}

	params := make([]string, 0, fnType.NumIn()-first)
	for i := first; i < fnType.NumIn(); i++ {
		params = append(params, typeString(fnType, i))
	}

	return MethodIdentity{Type: typ, Name: name, Params: params}
}

// ParseMethodIdentity reverses Key.
func ParseMethodIdentity(key string) (MethodIdentity, error) {
	open := matchingOpen(key)
	if open < 0 {
		return MethodIdentity{}, fmt.Errorf("%w: %q", errMalformedIdentity, key)
	}

	head := key[:open]

	dot := strings.LastIndex(head, ".")
	if dot <= 0 || dot == len(head)-1 {
		return MethodIdentity{}, fmt.Errorf("%w: %q", errMalformedIdentity, key)
	}

	var params []string

	if inner := key[open+1 : len(key)-1]; inner != "" {
		params = splitTopLevel(inner)
	}

	return MethodIdentity{Type: head[:dot], Name: head[dot+1:], Params: params}, nil
}

// Equal reports whether two identities have the same type, name and parameter types.
func (m MethodIdentity) Equal(other MethodIdentity) bool {
	return m.Key() == other.Key()
}

// IsZero reports whether the identity is unset.
func (m MethodIdentity) IsZero() bool {
	return m.Type == "" && m.Name == "" && len(m.Params) == 0
}

// Key is the canonical string form, Type.Name(P1,P2).
func (m MethodIdentity) Key() string {
	return m.Type + "." + m.Name + "(" + strings.Join(m.Params, ",") + ")"
}

func (m MethodIdentity) String() string {
	return m.Key()
}

// splitFuncName splits a runtime function name into its declaring type (or package) and name.
// "example.com/pkg.Store.Get" is a method, "example.com/pkg.Fn" is a function.
func splitFuncName(fullName string) (typ, name string, isMethod bool) {
	lastSlash := strings.LastIndex(fullName, "/")
	prefix, local := fullName[:lastSlash+1], fullName[lastSlash+1:]

	parts := strings.Split(local, ".")
	if len(parts) < 2 {
		return prefix + local, "", false
	}

	name = parts[len(parts)-1]
	typ = prefix + strings.Join(parts[:len(parts)-1], ".")

	return typ, name, len(parts) > 2
}

func typeString(fnType reflect.Type, i int) string {
	if fnType.IsVariadic() && i == fnType.NumIn()-1 {
		return "..." + fnType.In(i).Elem().String()
	}

	return fnType.In(i).String()
}

// matchingOpen returns the index of the "(" that opens the trailing parameter list, or -1.
func matchingOpen(key string) int {
	if !strings.HasSuffix(key, ")") {
		return -1
	}

	depth := 0

	for i := len(key) - 1; i >= 0; i-- {
		switch key[i] {
		case ')', ']', '}':
			depth++
		case '(', '[', '{':
			depth--
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}

// splitTopLevel splits a comma separated list, ignoring commas nested in brackets.
func splitTopLevel(list string) []string {
	var (
		parts []string
		depth int
		start int
	)

	for i := range len(list) {
		switch list[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, list[start:i])
				start = i + 1
			}
		}
	}

	return append(parts, list[start:])
}
