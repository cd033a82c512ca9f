package core

import (
	"fmt"
	"reflect"
)

// Interceptable is implemented by stand-ins that forward their calls to a Proxy.
type Interceptable interface {
	Intercepted() *Proxy
}

// Decoder is implemented by values that are still encoded, such as results loaded from a
// recording. Stand-ins decode them into the static result type at call time.
type Decoder interface {
	Decode(target any) error
}

// Proxy is the forwarding half of a stand-in: generated or hand-written stand-ins call Call from
// every method.
type Proxy struct {
	ctx      *Context
	instance any
	partial  bool
}

// NewProxy returns the proxy of a pure stub. Unstubbed calls fail.
func NewProxy(ctx *Context, instance any) *Proxy {
	return &Proxy{ctx: ctx, instance: instance}
}

// WrapProxy returns the proxy of a partial stub. Unstubbed calls go to the real implementation.
func WrapProxy(ctx *Context, instance any) *Proxy {
	return &Proxy{ctx: ctx, instance: instance, partial: true}
}

// Context returns the proxy's execution context.
func (p *Proxy) Context() *Context {
	return p.ctx
}

// Partial reports whether the proxy wraps a real implementation.
func (p *Proxy) Partial() bool {
	return p.partial
}

// Call intercepts one method call. real runs the wrapped implementation and returns its
// non-error results and its error result; it is ignored on pure stubs. Engine errors panic, as
// they are fatal to the calling test.
func (p *Proxy) Call(method MethodIdentity, args []any, real func() ([]any, error)) Outcome {
	var realFn RealFunc

	if p.partial && real != nil {
		realFn = func([]any) Outcome {
			values, err := real()
			return Outcome{Values: values, Err: err}
		}
	}

	out, err := p.ctx.Intercept(Call{Method: method, Instance: p.instance, Args: args, Real: realFn})
	if err != nil {
		panic(err)
	}

	return out
}

// Value returns the ith non-error result as a T. Missing and nil results are T's zero value.
func Value[T any](out Outcome, i int) T {
	var result T

	if i >= len(out.Values) {
		return result
	}

	reflect.ValueOf(&result).Elem().Set(coerce(out.Values[i], reflect.TypeFor[T]()))

	return result
}

// Err returns the error result of a method with n non-error results.
func Err(out Outcome, n int) error {
	if out.Err != nil {
		return out.Err
	}

	if n < len(out.Values) {
		if err, ok := out.Values[n].(error); ok {
			return err
		}
	}

	return nil
}

// Raise panics with a thrown error. Stand-ins call it for methods without an error result.
func Raise(out Outcome) {
	if out.Err != nil {
		panic(out.Err)
	}
}

// coerce converts an answered value into typ.
func coerce(value any, typ reflect.Type) reflect.Value {
	if isUntypedNil(value) {
		return reflect.Zero(typ)
	}

	if decoder, ok := value.(Decoder); ok && reflect.TypeOf(value) != typ {
		target := reflect.New(typ)
		if err := decoder.Decode(target.Interface()); err != nil {
			panic(fmt.Sprintf("cannot decode recorded value into %s: %v", typ, err))
		}

		return target.Elem()
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(typ) {
		converted := reflect.New(typ).Elem()
		converted.Set(val)

		return converted
	}

	if isNumeric(val.Kind()) && isNumeric(typ.Kind()) {
		return val.Convert(typ)
	}

	panic(fmt.Sprintf("Wrong return type. Expected %s, but a value of type %s was answered", typ, val.Type()))
}

func isNumeric(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
