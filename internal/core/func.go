package core

import (
	"fmt"
	"reflect"
)

//nolint:gochecknoglobals // reflect type constant
var errorType = reflect.TypeFor[error]()

// Func returns a stand-in for a function-typed dependency. Every call is intercepted as method.
// A nil real makes a pure stub; otherwise unstubbed calls and CallReal answers invoke real.
func Func[F any](ctx *Context, method MethodIdentity, real F) F {
	fnType := reflect.TypeFor[F]()
	if fnType.Kind() != reflect.Func {
		panic(fmt.Sprintf("must pass a function type. received a %s instead.", fnType.Kind()))
	}

	realValue := reflect.ValueOf(real)
	hasReal := realValue.IsValid() && !realValue.IsNil()
	errIndex := trailingErrorIndex(fnType)

	standIn := reflect.MakeFunc(fnType, func(in []reflect.Value) []reflect.Value {
		args := make([]any, len(in))
		for i, arg := range in {
			args[i] = arg.Interface()
		}

		var realFn RealFunc

		if hasReal {
			realFn = func([]any) Outcome {
				var results []reflect.Value
				if fnType.IsVariadic() {
					results = realValue.CallSlice(in)
				} else {
					results = realValue.Call(in)
				}

				return outcomeOf(results, errIndex)
			}
		}

		out, err := ctx.Intercept(Call{Method: method, Args: args, Real: realFn})
		if err != nil {
			panic(err)
		}

		return resultsOf(fnType, out, errIndex)
	})

	return standIn.Interface().(F) //nolint:forcetypeassert // MakeFunc returns F by construction
}

// trailingErrorIndex returns the index of a final error result, or -1.
func trailingErrorIndex(fnType reflect.Type) int {
	last := fnType.NumOut() - 1
	if last >= 0 && fnType.Out(last) == errorType {
		return last
	}

	return -1
}

func outcomeOf(results []reflect.Value, errIndex int) Outcome {
	out := Outcome{}

	for i, result := range results {
		if i == errIndex {
			if !result.IsNil() {
				out.Err, _ = result.Interface().(error)
			}

			continue
		}

		out.Values = append(out.Values, result.Interface())
	}

	return out
}

func resultsOf(fnType reflect.Type, out Outcome, errIndex int) []reflect.Value {
	results := make([]reflect.Value, fnType.NumOut())
	valueIndex := 0

	for i := range results {
		if i == errIndex {
			results[i] = reflect.Zero(errorType)
			if err := Err(out, valueIndex); err != nil {
				results[i] = reflect.ValueOf(&err).Elem()
			}

			continue
		}

		var value any
		if valueIndex < len(out.Values) {
			value = out.Values[valueIndex]
		}

		results[i] = coerce(value, fnType.Out(i))
		valueIndex++
	}

	if errIndex < 0 {
		Raise(out)
	}

	return results
}
