package core

import (
	"fmt"
	"strings"
)

// AnswerKind enumerates the closed set of answers.
type AnswerKind int

// Answer kinds.
const (
	KindReturn AnswerKind = iota
	KindThrow
	KindCallReal
	KindSequence
)

func (k AnswerKind) String() string {
	switch k {
	case KindReturn:
		return "Return"
	case KindThrow:
		return "Throw"
	case KindCallReal:
		return "CallReal"
	case KindSequence:
		return "Sequence"
	default:
		return fmt.Sprintf("AnswerKind(%d)", int(k))
	}
}

// Answer is the action producing a result for one invocation.
type Answer struct {
	kind    AnswerKind
	values  []any
	err     error
	answers []Answer
}

// Return answers with the given non-error results. The error result of a method, if it has one,
// is nil unless the last value given is an error.
func Return(values ...any) Answer {
	return Answer{kind: KindReturn, values: values}
}

// Throw answers with err. Stand-ins return it as the method's error result, or panic with it when
// the method has no error result.
func Throw(err error) Answer {
	return Answer{kind: KindThrow, err: err}
}

// CallReal forwards the invocation to the wrapped real implementation.
func CallReal() Answer {
	return Answer{kind: KindCallReal}
}

// Sequence answers the nth matched invocation with answers[n]; the last answer repeats once the
// sequence is exhausted. It panics when no answers are given.
func Sequence(answers ...Answer) Answer {
	if len(answers) == 0 {
		panic(ErrEmptySequence)
	}

	return Answer{kind: KindSequence, answers: append([]Answer(nil), answers...)}
}

// Kind returns the answer variant.
func (a Answer) Kind() AnswerKind {
	return a.kind
}

// Resolve selects the concrete answer for the nth match (0-based). Only Sequence answers vary
// with n; nested sequences are indexed by the same n.
func (a Answer) Resolve(n int) Answer {
	for a.kind == KindSequence {
		a = a.answers[min(n, len(a.answers)-1)]
	}

	return a
}

// Len is the number of elements of a Sequence, or 1.
func (a Answer) Len() int {
	if a.kind == KindSequence {
		return len(a.answers)
	}

	return 1
}

func (a Answer) String() string {
	switch a.kind {
	case KindReturn:
		parts := make([]string, len(a.values))
		for i, v := range a.values {
			parts[i] = fmt.Sprintf("%#v", v)
		}

		return "Return(" + strings.Join(parts, ", ") + ")"
	case KindThrow:
		return fmt.Sprintf("Throw(%v)", a.err)
	case KindCallReal:
		return "CallReal()"
	case KindSequence:
		parts := make([]string, len(a.answers))
		for i, answer := range a.answers {
			parts[i] = answer.String()
		}

		return "Sequence(" + strings.Join(parts, ", ") + ")"
	default:
		return a.kind.String()
	}
}

// Outcome is the result of one intercepted invocation. Values are the non-error results;
// Err is the error result (or the thrown error).
type Outcome struct {
	Values []any
	Err    error
}

// execute runs a resolved (non-Sequence) answer. real is nil when the stand-in has no wrapped
// instance.
func (a Answer) execute(inv Invocation, real RealFunc) (Outcome, error) {
	switch a.kind {
	case KindReturn:
		values, err := splitTrailingError(a.values)
		return Outcome{Values: values, Err: err}, nil
	case KindThrow:
		return Outcome{Err: a.err}, nil
	case KindCallReal:
		if real == nil {
			return Outcome{}, &NoRealImplementationError{Invocation: inv}
		}

		return real(inv.Args), nil
	case KindSequence:
		panic("sequence answers must be resolved before execution")
	default:
		panic("unknown answer kind " + a.kind.String())
	}
}

// splitTrailingError lets Return("x", err) and Return("x", nil) read naturally for methods with a
// trailing error result. Only a final value that is an error is split off; a final nil stays.
func splitTrailingError(values []any) ([]any, error) {
	if len(values) == 0 {
		return values, nil
	}

	if err, ok := values[len(values)-1].(error); ok {
		return values[:len(values)-1], err
	}

	return values, nil
}
