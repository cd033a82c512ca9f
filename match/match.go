// Package match provides argument matchers for deepstub samples.
// This package is designed to be dot-imported alongside gomega matchers, which samples accept
// as well:
//
//	import (
//	    . "github.com/onsi/gomega"
//	    . "github.com/toejough/deepstub/match"
//	)
//
//	ctx.Stub(StubStoreMethods.Get, OneOf(1, 2)).Return("low")
//	ctx.Stub(StubStoreMethods.Put, BeAny, BeNumerically(">", 0))
package match

import (
	"errors"
	"fmt"
	"strings"

	"github.com/toejough/deepstub/internal/core"
)

// unexported variables.
var (
	errNoneMatched = errors.New("no alternative matched")
	errNegated     = errors.New("matched, but should not have")
)

// Matcher is the argument matcher type samples are declared with.
type Matcher = core.Matcher

// BeAny matches any value.
// Useful when you don't care about a particular argument.
//
//nolint:gochecknoglobals // Intentional exported constant-like value
var BeAny = core.Any()

// Eq matches values deeply equal to expected. Raw values passed to Stub are wrapped in Eq
// implicitly.
func Eq(expected any) Matcher {
	return core.Equals(expected)
}

// BeOfType matches values whose dynamic type is T, or implements T when T is an interface.
func BeOfType[T any]() Matcher {
	return core.TypeFor[T]()
}

// Satisfies returns a matcher that uses a predicate function to check for a match.
// The predicate should return nil if the value matches, or an error describing
// the mismatch if it does not. Values that are not a T never match.
//
// Example:
//
//	ctx.Stub(method, Satisfies(func(x int) error {
//	    if x < 0 { return fmt.Errorf("expected positive, got %d", x) }
//	    return nil
//	}))
func Satisfies[T any](predicate func(T) error) Matcher {
	return core.Satisfies(predicate)
}

// OneOf matches values equal to any of the alternatives.
func OneOf(alternatives ...any) Matcher {
	matchers := toMatchers(alternatives)

	return core.Predicate("OneOf"+describe(matchers), func(actual any) error {
		for _, m := range matchers {
			if m.Matches(actual) {
				return nil
			}
		}

		return fmt.Errorf("%w: %#v", errNoneMatched, actual)
	})
}

// AllOf matches values every matcher accepts.
func AllOf(matchers ...any) Matcher {
	all := toMatchers(matchers)

	return core.Predicate("AllOf"+describe(all), func(actual any) error {
		for _, m := range all {
			if err := m.Explain(actual); err != nil {
				return err
			}
		}

		return nil
	})
}

// IsNot inverts a matcher.
func IsNot(matcher any) Matcher {
	inner := toMatchers([]any{matcher})[0]

	return core.Predicate("IsNot("+inner.Describe()+")", func(actual any) error {
		if inner.Matches(actual) {
			return fmt.Errorf("%w: %#v", errNegated, actual)
		}

		return nil
	})
}

func toMatchers(values []any) []Matcher {
	return core.Args(values...)
}

func describe(matchers []Matcher) string {
	parts := make([]string, len(matchers))
	for i, m := range matchers {
		parts[i] = m.Describe()
	}

	return "(" + strings.Join(parts, ", ") + ")"
}

// FromGomega adapts a gomega matcher explicitly. Stub and Verify adapt them implicitly.
func FromGomega(m core.GomegaMatcher) Matcher {
	return core.FromGomega(m)
}
