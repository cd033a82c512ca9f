package core

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// MatcherKind enumerates the closed set of argument matchers.
type MatcherKind int

// Matcher kinds.
const (
	KindEquals MatcherKind = iota
	KindAny
	KindPredicate
	KindTypeOf
)

func (k MatcherKind) String() string {
	switch k {
	case KindEquals:
		return "Equals"
	case KindAny:
		return "Any"
	case KindPredicate:
		return "Predicate"
	case KindTypeOf:
		return "TypeOf"
	default:
		return fmt.Sprintf("MatcherKind(%d)", int(k))
	}
}

// Matcher is a predicate over a single call argument.
type Matcher struct {
	kind      MatcherKind
	value     any
	predicate func(any) error
	typ       reflect.Type
	desc      string
}

// Equals matches arguments deeply equal to value.
func Equals(value any) Matcher {
	return Matcher{kind: KindEquals, value: value}
}

// Any matches every argument.
func Any() Matcher {
	return Matcher{kind: KindAny}
}

// Predicate matches arguments for which check returns nil. The description is used in
// verification reports.
func Predicate(description string, check func(any) error) Matcher {
	return Matcher{kind: KindPredicate, predicate: check, desc: description}
}

// Satisfies is a typed Predicate. Arguments that are not a T never match.
func Satisfies[T any](predicate func(T) error) Matcher {
	desc := fmt.Sprintf("Satisfies[%T](%s)", *new(T), funcName(predicate))

	return Predicate(desc, func(actual any) error {
		val, ok := actual.(T)
		if !ok {
			return fmt.Errorf("%w: expected %T, got %T", errTypeMismatch, *new(T), actual)
		}

		return predicate(val)
	})
}

// TypeOf matches arguments whose dynamic type is, or implements, typ.
func TypeOf(typ reflect.Type) Matcher {
	return Matcher{kind: KindTypeOf, typ: typ}
}

// TypeFor is TypeOf for a static type.
func TypeFor[T any]() Matcher {
	return TypeOf(reflect.TypeFor[T]())
}

// GomegaMatcher is the subset of gomega.GomegaMatcher the engine relies on.
type GomegaMatcher interface {
	Match(actual any) (success bool, err error)
	FailureMessage(actual any) string
}

// FromGomega adapts a gomega-compatible matcher into a Predicate. The description carries the
// matcher's configuration, so BeNumerically("<", 10) and BeNumerically(">", 100) differ.
func FromGomega(m GomegaMatcher) Matcher {
	return Predicate(fmt.Sprintf("Gomega(%#v)", m), func(actual any) error {
		ok, err := m.Match(actual)
		if err != nil {
			return err
		}

		if !ok {
			return fmt.Errorf("%w: %s", errPredicateFailed, m.FailureMessage(actual))
		}

		return nil
	})
}

// Kind returns the matcher variant.
func (m Matcher) Kind() MatcherKind {
	return m.kind
}

// Matches reports whether the argument is accepted.
func (m Matcher) Matches(actual any) bool {
	return m.Explain(actual) == nil
}

// Explain returns nil when the argument is accepted, or the reason it is not.
func (m Matcher) Explain(actual any) error {
	switch m.kind {
	case KindAny:
		return nil
	case KindEquals:
		if deepEqual(actual, m.value) {
			return nil
		}

		return fmt.Errorf("%w: expected %#v, got %#v", errNotEqual, m.value, actual)
	case KindPredicate:
		if err := m.predicate(actual); err != nil {
			return fmt.Errorf("%w: %s: %w", errPredicateFailed, m.desc, err)
		}

		return nil
	case KindTypeOf:
		if matchesType(actual, m.typ) {
			return nil
		}

		return fmt.Errorf("%w: expected %s, got %T", errTypeMismatch, m.typ, actual)
	default:
		panic("unknown matcher kind " + m.kind.String())
	}
}

// Describe renders the matcher for reports.
func (m Matcher) Describe() string {
	switch m.kind {
	case KindAny:
		return "Any"
	case KindEquals:
		return "Equals(" + describeValue(m.value) + ")"
	case KindPredicate:
		return m.desc
	case KindTypeOf:
		return fmt.Sprintf("TypeOf(%s)", m.typ)
	default:
		return m.kind.String()
	}
}

// decodeType is the type a still-encoded argument is decoded into before matching.
func (m Matcher) decodeType() reflect.Type {
	switch {
	case m.kind == KindEquals && m.value != nil:
		return reflect.TypeOf(m.value)
	case m.kind == KindTypeOf && m.typ != nil && m.typ.Kind() != reflect.Interface:
		return m.typ
	default:
		return reflect.TypeFor[any]()
	}
}

// describeValue renders value as Go syntax. Basic values other than untyped-constant defaults are
// wrapped in their type, so int64(1) and 1 read differently.
func describeValue(value any) string {
	text := fmt.Sprintf("%#v", value)
	if value == nil {
		return text
	}

	typ := reflect.TypeOf(value)
	if !isBasicKind(typ.Kind()) {
		return text
	}

	if typ.PkgPath() == "" {
		switch typ.Name() {
		case "int", "string", "bool", "float64":
			return text
		}
	}

	return typ.String() + "(" + text + ")"
}

func isBasicKind(kind reflect.Kind) bool {
	return kind >= reflect.Bool && kind <= reflect.Complex128 || kind == reflect.String
}

// ArgsMatcher combines matchers positionally.
type ArgsMatcher []Matcher

// Args builds an ArgsMatcher. Values that are already a Matcher are used as-is, gomega-compatible
// matchers are adapted, anything else is wrapped in Equals.
func Args(values ...any) ArgsMatcher {
	matchers := make(ArgsMatcher, 0, len(values))

	for _, value := range values {
		switch typed := value.(type) {
		case Matcher:
			matchers = append(matchers, typed)
		case GomegaMatcher:
			matchers = append(matchers, FromGomega(typed))
		default:
			matchers = append(matchers, Equals(value))
		}
	}

	return matchers
}

// AnyArgs returns n Any matchers.
func AnyArgs(n int) ArgsMatcher {
	matchers := make(ArgsMatcher, n)
	for i := range matchers {
		matchers[i] = Any()
	}

	return matchers
}

// Accepts reports whether the argument counts are equal and every position matches.
func (a ArgsMatcher) Accepts(args []any) bool {
	if len(args) != len(a) {
		return false
	}

	for i, matcher := range a {
		if !matcher.Matches(args[i]) {
			return false
		}
	}

	return true
}

// Describe renders the matcher list, e.g. (Equals(1), Any).
func (a ArgsMatcher) Describe() string {
	parts := make([]string, len(a))
	for i, matcher := range a {
		parts[i] = matcher.Describe()
	}

	return "(" + strings.Join(parts, ", ") + ")"
}

func matchesType(actual any, typ reflect.Type) bool {
	if typ == nil {
		return actual == nil
	}

	if actual == nil {
		return false
	}

	actualType := reflect.TypeOf(actual)
	if actualType == typ {
		return true
	}

	return typ.Kind() == reflect.Interface && actualType.Implements(typ)
}

// deepEqual checks whether two values are deeply equal.
// deepEqual calls functions equal if their names are equal.
// For everything else it depends on reflect.DeepEqual.
func deepEqual(actual, expected any) bool {
	// nil == (*int)(nil) for matching purposes.
	if isNil(actual) && isNil(expected) {
		return true
	}

	if isNil(actual) || isNil(expected) {
		return false
	}

	if reflect.TypeOf(actual).Kind() == reflect.Func &&
		reflect.TypeOf(expected).Kind() == reflect.Func {
		return funcName(actual) == funcName(expected)
	}

	return reflect.DeepEqual(actual, expected)
}

func funcName(fn any) string {
	return strings.TrimSuffix(runtime.FuncForPC(uintptr(reflect.ValueOf(fn).UnsafePointer())).Name(), "-fm")
}

// isNil returns whether the value is nil.
func isNil(value any) bool { return isUntypedNil(value) || isTypedNil(value) }

// isTypedNil returns whether the value is a typed nil.
func isTypedNil(value any) bool {
	reflectedValue := reflect.ValueOf(value)
	return isNillableKind(reflectedValue.Kind()) && reflectedValue.IsNil()
}

// isUntypedNil returns whether the value is an untyped nil.
func isUntypedNil(value any) bool { return !reflect.ValueOf(value).IsValid() }

// isNillableKind returns true if the kind passed is nillable.
// According to https://pkg.go.dev/reflect#Value.IsNil, this is the case for
// chan, func, interface, map, pointer, or slice kinds.
func isNillableKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Chan, reflect.Func, reflect.Interface,
		reflect.Map, reflect.Pointer, reflect.Slice:
		return true
	default:
		return false
	}
}

// panicIfNotFunc panics if the given object is not a function.
func panicIfNotFunc(fn any) {
	kind := reflect.ValueOf(fn).Kind()
	if kind != reflect.Func {
		panic(fmt.Sprintf("must pass a function. received a %s instead.", kind.String()))
	}
}
