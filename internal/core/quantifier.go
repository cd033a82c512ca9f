package core

import "fmt"

// QuantifierKind enumerates invocation-count expectations.
type QuantifierKind int

// Quantifier kinds.
const (
	KindUnbounded QuantifierKind = iota
	KindExactly
	KindAtLeast
	KindNever
)

// Quantifier is an expected-call-count assertion attached to a Sample. The zero value is
// Unbounded, which is never verified.
type Quantifier struct {
	kind  QuantifierKind
	times int
}

// Exactly expects n matched invocations.
func Exactly(n int) Quantifier {
	return Quantifier{kind: KindExactly, times: n}
}

// AtLeast expects n or more matched invocations.
func AtLeast(n int) Quantifier {
	return Quantifier{kind: KindAtLeast, times: n}
}

// Never expects no matched invocations.
func Never() Quantifier {
	return Quantifier{kind: KindNever}
}

// Once is Exactly(1).
func Once() Quantifier {
	return Exactly(1)
}

// Twice is Exactly(2).
func Twice() Quantifier {
	return Exactly(2)
}

// Unbounded disables verification.
func Unbounded() Quantifier {
	return Quantifier{}
}

// Kind returns the quantifier variant.
func (q Quantifier) Kind() QuantifierKind {
	return q.kind
}

// Bounded reports whether the quantifier takes part in verification.
func (q Quantifier) Bounded() bool {
	return q.kind != KindUnbounded
}

// Satisfied reports whether actual matched invocations meet the expectation.
func (q Quantifier) Satisfied(actual int) bool {
	switch q.kind {
	case KindUnbounded:
		return true
	case KindExactly:
		return actual == q.times
	case KindAtLeast:
		return actual >= q.times
	case KindNever:
		return actual == 0
	default:
		panic(fmt.Sprintf("unknown quantifier kind %d", int(q.kind)))
	}
}

func (q Quantifier) String() string {
	switch q.kind {
	case KindExactly:
		return fmt.Sprintf("Exactly(%d)", q.times)
	case KindAtLeast:
		return fmt.Sprintf("AtLeast(%d)", q.times)
	case KindNever:
		return "Never"
	default:
		return "Unbounded"
	}
}
