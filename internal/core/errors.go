package core

import (
	"errors"
	"fmt"
	"strings"
)

// Exported sentinel errors. The typed errors below match them with errors.Is.
var (
	ErrUnstubbed            = errors.New("unstubbed invocation")
	ErrNoRealImplementation = errors.New("no real implementation")
	ErrVerification         = errors.New("verification failed")
	ErrEmptySequence        = errors.New("sequence needs at least one answer")
	ErrNoMatchingSample     = errors.New("no matching sample")
	ErrParametersNotMatched = errors.New("recorded parameters not matched")
)

// unexported variables.
var (
	errArityMismatch     = errors.New("arity mismatch")
	errMalformedIdentity = errors.New("malformed method identity")
	errNotEqual          = errors.New("not equal")
	errPredicateFailed   = errors.New("predicate failed")
	errTypeMismatch      = errors.New("type mismatch")
)

// UnstubbedInvocationError is raised when a pure stub receives a call no sample answers.
type UnstubbedInvocationError struct {
	Invocation Invocation
	// Candidates is the number of samples registered for the method whose matchers rejected the
	// arguments.
	Candidates int
}

func (e *UnstubbedInvocationError) Error() string {
	msg := fmt.Sprintf("%s: %s called with %s", ErrUnstubbed, e.Invocation.Method.Key(), formatArgs(e.Invocation.Args))
	if e.Candidates > 0 {
		msg += fmt.Sprintf(" (%d sample(s) registered for the method, none accepted the arguments)", e.Candidates)
	}

	return msg
}

func (e *UnstubbedInvocationError) Is(target error) bool {
	return target == ErrUnstubbed
}

// NoRealImplementationError is raised when CallReal is answered on a stand-in without a wrapped
// instance.
type NoRealImplementationError struct {
	Invocation Invocation
}

func (e *NoRealImplementationError) Error() string {
	return fmt.Sprintf("%s: CallReal answered for %s on a stand-in without a wrapped instance",
		ErrNoRealImplementation, e.Invocation.Method.Key())
}

func (e *NoRealImplementationError) Is(target error) bool {
	return target == ErrNoRealImplementation
}

// Violation is one failed quantifier.
type Violation struct {
	Method   MethodIdentity
	Matcher  string
	Expected Quantifier
	Actual   int
}

func (v Violation) String() string {
	return fmt.Sprintf("%s%s: expected %s, got %d", v.Method.Key(), v.Matcher, v.Expected, v.Actual)
}

// VerificationFailure aggregates every quantifier violation of one run.
type VerificationFailure struct {
	Violations []Violation
}

func (e *VerificationFailure) Error() string {
	lines := make([]string, 0, len(e.Violations)+1)
	lines = append(lines, fmt.Sprintf("%s: %d violation(s)", ErrVerification, len(e.Violations)))

	for _, violation := range e.Violations {
		lines = append(lines, "  "+violation.String())
	}

	return strings.Join(lines, "\n")
}

func (e *VerificationFailure) Is(target error) bool {
	return target == ErrVerification
}

// AmbiguousMatchWarning reports that more than one sample accepted an invocation. Only Selected
// answered it.
type AmbiguousMatchWarning struct {
	Invocation Invocation
	Selected   *Sample
	Shadowed   []*Sample
}

func (w AmbiguousMatchWarning) String() string {
	shadowed := make([]string, len(w.Shadowed))
	for i, sample := range w.Shadowed {
		shadowed[i] = sample.Describe()
	}

	return fmt.Sprintf("%s matched %s, shadowing %s",
		w.Invocation.Method.Key(), w.Selected.Describe(), strings.Join(shadowed, ", "))
}

// NoMatchingSampleError is raised in strict replay when a recording names a method that was not
// prepared.
type NoMatchingSampleError struct {
	SampleID string
	// Suggestion is the most similar prepared sample id, empty when none was prepared.
	Suggestion string
	Similarity float64
}

func (e *NoMatchingSampleError) Error() string {
	msg := fmt.Sprintf("%s: recorded sample %q was not prepared", ErrNoMatchingSample, e.SampleID)
	if e.Suggestion != "" {
		msg += fmt.Sprintf("; did you mean %q (%.0f%% similar)?", e.Suggestion, e.Similarity*percent)
	}

	return msg
}

func (e *NoMatchingSampleError) Is(target error) bool {
	return target == ErrNoMatchingSample
}

// ParametersNotMatchedError is raised in strict replay when a recorded call of a prepared sample id
// has arguments the prepared matchers reject.
type ParametersNotMatchedError struct {
	SampleID string
	Method   MethodIdentity
	// Expected describes the prepared matchers.
	Expected string
	Args     []any
	Reason   error
}

func (e *ParametersNotMatchedError) Error() string {
	return fmt.Sprintf("%s: sample %q prepared for %s%s was recorded with %s: %v",
		ErrParametersNotMatched, e.SampleID, e.Method.Key(), e.Expected, formatArgs(e.Args), e.Reason)
}

func (e *ParametersNotMatchedError) Is(target error) bool {
	return target == ErrParametersNotMatched
}

func (e *ParametersNotMatchedError) Unwrap() error {
	return e.Reason
}

// RecordedError stands in for an error reconstructed from a recording; only the message survives
// persistence.
type RecordedError struct {
	Message string
}

func (e *RecordedError) Error() string {
	return e.Message
}

const percent = 100

func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = fmt.Sprintf("%#v", arg)
	}

	return "(" + strings.Join(parts, ", ") + ")"
}
