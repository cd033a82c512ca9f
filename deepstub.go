// Package deepstub provides deep stubbing for Go tests: stand-ins whose calls are intercepted and
// answered by declared samples, verified against expected call counts, and optionally recorded
// and replayed.
//
// This is the public API entry point. Implementation lives in internal/core.
package deepstub

import (
	"reflect"

	"github.com/rs/zerolog"

	"github.com/toejough/deepstub/internal/core"
)

// Types re-exported from internal/core.

// Answer is the action producing a result for one invocation.
type Answer = core.Answer

// AnswerBuilder programs the answer of a freshly declared sample.
type AnswerBuilder = core.AnswerBuilder

// AmbiguousMatchWarning reports that more than one sample accepted an invocation.
type AmbiguousMatchWarning = core.AmbiguousMatchWarning

// ArgsMatcher combines matchers positionally.
type ArgsMatcher = core.ArgsMatcher

// Call is what a stand-in hands to the interceptor.
type Call = core.Call

// Context owns the samples and invocation log of one logical test.
type Context = core.Context

// Decoder is implemented by still-encoded values such as replayed results.
type Decoder = core.Decoder

// Interceptable is implemented by stand-ins that forward to a Proxy.
type Interceptable = core.Interceptable

// Invocation is one intercepted call.
type Invocation = core.Invocation

// LedgerEntry is the diagnostic record of one intercepted call.
type LedgerEntry = core.LedgerEntry

// Matcher is a predicate over a single call argument.
type Matcher = core.Matcher

// MethodIdentity identifies a stubbable method.
type MethodIdentity = core.MethodIdentity

// NoMatchingSampleError is raised in strict replay for methods that were not prepared.
type NoMatchingSampleError = core.NoMatchingSampleError

// NoRealImplementationError is raised when CallReal has nothing to call.
type NoRealImplementationError = core.NoRealImplementationError

// Option configures a Context.
type Option = core.Option

// Outcome is the result of one intercepted invocation.
type Outcome = core.Outcome

// Proxy is the forwarding half of a stand-in.
type Proxy = core.Proxy

// Quantifier is an expected-call-count assertion.
type Quantifier = core.Quantifier

// Record is one exported call of a completed run.
type Record = core.Record

// RecordedError stands in for an error reconstructed from a recording.
type RecordedError = core.RecordedError

// Replay maps method identity and call index to answers.
type Replay = core.Replay

// ParametersNotMatchedError is raised in strict replay for recorded arguments the prepared
// matchers reject.
type ParametersNotMatchedError = core.ParametersNotMatchedError

// ReplayCall is one recorded call of a replayed method.
type ReplayCall = core.ReplayCall

// ReplayMethod holds the recorded calls of one method.
type ReplayMethod = core.ReplayMethod

// Sample is a stub definition.
type Sample = core.Sample

// TestReporter is the minimal interface deepstub needs from test frameworks.
type TestReporter = core.TestReporter

// UnstubbedInvocationError is raised when a pure stub receives a call no sample answers.
type UnstubbedInvocationError = core.UnstubbedInvocationError

// VerificationFailure aggregates every quantifier violation of one run.
type VerificationFailure = core.VerificationFailure

// Violation is one failed quantifier.
type Violation = core.Violation

// Errors re-exported from internal/core.
var (
	ErrUnstubbed            = core.ErrUnstubbed
	ErrNoRealImplementation = core.ErrNoRealImplementation
	ErrVerification         = core.ErrVerification
	ErrEmptySequence        = core.ErrEmptySequence
	ErrNoMatchingSample     = core.ErrNoMatchingSample
	ErrParametersNotMatched = core.ErrParametersNotMatched
)

// Contexts.

// NewContext creates an empty execution context.
func NewContext(opts ...Option) *Context {
	return core.NewContext(opts...)
}

// Default returns the process-wide ambient context.
func Default() *Context {
	return core.Default()
}

// For returns the Context of the given test, verified and reset when the test completes.
func For(t TestReporter, opts ...Option) *Context {
	return core.For(t, opts...)
}

// Reset clears the ambient context.
func Reset() {
	core.Default().Reset()
}

// Identities.

// MethodOf derives a MethodIdentity from a method expression, method value or function.
func MethodOf(fn any) MethodIdentity {
	return core.MethodOf(fn)
}

// NewMethodIdentity builds a MethodIdentity explicitly.
func NewMethodIdentity(typ, name string, params ...string) MethodIdentity {
	return core.NewMethodIdentity(typ, name, params...)
}

// Matchers.

// Any matches every argument.
func Any() Matcher {
	return core.Any()
}

// Equals matches arguments deeply equal to value.
func Equals(value any) Matcher {
	return core.Equals(value)
}

// Predicate matches arguments for which check returns nil.
func Predicate(description string, check func(any) error) Matcher {
	return core.Predicate(description, check)
}

// Satisfies is a typed Predicate.
func Satisfies[T any](predicate func(T) error) Matcher {
	return core.Satisfies(predicate)
}

// TypeOf matches arguments whose dynamic type is, or implements, typ.
func TypeOf(typ reflect.Type) Matcher {
	return core.TypeOf(typ)
}

// TypeFor is TypeOf for a static type.
func TypeFor[T any]() Matcher {
	return core.TypeFor[T]()
}

// Answers.

// Return answers with the given results.
func Return(values ...any) Answer {
	return core.Return(values...)
}

// Throw answers with err.
func Throw(err error) Answer {
	return core.Throw(err)
}

// CallReal forwards to the wrapped real implementation.
func CallReal() Answer {
	return core.CallReal()
}

// Sequence answers successive matches with successive answers; the last one repeats.
func Sequence(answers ...Answer) Answer {
	return core.Sequence(answers...)
}

// Quantifiers.

// Exactly expects n matched invocations.
func Exactly(n int) Quantifier {
	return core.Exactly(n)
}

// AtLeast expects n or more matched invocations.
func AtLeast(n int) Quantifier {
	return core.AtLeast(n)
}

// Never expects no matched invocations.
func Never() Quantifier {
	return core.Never()
}

// Once is Exactly(1).
func Once() Quantifier {
	return core.Once()
}

// Twice is Exactly(2).
func Twice() Quantifier {
	return core.Twice()
}

// Unbounded disables verification.
func Unbounded() Quantifier {
	return core.Unbounded()
}

// Stand-ins.

// NewProxy returns the proxy of a pure stub.
func NewProxy(ctx *Context, instance any) *Proxy {
	return core.NewProxy(ctx, instance)
}

// WrapProxy returns the proxy of a partial stub.
func WrapProxy(ctx *Context, instance any) *Proxy {
	return core.WrapProxy(ctx, instance)
}

// Func returns a stand-in for a function-typed dependency.
func Func[F any](ctx *Context, method MethodIdentity, real F) F {
	return core.Func(ctx, method, real)
}

// Value returns the ith non-error result as a T.
func Value[T any](out Outcome, i int) T {
	return core.Value[T](out, i)
}

// Err returns the error result of a method with n non-error results.
func Err(out Outcome, n int) error {
	return core.Err(out, n)
}

// Raise panics with a thrown error.
func Raise(out Outcome) {
	core.Raise(out)
}

// Options and matcher helpers.

// GomegaMatcher is the subset of gomega's matcher interface deepstub adapts.
type GomegaMatcher = core.GomegaMatcher

// WithLogger sets the logger of a Context.
func WithLogger(logger zerolog.Logger) Option {
	return core.WithLogger(logger)
}

// WithWarningHook receives every ambiguous match instead of the logger.
func WithWarningHook(hook func(AmbiguousMatchWarning)) Option {
	return core.WithWarningHook(hook)
}

// Args builds an ArgsMatcher: Matchers are used as-is, gomega matchers are adapted, anything
// else is matched with Equals.
func Args(values ...any) ArgsMatcher {
	return core.Args(values...)
}

// AnyArgs matches any n arguments.
func AnyArgs(n int) ArgsMatcher {
	return core.AnyArgs(n)
}

// FromGomega adapts a gomega matcher.
func FromGomega(m GomegaMatcher) Matcher {
	return core.FromGomega(m)
}
