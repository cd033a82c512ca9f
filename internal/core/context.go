// Package core provides the interception-and-matching engine behind deepstub: the sample
// repository, the invocation log, the interceptor every stand-in forwards to, and the verifier.
package core

import (
	"sync"

	"github.com/rs/zerolog"
)

// RealFunc invokes the real implementation behind a partial stub.
type RealFunc func(args []any) Outcome

// Call is what a stand-in hands to the interceptor for every invocation.
type Call struct {
	Method   MethodIdentity
	Instance any
	Args     []any
	// Real is nil for pure stubs.
	Real RealFunc
}

// Context is one execution context: it owns the samples and the invocation log of a single
// logical test. Stand-ins may be called from several goroutines; declarations and teardown are
// expected to happen on the test goroutine.
type Context struct {
	mu       sync.Mutex
	repo     *SampleRepository
	log      *InvocationLog
	order    int
	seq      int
	prepared map[string]preparation
	warnings []AmbiguousMatchWarning
	logger   zerolog.Logger
	warnHook func(AmbiguousMatchWarning)
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Context) {
		c.logger = logger
	}
}

// WithWarningHook is called, outside any lock, for every ambiguous match.
func WithWarningHook(hook func(AmbiguousMatchWarning)) Option {
	return func(c *Context) {
		c.warnHook = hook
	}
}

// NewContext creates an empty execution context.
func NewContext(opts ...Option) *Context {
	ctx := &Context{
		repo:     NewSampleRepository(),
		log:      NewInvocationLog(),
		prepared: make(map[string]preparation),
		logger:   zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(ctx)
	}

	return ctx
}

// Logger returns the context's logger.
func (c *Context) Logger() zerolog.Logger {
	return c.logger
}

// Stub declares a sample for method. Raw argument values are matched with Equals; Matcher and
// gomega-compatible values are used as matchers. Until an answer is chosen the sample returns
// zero values.
func (c *Context) Stub(method MethodIdentity, args ...any) *AnswerBuilder {
	sample := &Sample{
		ID:     method.Key(),
		Method: method,
		Args:   Args(args...),
		Answer: Return(),
	}

	c.register(sample)

	return &AnswerBuilder{ctx: c, sample: sample}
}

// Verify attaches q to the most recently registered sample for method whose matchers are
// described identically to args. Without such a sample an observer is registered that counts
// every invocation of method the matchers accept.
func (c *Context) Verify(method MethodIdentity, q Quantifier, args ...any) {
	matcher := Args(args...)

	c.mu.Lock()
	defer c.mu.Unlock()

	if sample := c.lookupLocked(method, matcher); sample != nil {
		sample.Quantifier = q
		return
	}

	c.order++
	c.repo.Register(&Sample{
		ID:         method.Key(),
		Method:     method,
		Args:       matcher,
		Quantifier: q,
		Order:      c.order,
		observer:   true,
	})
}

// VerifyNow checks q immediately for the sample (or observer) Verify would attach to, without
// declaring anything. With no such sample the actual count is 0.
func (c *Context) VerifyNow(method MethodIdentity, q Quantifier, args ...any) error {
	matcher := Args(args...)

	c.mu.Lock()
	defer c.mu.Unlock()

	actual := 0
	if sample := c.lookupLocked(method, matcher); sample != nil {
		actual = countFor(sample, c.log)
	}

	if q.Satisfied(actual) {
		return nil
	}

	return &VerificationFailure{Violations: []Violation{{
		Method: method, Matcher: matcher.Describe(), Expected: q, Actual: actual,
	}}}
}

// Lookup returns the sample Verify would attach to.
func (c *Context) Lookup(method MethodIdentity, args ...any) (*Sample, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sample := c.lookupLocked(method, Args(args...))

	return sample, sample != nil
}

// Count is the number of invocations credited to sample.
func (c *Context) Count(sample *Sample) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return countFor(sample, c.log)
}

// Check runs the verifier over every sample.
func (c *Context) Check() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Verify(c.repo, c.log)
}

// Reset clears all samples, invocations, prepared identities and warnings.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.repo.Reset()
	c.log.Reset()
	c.prepared = make(map[string]preparation)
	c.warnings = nil
	c.order = 0
	c.seq = 0
}

// Samples returns the registered samples in registration order.
func (c *Context) Samples() []*Sample {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.repo.All()
}

// Invocations returns the ledger of every intercepted call.
func (c *Context) Invocations() []LedgerEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.log.Entries()
}

// Warnings returns the ambiguous matches seen so far.
func (c *Context) Warnings() []AmbiguousMatchWarning {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]AmbiguousMatchWarning(nil), c.warnings...)
}

// Intercept resolves one call: it selects the most recently registered accepting sample, credits
// the invocation to it and executes the answer for the nth match. Calls no sample accepts are
// delegated to Real, or fail with *UnstubbedInvocationError when there is none. The returned
// error is always an engine error; thrown answers surface in Outcome.Err.
func (c *Context) Intercept(call Call) (Outcome, error) {
	c.mu.Lock()

	inv := Invocation{Method: call.Method, Args: call.Args, Instance: call.Instance, Seq: c.seq}
	c.seq++

	selected, shadowed := c.repo.Find(inv)
	if selected == nil {
		candidates := answeringCount(c.repo.Candidates(call.Method))
		c.mu.Unlock()

		return c.unstubbed(inv, call.Real, candidates)
	}

	n := c.log.Credit(selected, inv)
	answer := selected.Answer.Resolve(n)

	var warning *AmbiguousMatchWarning
	if len(shadowed) > 0 {
		warning = &AmbiguousMatchWarning{Invocation: inv, Selected: selected, Shadowed: shadowed}
		c.warnings = append(c.warnings, *warning)
	}

	c.mu.Unlock()

	if warning != nil {
		c.warn(*warning)
	}

	out, err := answer.execute(inv, call.Real)

	c.appendEntry(LedgerEntry{
		Invocation: inv,
		Sample:     selected,
		Delegated:  answer.Kind() == KindCallReal,
		Outcome:    out,
		Failure:    err,
	})

	if err != nil {
		c.logger.Debug().Err(err).Str("method", inv.Method.Key()).Msg("answer failed")
	}

	return out, err
}

func (c *Context) unstubbed(inv Invocation, real RealFunc, candidates int) (Outcome, error) {
	if real == nil {
		err := &UnstubbedInvocationError{Invocation: inv, Candidates: candidates}
		c.appendEntry(LedgerEntry{Invocation: inv, Failure: err})
		c.logger.Debug().Str("method", inv.Method.Key()).Int("candidates", candidates).Msg("unstubbed invocation")

		return Outcome{}, err
	}

	c.logger.Debug().Str("method", inv.Method.Key()).Msg("delegating unstubbed invocation")

	out := real(inv.Args)
	c.appendEntry(LedgerEntry{Invocation: inv, Delegated: true, Outcome: out})

	return out, nil
}

func (c *Context) appendEntry(entry LedgerEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Append(entry)
}

func (c *Context) warn(warning AmbiguousMatchWarning) {
	if c.warnHook != nil {
		c.warnHook(warning)
		return
	}

	c.logger.Warn().Str("method", warning.Invocation.Method.Key()).Msg(warning.String())
}

func (c *Context) register(sample *Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order++
	sample.Order = c.order
	c.repo.Register(sample)
}

func (c *Context) lookupLocked(method MethodIdentity, matcher ArgsMatcher) *Sample {
	desc := matcher.Describe()
	candidates := c.repo.Candidates(method)

	for i := len(candidates) - 1; i >= 0; i-- {
		if candidates[i].Args.Describe() == desc {
			return candidates[i]
		}
	}

	return nil
}

func answeringCount(samples []*Sample) int {
	count := 0

	for _, sample := range samples {
		if !sample.observer {
			count++
		}
	}

	return count
}

// AnswerBuilder programs the answer of a freshly declared sample.
type AnswerBuilder struct {
	ctx    *Context
	sample *Sample
}

// Return answers with values.
func (b *AnswerBuilder) Return(values ...any) *AnswerBuilder {
	return b.Answer(Return(values...))
}

// Throw answers with err.
func (b *AnswerBuilder) Throw(err error) *AnswerBuilder {
	return b.Answer(Throw(err))
}

// CallReal forwards to the wrapped real implementation.
func (b *AnswerBuilder) CallReal() *AnswerBuilder {
	return b.Answer(CallReal())
}

// Sequence answers successive matches with successive answers.
func (b *AnswerBuilder) Sequence(answers ...Answer) *AnswerBuilder {
	return b.Answer(Sequence(answers...))
}

// Answer sets an arbitrary answer.
func (b *AnswerBuilder) Answer(answer Answer) *AnswerBuilder {
	b.ctx.mu.Lock()
	defer b.ctx.mu.Unlock()

	b.sample.Answer = answer

	return b
}

// HasID sets the id the sample is persisted under.
func (b *AnswerBuilder) HasID(id string) *AnswerBuilder {
	b.ctx.mu.Lock()
	defer b.ctx.mu.Unlock()

	b.sample.ID = id

	return b
}

// Times attaches a quantifier.
func (b *AnswerBuilder) Times(q Quantifier) *AnswerBuilder {
	b.ctx.mu.Lock()
	defer b.ctx.mu.Unlock()

	b.sample.Quantifier = q

	return b
}

// Sample returns the declared sample.
func (b *AnswerBuilder) Sample() *Sample {
	return b.sample
}
