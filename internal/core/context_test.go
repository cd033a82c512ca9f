package core_test

import (
	"errors"
	"sync"
	"testing"

	. "github.com/onsi/gomega"
	"pgregory.net/rapid"

	"github.com/toejough/deepstub/internal/core"
)

func TestContext_StubReturnsDeclaredValue(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctx := core.NewContext()
	s := newStubStore(ctx)

	ctx.Stub(getMethod, 1).Return("one")

	value, err := s.Get(1)

	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(value).To(Equal("one"))
}

func TestContext_DefaultAnswerReturnsZeroValues(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctx := core.NewContext()
	s := newStubStore(ctx)

	ctx.Stub(getMethod, core.Any())

	value, err := s.Get(7)

	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(value).To(BeEmpty())
}

func TestContext_LastRegisteredSampleWins(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctx := core.NewContext()
	s := newStubStore(ctx)

	ctx.Stub(getMethod, core.Any()).Return("general")
	ctx.Stub(getMethod, 1).Return("specific")

	one, _ := s.Get(1)
	two, _ := s.Get(2)

	g.Expect(one).To(Equal("specific"))
	g.Expect(two).To(Equal("general"))
}

// TestContext_LastRegisteredSampleWins_Property verifies that among several samples accepting the
// same call, the most recently registered one answers.
func TestContext_LastRegisteredSampleWins_Property(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		ctx := core.NewContext(core.WithWarningHook(func(core.AmbiguousMatchWarning) {}))
		s := newStubStore(ctx)

		count := rapid.IntRange(1, 6).Draw(rt, "samples")
		for i := range count {
			ctx.Stub(getMethod, core.Any()).Return(string(rune('a' + i)))
		}

		value, _ := s.Get(rapid.Int().Draw(rt, "id"))
		if want := string(rune('a' + count - 1)); value != want {
			rt.Fatalf("got %q, want %q", value, want)
		}
	})
}

// TestContext_SampleOrderScenario stubs bar(1) and bar(2) and interleaves the calls.
func TestContext_SampleOrderScenario(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctx := core.NewContext()
	s := newStubStore(ctx)

	ctx.Stub(getMethod, 1).Return("a")
	ctx.Stub(getMethod, 2).Return("b")

	first, _ := s.Get(2)
	second, _ := s.Get(1)
	third, _ := s.Get(2)

	g.Expect([]string{first, second, third}).To(Equal([]string{"b", "a", "b"}))
	g.Expect(ctx.VerifyNow(getMethod, core.Twice(), 2)).To(Succeed())
	g.Expect(ctx.VerifyNow(getMethod, core.Once(), 1)).To(Succeed())
}

// TestContext_SequenceScenario answers Return(1), Throw, Return(3) and then repeats the last.
func TestContext_SequenceScenario(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctx := core.NewContext()
	s := newStubStore(ctx)

	ctx.Stub(getMethod, core.Any()).Sequence(core.Return("1"), core.Throw(errBoom), core.Return("3"))

	results := make([]string, 0, 4)
	errs := make([]error, 0, 4)

	for range 4 {
		value, err := s.Get(0)
		results = append(results, value)
		errs = append(errs, err)
	}

	g.Expect(results).To(Equal([]string{"1", "", "3", "3"}))
	g.Expect(errs[0]).NotTo(HaveOccurred())
	g.Expect(errs[1]).To(MatchError(errBoom))
	g.Expect(errs[2]).NotTo(HaveOccurred())
	g.Expect(errs[3]).NotTo(HaveOccurred())
}

func TestContext_ReturnWithTrailingError(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctx := core.NewContext()
	s := newStubStore(ctx)

	ctx.Stub(getMethod, 1).Return("partial", errBoom)
	ctx.Stub(getMethod, 2).Return("ok", nil)

	value, err := s.Get(1)
	g.Expect(value).To(Equal("partial"))
	g.Expect(err).To(MatchError(errBoom))

	value, err = s.Get(2)
	g.Expect(value).To(Equal("ok"))
	g.Expect(err).NotTo(HaveOccurred())
}

func TestContext_ThrowOnMethodWithoutErrorPanics(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctx := core.NewContext()
	s := newStubStore(ctx)

	ctx.Stub(sizeMethod).Throw(errBoom)

	g.Expect(func() { s.Size() }).To(PanicWith(errBoom))
}

func TestContext_UnstubbedPureStubPanics(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctx := core.NewContext()
	s := newStubStore(ctx)

	ctx.Stub(getMethod, 1).Return("one")

	var recovered any

	func() {
		defer func() { recovered = recover() }()

		_, _ = s.Get(2)
	}()

	err, ok := recovered.(error)
	g.Expect(ok).To(BeTrue())
	g.Expect(errors.Is(err, core.ErrUnstubbed)).To(BeTrue())

	var unstubbed *core.UnstubbedInvocationError

	g.Expect(errors.As(err, &unstubbed)).To(BeTrue())
	g.Expect(unstubbed.Candidates).To(Equal(1))
	g.Expect(unstubbed.Invocation.Args).To(Equal([]any{2}))
	g.Expect(err.Error()).To(ContainSubstring("none accepted the arguments"))
}

func TestContext_PartialStubDelegatesUnstubbedCalls(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	real := &realStore{values: map[int]string{1: "real one", 2: "real two"}}
	ctx := core.NewContext()
	s := wrapStubStore(ctx, real)

	ctx.Stub(getMethod, 1).Return("stubbed")

	one, _ := s.Get(1)
	two, _ := s.Get(2)
	_, missing := s.Get(3)

	g.Expect(one).To(Equal("stubbed"))
	g.Expect(two).To(Equal("real two"))
	g.Expect(missing).To(MatchError(errNotFound))

	entries := ctx.Invocations()
	g.Expect(entries).To(HaveLen(3))
	g.Expect(entries[0].Delegated).To(BeFalse())
	g.Expect(entries[1].Delegated).To(BeTrue())
	g.Expect(entries[1].Sample).To(BeNil())
}

func TestContext_CallRealAnswer(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	real := &realStore{values: map[int]string{}}
	ctx := core.NewContext()
	s := wrapStubStore(ctx, real)

	ctx.Stub(putMethod, core.Any(), core.Any()).CallReal().Times(core.Twice())

	g.Expect(s.Put(1, "a")).To(Succeed())
	g.Expect(s.Put(2, "b")).To(Succeed())
	g.Expect(real.puts).To(Equal(2))
	g.Expect(real.Size()).To(Equal(2))
	g.Expect(ctx.Check()).To(Succeed())
}

func TestContext_CallRealWithoutInstancePanics(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctx := core.NewContext()
	s := newStubStore(ctx)

	ctx.Stub(sizeMethod).CallReal()

	g.Expect(func() { s.Size() }).To(PanicWith(MatchError(core.ErrNoRealImplementation)))
}

func TestContext_ExactlyIsExact(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		expected := rapid.IntRange(0, 5).Draw(rt, "expected")
		calls := rapid.IntRange(0, 7).Draw(rt, "calls")

		ctx := core.NewContext()
		s := newStubStore(ctx)

		ctx.Stub(sizeMethod).Return(1).Times(core.Exactly(expected))

		for range calls {
			s.Size()
		}

		err := ctx.Check()
		if (err == nil) != (calls == expected) {
			rt.Fatalf("Exactly(%d) with %d calls: %v", expected, calls, err)
		}
	})
}

func TestContext_CheckReportsAllViolations(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctx := core.NewContext()
	s := newStubStore(ctx)

	ctx.Stub(getMethod, 1).Return("one").Times(core.Once())
	ctx.Stub(sizeMethod).Return(0).Times(core.AtLeast(2))
	ctx.Stub(putMethod, core.Any(), core.Any()).Times(core.Never())

	_, _ = s.Get(1)
	_ = s.Put(1, "x")

	err := ctx.Check()

	var failure *core.VerificationFailure

	g.Expect(errors.As(err, &failure)).To(BeTrue())
	g.Expect(errors.Is(err, core.ErrVerification)).To(BeTrue())
	g.Expect(failure.Violations).To(HaveLen(2))
	g.Expect(failure.Violations[0].Method).To(Equal(sizeMethod))
	g.Expect(failure.Violations[0].Actual).To(Equal(0))
	g.Expect(failure.Violations[1].Method).To(Equal(putMethod))
	g.Expect(failure.Violations[1].Actual).To(Equal(1))
	g.Expect(err.Error()).To(ContainSubstring("2 violation(s)"))
}

func TestContext_VerifyAttachesToMatchingSample(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctx := core.NewContext()
	s := newStubStore(ctx)

	sample := ctx.Stub(getMethod, 1).Return("one").Sample()
	ctx.Verify(getMethod, core.Once(), 1)

	g.Expect(ctx.Samples()).To(HaveLen(1))
	g.Expect(sample.Quantifier).To(Equal(core.Once()))
	g.Expect(ctx.Check()).To(HaveOccurred())

	_, _ = s.Get(1)

	g.Expect(ctx.Check()).To(Succeed())
}

// TestContext_NeverWithNonMatchingArgs verifies Never on an argument pattern that no answering
// sample covers counts only the calls that pattern accepts.
func TestContext_NeverWithNonMatchingArgs(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctx := core.NewContext()
	s := newStubStore(ctx)

	ctx.Stub(getMethod, core.Any()).Return("any")
	ctx.Verify(getMethod, core.Never(), 99)

	_, _ = s.Get(1)
	_, _ = s.Get(2)

	g.Expect(ctx.Check()).To(Succeed())

	value, _ := s.Get(99)

	g.Expect(value).To(Equal("any"), "observers never answer")
	g.Expect(ctx.Check()).To(MatchError(ContainSubstring("expected Never, got 1")))
}

func TestContext_VerifyNowWithoutSample(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctx := core.NewContext()

	g.Expect(ctx.VerifyNow(getMethod, core.Never(), 1)).To(Succeed())
	g.Expect(ctx.VerifyNow(getMethod, core.Once(), 1)).To(MatchError(core.ErrVerification))
}

func TestContext_ResetClearsEverything(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctx := core.NewContext(core.WithWarningHook(func(core.AmbiguousMatchWarning) {}))
	s := newStubStore(ctx)

	ctx.Stub(getMethod, core.Any()).Return("a").Times(core.Twice())
	ctx.Stub(getMethod, core.Any()).Return("b")
	ctx.Prepare(getMethod, "")

	_, _ = s.Get(1)

	ctx.Reset()

	g.Expect(ctx.Samples()).To(BeEmpty())
	g.Expect(ctx.Invocations()).To(BeEmpty())
	g.Expect(ctx.Warnings()).To(BeEmpty())
	g.Expect(ctx.Check()).To(Succeed())
	g.Expect(func() { _, _ = s.Get(1) }).To(Panic())
}

func TestContext_AmbiguousMatchWarns(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	var hooked []core.AmbiguousMatchWarning

	ctx := core.NewContext(core.WithWarningHook(func(w core.AmbiguousMatchWarning) {
		hooked = append(hooked, w)
	}))
	s := newStubStore(ctx)

	general := ctx.Stub(getMethod, core.Any()).Return("general").Sample()
	specific := ctx.Stub(getMethod, 1).Return("specific").Sample()

	_, _ = s.Get(1)
	_, _ = s.Get(2)

	g.Expect(hooked).To(HaveLen(1))
	g.Expect(hooked[0].Selected).To(BeIdenticalTo(specific))
	g.Expect(hooked[0].Shadowed).To(ConsistOf(general))
	g.Expect(hooked[0].String()).To(ContainSubstring("shadowing"))
	g.Expect(ctx.Warnings()).To(HaveLen(1))
	g.Expect(ctx.Count(general)).To(Equal(1))
	g.Expect(ctx.Count(specific)).To(Equal(1))
}

func TestContext_LookupAndHasID(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctx := core.NewContext()

	ctx.Stub(getMethod, 1).Return("one").HasID("lookup-one")

	sample, ok := ctx.Lookup(getMethod, 1)
	g.Expect(ok).To(BeTrue())
	g.Expect(sample.ID).To(Equal("lookup-one"))
	g.Expect(sample.Describe()).To(HaveSuffix("store.Get(int)(Equals(1))"))

	_, ok = ctx.Lookup(getMethod, 2)
	g.Expect(ok).To(BeFalse())
}

func TestContext_LookupDistinguishesArgumentTypes(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctx := core.NewContext()

	ctx.Stub(getMethod, 1).Return("one")

	_, ok := ctx.Lookup(getMethod, int64(1))
	g.Expect(ok).To(BeFalse())

	_, ok = ctx.Lookup(getMethod, 1)
	g.Expect(ok).To(BeTrue())
}

func TestContext_VerifyAttachesToSameGomegaMatcher(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctx := core.NewContext()
	s := newStubStore(ctx)

	small := ctx.Stub(putMethod, core.FromGomega(BeNumerically("<", 10)), core.Any()).Sample()
	large := ctx.Stub(putMethod, core.FromGomega(BeNumerically(">", 100)), core.Any()).Sample()

	ctx.Verify(putMethod, core.Once(), core.FromGomega(BeNumerically("<", 10)), core.Any())

	g.Expect(small.Quantifier).To(Equal(core.Once()))
	g.Expect(large.Quantifier.Bounded()).To(BeFalse())

	g.Expect(s.Put(5, "five")).To(Succeed())
	g.Expect(ctx.Check()).To(Succeed())
	g.Expect(ctx.Samples()).To(HaveLen(2))
}

func TestContext_ConcurrentInvocations(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	const goroutines = 50

	ctx := core.NewContext()
	s := newStubStore(ctx)

	ctx.Stub(sizeMethod).Return(3).Times(core.Exactly(goroutines))

	var wg sync.WaitGroup

	for range goroutines {
		wg.Go(func() {
			s.Size()
		})
	}

	wg.Wait()

	g.Expect(ctx.Check()).To(Succeed())
	g.Expect(ctx.Invocations()).To(HaveLen(goroutines))
}

func TestContext_WrongReturnTypePanics(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctx := core.NewContext()
	s := newStubStore(ctx)

	ctx.Stub(getMethod, 1).Return(42)

	g.Expect(func() { _, _ = s.Get(1) }).To(PanicWith(ContainSubstring("Wrong return type")))
}

func TestContext_NumericReturnsConvert(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ctx := core.NewContext()
	s := newStubStore(ctx)

	ctx.Stub(sizeMethod).Return(int64(5))

	g.Expect(s.Size()).To(Equal(5))
}
