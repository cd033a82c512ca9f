package core

// Verify checks every bounded quantifier in repo against log and returns a *VerificationFailure
// listing all violations, or nil.
func Verify(repo *SampleRepository, log *InvocationLog) error {
	var violations []Violation

	for _, sample := range repo.All() {
		if !sample.Quantifier.Bounded() {
			continue
		}

		actual := countFor(sample, log)
		if sample.Quantifier.Satisfied(actual) {
			continue
		}

		violations = append(violations, Violation{
			Method:   sample.Method,
			Matcher:  sample.Args.Describe(),
			Expected: sample.Quantifier,
			Actual:   actual,
		})
	}

	if len(violations) == 0 {
		return nil
	}

	return &VerificationFailure{Violations: violations}
}

// countFor returns the invocations credited to an answering sample. Observer samples are never
// credited, so they count every ledger entry for the method whose arguments they accept.
func countFor(sample *Sample, log *InvocationLog) int {
	if !sample.observer {
		return log.Count(sample)
	}

	count := 0

	for _, entry := range log.ledger {
		inv := entry.Invocation
		if inv.Method.Equal(sample.Method) && sample.Args.Accepts(inv.Args) {
			count++
		}
	}

	return count
}
