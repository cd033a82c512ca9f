package core

// Sample is a stub definition: which method, which arguments, how to answer and how often it is
// expected to be invoked.
type Sample struct {
	// ID keys the sample in persisted recordings. It defaults to the method key.
	ID         string
	Method     MethodIdentity
	Args       ArgsMatcher
	Answer     Answer
	Quantifier Quantifier
	// Order is the registration order within the owning Context; later samples win.
	Order int

	// observer samples never answer. They exist to carry a Quantifier declared with Verify for
	// an argument pattern no answering sample covers.
	observer bool
}

// Describe renders the method and matcher, e.g. pkg.Foo.Bar(int)(Equals(1)).
func (s *Sample) Describe() string {
	return s.Method.Key() + s.Args.Describe()
}

// Observer reports whether the sample only observes invocations.
func (s *Sample) Observer() bool {
	return s.observer
}
