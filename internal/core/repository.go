package core

// SampleRepository holds the samples of one Context, keyed by method identity. Insertion order
// is preserved per method and globally.
type SampleRepository struct {
	byMethod map[string][]*Sample
	all      []*Sample
}

// NewSampleRepository returns an empty repository.
func NewSampleRepository() *SampleRepository {
	return &SampleRepository{byMethod: make(map[string][]*Sample)}
}

// Register appends the sample. Multiple samples may target the same method; the most recently
// registered accepting sample wins on lookup.
func (r *SampleRepository) Register(sample *Sample) {
	key := sample.Method.Key()
	r.byMethod[key] = append(r.byMethod[key], sample)
	r.all = append(r.all, sample)
}

// Candidates returns the samples registered for method, in registration order.
func (r *SampleRepository) Candidates(method MethodIdentity) []*Sample {
	return r.byMethod[method.Key()]
}

// Find returns the most recently registered answering sample that accepts the invocation, and
// the other answering samples that would also have accepted it.
func (r *SampleRepository) Find(inv Invocation) (selected *Sample, shadowed []*Sample) {
	candidates := r.byMethod[inv.Method.Key()]

	for i := len(candidates) - 1; i >= 0; i-- {
		candidate := candidates[i]
		if candidate.observer || !candidate.Args.Accepts(inv.Args) {
			continue
		}

		if selected == nil {
			selected = candidate
			continue
		}

		shadowed = append(shadowed, candidate)
	}

	return selected, shadowed
}

// All returns every sample in registration order.
func (r *SampleRepository) All() []*Sample {
	return append([]*Sample(nil), r.all...)
}

// Len is the number of registered samples.
func (r *SampleRepository) Len() int {
	return len(r.all)
}

// Reset removes every sample.
func (r *SampleRepository) Reset() {
	r.byMethod = make(map[string][]*Sample)
	r.all = nil
}
