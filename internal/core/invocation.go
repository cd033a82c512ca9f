package core

// Invocation is one intercepted call. It is immutable once recorded.
type Invocation struct {
	Method   MethodIdentity
	Args     []any
	Instance any
	// Seq is the 0-based position of the call within its Context run.
	Seq int
}

// LedgerEntry is the diagnostic record of one intercepted call, matched or not.
type LedgerEntry struct {
	Invocation Invocation
	// Sample is the credited sample, nil when the call was unstubbed.
	Sample *Sample
	// Delegated is true when the real implementation produced the outcome.
	Delegated bool
	Outcome   Outcome
	// Failure is the engine error raised for the call, if any.
	Failure error
}

// InvocationLog records the invocations credited to each sample plus a ledger of all calls.
type InvocationLog struct {
	perSample map[*Sample][]Invocation
	ledger    []LedgerEntry
}

// NewInvocationLog returns an empty log.
func NewInvocationLog() *InvocationLog {
	return &InvocationLog{perSample: make(map[*Sample][]Invocation)}
}

// Credit appends inv to the sample's log and returns how many invocations were credited to the
// sample before it.
func (l *InvocationLog) Credit(sample *Sample, inv Invocation) int {
	prior := len(l.perSample[sample])
	l.perSample[sample] = append(l.perSample[sample], inv)

	return prior
}

// Append adds an entry to the ledger.
func (l *InvocationLog) Append(entry LedgerEntry) {
	l.ledger = append(l.ledger, entry)
}

// Count is the number of invocations credited to the sample.
func (l *InvocationLog) Count(sample *Sample) int {
	return len(l.perSample[sample])
}

// For returns the invocations credited to the sample.
func (l *InvocationLog) For(sample *Sample) []Invocation {
	return append([]Invocation(nil), l.perSample[sample]...)
}

// Entries returns the ledger in call order.
func (l *InvocationLog) Entries() []LedgerEntry {
	return append([]LedgerEntry(nil), l.ledger...)
}

// Reset empties the log.
func (l *InvocationLog) Reset() {
	l.perSample = make(map[*Sample][]Invocation)
	l.ledger = nil
}
