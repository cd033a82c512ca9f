package core

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Record is one exported (method, arguments, result) tuple of a completed run.
type Record struct {
	SampleID string
	Method   MethodIdentity
	Args     []any
	Values   []any
	Err      error
}

// ReplayCall is one recorded call: the sample id it was credited to, its arguments and the answer
// that reproduces it. Arguments may still be encoded as a Decoder.
type ReplayCall struct {
	SampleID string
	Args     []any
	Answer   Answer
}

// ReplayMethod holds the recorded calls of one method in call order.
type ReplayMethod struct {
	Method MethodIdentity
	// Arity is the number of arguments the method is called with.
	Arity int
	Calls []ReplayCall
}

// SampleIDs returns the distinct sample ids of the calls in first-call order.
func (m ReplayMethod) SampleIDs() []string {
	ids := make([]string, 0, 1)

	for _, call := range m.Calls {
		if !slices.Contains(ids, call.SampleID) {
			ids = append(ids, call.SampleID)
		}
	}

	return ids
}

// Answers returns the answers of the calls in call order.
func (m ReplayMethod) Answers() []Answer {
	answers := make([]Answer, len(m.Calls))
	for i, call := range m.Calls {
		answers[i] = call.Answer
	}

	return answers
}

// Replay is a pre-built mapping from method identity and call index to answer.
type Replay struct {
	Methods []ReplayMethod
}

type preparation struct {
	method MethodIdentity
	// args is nil when any arguments are accepted.
	args ArgsMatcher
}

// Prepare marks method as a replay target under id (the method key when empty). Once anything
// is prepared, InstallReplay rejects recordings of ids that were not. With args, recorded calls
// of id must also be accepted by the matchers built from them.
func (c *Context) Prepare(method MethodIdentity, id string, args ...any) {
	if id == "" {
		id = method.Key()
	}

	p := preparation{method: method}
	if len(args) > 0 {
		p.args = Args(args...)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.prepared[id] = p
}

// Export returns, in call order, every intercepted call that produced an outcome.
func (c *Context) Export() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.log.Entries()
	slices.SortStableFunc(entries, func(a, b LedgerEntry) int {
		return a.Invocation.Seq - b.Invocation.Seq
	})

	records := make([]Record, 0, len(entries))

	for _, entry := range entries {
		if entry.Failure != nil {
			continue
		}

		records = append(records, Record{
			SampleID: c.sampleIDLocked(entry),
			Method:   entry.Invocation.Method,
			Args:     entry.Invocation.Args,
			Values:   entry.Outcome.Values,
			Err:      entry.Outcome.Err,
		})
	}

	return records
}

// InstallReplay registers one sample per replayed method. It matches any arguments of the
// recorded arity and answers the nth call with the nth recorded answer. Sample ids only label the
// calls; in strict mode every id must be prepared and its calls accepted by the prepared matchers.
func (c *Context) InstallReplay(replay Replay) error {
	c.mu.Lock()
	prepared := maps.Clone(c.prepared)
	c.mu.Unlock()

	if len(prepared) > 0 {
		if err := checkPrepared(replay, prepared); err != nil {
			return err
		}
	}

	for _, method := range replay.Methods {
		if len(method.Calls) == 0 {
			continue
		}

		id := method.Method.Key()
		if ids := method.SampleIDs(); len(ids) == 1 {
			id = ids[0]
		}

		c.register(&Sample{
			ID:     id,
			Method: method.Method,
			Args:   AnyArgs(method.Arity),
			Answer: Sequence(method.Answers()...),
		})

		c.logger.Info().
			Str("sample", id).
			Str("method", method.Method.Key()).
			Int("calls", len(method.Calls)).
			Msg("installed replayed sample")
	}

	return nil
}

func checkPrepared(replay Replay, prepared map[string]preparation) error {
	ids := slices.Sorted(maps.Keys(prepared))

	for _, method := range replay.Methods {
		for _, call := range method.Calls {
			p, ok := prepared[call.SampleID]
			if !ok {
				suggestion, similarity := closest(call.SampleID, ids)

				return &NoMatchingSampleError{SampleID: call.SampleID, Suggestion: suggestion, Similarity: similarity}
			}

			if p.args == nil {
				continue
			}

			args, err := p.args.acceptRecorded(call.Args)
			if err != nil {
				return &ParametersNotMatchedError{
					SampleID: call.SampleID,
					Method:   method.Method,
					Expected: p.args.Describe(),
					Args:     args,
					Reason:   err,
				}
			}
		}
	}

	return nil
}

// sampleIDLocked labels a logged call: the answering sample's id, else a prepared id for the
// method (one whose matchers accept the arguments before one without matchers, ties in id
// order), else the method key.
func (c *Context) sampleIDLocked(entry LedgerEntry) string {
	if entry.Sample != nil {
		return entry.Sample.ID
	}

	ids := slices.Sorted(maps.Keys(c.prepared))

	for _, withArgs := range []bool{true, false} {
		for _, id := range ids {
			p := c.prepared[id]
			if !p.method.Equal(entry.Invocation.Method) || (p.args != nil) != withArgs {
				continue
			}

			if p.args == nil || p.args.Accepts(entry.Invocation.Args) {
				return id
			}
		}
	}

	return entry.Invocation.Method.Key()
}

// closest returns the candidate most similar to wanted and its similarity in [0, 1].
func closest(wanted string, candidates []string) (string, float64) {
	best, bestScore := "", -1.0

	for _, candidate := range candidates {
		score := similarity(wanted, candidate)
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}

	return best, bestScore
}

// similarity is 1 for equal strings and 0 for completely different ones, case-insensitive.
func similarity(left, right string) float64 {
	left, right = strings.ToLower(left), strings.ToLower(right)

	longer := max(utf8.RuneCountInString(left), utf8.RuneCountInString(right))
	if longer == 0 {
		return 1
	}

	distance := levenshtein.ComputeDistance(left, right)

	return float64(longer-distance) / float64(longer)
}

// acceptRecorded checks recorded arguments, decoding encoded ones into the type each matcher
// expects. It returns the decoded arguments.
func (a ArgsMatcher) acceptRecorded(recorded []any) ([]any, error) {
	args := make([]any, len(recorded))

	for i, arg := range recorded {
		if decoder, ok := arg.(Decoder); ok && i < len(a) {
			decoded, err := decodeFor(decoder, a[i].decodeType())
			if err != nil {
				return recorded, fmt.Errorf("argument %d: %w", i, err)
			}

			arg = decoded
		}

		args[i] = arg
	}

	if len(args) != len(a) {
		return args, fmt.Errorf("%w: expected %d arguments, got %d", errArityMismatch, len(a), len(args))
	}

	for i, matcher := range a {
		if err := matcher.Explain(args[i]); err != nil {
			return args, fmt.Errorf("argument %d: %w", i, err)
		}
	}

	return args, nil
}

func decodeFor(decoder Decoder, typ reflect.Type) (any, error) {
	target := reflect.New(typ)
	if err := decoder.Decode(target.Interface()); err != nil {
		return nil, fmt.Errorf("decode recorded argument into %s: %w", typ, err)
	}

	return target.Elem().Interface(), nil
}
