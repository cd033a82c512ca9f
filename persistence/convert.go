package persistence

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/toejough/deepstub/internal/core"
)

// FromRecords builds the Model of a run. Calls are grouped per sample id, groups in the order
// their first call was made, and numbered by their position in records.
func FromRecords(id string, recordedAt time.Time, records []core.Record) Model {
	model := Model{ID: id, RecordedAt: recordedAt}
	index := make(map[string]int)

	for seq, record := range records {
		i, ok := index[record.SampleID]
		if !ok {
			i = len(model.Methods)
			index[record.SampleID] = i
			model.Methods = append(model.Methods, MethodModel{
				SampleID: record.SampleID,
				Method:   record.Method.Key(),
			})
		}

		call := CallModel{
			Seq:    seq,
			Args:   make([]Raw, len(record.Args)),
			Values: make([]Raw, len(record.Values)),
		}

		for j, arg := range record.Args {
			call.Args[j] = argOf(arg)
		}

		for j, value := range record.Values {
			call.Values[j] = RawOf(value)
		}

		if record.Err != nil {
			call.Error = record.Err.Error()
		}

		model.Methods[i].Calls = append(model.Methods[i].Calls, call)
	}

	return model
}

// ToReplay converts a Model into one answer sequence per method identity. Calls of every sample
// id of a method are merged back into run order, so interleaved calls replay as recorded. Recorded
// errors come back as *core.RecordedError.
func ToReplay(model Model) (core.Replay, error) {
	type seqCall struct {
		seq  int
		call core.ReplayCall
	}

	replay := core.Replay{Methods: make([]core.ReplayMethod, 0, len(model.Methods))}
	calls := make(map[string][]seqCall)

	for _, method := range model.Methods {
		identity, err := core.ParseMethodIdentity(method.Method)
		if err != nil {
			return core.Replay{}, fmt.Errorf("%w: sample %q: %w", ErrMalformedModel, method.SampleID, err)
		}

		key := identity.Key()
		if _, ok := calls[key]; !ok {
			arity := len(identity.Params)
			if len(method.Calls) > 0 {
				arity = len(method.Calls[0].Args)
			}

			calls[key] = []seqCall{}
			replay.Methods = append(replay.Methods, core.ReplayMethod{Method: identity, Arity: arity})
		}

		for _, call := range method.Calls {
			calls[key] = append(calls[key], seqCall{seq: call.Seq, call: core.ReplayCall{
				SampleID: method.SampleID,
				Args:     rawArgs(call.Args),
				Answer:   answerOf(call),
			}})
		}
	}

	for i, method := range replay.Methods {
		ordered := calls[method.Method.Key()]
		slices.SortStableFunc(ordered, func(a, b seqCall) int { return cmp.Compare(a.seq, b.seq) })

		replay.Methods[i].Calls = make([]core.ReplayCall, len(ordered))
		for j, call := range ordered {
			replay.Methods[i].Calls[j] = call.call
		}
	}

	return replay, nil
}

func answerOf(call CallModel) core.Answer {
	values := make([]any, 0, len(call.Values)+1)
	for _, value := range call.Values {
		values = append(values, value)
	}

	if call.Error != "" {
		values = append(values, &core.RecordedError{Message: call.Error})
	}

	return core.Return(values...)
}

func rawArgs(args []Raw) []any {
	out := make([]any, len(args))
	for i, arg := range args {
		out[i] = arg
	}

	return out
}
