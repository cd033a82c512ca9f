// Package persistence stores recorded runs and turns them back into replays. A recording is a
// Model: per sample id, the calls with their position in the run, arguments, results and error
// message.
package persistence

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"gopkg.in/yaml.v3"
)

// Model is the durable shape of one recorded run.
type Model struct {
	ID         string        `json:"id"         yaml:"id"`
	RecordedAt time.Time     `json:"recordedAt" yaml:"recordedAt"`
	Methods    []MethodModel `json:"methods"    yaml:"methods"`
}

// MethodModel holds the calls credited to one sample id.
type MethodModel struct {
	SampleID string `json:"sampleId" yaml:"sampleId"`
	// Method is the method identity key, e.g. pkg.Store.Get(int).
	Method string      `json:"method" yaml:"method"`
	Calls  []CallModel `json:"calls"  yaml:"calls"`
}

// CallModel is one recorded call.
type CallModel struct {
	// Seq is the position of the call in the run, across all sample ids.
	Seq    int    `json:"seq"             yaml:"seq"`
	Args   []Raw  `json:"args"            yaml:"args"`
	Values []Raw  `json:"values"          yaml:"values"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

// CallCount is the number of calls across all methods.
func (m Model) CallCount() int {
	count := 0
	for _, method := range m.Methods {
		count += len(method.Calls)
	}

	return count
}

// Raw is a recorded value. Values built from a live run hold the value itself; values read back
// from storage stay encoded until they are decoded into the type the caller expects.
type Raw struct {
	value any
	data  json.RawMessage
	node  *yaml.Node
}

// RawOf wraps a live value.
func RawOf(value any) Raw {
	return Raw{value: value}
}

// argOf wraps an argument. Arguments are recorded for inspection only, so values no codec can
// encode are replaced by their type name.
func argOf(value any) Raw {
	if value == nil {
		return Raw{}
	}

	switch reflect.TypeOf(value).Kind() { //nolint:exhaustive // only unencodable kinds matter
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return Raw{value: fmt.Sprintf("%T", value)}
	default:
		return Raw{value: value}
	}
}

// Decode stores the value in target, which must be a non-nil pointer.
func (r Raw) Decode(target any) error {
	switch {
	case r.data != nil:
		if err := json.Unmarshal(r.data, target); err != nil {
			return fmt.Errorf("decode json value: %w", err)
		}

		return nil
	case r.node != nil:
		if err := r.node.Decode(target); err != nil {
			return fmt.Errorf("decode yaml value: %w", err)
		}

		return nil
	default:
		return r.decodeLive(target)
	}
}

// Interface returns the value decoded into its natural generic form.
func (r Raw) Interface() (any, error) {
	if r.data == nil && r.node == nil {
		return r.value, nil
	}

	var out any

	err := r.Decode(&out)

	return out, err
}

func (r Raw) String() string {
	value, err := r.Interface()
	if err != nil {
		return fmt.Sprintf("<undecodable: %v>", err)
	}

	return fmt.Sprintf("%v", value)
}

// MarshalJSON encodes the value. YAML-loaded values are converted through their generic form.
func (r Raw) MarshalJSON() ([]byte, error) {
	if r.data != nil {
		return r.data, nil
	}

	value, err := r.Interface()
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode json value: %w", err)
	}

	return data, nil
}

// UnmarshalJSON keeps the encoded value for later decoding.
func (r *Raw) UnmarshalJSON(data []byte) error {
	*r = Raw{data: append(json.RawMessage(nil), data...)}

	return nil
}

// MarshalYAML encodes the value. JSON-loaded values are converted through their generic form.
func (r Raw) MarshalYAML() (any, error) {
	if r.node != nil {
		return r.node, nil
	}

	return r.Interface()
}

// UnmarshalYAML keeps the node for later decoding.
func (r *Raw) UnmarshalYAML(node *yaml.Node) error {
	*r = Raw{node: node}

	return nil
}

func (r Raw) decodeLive(target any) error {
	ptr := reflect.ValueOf(target)
	if ptr.Kind() != reflect.Pointer || ptr.IsNil() {
		return fmt.Errorf("%w: decode target must be a non-nil pointer, got %T", ErrMalformedModel, target)
	}

	if r.value == nil {
		ptr.Elem().SetZero()
		return nil
	}

	value := reflect.ValueOf(r.value)
	if value.Type().AssignableTo(ptr.Elem().Type()) {
		ptr.Elem().Set(value)
		return nil
	}

	data, err := json.Marshal(r.value)
	if err != nil {
		return fmt.Errorf("encode live value: %w", err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode live value: %w", err)
	}

	return nil
}
