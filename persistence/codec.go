package persistence

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names a recording encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Codec encodes and decodes Models.
type Codec interface {
	Format() Format
	Marshal(model Model) ([]byte, error)
	Unmarshal(data []byte) (Model, error)
}

// CodecFor returns the codec of format. "yml" is accepted for YAML.
func CodecFor(format string) (Codec, error) {
	switch Format(strings.ToLower(format)) {
	case FormatJSON:
		return JSON{}, nil
	case FormatYAML, "yml":
		return YAML{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// CodecForPath picks the codec from a file extension.
func CodecForPath(name string) (Codec, error) {
	return CodecFor(strings.TrimPrefix(path.Ext(name), "."))
}

// JSON is the encoding/json codec.
type JSON struct{}

func (JSON) Format() Format { return FormatJSON }

func (JSON) Marshal(model Model) ([]byte, error) {
	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json recording: %w", err)
	}

	return append(data, '\n'), nil
}

func (JSON) Unmarshal(data []byte) (Model, error) {
	var model Model
	if err := json.Unmarshal(data, &model); err != nil {
		return Model{}, fmt.Errorf("%w: %w", ErrMalformedModel, err)
	}

	return model, nil
}

// YAML is the gopkg.in/yaml.v3 codec.
type YAML struct{}

func (YAML) Format() Format { return FormatYAML }

func (YAML) Marshal(model Model) ([]byte, error) {
	data, err := yaml.Marshal(model)
	if err != nil {
		return nil, fmt.Errorf("marshal yaml recording: %w", err)
	}

	return data, nil
}

func (YAML) Unmarshal(data []byte) (Model, error) {
	var model Model
	if err := yaml.Unmarshal(data, &model); err != nil {
		return Model{}, fmt.Errorf("%w: %w", ErrMalformedModel, err)
	}

	return model, nil
}
