package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// MarshalModel converts a model to indented JSON bytes.
func MarshalModel(m *Model) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteModel(m, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteModel writes a model as indented JSON to an io.Writer.
func WriteModel(m *Model, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return nil
}

// WriteModelFile writes a model to a JSON file.
// The file is created with 0644 permissions.
func WriteModelFile(m *Model, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteModel(m, f)
}

// ReadModel decodes a JSON model from an io.Reader and validates it.
// Malformed impedance matrices or load vectors fail here with an error
// naming the offending shape, never by silent truncation.
func ReadModel(r io.Reader) (*Model, error) {
	var m Model
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model: %w", err)
	}
	return &m, nil
}

// ReadModelFile reads and validates a JSON model file.
func ReadModelFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadModel(f)
}

// UnmarshalModel deserializes JSON bytes to a validated model.
func UnmarshalModel(data []byte) (*Model, error) {
	return ReadModel(bytes.NewReader(data))
}
