package action

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Marshal encodes a sequence to its on-disk JSON form.
func Marshal(seq *Sequence) ([]byte, error) {
	data, err := codec.MarshalIndent(seq, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding action sequence: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a sequence from its on-disk JSON form and validates it.
// Decode(Encode(x)) == x holds for any well-formed sequence.
func Unmarshal(data []byte) (*Sequence, error) {
	var seq Sequence
	if err := codec.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("decoding action sequence: %w", err)
	}
	if err := seq.Validate(); err != nil {
		return nil, fmt.Errorf("invalid action sequence: %w", err)
	}
	return &seq, nil
}

// Encode writes a sequence to w.
func Encode(w io.Writer, seq *Sequence) error {
	data, err := Marshal(seq)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing action sequence: %w", err)
	}
	return nil
}

// Decode reads a sequence from r.
func Decode(r io.Reader) (*Sequence, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading action sequence: %w", err)
	}
	return Unmarshal(data)
}
