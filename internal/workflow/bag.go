package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrNotObject is returned when a document is not a JSON object.
var ErrNotObject = errors.New("workflow: not a JSON object")

// ErrTrailingData is returned when a JSON object is followed by more input.
var ErrTrailingData = errors.New("workflow: data after JSON object")

// Bag is a JSON object that remembers key order and keeps values as raw
// JSON. Fields this package does not understand pass through untouched.
// The zero value is an empty bag ready to use.
type Bag struct {
	keys   []string
	values map[string]json.RawMessage
}

// NewBag returns an empty bag.
func NewBag() *Bag {
	return &Bag{}
}

// Len returns the number of keys.
func (b *Bag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.keys)
}

// Keys returns the keys in document order.
func (b *Bag) Keys() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.keys...)
}

// Get returns the raw value stored under key.
func (b *Bag) Get(key string) (json.RawMessage, bool) {
	if b == nil {
		return nil, false
	}
	v, ok := b.values[key]
	return v, ok
}

// Has reports whether key is present.
func (b *Bag) Has(key string) bool {
	_, ok := b.Get(key)
	return ok
}

// String returns the value under key when it is a JSON string.
func (b *Bag) String(key string) (string, bool) {
	raw, ok := b.Get(key)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Set stores a raw value. Existing keys keep their position; new keys are
// appended.
func (b *Bag) Set(key string, value json.RawMessage) {
	if b.values == nil {
		b.values = make(map[string]json.RawMessage)
	}
	if _, ok := b.values[key]; !ok {
		b.keys = append(b.keys, key)
	}
	if len(value) == 0 {
		value = json.RawMessage("null")
	}
	b.values[key] = append(json.RawMessage(nil), value...)
}

// SetValue marshals v and stores it under key.
func (b *Bag) SetValue(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("workflow: encode %q: %w", key, err)
	}
	b.Set(key, raw)
	return nil
}

// Delete removes key if present.
func (b *Bag) Delete(key string) {
	if b == nil {
		return
	}
	if _, ok := b.values[key]; !ok {
		return
	}
	delete(b.values, key)
	for i, k := range b.keys {
		if k == key {
			b.keys = append(b.keys[:i:i], b.keys[i+1:]...)
			break
		}
	}
}

// Clone returns a deep copy. Cloning nil yields an empty bag.
func (b *Bag) Clone() *Bag {
	c := &Bag{}
	if b == nil {
		return c
	}
	for _, k := range b.keys {
		c.Set(k, b.values[k])
	}
	return c
}

// MarshalJSON writes the object with keys in stored order.
func (b *Bag) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if b != nil {
		for i, k := range b.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			name, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(name)
			buf.WriteByte(':')
			buf.Write(b.values[k])
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, recording key order. A repeated key
// keeps its first position and its last value.
func (b *Bag) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return ErrNotObject
	}

	out := Bag{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("workflow: unexpected object key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		out.Set(key, raw)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return ErrTrailingData
	}
	*b = out
	return nil
}

// parseObject decodes data as a JSON object. A JSON string whose contents
// are an object is unwrapped first, since stored documents arrive in
// either form.
func parseObject(data []byte) (*Bag, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrNotObject
	}
	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return nil, err
		}
		data = bytes.TrimSpace([]byte(inner))
	}
	if len(data) == 0 || data[0] != '{' {
		return nil, ErrNotObject
	}
	b := &Bag{}
	if err := b.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return b, nil
}
