package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const indentUnit = "  "

// ReadDocument decodes a top-level JSON object. Member order and member
// values are kept exactly as they appear in the input.
func ReadDocument(r io.Reader) (*Object, error) {
	bom := NewBOMSkippingReader(r)
	data, err := io.ReadAll(NewUTF8Validator(bom))
	if err != nil {
		if errors.Is(err, ErrEncoding) {
			return nil, err
		}
		return nil, fmt.Errorf("read json: %w", err)
	}

	if err := validJSON(data); err != nil {
		return nil, err
	}
	if firstByte(data) != '{' {
		return nil, fmt.Errorf("%w: top-level value is not an object", ErrMalformedData)
	}

	return decodeObject(data)
}

// WriteDocument writes obj with two-space indentation. Non-ASCII and HTML
// characters are written literally and no trailing newline is added.
func WriteDocument(w io.Writer, obj *Object) error {
	var compact bytes.Buffer
	if err := appendObject(&compact, obj); err != nil {
		return err
	}

	var out bytes.Buffer
	out.Grow(compact.Len() * 2)
	if err := json.Indent(&out, compact.Bytes(), "", indentUnit); err != nil {
		return fmt.Errorf("indent json: %w", err)
	}

	if _, err := out.WriteTo(w); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// validJSON reports a syntax error wrapped in ErrInvalidJSON.
func validJSON(data []byte) error {
	if json.Valid(data) {
		return nil
	}
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	return ErrInvalidJSON
}

// firstByte returns the first non-whitespace byte of data, or 0.
func firstByte(data []byte) byte {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

// decodeObject splits a JSON object into its members. data must be a valid
// JSON object. Duplicate keys keep their first position and last value.
func decodeObject(data []byte) (*Object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}

	obj := NewObject()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: object key %v", ErrInvalidJSON, tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}
		obj.Set(key, value)
	}

	return obj, nil
}

// decodeArray splits a JSON array into its raw elements. data must be a
// valid JSON array.
func decodeArray(data []byte) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}

	var elems []json.RawMessage
	for dec.More() {
		var elem json.RawMessage
		if err := dec.Decode(&elem); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}
		elems = append(elems, elem)
	}
	return elems, nil
}

// encodeObject returns the compact encoding of obj.
func encodeObject(obj *Object) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := appendObject(&buf, obj); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func appendObject(buf *bytes.Buffer, obj *Object) error {
	buf.WriteByte('{')
	first := true
	for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := encodeString(pair.Key)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')

		if len(pair.Value) == 0 {
			buf.WriteString("null")
		} else {
			buf.Write(pair.Value)
		}
	}
	buf.WriteByte('}')
	return nil
}

// encodeArray returns the compact encoding of elems.
func encodeArray(elems []json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range elems {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(elem)
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

// encodeString encodes s as a JSON string without HTML escaping.
func encodeString(s string) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("encode string: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
