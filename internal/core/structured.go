package core

import (
	"encoding/json"
	"fmt"

	"github.com/JonMunkholm/addcountry/internal/country"
)

// TransformDocument sets the country field on every record in the list field
// of doc and returns the number of records processed. doc is modified in
// place.
//
// A missing or null list field means there is nothing to do. Every other
// member of doc and of each record is kept as it was, in its original order.
func TransformDocument(doc *Object, opts DocumentOptions) (int, error) {
	opts = opts.withDefaults()

	raw, ok := doc.Get(opts.ListField)
	if !ok || isNull(raw) {
		return 0, nil
	}
	if firstByte(raw) != '[' {
		return 0, fmt.Errorf("%w: %q is not a list", ErrMalformedData, opts.ListField)
	}

	records, err := decodeArray(raw)
	if err != nil {
		return 0, err
	}

	for i, rec := range records {
		enriched, err := enrichRecord(rec, opts)
		if err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		records[i] = enriched
	}

	doc.Set(opts.ListField, encodeArray(records))
	return len(records), nil
}

func enrichRecord(raw json.RawMessage, opts DocumentOptions) (json.RawMessage, error) {
	if firstByte(raw) != '{' {
		return nil, fmt.Errorf("%w: record is not an object", ErrMalformedData)
	}
	rec, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	address, err := stringField(rec, opts.AddressField)
	if err != nil {
		return nil, err
	}

	value, err := encodeString(country.Extract(address))
	if err != nil {
		return nil, err
	}
	// Set keeps an existing key in place and appends a new one.
	rec.Set(opts.CountryField, value)

	return encodeObject(rec)
}

// stringField returns the string value of key, or "" when the key is absent
// or null.
func stringField(rec *Object, key string) (string, error) {
	raw, ok := rec.Get(key)
	if !ok || isNull(raw) {
		return "", nil
	}
	if firstByte(raw) != '"' {
		return "", fmt.Errorf("%w: %q is not a string", ErrMalformedData, key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	return s, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
