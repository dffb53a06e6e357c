// Package pricelist serves the price list JSON file and edits the discount
// stored in its first entry.
package pricelist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klimatholod/store-backend/internal/apperror"
)

const discountKey = "Discount"

var errBadFormat = apperror.Validation("price list must be a non-empty array of objects")

// File guards read-modify-write cycles on the price list within the process.
type File struct {
	mu   sync.Mutex
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

// Read returns the file contents after checking they parse as JSON.
func (f *File) Read() (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

func (f *File) read() (json.RawMessage, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read price list: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("parse price list %s: invalid JSON", f.path)
	}
	return data, nil
}

// SetDiscount replaces the Discount of the first entry and rewrites the file
// with two-space indentation. Key order of every entry is kept.
func (f *File) SetDiscount(discount json.RawMessage) error {
	if !isNumber(discount) {
		return apperror.Validation("Discount must be a number")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.read()
	if err != nil {
		return err
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil || len(entries) == 0 {
		return errBadFormat
	}
	first, err := setField(entries[0], discountKey, discount)
	if err != nil {
		return errBadFormat
	}
	entries[0] = first

	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(f.path, out)
}

func isNumber(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !(raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9')) {
		return false
	}
	var n json.Number
	return json.Unmarshal(raw, &n) == nil
}

// setField sets key in a JSON object, appending it when absent.
func setField(obj json.RawMessage, key string, value json.RawMessage) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(obj))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("not an object")
	}

	var (
		buf   bytes.Buffer
		found bool
		first = true
	)
	buf.WriteByte('{')
	write := func(k string, v json.RawMessage) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		name, _ := json.Marshal(k)
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(v)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		k, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		if k == key {
			v, found = value, true
		}
		write(k, v)
	}
	if !found {
		write(key, value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// writeFile replaces path through a temp file so readers never see a
// partially written list.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".price-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
