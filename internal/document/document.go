// Package document holds the in-memory representation of a document handed
// from a collection adapter to the index builder: an ordered set of uniquely
// named fields.
package document

import (
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/indexer/tokenizer"
)

var ErrDuplicateField = errors.New("duplicate field name")

// Field is one named value of a Document. Indexed fields take part in
// search; Stored fields are returned verbatim with results.
type Field struct {
	Name    string
	Text    string
	Kind    tokenizer.Kind
	Indexed bool
	Stored  bool
}

// TextField is an indexed, stored, fully tokenized field.
func TextField(name, text string) Field {
	return Field{Name: name, Text: text, Kind: tokenizer.KindText, Indexed: true, Stored: true}
}

// KeywordField is an indexed, stored field split on whitespace only.
func KeywordField(name, text string) Field {
	return Field{Name: name, Text: text, Kind: tokenizer.KindKeyword, Indexed: true, Stored: true}
}

// StoredOnlyField is retrievable with results but not searchable.
func StoredOnlyField(name, text string) Field {
	return Field{Name: name, Text: text, Kind: tokenizer.KindKeyword, Stored: true}
}

type Document struct {
	fields []Field
	byName map[string]int
}

func New(fields ...Field) (*Document, error) {
	d := &Document{byName: make(map[string]int, len(fields))}
	for _, f := range fields {
		if err := d.Add(f); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Add appends f. Field names must be non-empty and unique within the
// document.
func (d *Document) Add(f Field) error {
	if f.Name == "" {
		return fmt.Errorf("adding field: empty name")
	}
	if d.byName == nil {
		d.byName = make(map[string]int)
	}
	if _, exists := d.byName[f.Name]; exists {
		return fmt.Errorf("adding field %q: %w", f.Name, ErrDuplicateField)
	}
	d.byName[f.Name] = len(d.fields)
	d.fields = append(d.fields, f)
	return nil
}

// Fields returns the fields in insertion order. The slice must not be
// modified.
func (d *Document) Fields() []Field {
	return d.fields
}

func (d *Document) Field(name string) (Field, bool) {
	i, ok := d.byName[name]
	if !ok {
		return Field{}, false
	}
	return d.fields[i], true
}

func (d *Document) Len() int {
	return len(d.fields)
}
