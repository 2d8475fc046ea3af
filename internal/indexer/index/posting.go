package index

import (
	"encoding/json"
	"unicode/utf8"
)

// Posting records one document's occurrences of a term within one field.
type Posting struct {
	DocID     uint32 `json:"d"`
	Frequency int    `json:"f"`
	Positions []int  `json:"p"`
}

// PostingList is ordered by strictly increasing DocID.
type PostingList []Posting

// Ordered reports whether the list's document ids are strictly increasing.
func (pl PostingList) Ordered() bool {
	for i := 1; i < len(pl); i++ {
		if pl[i].DocID <= pl[i-1].DocID {
			return false
		}
	}
	return true
}

type TermEntry struct {
	Field    string
	Term     string
	Postings PostingList
}

// Less orders entries by (field, term), the on-disk dictionary order.
func (e TermEntry) Less(o TermEntry) bool {
	if e.Field != o.Field {
		return e.Field < o.Field
	}
	return e.Term < o.Term
}

type StoredField struct {
	Name  string `json:"n"`
	Value string `json:"v"`
}

type storedFieldJSON struct {
	Name  string  `json:"n"`
	Value *string `json:"v,omitempty"`
	Raw   []byte  `json:"b,omitempty"`
}

// MarshalJSON writes valid UTF-8 values as "v". Other values go to "b" as
// base64 so the stored bytes survive unchanged.
func (f StoredField) MarshalJSON() ([]byte, error) {
	out := storedFieldJSON{Name: f.Name}
	if utf8.ValidString(f.Value) {
		out.Value = &f.Value
	} else {
		out.Raw = []byte(f.Value)
	}
	return json.Marshal(out)
}

func (f *StoredField) UnmarshalJSON(data []byte) error {
	var in storedFieldJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	f.Name = in.Name
	switch {
	case in.Raw != nil:
		f.Value = string(in.Raw)
	case in.Value != nil:
		f.Value = *in.Value
	default:
		f.Value = ""
	}
	return nil
}

type StoredDoc struct {
	DocID  uint32        `json:"id"`
	Fields []StoredField `json:"f"`
}

// FieldInfo carries the per-field statistics needed for scoring.
type FieldInfo struct {
	Kind        string `json:"kind"`
	DocCount    int    `json:"doc_count"`
	TotalLength int64  `json:"total_length"`
	Lengths     []int  `json:"lengths"`
}

// AvgLength is the mean token count over the documents that contain the
// field.
func (fi FieldInfo) AvgLength() float64 {
	if fi.DocCount == 0 {
		return 0
	}
	return float64(fi.TotalLength) / float64(fi.DocCount)
}

// Snapshot is the complete, immutable content of a MemoryIndex at the time
// it was taken, laid out in the order the segment writer expects.
type Snapshot struct {
	NumDocs int
	Entries []TermEntry
	Stored  []StoredDoc
	Fields  map[string]FieldInfo
}
