package index

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/indexer/tokenizer"
)

type fieldIndex struct {
	kind        tokenizer.Kind
	terms       map[string]PostingList
	docCount    int
	totalLength int64
	lengths     map[uint32]int
}

// MemoryIndex accumulates postings keyed by (field, term). Document ids are
// assigned sequentially from zero, so appending to a postings list keeps it
// ordered. It belongs to a single builder and is not safe for concurrent use;
// queries read the committed store, never the MemoryIndex.
type MemoryIndex struct {
	tok    *tokenizer.Tokenizer
	fields map[string]*fieldIndex
	stored []StoredDoc
	nextID uint32
	size   int64
}

func NewMemoryIndex(tok *tokenizer.Tokenizer) *MemoryIndex {
	return &MemoryIndex{
		tok:    tok,
		fields: make(map[string]*fieldIndex),
	}
}

// AddDocument tokenizes every indexed field of doc, merges its postings and
// returns the id assigned to it.
func (m *MemoryIndex) AddDocument(doc *document.Document) uint32 {
	type fieldTerms struct {
		field  document.Field
		terms  map[string]*Posting
		order  []string
		length int
	}
	analyzed := make([]fieldTerms, 0, doc.Len())
	stored := make([]StoredField, 0, doc.Len())
	for _, f := range doc.Fields() {
		if f.Stored {
			stored = append(stored, StoredField{Name: f.Name, Value: f.Text})
		}
		if !f.Indexed {
			continue
		}
		tokens := m.tok.Tokenize(f.Text, f.Kind)
		ft := fieldTerms{
			field:  f,
			terms:  make(map[string]*Posting),
			length: len(tokens),
		}
		for _, token := range tokens {
			p, exists := ft.terms[token.Term]
			if !exists {
				p = &Posting{Positions: make([]int, 0, 4)}
				ft.terms[token.Term] = p
				ft.order = append(ft.order, token.Term)
			}
			p.Frequency++
			p.Positions = append(p.Positions, token.Position)
		}
		analyzed = append(analyzed, ft)
	}

	docID := m.nextID
	m.nextID++
	m.stored = append(m.stored, StoredDoc{DocID: docID, Fields: stored})
	for _, ft := range analyzed {
		fi, exists := m.fields[ft.field.Name]
		if !exists {
			fi = &fieldIndex{
				kind:    ft.field.Kind,
				terms:   make(map[string]PostingList),
				lengths: make(map[uint32]int),
			}
			m.fields[ft.field.Name] = fi
		}
		fi.docCount++
		fi.totalLength += int64(ft.length)
		fi.lengths[docID] = ft.length
		for _, term := range ft.order {
			p := ft.terms[term]
			p.DocID = docID
			fi.terms[term] = append(fi.terms[term], *p)
			m.size += int64(len(term) + len(p.Positions)*8 + 32)
		}
	}
	return docID
}

// Snapshot returns the index content with entries sorted by (field, term)
// and per-document lengths expanded to dense slices.
func (m *MemoryIndex) Snapshot() Snapshot {
	numDocs := int(m.nextID)
	snap := Snapshot{
		NumDocs: numDocs,
		Stored:  make([]StoredDoc, len(m.stored)),
		Fields:  make(map[string]FieldInfo, len(m.fields)),
	}
	copy(snap.Stored, m.stored)
	for name, fi := range m.fields {
		lengths := make([]int, numDocs)
		for docID, n := range fi.lengths {
			lengths[docID] = n
		}
		snap.Fields[name] = FieldInfo{
			Kind:        fi.kind.String(),
			DocCount:    fi.docCount,
			TotalLength: fi.totalLength,
			Lengths:     lengths,
		}
		for term, postings := range fi.terms {
			pl := make(PostingList, len(postings))
			copy(pl, postings)
			snap.Entries = append(snap.Entries, TermEntry{
				Field:    name,
				Term:     term,
				Postings: pl,
			})
		}
	}
	sort.Slice(snap.Entries, func(i, j int) bool {
		return snap.Entries[i].Less(snap.Entries[j])
	})
	return snap
}

func (m *MemoryIndex) Size() int64 {
	return m.size
}

func (m *MemoryIndex) DocCount() int {
	return int(m.nextID)
}

func (m *MemoryIndex) Reset() {
	m.fields = make(map[string]*fieldIndex)
	m.stored = nil
	m.nextID = 0
	m.size = 0
}
