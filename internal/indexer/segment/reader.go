package segment

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
	"os"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/errors"
)

// Reader gives read-only access to a committed store. Postings are read
// lazily from the file; the dictionary, stored fields and field statistics
// are held in memory. A Reader is safe for concurrent use until Close.
type Reader struct {
	file     *os.File
	filePath string
	header   SegmentHeader
	dict     []DictEntry
	stored   []index.StoredDoc
	fields   map[string]index.FieldInfo
	manifest Manifest
	postBase int64
}

// Open opens the store in the location directory and verifies its
// structure. It fails with ErrNotFound when the location holds no store and
// with ErrCorrupt when the file is damaged.
func Open(location string) (*Reader, error) {
	path := Path(location)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: no index at %s", apperrors.ErrNotFound, location)
		}
		return nil, fmt.Errorf("opening store file: %w: %w", apperrors.ErrIO, err)
	}
	r, err := open(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func open(f *os.File, path string) (*Reader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat store file: %w: %w", apperrors.ErrIO, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", apperrors.ErrNotFound, path)
	}
	size := info.Size()
	if size < int64(HeaderSize) {
		return nil, fmt.Errorf("%w: %s is not an index store", apperrors.ErrNotFound, path)
	}

	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("reading header: %w: %w", apperrors.ErrIO, err)
	}
	header := decodeHeader(headerBytes)
	if header.Magic != MagicBytes {
		return nil, fmt.Errorf("%w: bad magic bytes %x in %s", apperrors.ErrNotFound, header.Magic, path)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", apperrors.ErrCorrupt, header.Version)
	}
	if size < int64(HeaderSize+FooterSize) {
		return nil, fmt.Errorf("%w: truncated store file", apperrors.ErrCorrupt)
	}
	footerBytes := make([]byte, FooterSize)
	if _, err := f.ReadAt(footerBytes, size-int64(FooterSize)); err != nil {
		return nil, fmt.Errorf("reading footer: %w: %w", apperrors.ErrIO, err)
	}
	footer := decodeFooter(footerBytes)
	if err := checkLayout(header, footer, size); err != nil {
		return nil, err
	}

	if err := checkSection(f, header.PostOffset, header.PostSize, footer.PostCRC, "postings"); err != nil {
		return nil, err
	}
	var dict []DictEntry
	if err := readSection(f, header.DictOffset, header.DictSize, footer.DictCRC, "dictionary", &dict); err != nil {
		return nil, err
	}
	var stored []index.StoredDoc
	if err := readSection(f, header.StoredOffset, header.StoredSize, footer.StoredCRC, "stored fields", &stored); err != nil {
		return nil, err
	}
	var stats statsSection
	if err := readSection(f, footer.StatsOffset, footer.StatsSize, footer.StatsCRC, "stats", &stats); err != nil {
		return nil, err
	}
	if stats.Fields == nil {
		stats.Fields = map[string]index.FieldInfo{}
	}

	r := &Reader{
		file:     f,
		filePath: path,
		header:   header,
		dict:     dict,
		stored:   stored,
		fields:   stats.Fields,
		manifest: stats.Manifest,
		postBase: header.PostOffset,
	}
	if err := r.verify(); err != nil {
		return nil, err
	}
	return r, nil
}

func checkLayout(h SegmentHeader, ft SegmentFooter, size int64) error {
	expect := int64(HeaderSize)
	sections := []struct {
		name         string
		offset, size int64
	}{
		{"postings", h.PostOffset, h.PostSize},
		{"dictionary", h.DictOffset, h.DictSize},
		{"stored fields", h.StoredOffset, h.StoredSize},
		{"stats", ft.StatsOffset, ft.StatsSize},
	}
	for _, s := range sections {
		if s.offset != expect || s.size < 0 {
			return fmt.Errorf("%w: %s section at %d, expected %d", apperrors.ErrCorrupt, s.name, s.offset, expect)
		}
		expect += s.size
	}
	if expect+int64(FooterSize) != size {
		return fmt.Errorf("%w: file size %d does not match section layout", apperrors.ErrCorrupt, size)
	}
	return nil
}

func checkSection(f *os.File, offset, size int64, want uint32, name string) error {
	h := crc32.NewIEEE()
	if _, err := io.Copy(h, io.NewSectionReader(f, offset, size)); err != nil {
		return fmt.Errorf("reading %s: %w: %w", name, apperrors.ErrIO, err)
	}
	if h.Sum32() != want {
		return fmt.Errorf("%w: %s checksum mismatch", apperrors.ErrCorrupt, name)
	}
	return nil
}

func readSection(f *os.File, offset, size int64, want uint32, name string, v any) error {
	data := make([]byte, size)
	if _, err := f.ReadAt(data, offset); err != nil {
		return fmt.Errorf("reading %s: %w: %w", name, apperrors.ErrIO, err)
	}
	if crc32.ChecksumIEEE(data) != want {
		return fmt.Errorf("%w: %s checksum mismatch", apperrors.ErrCorrupt, name)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", apperrors.ErrCorrupt, name, err)
	}
	return nil
}

// verify checks the structural invariants that checksums cannot: dictionary
// order, postings order and bounds, and the stored-field id sequence.
func (r *Reader) verify() error {
	n := r.header.DocCount
	if int(r.header.TermCount) != len(r.dict) {
		return fmt.Errorf("%w: header declares %d terms, dictionary has %d",
			apperrors.ErrCorrupt, r.header.TermCount, len(r.dict))
	}
	for i, entry := range r.dict {
		if i > 0 && !r.dict[i-1].less(entry.Field, entry.Term) {
			return fmt.Errorf("%w: dictionary out of order at entry %d", apperrors.ErrCorrupt, i)
		}
		if entry.PostOffset < 0 || entry.PostLen < 0 || entry.PostOffset+int64(entry.PostLen) > r.header.PostSize {
			return fmt.Errorf("%w: postings for %s:%q out of bounds", apperrors.ErrCorrupt, entry.Field, entry.Term)
		}
		postings, err := r.readPostings(entry)
		if err != nil {
			return err
		}
		if len(postings) != entry.DocFreq {
			return fmt.Errorf("%w: document frequency mismatch for %s:%q", apperrors.ErrCorrupt, entry.Field, entry.Term)
		}
		if !postings.Ordered() {
			return fmt.Errorf("%w: postings for %s:%q not strictly increasing", apperrors.ErrCorrupt, entry.Field, entry.Term)
		}
		if len(postings) > 0 && postings[len(postings)-1].DocID >= n {
			return fmt.Errorf("%w: postings for %s:%q reference unknown document", apperrors.ErrCorrupt, entry.Field, entry.Term)
		}
	}
	if len(r.stored) != int(n) {
		return fmt.Errorf("%w: %d stored documents for %d ids", apperrors.ErrCorrupt, len(r.stored), n)
	}
	for i, doc := range r.stored {
		if doc.DocID != uint32(i) {
			return fmt.Errorf("%w: stored document %d has id %d", apperrors.ErrCorrupt, i, doc.DocID)
		}
	}
	for name, info := range r.fields {
		if len(info.Lengths) != int(n) {
			return fmt.Errorf("%w: field %q has %d lengths for %d documents",
				apperrors.ErrCorrupt, name, len(info.Lengths), n)
		}
	}
	return nil
}

func (r *Reader) lookup(field, term string) (DictEntry, bool) {
	idx := sort.Search(len(r.dict), func(i int) bool {
		return !r.dict[i].less(field, term)
	})
	if idx >= len(r.dict) || r.dict[idx].Field != field || r.dict[idx].Term != term {
		return DictEntry{}, false
	}
	return r.dict[idx], true
}

func (r *Reader) readPostings(entry DictEntry) (index.PostingList, error) {
	postingsBytes := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(postingsBytes, r.postBase+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings: %w: %w", apperrors.ErrIO, err)
	}
	var postings index.PostingList
	if err := json.Unmarshal(postingsBytes, &postings); err != nil {
		return nil, fmt.Errorf("%w: parsing postings for %s:%q: %v", apperrors.ErrCorrupt, entry.Field, entry.Term, err)
	}
	return postings, nil
}

// Postings returns the postings for term in field, or an empty list when the
// pair is absent.
func (r *Reader) Postings(field, term string) (index.PostingList, error) {
	entry, ok := r.lookup(field, term)
	if !ok {
		return nil, nil
	}
	return r.readPostings(entry)
}

// DocFreq returns the number of documents containing term in field without
// reading its postings.
func (r *Reader) DocFreq(field, term string) int {
	entry, ok := r.lookup(field, term)
	if !ok {
		return 0
	}
	return entry.DocFreq
}

// StoredFields returns the stored fields of a document in insertion order.
func (r *Reader) StoredFields(docID uint32) ([]index.StoredField, error) {
	if int64(docID) >= int64(len(r.stored)) {
		return nil, fmt.Errorf("%w: document %d", apperrors.ErrDocNotFound, docID)
	}
	fields := r.stored[docID].Fields
	out := make([]index.StoredField, len(fields))
	copy(out, fields)
	return out, nil
}

// StoredValue returns the first stored value named name for a document.
func (r *Reader) StoredValue(docID uint32, name string) (string, bool) {
	if int64(docID) >= int64(len(r.stored)) {
		return "", false
	}
	for _, f := range r.stored[docID].Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// HasField reports whether any document indexed field.
func (r *Reader) HasField(field string) bool {
	_, ok := r.fields[field]
	return ok
}

// Fields returns the names of all indexed fields, sorted.
func (r *Reader) Fields() []string {
	names := make([]string, 0, len(r.fields))
	for name := range r.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FieldInfo returns the statistics recorded for field.
func (r *Reader) FieldInfo(field string) (index.FieldInfo, bool) {
	info, ok := r.fields[field]
	return info, ok
}

// DocCount returns the number of documents that contain field.
func (r *Reader) DocCount(field string) int {
	return r.fields[field].DocCount
}

// AvgFieldLength returns the mean token count of field over the documents
// that contain it.
func (r *Reader) AvgFieldLength(field string) float64 {
	return r.fields[field].AvgLength()
}

// FieldLength returns the token count of field in a document, or 0 when the
// document does not have the field.
func (r *Reader) FieldLength(field string, docID uint32) int {
	info, ok := r.fields[field]
	if !ok || int64(docID) >= int64(len(info.Lengths)) {
		return 0
	}
	return info.Lengths[docID]
}

// NumDocs returns the total number of documents in the store.
func (r *Reader) NumDocs() int {
	return int(r.header.DocCount)
}

// Terms returns the number of dictionary entries.
func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) Manifest() Manifest {
	return r.manifest
}

func (r *Reader) Header() SegmentHeader {
	return r.header
}

func (r *Reader) Path() string {
	return r.filePath
}

func (r *Reader) Close() error {
	return r.file.Close()
}
