package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dchest/safefile"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/errors"
)

// MagicBytes identifies a valid .spdx store file.
const (
	MagicBytes    uint32 = 0x53504458
	FormatVersion uint32 = 2
	HeaderSize    int    = 64
	FooterSize    int    = 32
	FileName             = "index.spdx"
)

// SegmentHeader is the 64-byte header written at the start of every store
// file. Offsets are absolute file offsets.
type SegmentHeader struct {
	Magic        uint32
	Version      uint32
	TermCount    uint32
	DocCount     uint32
	PostOffset   int64
	PostSize     int64
	DictOffset   int64
	DictSize     int64
	StoredOffset int64
	StoredSize   int64
}

// SegmentFooter closes the file with one checksum per section and the
// location of the stats section.
type SegmentFooter struct {
	PostCRC     uint32
	DictCRC     uint32
	StoredCRC   uint32
	StatsCRC    uint32
	StatsOffset int64
	StatsSize   int64
}

// DictEntry maps a (field, term) pair to its postings offset, length and
// document frequency. Offsets are relative to the postings section.
type DictEntry struct {
	Field      string `json:"f"`
	Term       string `json:"t"`
	PostOffset int64  `json:"o"`
	PostLen    int    `json:"l"`
	DocFreq    int    `json:"d"`
}

func (e DictEntry) less(field, term string) bool {
	if e.Field != field {
		return e.Field < field
	}
	return e.Term < term
}

// Manifest describes how a store was built.
type Manifest struct {
	BuildID   string                 `json:"build_id"`
	CreatedAt time.Time              `json:"created_at"`
	Adapter   string                 `json:"adapter,omitempty"`
	Tokenizer config.TokenizerConfig `json:"tokenizer"`
}

type statsSection struct {
	Manifest Manifest                   `json:"manifest"`
	Fields   map[string]index.FieldInfo `json:"fields"`
}

// Writer serialises index snapshots into a store directory.
type Writer struct {
	dataDir string
}

// NewWriter creates a Writer that publishes the store file into dataDir.
func NewWriter(dataDir string) *Writer {
	return &Writer{dataDir: dataDir}
}

// Path returns the store file path inside dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// Prepare creates the store directory and removes temp files left behind by
// interrupted writes.
func (w *Writer) Prepare() error {
	if err := os.MkdirAll(w.dataDir, 0755); err != nil {
		return fmt.Errorf("creating store directory: %w: %w", apperrors.ErrIO, err)
	}
	entries, err := os.ReadDir(w.dataDir)
	if err != nil {
		return fmt.Errorf("reading store directory: %w: %w", apperrors.ErrIO, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.Contains(name, FileName) && strings.HasSuffix(name, ".tmp") {
			if err := os.Remove(filepath.Join(w.dataDir, name)); err != nil {
				return fmt.Errorf("removing stale temp file %s: %w: %w", name, apperrors.ErrIO, err)
			}
		}
	}
	return nil
}

// Write atomically replaces the store file with the given snapshot. The
// file is written to a temp file in the same directory and renamed on
// success, so readers observe either the previous store or the new one.
func (w *Writer) Write(snap index.Snapshot, manifest Manifest) error {
	postings := make([]byte, 0, 4096)
	dict := make([]DictEntry, 0, len(snap.Entries))
	for _, entry := range snap.Entries {
		data, err := json.Marshal(entry.Postings)
		if err != nil {
			return fmt.Errorf("marshaling postings for %s:%q: %w", entry.Field, entry.Term, err)
		}
		dict = append(dict, DictEntry{
			Field:      entry.Field,
			Term:       entry.Term,
			PostOffset: int64(len(postings)),
			PostLen:    len(data),
			DocFreq:    len(entry.Postings),
		})
		postings = append(postings, data...)
	}
	dictData, err := json.Marshal(dict)
	if err != nil {
		return fmt.Errorf("marshaling dictionary: %w", err)
	}
	stored := snap.Stored
	if stored == nil {
		stored = []index.StoredDoc{}
	}
	storedData, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshaling stored fields: %w", err)
	}
	fields := snap.Fields
	if fields == nil {
		fields = map[string]index.FieldInfo{}
	}
	statsData, err := json.Marshal(statsSection{Manifest: manifest, Fields: fields})
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}

	header := SegmentHeader{
		Magic:     MagicBytes,
		Version:   FormatVersion,
		TermCount: uint32(len(dict)),
		DocCount:  uint32(snap.NumDocs),
	}
	header.PostOffset = int64(HeaderSize)
	header.PostSize = int64(len(postings))
	header.DictOffset = header.PostOffset + header.PostSize
	header.DictSize = int64(len(dictData))
	header.StoredOffset = header.DictOffset + header.DictSize
	header.StoredSize = int64(len(storedData))
	footer := SegmentFooter{
		PostCRC:     crc32.ChecksumIEEE(postings),
		DictCRC:     crc32.ChecksumIEEE(dictData),
		StoredCRC:   crc32.ChecksumIEEE(storedData),
		StatsCRC:    crc32.ChecksumIEEE(statsData),
		StatsOffset: header.StoredOffset + header.StoredSize,
		StatsSize:   int64(len(statsData)),
	}

	if err := os.MkdirAll(w.dataDir, 0755); err != nil {
		return fmt.Errorf("creating store directory: %w: %w", apperrors.ErrIO, err)
	}
	f, err := safefile.Create(Path(w.dataDir), 0644)
	if err != nil {
		return fmt.Errorf("creating temp store file: %w: %w", apperrors.ErrIO, err)
	}
	defer f.Close()
	for _, section := range [][]byte{encodeHeader(header), postings, dictData, storedData, statsData, encodeFooter(footer)} {
		if _, err := f.Write(section); err != nil {
			return fmt.Errorf("writing store file: %w: %w", apperrors.ErrIO, err)
		}
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing store file: %w: %w", apperrors.ErrIO, err)
	}
	if err := f.Commit(); err != nil {
		return fmt.Errorf("publishing store file: %w: %w", apperrors.ErrIO, err)
	}
	return nil
}

func encodeHeader(h SegmentHeader) []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.TermCount)
	binary.LittleEndian.PutUint32(b[12:16], h.DocCount)
	binary.LittleEndian.PutUint64(b[16:24], uint64(h.PostOffset))
	binary.LittleEndian.PutUint64(b[24:32], uint64(h.PostSize))
	binary.LittleEndian.PutUint64(b[32:40], uint64(h.DictOffset))
	binary.LittleEndian.PutUint64(b[40:48], uint64(h.DictSize))
	binary.LittleEndian.PutUint64(b[48:56], uint64(h.StoredOffset))
	binary.LittleEndian.PutUint64(b[56:64], uint64(h.StoredSize))
	return b
}

func decodeHeader(b []byte) SegmentHeader {
	return SegmentHeader{
		Magic:        binary.LittleEndian.Uint32(b[0:4]),
		Version:      binary.LittleEndian.Uint32(b[4:8]),
		TermCount:    binary.LittleEndian.Uint32(b[8:12]),
		DocCount:     binary.LittleEndian.Uint32(b[12:16]),
		PostOffset:   int64(binary.LittleEndian.Uint64(b[16:24])),
		PostSize:     int64(binary.LittleEndian.Uint64(b[24:32])),
		DictOffset:   int64(binary.LittleEndian.Uint64(b[32:40])),
		DictSize:     int64(binary.LittleEndian.Uint64(b[40:48])),
		StoredOffset: int64(binary.LittleEndian.Uint64(b[48:56])),
		StoredSize:   int64(binary.LittleEndian.Uint64(b[56:64])),
	}
}

func encodeFooter(f SegmentFooter) []byte {
	b := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(b[0:4], f.PostCRC)
	binary.LittleEndian.PutUint32(b[4:8], f.DictCRC)
	binary.LittleEndian.PutUint32(b[8:12], f.StoredCRC)
	binary.LittleEndian.PutUint32(b[12:16], f.StatsCRC)
	binary.LittleEndian.PutUint64(b[16:24], uint64(f.StatsOffset))
	binary.LittleEndian.PutUint64(b[24:32], uint64(f.StatsSize))
	return b
}

func decodeFooter(b []byte) SegmentFooter {
	return SegmentFooter{
		PostCRC:     binary.LittleEndian.Uint32(b[0:4]),
		DictCRC:     binary.LittleEndian.Uint32(b[4:8]),
		StoredCRC:   binary.LittleEndian.Uint32(b[8:12]),
		StatsCRC:    binary.LittleEndian.Uint32(b[12:16]),
		StatsOffset: int64(binary.LittleEndian.Uint64(b[16:24])),
		StatsSize:   int64(binary.LittleEndian.Uint64(b[24:32])),
	}
}
