package collection

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/errors"
)

const maxLineSize = 1 << 20

// Delimited splits a single file into records. A line starting with the
// first delimiter opens a record; the remaining delimiters must follow in
// order, each at the start of a line, and each introduces the next field.
// The text on the delimiter line after the marker belongs to that field.
// The first field is a keyword field, the others are text fields.
type Delimited struct {
	delimiters []string
	fields     []string
	logger     *slog.Logger
}

func NewDelimited(cfg config.DelimitedConfig) (*Delimited, error) {
	if len(cfg.Delimiters) == 0 || len(cfg.Delimiters) != len(cfg.Fields) {
		return nil, fmt.Errorf("%w: %d delimiters for %d fields",
			apperrors.ErrInvalidInput, len(cfg.Delimiters), len(cfg.Fields))
	}
	return &Delimited{
		delimiters: cfg.Delimiters,
		fields:     cfg.Fields,
		logger:     slog.Default().With("component", "collection", "adapter", DelimitedRecordName),
	}, nil
}

func (d *Delimited) Name() string { return DelimitedRecordName }

func (d *Delimited) Each(ctx context.Context, source string, fn func(*document.Document) error) error {
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrNotAFile, source, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", apperrors.ErrNotAFile, source)
	}
	f, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("opening %s: %w: %w", source, apperrors.ErrIO, err)
	}
	defer f.Close()

	n, err := d.parse(ctx, f, fn)
	if err != nil {
		return fmt.Errorf("reading %s: %w", source, err)
	}
	d.logger.Info("collection read", "source", source, "records", n)
	return nil
}

// record accumulates the lines of the record being parsed.
type record struct {
	ordinal int
	current int
	parts   [][]string
}

func (d *Delimited) parse(ctx context.Context, r io.Reader, fn func(*document.Document) error) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var rec *record
	count := 0
	flush := func() error {
		if rec == nil {
			return nil
		}
		doc, err := d.finish(rec)
		if err != nil {
			return err
		}
		count++
		return fn(doc)
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if rest, ok := cutDelimiter(line, d.delimiters[0]); ok {
			if err := flush(); err != nil {
				return count, err
			}
			if err := ctx.Err(); err != nil {
				return count, err
			}
			rec = &record{
				ordinal: count + 1,
				parts:   make([][]string, len(d.delimiters)),
			}
			rec.parts[0] = append(rec.parts[0], rest)
			continue
		}
		if rec == nil {
			if strings.TrimSpace(line) != "" {
				return count, fmt.Errorf("%w: text before the first %s delimiter",
					apperrors.ErrMalformedRecord, d.delimiters[0])
			}
			continue
		}
		if next := rec.current + 1; next < len(d.delimiters) {
			if rest, ok := cutDelimiter(line, d.delimiters[next]); ok {
				rec.current = next
				rec.parts[next] = append(rec.parts[next], rest)
				continue
			}
		}
		rec.parts[rec.current] = append(rec.parts[rec.current], line)
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("%w: %w", apperrors.ErrIO, err)
	}
	if err := flush(); err != nil {
		return count, err
	}
	return count, nil
}

func (d *Delimited) finish(rec *record) (*document.Document, error) {
	if rec.current != len(d.delimiters)-1 {
		return nil, fmt.Errorf("%w: record %d is missing delimiter %s",
			apperrors.ErrMalformedRecord, rec.ordinal, d.delimiters[rec.current+1])
	}
	doc := &document.Document{}
	for i, lines := range rec.parts {
		text := strings.TrimSpace(strings.Join(lines, " "))
		field := document.TextField(d.fields[i], text)
		if i == 0 {
			field = document.KeywordField(d.fields[i], text)
		}
		if err := doc.Add(field); err != nil {
			return nil, fmt.Errorf("record %d: %w", rec.ordinal, err)
		}
	}
	return doc, nil
}

// cutDelimiter reports whether line starts with delim followed by the end of
// the line or whitespace, and returns the text after it.
func cutDelimiter(line, delim string) (string, bool) {
	if !strings.HasPrefix(line, delim) {
		return "", false
	}
	rest := line[len(delim):]
	if rest == "" {
		return "", true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	if !unicode.IsSpace(r) {
		return "", false
	}
	return strings.TrimSpace(rest), true
}
