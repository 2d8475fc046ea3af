package collection

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/errors"
)

func collect(t *testing.T, a Adapter, source string) ([]*document.Document, error) {
	t.Helper()
	var docs []*document.Document
	err := a.Each(context.Background(), source, func(d *document.Document) error {
		docs = append(docs, d)
		return nil
	})
	return docs, err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func fieldText(t *testing.T, d *document.Document, name string) string {
	t.Helper()
	f, ok := d.Field(name)
	require.True(t, ok, "field %q missing", name)
	return f.Text
}

func TestForName(t *testing.T) {
	cfg := config.Default().Collection

	a, err := ForName(cfg, WholeFileName)
	require.NoError(t, err)
	assert.Equal(t, WholeFileName, a.Name())

	a, err = ForName(cfg, DelimitedRecordName)
	require.NoError(t, err)
	assert.Equal(t, DelimitedRecordName, a.Name())

	_, err = ForName(cfg, "csv")
	assert.Error(t, err)
}

func TestWholeFile_LexicalOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.txt"), "Arduino ATMega328P")
	writeFile(t, filepath.Join(dir, "a.txt"), "Programming in Java")
	writeFile(t, filepath.Join(dir, "sub", "c.txt"), "nested")

	w := NewWholeFile(config.Default().Collection.WholeFile)
	docs, err := collect(t, w, dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "a.txt", fieldText(t, docs[0], "filename"))
	assert.Equal(t, "Programming in Java", fieldText(t, docs[0], "content"))
	assert.True(t, filepath.IsAbs(fieldText(t, docs[0], "filepath")))
	assert.Equal(t, "b.txt", fieldText(t, docs[1], "filename"))

	content, _ := docs[0].Field("content")
	assert.Equal(t, document.TextField("content", "").Kind, content.Kind)
	name, _ := docs[0].Field("filename")
	assert.Equal(t, document.KeywordField("filename", "").Kind, name.Kind)
}

func TestWholeFile_Recursive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.txt"), "two")
	writeFile(t, filepath.Join(dir, "a", "x.txt"), "one")

	cfg := config.Default().Collection.WholeFile
	cfg.Recursive = true
	docs, err := collect(t, NewWholeFile(cfg), dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "x.txt", fieldText(t, docs[0], "filename"))
	assert.Equal(t, "b.txt", fieldText(t, docs[1], "filename"))
}

func TestWholeFile_EmptyDirectory(t *testing.T) {
	docs, err := collect(t, NewWholeFile(config.Default().Collection.WholeFile), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestWholeFile_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	writeFile(t, file, "x")
	w := NewWholeFile(config.Default().Collection.WholeFile)

	_, err := collect(t, w, file)
	assert.ErrorIs(t, err, apperrors.ErrNotADirectory)

	_, err = collect(t, w, filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, apperrors.ErrNotADirectory)
}

func TestWholeFile_CallbackErrorStops(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "one")
	writeFile(t, filepath.Join(dir, "b.txt"), "two")

	calls := 0
	stop := assert.AnError
	err := NewWholeFile(config.Default().Collection.WholeFile).Each(context.Background(), dir, func(*document.Document) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

const cranfieldSample = `.I 1
.T
experimental investigation of the aerodynamics of a
wing in a slipstream .
.A
brenckmann,m.
.B
j. ae. scs. 25, 1958, 324.
.W
experimental investigation of the aerodynamics of a
wing in a slipstream .
.I 2
.T
simple shear flow past a flat plate in an incompressible fluid of small
viscosity .
.A
ting-yili
.B
department of aeronautical engineering, rensselaer polytechnic
institute
.W
in the study of high-speed viscous flow .
`

func newDelimited(t *testing.T) *Delimited {
	t.Helper()
	d, err := NewDelimited(config.Default().Collection.Delimited)
	require.NoError(t, err)
	return d
}

func TestDelimited_Cranfield(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cran.all")
	writeFile(t, path, cranfieldSample)

	docs, err := collect(t, newDelimited(t), path)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	first := docs[0]
	assert.Equal(t, 5, first.Len())
	assert.Equal(t, "1", fieldText(t, first, "identifier number"))
	assert.Equal(t, "experimental investigation of the aerodynamics of a wing in a slipstream .", fieldText(t, first, "title"))
	assert.Equal(t, "brenckmann,m.", fieldText(t, first, "author"))
	assert.Equal(t, "j. ae. scs. 25, 1958, 324.", fieldText(t, first, "affiliation"))
	assert.Equal(t, "experimental investigation of the aerodynamics of a wing in a slipstream .", fieldText(t, first, "abstract"))

	id, _ := first.Field("identifier number")
	assert.Equal(t, document.KeywordField("", "").Kind, id.Kind)
	abstract, _ := first.Field("abstract")
	assert.Equal(t, document.TextField("", "").Kind, abstract.Kind)

	second := docs[1]
	assert.Equal(t, "2", fieldText(t, second, "identifier number"))
	assert.Equal(t, "department of aeronautical engineering, rensselaer polytechnic institute", fieldText(t, second, "affiliation"))
}

func TestDelimited_DelimiterNeedsBoundary(t *testing.T) {
	src := ".I 7\n.T\n.Title is not a delimiter\n.A\n.B\n.W\nbody\n"
	path := filepath.Join(t.TempDir(), "one")
	writeFile(t, path, src)

	docs, err := collect(t, newDelimited(t), path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, ".Title is not a delimiter", fieldText(t, docs[0], "title"))
	assert.Equal(t, "", fieldText(t, docs[0], "author"))
	assert.Equal(t, "body", fieldText(t, docs[0], "abstract"))
}

func TestDelimited_OutOfOrderDelimiterIsText(t *testing.T) {
	src := ".I 1\n.T\n.W early\n.A\n.B\n.W\nlate\n"
	path := filepath.Join(t.TempDir(), "one")
	writeFile(t, path, src)

	docs, err := collect(t, newDelimited(t), path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, ".W early", fieldText(t, docs[0], "title"))
	assert.Equal(t, "late", fieldText(t, docs[0], "abstract"))
}

func TestDelimited_Malformed(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "missing author",
			src:  ".I 1\n.T\ntitle\n.B\n.W\nbody\n",
			want: "record 1 is missing delimiter .A",
		},
		{
			name: "second record truncated",
			src:  ".I 1\n.T\n.A\n.B\n.W\nbody\n.I 2\n.T\nonly a title\n",
			want: "record 2 is missing delimiter .A",
		},
		{
			name: "text before first record",
			src:  "preamble\n.I 1\n.T\n.A\n.B\n.W\n",
			want: "text before the first .I delimiter",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad")
			writeFile(t, path, tt.src)
			_, err := collect(t, newDelimited(t), path)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrMalformedRecord)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDelimited_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	writeFile(t, path, "\n\n")
	docs, err := collect(t, newDelimited(t), path)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDelimited_NotAFile(t *testing.T) {
	dir := t.TempDir()
	d := newDelimited(t)

	_, err := collect(t, d, dir)
	assert.ErrorIs(t, err, apperrors.ErrNotAFile)

	_, err = collect(t, d, filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, apperrors.ErrNotAFile)
}

func TestDelimited_Cancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cran.all")
	writeFile(t, path, cranfieldSample)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := newDelimited(t).Each(ctx, path, func(*document.Document) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewDelimited_Validation(t *testing.T) {
	_, err := NewDelimited(config.DelimitedConfig{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = NewDelimited(config.DelimitedConfig{Delimiters: []string{".I", ".T"}, Fields: []string{"id"}})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
