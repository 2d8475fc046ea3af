package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/collection"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/metrics"
)

const cranfield = `.I 1
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
simple shear flow past a flat plate
.A
ting-yili
.B
rensselaer polytechnic institute
.W
in the study of high-speed viscous flow past a flat plate .
`

type capturePublisher struct {
	events []kafka.Event
	err    error
}

func (c *capturePublisher) Publish(_ context.Context, event kafka.Event) error {
	c.events = append(c.events, event)
	return c.err
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func fieldValue(hit executor.Hit, name string) string {
	for _, f := range hit.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

func TestBuildAndQuery_WholeFile(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "java programming language")
	writeFile(t, filepath.Join(src, "b.txt"), "arduino hardware project")
	dest := t.TempDir()
	a := New(config.Default(), WithMetrics(metrics.New()))
	ctx := context.Background()

	res, err := a.BuildIndex(ctx, BuildRequest{Source: src, Dest: dest, Adapter: collection.WholeFileName})
	require.NoError(t, err)
	assert.Equal(t, 2, res.DocCount)
	assert.Equal(t, collection.WholeFileName, res.Adapter)
	assert.Equal(t, []string{"content", "filename", "filepath"}, res.Fields)

	hits, err := a.RunQuery(ctx, dest, "content", "java -arduino", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, uint32(0), hits[0].DocID)
	assert.Equal(t, "a.txt", fieldValue(hits[0], "filename"))
	assert.Equal(t, "java programming language", fieldValue(hits[0], "content"))

	hits, err = a.RunQuery(ctx, dest, "filename", "b.txt", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, uint32(1), hits[0].DocID)

	_, err = a.RunQuery(ctx, dest, "title", "java", 10)
	assert.ErrorIs(t, err, apperrors.ErrFieldNotFound)

	_, err = a.RunQuery(ctx, dest, "content", "   ", 10)
	assert.ErrorIs(t, err, apperrors.ErrSyntax)
}

func TestBuildIndex_DelimitedRecordsAndNotifies(t *testing.T) {
	source := writeFile(t, filepath.Join(t.TempDir(), "cran.all"), cranfield)
	dest := t.TempDir()
	ctx := context.Background()

	cat, err := catalog.Open(ctx, config.CatalogConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "catalog.db")})
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })
	pub := &capturePublisher{}

	a := New(config.Default(), WithRecorder(cat), WithPublisher(pub))
	res, err := a.BuildIndex(ctx, BuildRequest{Source: source, Dest: dest, Adapter: collection.DelimitedRecordName})
	require.NoError(t, err)
	assert.Equal(t, 2, res.DocCount)

	latest, err := cat.Latest(ctx, res.Location)
	require.NoError(t, err)
	assert.Equal(t, res.BuildID, latest.BuildID)
	assert.Equal(t, collection.DelimitedRecordName, latest.Adapter)
	assert.Equal(t, 2, latest.DocCount)

	require.Len(t, pub.events, 1)
	assert.Equal(t, res.Location, pub.events[0].Key)
	ev, ok := pub.events[0].Value.(kafka.IndexCompleteEvent)
	require.True(t, ok)
	assert.Equal(t, res.BuildID, ev.BuildID)
	assert.Equal(t, 2, ev.DocCount)

	hits, err := a.RunQuery(ctx, dest, "abstract", "+viscous flow", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "2", fieldValue(hits[0], "identifier number"))
	assert.Contains(t, fieldValue(hits[0], "abstract"), "viscous")
	assert.Equal(t, "rensselaer polytechnic institute", fieldValue(hits[0], "affiliation"))

	hits, err = a.RunQuery(ctx, dest, "identifier number", "1", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, uint32(0), hits[0].DocID)
}

func TestBuildIndex_PublishFailureDoesNotFailBuild(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "java")
	pub := &capturePublisher{err: errors.New("broker down")}

	a := New(config.Default(), WithPublisher(pub), WithRetryDelay(time.Millisecond))
	res, err := a.BuildIndex(context.Background(), BuildRequest{Source: src, Dest: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, 1, res.DocCount)
	assert.Len(t, pub.events, 3)
}

func TestBuildIndex_MalformedRecordKeepsPreviousStore(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, filepath.Join(dir, "good"), cranfield)
	bad := writeFile(t, filepath.Join(dir, "bad"), cranfield+".I 3\n.T\nno author here\n.B\n.W\ntext\n")
	dest := t.TempDir()
	a := New(config.Default())
	ctx := context.Background()

	first, err := a.BuildIndex(ctx, BuildRequest{Source: good, Dest: dest, Adapter: collection.DelimitedRecordName})
	require.NoError(t, err)
	before, err := os.ReadFile(segment.Path(dest))
	require.NoError(t, err)

	_, err = a.BuildIndex(ctx, BuildRequest{Source: bad, Dest: dest, Adapter: collection.DelimitedRecordName})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMalformedRecord)
	assert.Contains(t, err.Error(), "record 3")

	after, err := os.ReadFile(segment.Path(dest))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	r, err := segment.Open(dest)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, first.BuildID, r.Manifest().BuildID)
	assert.Equal(t, 2, r.NumDocs())
}

func TestBuildIndex_InvalidRequests(t *testing.T) {
	a := New(config.Default())
	ctx := context.Background()

	_, err := a.BuildIndex(ctx, BuildRequest{Dest: t.TempDir()})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = a.BuildIndex(ctx, BuildRequest{Source: t.TempDir(), Dest: t.TempDir(), Adapter: "csv"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	file := writeFile(t, filepath.Join(t.TempDir(), "f"), "x")
	_, err = a.BuildIndex(ctx, BuildRequest{Source: file, Dest: t.TempDir(), Adapter: collection.WholeFileName})
	assert.ErrorIs(t, err, apperrors.ErrNotADirectory)
}

func TestRunQuery_MissingStore(t *testing.T) {
	_, err := New(config.Default()).RunQuery(context.Background(), t.TempDir(), "content", "java", 10)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRunBatch_WritesTRECRun(t *testing.T) {
	dir := t.TempDir()
	source := writeFile(t, filepath.Join(dir, "cran.all"), cranfield)
	queries := writeFile(t, filepath.Join(dir, "cran.qry"), `.I 001
.W
wing slipstream
.I 002
.W
viscous flow
.I 003
.W
-
.I 004
.W
turbulence
`)
	dest := t.TempDir()
	a := New(config.Default())
	ctx := context.Background()
	_, err := a.BuildIndex(ctx, BuildRequest{Source: source, Dest: dest, Adapter: collection.DelimitedRecordName})
	require.NoError(t, err)

	var out bytes.Buffer
	res, err := a.RunBatch(ctx, BatchRequest{Store: dest, Queries: queries, Out: &out, Tag: "run1"})
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Queries: 4, Skipped: 1, Lines: 2}, res)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	first := strings.Fields(lines[0])
	require.Len(t, first, 6)
	assert.Equal(t, []string{"1", "Q0", "1", "1"}, first[:4])
	assert.Equal(t, "run1", first[5])
	second := strings.Fields(lines[1])
	require.Len(t, second, 6)
	assert.Equal(t, []string{"2", "Q0", "2", "1"}, second[:4])
}

func TestRunBatch_MissingQueryFile(t *testing.T) {
	var out bytes.Buffer
	_, err := New(config.Default()).RunBatch(context.Background(), BatchRequest{
		Store:   t.TempDir(),
		Queries: filepath.Join(t.TempDir(), "missing.qry"),
		Out:     &out,
	})
	assert.ErrorIs(t, err, apperrors.ErrNotAFile)
}

func TestDocNo_FallsBackToID(t *testing.T) {
	assert.Equal(t, "7", docNo(executor.Hit{DocID: 7}, "identifier number"))
}
