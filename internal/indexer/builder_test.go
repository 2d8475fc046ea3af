package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/metrics"
)

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func addDoc(t *testing.T, b *Builder, fields ...document.Field) uint32 {
	t.Helper()
	doc, err := document.New(fields...)
	require.NoError(t, err)
	return b.AddDocument(doc)
}

func TestBuilder_CommitAndOpen(t *testing.T) {
	dir := t.TempDir()
	m := metrics.New()
	b, err := Begin(dir, config.TokenizerConfig{}, WithMetrics(m), WithAdapter("whole_file"))
	require.NoError(t, err)

	assert.Equal(t, uint32(0), addDoc(t, b, document.TextField("content", "java development")))
	assert.Equal(t, uint32(1), addDoc(t, b, document.TextField("content", "arduino java")))
	assert.Equal(t, 2, b.DocCount())

	stats, err := b.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DocCount)
	assert.Equal(t, 3, stats.TermCount)
	assert.Equal(t, []string{"content"}, stats.Fields)
	assert.Equal(t, b.BuildID(), stats.BuildID)

	r, err := segment.Open(dir)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 2, r.NumDocs())
	assert.Equal(t, b.BuildID(), r.Manifest().BuildID)
	assert.Equal(t, "whole_file", r.Manifest().Adapter)
	assert.Equal(t, 2, r.DocFreq("content", "java"))
}

func TestBuilder_EmptyBuildIsValid(t *testing.T) {
	dir := t.TempDir()
	b, err := Begin(dir, config.TokenizerConfig{})
	require.NoError(t, err)

	stats, err := b.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DocCount)

	r, err := segment.Open(dir)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 0, r.NumDocs())
}

func TestBuilder_CommitTwice(t *testing.T) {
	b, err := Begin(t.TempDir(), config.TokenizerConfig{})
	require.NoError(t, err)
	_, err = b.Commit(context.Background())
	require.NoError(t, err)

	_, err = b.Commit(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestBuilder_CancelledContextLeavesPreviousStore(t *testing.T) {
	dir := t.TempDir()
	first, err := Begin(dir, config.TokenizerConfig{})
	require.NoError(t, err)
	addDoc(t, first, document.TextField("content", "original"))
	_, err = first.Commit(context.Background())
	require.NoError(t, err)

	second, err := Begin(dir, config.TokenizerConfig{})
	require.NoError(t, err)
	addDoc(t, second, document.TextField("content", "replacement"))
	addDoc(t, second, document.TextField("content", "replacement"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = second.Commit(ctx)
	require.ErrorIs(t, err, context.Canceled)

	r, err := segment.Open(dir)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 1, r.NumDocs())
	assert.Equal(t, first.BuildID(), r.Manifest().BuildID)
}

func TestBuilder_RebuildReplacesStore(t *testing.T) {
	dir := t.TempDir()
	for _, text := range []string{"first build", "second build"} {
		b, err := Begin(dir, config.TokenizerConfig{})
		require.NoError(t, err)
		addDoc(t, b, document.TextField("content", text))
		_, err = b.Commit(context.Background())
		require.NoError(t, err)
	}

	r, err := segment.Open(dir)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 1, r.NumDocs())
	assert.Equal(t, 0, r.DocFreq("content", "first"))
	assert.Equal(t, 1, r.DocFreq("content", "second"))
}

func TestBuilder_DeterministicPostings(t *testing.T) {
	build := func(dir string) []byte {
		b, err := Begin(dir, config.TokenizerConfig{}, WithBuildID("fixed"), WithClock(fixedClock))
		require.NoError(t, err)
		addDoc(t, b, document.TextField("title", "inverted index"), document.KeywordField("id", "1"))
		addDoc(t, b, document.TextField("title", "index store"), document.KeywordField("id", "2"))
		_, err = b.Commit(context.Background())
		require.NoError(t, err)
		data, err := os.ReadFile(segment.Path(dir))
		require.NoError(t, err)
		return data
	}
	assert.Equal(t, build(t.TempDir()), build(t.TempDir()))
}

func TestBegin_UnwritableLocation(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain-file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := Begin(filepath.Join(file, "index"), config.TokenizerConfig{})
	assert.ErrorIs(t, err, apperrors.ErrIO)
}
