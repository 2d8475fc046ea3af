package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/indexer/tokenizer"
)

func TestNew_PreservesOrder(t *testing.T) {
	doc, err := New(
		TextField("content", "java programming language"),
		KeywordField("filename", "a.txt"),
		StoredOnlyField("note", "not searchable"),
	)
	require.NoError(t, err)

	require.Equal(t, 3, doc.Len())
	names := make([]string, 0, doc.Len())
	for _, f := range doc.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"content", "filename", "note"}, names)

	f, ok := doc.Field("filename")
	require.True(t, ok)
	assert.Equal(t, tokenizer.KindKeyword, f.Kind)
	assert.True(t, f.Indexed)

	note, _ := doc.Field("note")
	assert.False(t, note.Indexed)
	assert.True(t, note.Stored)
}

func TestAdd_RejectsDuplicateAndEmptyNames(t *testing.T) {
	var doc Document
	require.NoError(t, doc.Add(TextField("title", "a")))

	err := doc.Add(TextField("title", "b"))
	assert.ErrorIs(t, err, ErrDuplicateField)

	assert.Error(t, doc.Add(TextField("", "c")))
	assert.Equal(t, 1, doc.Len())
}

func TestField_Missing(t *testing.T) {
	doc, err := New()
	require.NoError(t, err)
	_, ok := doc.Field("content")
	assert.False(t, ok)
}
