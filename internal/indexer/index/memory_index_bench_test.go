package index

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/config"
)

func benchDoc(b *testing.B, i int) *document.Document {
	b.Helper()
	doc, err := document.New(
		document.KeywordField("identifier number", fmt.Sprint(i)),
		document.TextField("title", "experimental investigation of the aerodynamics of a wing"),
		document.TextField("abstract", "an experimental study of a wing in a propeller slipstream was made in order to determine the lift increase"),
	)
	if err != nil {
		b.Fatal(err)
	}
	return doc
}

func filledIndex(b *testing.B, n int) *MemoryIndex {
	b.Helper()
	mi := NewMemoryIndex(tokenizer.New(config.TokenizerConfig{}))
	for i := range n {
		mi.AddDocument(benchDoc(b, i))
	}
	return mi
}

func BenchmarkMemoryIndexAdd(b *testing.B) {
	mi := NewMemoryIndex(tokenizer.New(config.TokenizerConfig{}))
	doc := benchDoc(b, 0)
	b.ReportAllocs()
	for b.Loop() {
		mi.AddDocument(doc)
	}
}

func BenchmarkMemoryIndexSnapshot(b *testing.B) {
	mi := filledIndex(b, 5000)
	b.ReportAllocs()
	for b.Loop() {
		mi.Snapshot()
	}
}
