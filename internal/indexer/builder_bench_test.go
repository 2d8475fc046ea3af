package indexer

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/config"
)

func BenchmarkBuild(b *testing.B) {
	for _, n := range []int{100, 1000, 5000} {
		docs := make([]*document.Document, n)
		for i := range docs {
			doc, err := document.New(
				document.KeywordField("identifier number", fmt.Sprint(i+1)),
				document.TextField("abstract", "the boundary layer on a flat plate in supersonic flow with heat transfer"),
			)
			if err != nil {
				b.Fatal(err)
			}
			docs[i] = doc
		}
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			dir := b.TempDir()
			b.ReportAllocs()
			for b.Loop() {
				builder, err := Begin(dir, config.TokenizerConfig{})
				if err != nil {
					b.Fatal(err)
				}
				for _, doc := range docs {
					builder.AddDocument(doc)
				}
				if _, err := builder.Commit(context.Background()); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
