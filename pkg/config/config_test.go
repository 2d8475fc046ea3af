package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "tfidf", cfg.Search.Scorer)
	assert.True(t, cfg.Search.LengthNormalization)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, "none", cfg.Tokenizer.Stemmer)
	assert.Equal(t, []string{".I", ".T", ".A", ".B", ".W"}, cfg.Collection.Delimited.Delimiters)
	assert.Equal(t, "abstract", cfg.Collection.Delimited.Fields[4])
	assert.Empty(t, cfg.Catalog.Driver)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "fieldsearch.yaml", `
indexer:
  dataDir: /var/lib/fieldsearch
  adapter: delimited_record
tokenizer:
  stemmer: snowball
  stopWords: [foo, bar]
search:
  scorer: bm25
  queryTimeout: 3s
  defaultLimit: 25
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/fieldsearch", cfg.Indexer.DataDir)
	assert.Equal(t, "delimited_record", cfg.Indexer.Adapter)
	assert.Equal(t, "snowball", cfg.Tokenizer.Stemmer)
	assert.Equal(t, []string{"foo", "bar"}, cfg.Tokenizer.StopWords)
	assert.Equal(t, "bm25", cfg.Search.Scorer)
	assert.Equal(t, 3*time.Second, cfg.Search.QueryTimeout)
	assert.Equal(t, 25, cfg.Search.DefaultLimit)
	// untouched sections keep their defaults
	assert.Equal(t, "content", cfg.Collection.WholeFile.ContentField)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "fieldsearch.toml", `
[indexer]
dataDir = "/srv/index"

[catalog]
driver = "sqlite"
dsn = "/srv/catalog.db"

[collection.delimited]
delimiters = [".I", ".W"]
fields = ["query number", "text"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/index", cfg.Indexer.DataDir)
	assert.Equal(t, "sqlite", cfg.Catalog.Driver)
	assert.Equal(t, []string{"query number", "text"}, cfg.Collection.Delimited.Fields)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FS_INDEXER_DATA_DIR", "/env/index")
	t.Setenv("FS_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("FS_SEARCH_WORKERS", "9")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/env/index", cfg.Indexer.DataDir)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 9, cfg.Search.Workers)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"mismatched delimiters", "collection:\n  delimited:\n    delimiters: [.I, .T]\n    fields: [id]\n"},
		{"unknown stemmer", "tokenizer:\n  stemmer: porter2000\n"},
		{"unknown scorer", "search:\n  scorer: vector\n"},
		{"unknown catalog driver", "catalog:\n  driver: mysql\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "bad.yaml", tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
