package collection

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/errors"
)

// WholeFile emits one document per regular file in a directory, in lexical
// path order. The file body is a text field; its name and path are keyword
// fields.
type WholeFile struct {
	cfg    config.WholeFileConfig
	logger *slog.Logger
}

func NewWholeFile(cfg config.WholeFileConfig) *WholeFile {
	return &WholeFile{
		cfg:    cfg,
		logger: slog.Default().With("component", "collection", "adapter", WholeFileName),
	}
}

func (w *WholeFile) Name() string { return WholeFileName }

func (w *WholeFile) Each(ctx context.Context, source string, fn func(*document.Document) error) error {
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrNotADirectory, source, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", apperrors.ErrNotADirectory, source)
	}
	root, err := filepath.Abs(source)
	if err != nil {
		return fmt.Errorf("resolving %s: %w: %w", source, apperrors.ErrIO, err)
	}

	paths, err := w.list(root)
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, err := w.read(path)
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	w.logger.Info("collection read", "source", root, "files", len(paths))
	return nil
}

// list returns the regular files under root in lexical order, descending
// into subdirectories only when configured to.
func (w *WholeFile) list(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w: %w", path, apperrors.ErrIO, err)
		}
		if d.IsDir() {
			if path != root && !w.cfg.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func (w *WholeFile) read(path string) (*document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w: %w", path, apperrors.ErrIO, err)
	}
	doc, err := document.New(
		document.TextField(w.cfg.ContentField, string(data)),
		document.KeywordField(w.cfg.FileNameField, filepath.Base(path)),
		document.KeywordField(w.cfg.FilePathField, path),
	)
	if err != nil {
		return nil, fmt.Errorf("building document for %s: %w", path, err)
	}
	return doc, nil
}
