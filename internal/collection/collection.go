// Package collection turns raw input into documents for the index builder.
// Two shapes are supported: a directory of whole files, one document per
// file, and a single file of delimited multi-field records.
package collection

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/fieldsearch/pkg/config"
)

const (
	WholeFileName       = "whole_file"
	DelimitedRecordName = "delimited_record"
)

// Adapter reads a source and hands every document it produces to fn, in
// source order. An error from fn stops the walk and is returned as is.
type Adapter interface {
	Name() string
	Each(ctx context.Context, source string, fn func(*document.Document) error) error
}

// ForName returns the adapter registered under name, configured from cfg.
func ForName(cfg config.CollectionConfig, name string) (Adapter, error) {
	switch name {
	case WholeFileName:
		return NewWholeFile(cfg.WholeFile), nil
	case DelimitedRecordName:
		return NewDelimited(cfg.Delimited)
	default:
		return nil, fmt.Errorf("unknown collection adapter %q (want %s or %s)", name, WholeFileName, DelimitedRecordName)
	}
}
