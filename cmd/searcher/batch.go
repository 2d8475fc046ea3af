package main

import (
	"fmt"
	"io"

	"github.com/dchest/safefile"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/app"
)

var (
	batchQueries string
	batchOut     string
	batchField   string
	batchK       int
	batchTag     string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run a Cranfield query file and write a TREC run",
	Long: `Reads queries in .I/.W format, evaluates each against --field and writes
one line per hit: "qid Q0 docno rank score tag".`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchQueries, "queries", "", "query file")
	batchCmd.Flags().StringVarP(&batchOut, "out", "o", "-", "run file, - for stdout")
	batchCmd.Flags().StringVar(&batchField, "field", "", "field to search (default: last delimited field)")
	batchCmd.Flags().IntVarP(&batchK, "k", "k", 100, "hits per query")
	batchCmd.Flags().StringVar(&batchTag, "tag", app.DefaultRunTag, "run tag")
	batchCmd.MarkFlagRequired("queries")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := resolveStore(ctx)
	if err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	var file *safefile.File
	if batchOut != "-" {
		file, err = safefile.Create(batchOut, 0o644)
		if err != nil {
			return fmt.Errorf("creating %s: %w", batchOut, err)
		}
		defer file.Close()
		out = file
	}

	res, err := app.New(cfg).RunBatch(ctx, app.BatchRequest{
		Store:   store,
		Queries: batchQueries,
		Out:     out,
		Field:   batchField,
		K:       batchK,
		Tag:     batchTag,
	})
	if err != nil {
		return err
	}
	if file != nil {
		if err := file.Commit(); err != nil {
			return fmt.Errorf("writing %s: %w", batchOut, err)
		}
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d queries, %d skipped, %d lines\n", res.Queries, res.Skipped, res.Lines)
	return nil
}
