package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/app"
)

var (
	queryField string
	queryK     int
	queryJSON  bool
)

var queryCmd = &cobra.Command{
	Use:   "query [query]",
	Short: "Run one query against a store",
	Long: `Evaluates a query against one field. Clauses are separated by whitespace;
a leading + makes a clause required, a leading - or a preceding NOT excludes it.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryField, "field", "", "field to search (default search.defaultField)")
	queryCmd.Flags().IntVarP(&queryK, "k", "k", 0, "maximum number of hits (default search.defaultLimit)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "print hits as JSON")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := resolveStore(ctx)
	if err != nil {
		return err
	}
	field := queryField
	if field == "" {
		field = cfg.Search.DefaultField
	}
	k := queryK
	if k == 0 {
		k = cfg.Search.DefaultLimit
	}

	hits, err := app.New(cfg).RunQuery(ctx, store, field, args[0], k)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if queryJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}
	if len(hits) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}
	for i, hit := range hits {
		fmt.Fprintf(out, "[%d] doc %d (%.4f)\n", i+1, hit.DocID, hit.Score)
		for _, f := range hit.Fields {
			fmt.Fprintf(out, "    %s: %s\n", f.Name, f.Value)
		}
	}
	return nil
}
