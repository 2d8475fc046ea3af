package app

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/fieldsearch/internal/searcher/executor"
)

// RunQuery opens the store at location, evaluates query against field and
// returns at most k hits.
func (a *App) RunQuery(ctx context.Context, location, field, query string, k int) ([]executor.Hit, error) {
	holder, err := executor.OpenHolder(location, a.metrics)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	defer holder.Close()

	result, err := executor.New(holder, a.cfg.Search, a.metrics).Search(ctx, field, query, k)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("query evaluated",
		"field", field,
		"query", query,
		"hits", len(result.Results),
		"build_id", result.BuildID,
	)
	return result.Results, nil
}
