package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nao1215/filterpipe/internal/datastore"
	"github.com/nao1215/filterpipe/internal/filter"
	"github.com/nao1215/filterpipe/internal/model"
)

// Record performs a preflight or a full run of p against store, depending
// on mode, and returns a report of the call. Observers already registered
// on p still receive every message.
func Record(ctx context.Context, p *Pipeline, store datastore.Store, mode model.RunMode) *model.RunReport {
	report := model.NewRunReport(uuid.NewString(), p.Name(), mode)

	rec := NewRecorder()
	n := len(p.observers)
	p.observers = append(p.observers, rec)
	defer func() { p.observers = p.observers[:n] }()

	switch mode {
	case model.RunModePreflight:
		errorCount := p.Preflight(ctx, store)
		report.PreflightErrors = errorCount
		switch {
		case ctx.Err() != nil:
			report.Status = Cancelled.String()
		case errorCount > 0:
			report.Status = Failure.String()
		default:
			report.Status = Success.String()
		}
	default:
		report.Status = p.Run(ctx, store).String()
		for _, f := range p.filters {
			if f.Core().State() == filter.StatePreflightedError {
				report.PreflightErrors++
			}
		}
	}

	report.FinishedAt = time.Now()
	report.Filters = p.Summaries()
	report.Messages = rec.Messages()
	return report
}
