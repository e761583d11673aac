package workbook

import (
	"context"
	"path/filepath"
	"sort"

	"claims-reconciliation-service/internal/appeals"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"

	"github.com/sourcegraph/conc/pool"
)

// DefaultWorkers bounds the number of appeals workbooks parsed at once
const DefaultWorkers = 4

// LoadAppealSources reads the payment summary sheet of every path with at
// most workers files open at a time. The result has one entry per path, in
// the order given. Per-file failures are carried on the entry.
func LoadAppealSources(ctx context.Context, paths []string, workers int) []appeals.AppealSource {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	log := logger.WithComponent("workbook")

	type indexed struct {
		index  int
		source appeals.AppealSource
	}

	p := pool.NewWithResults[indexed]().WithMaxGoroutines(workers)
	for i, path := range paths {
		i, path := i, path
		p.Go(func() indexed {
			return indexed{index: i, source: loadAppealSource(ctx, path)}
		})
	}
	results := p.Wait()

	sort.Slice(results, func(a, b int) bool {
		return results[a].index < results[b].index
	})

	out := make([]appeals.AppealSource, len(results))
	failed := 0
	for i, r := range results {
		out[i] = r.source
		if r.source.Err != nil {
			failed++
		}
	}

	log.WithFields(logger.Fields{
		"files":   len(paths),
		"failed":  failed,
		"workers": workers,
	}).Info("Loaded appeals workbooks")

	return out
}

func loadAppealSource(ctx context.Context, path string) appeals.AppealSource {
	src := appeals.AppealSource{Filename: filepath.Base(path)}
	if err := ctx.Err(); err != nil {
		src.Err = errors.InternalError("load appeals workbook", err)
		return src
	}

	wb, err := Open(path)
	if err != nil {
		src.Err = err
		return src
	}
	defer wb.Close()

	if !wb.HasSheet(appeals.PaymentSummarySheet) {
		src.Err = errors.SheetNotFound(src.Filename, appeals.PaymentSummarySheet)
		return src
	}

	table, err := wb.Table(ReadOptions{
		Sheet:     appeals.PaymentSummarySheet,
		HeaderRow: appeals.PaymentSummaryHeaderRow,
	})
	if err != nil {
		src.Err = err
		return src
	}
	src.Table = table
	return src
}
