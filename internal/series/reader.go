package series

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/wonny/screener/internal/contracts"
	"github.com/wonny/screener/pkg/logger"
	"github.com/wonny/screener/pkg/metrics"
)

// ErrIncompleteWindow means a page inside the requested window failed to fetch
var ErrIncompleteWindow = errors.New("price window incomplete")

// PageSource fetches one page of an instrument's daily prices, most recent first.
// A page past the end of the history returns zero records and no error.
type PageSource interface {
	FetchPricePage(ctx context.Context, code string, page int) ([]contracts.PriceRecord, error)
}

// Reader turns a PageSource into lazy price series
// ⭐ SSOT: 페이지 → 시계열 변환은 여기서만
type Reader struct {
	source PageSource
	logger *logger.Logger
}

// NewReader creates a series reader over source
func NewReader(source PageSource, log *logger.Logger) *Reader {
	return &Reader{
		source: source,
		logger: log.WithField("module", "series"),
	}
}

// Read returns the records of pages fromPage..toPage in page order.
// Nothing is fetched until the sequence is ranged over, and every range re-fetches.
//
// A page that fails to fetch contributes no records and the series goes on.
// An empty page ends the series. Dates must strictly decrease across the whole
// series; the first record that breaks this (a source repeating its last page,
// a page 1 that is not the latest) truncates the series.
func (r *Reader) Read(ctx context.Context, code string, fromPage, toPage int) iter.Seq[contracts.PriceRecord] {
	return r.read(ctx, code, fromPage, toPage, nil)
}

// read is Read with an optional hook called for every page that fails to fetch
func (r *Reader) read(ctx context.Context, code string, fromPage, toPage int, onFail func(page int, err error)) iter.Seq[contracts.PriceRecord] {
	return func(yield func(contracts.PriceRecord) bool) {
		prev := ""
		for page := fromPage; page <= toPage; page++ {
			if ctx.Err() != nil {
				return
			}

			records, err := r.source.FetchPricePage(ctx, code, page)
			if err != nil {
				metrics.SeriesPages.WithLabelValues("error").Inc()
				r.logger.WithFields(map[string]interface{}{
					"stock_code": code,
					"page":       page,
				}).WithError(err).Debug("Price page unavailable, skipping")
				if onFail != nil {
					onFail(page, err)
				}
				continue
			}
			if len(records) == 0 {
				metrics.SeriesPages.WithLabelValues("empty").Inc()
				return
			}
			metrics.SeriesPages.WithLabelValues("ok").Inc()

			for _, rec := range records {
				if rec.Date == "" || (prev != "" && rec.Date >= prev) {
					metrics.SeriesPages.WithLabelValues("out_of_order").Inc()
					r.logger.WithFields(map[string]interface{}{
						"stock_code": code,
						"page":       page,
						"date":       rec.Date,
						"previous":   prev,
					}).Warn("Price series not in descending date order, truncating")
					return
				}
				prev = rec.Date

				if !yield(rec) {
					return
				}
			}
		}
	}
}

// Window returns up to days most recent records, fetching only the pages needed.
// Unlike Read, a window with a hole in it is unusable: if any page it pulled failed,
// the records are returned with an ErrIncompleteWindow error. A window shorter than
// days without an error means the history itself is shorter.
func (r *Reader) Window(ctx context.Context, code string, days, rowsPerPage int) ([]contracts.PriceRecord, error) {
	var failed error
	onFail := func(page int, err error) {
		if failed == nil {
			failed = fmt.Errorf("%w: %s page %d: %w", ErrIncompleteWindow, code, page, err)
		}
	}

	window := Take(r.read(ctx, code, 1, PagesFor(days, rowsPerPage), onFail), days)
	if failed != nil {
		return window, failed
	}
	if err := ctx.Err(); err != nil {
		return window, err
	}
	return window, nil
}

// Take collects the first n elements of seq and stops pulling after that
func Take[T any](seq iter.Seq[T], n int) []T {
	if n <= 0 {
		return nil
	}

	out := make([]T, 0, n)
	for v := range seq {
		out = append(out, v)
		if len(out) == n {
			break
		}
	}
	return out
}

// PagesFor is the number of pages holding days rows: ceil(days / rowsPerPage)
func PagesFor(days, rowsPerPage int) int {
	if days <= 0 {
		return 0
	}
	if rowsPerPage <= 0 {
		return days
	}
	return (days + rowsPerPage - 1) / rowsPerPage
}
