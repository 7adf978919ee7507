package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// DefaultLimit is the concurrency used when limit <= 0
const DefaultLimit = 30

// Task processes one item. Returning keep=false or an error drops the item.
type Task[T, R any] func(ctx context.Context, item T) (result R, keep bool, err error)

// Stats summarizes one Run
type Stats struct {
	Total   int // items given
	Kept    int // keep=true
	Dropped int // keep=false, or never started because ctx was done
	Failed  int // returned an error or panicked
}

type slot[R any] struct {
	result R
	keep   bool
}

// Run applies task to every item with at most limit tasks in flight and returns
// the kept results in input order.
// A failing or panicking task never affects its siblings. There is no overall
// timeout; cancelling ctx stops items that have not started yet.
// ⭐ SSOT: 종목 단위 동시 처리는 이 함수로만
func Run[T, R any](ctx context.Context, items []T, limit int, task Task[T, R]) ([]R, Stats) {
	stats := Stats{Total: len(items)}
	if len(items) == 0 {
		return nil, stats
	}

	if limit <= 0 {
		limit = DefaultLimit
	}
	workers := min(limit, len(items))

	slots := make([]slot[R], len(items))
	var dropped, failed atomic.Int64

	indexCh := make(chan int, len(items))
	for i := range items {
		indexCh <- i
	}
	close(indexCh)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexCh {
				if ctx.Err() != nil {
					dropped.Add(1)
					continue
				}

				result, keep, err := safeCall(ctx, task, items[i])
				switch {
				case err != nil:
					failed.Add(1)
				case !keep:
					dropped.Add(1)
				default:
					slots[i] = slot[R]{result: result, keep: true}
				}
			}
		}()
	}
	wg.Wait()

	results := make([]R, 0, len(items))
	for _, s := range slots {
		if s.keep {
			results = append(results, s.result)
		}
	}

	stats.Kept = len(results)
	stats.Dropped = int(dropped.Load())
	stats.Failed = int(failed.Load())
	return results, stats
}

func safeCall[T, R any](ctx context.Context, task Task[T, R], item T) (result R, keep bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
			keep = false
		}
	}()
	return task(ctx, item)
}
