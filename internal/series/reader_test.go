package series

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/screener/internal/contracts"
	"github.com/wonny/screener/pkg/logger"
)

// fakeSource serves pages from a generated most-recent-first history
type fakeSource struct {
	mu      sync.Mutex
	pages   map[int][]contracts.PriceRecord
	errs    map[int]error
	fetched []int
}

func (f *fakeSource) FetchPricePage(ctx context.Context, code string, page int) ([]contracts.PriceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetched = append(f.fetched, page)
	if err := f.errs[page]; err != nil {
		return nil, err
	}
	return f.pages[page], nil
}

func (f *fakeSource) calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.fetched...)
}

// history builds days records ending at 2024-06-28 split into pages of rowsPerPage
func history(days, rowsPerPage int) map[int][]contracts.PriceRecord {
	end := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	pages := make(map[int][]contracts.PriceRecord)
	for i := 0; i < days; i++ {
		page := i/rowsPerPage + 1
		pages[page] = append(pages[page], contracts.PriceRecord{
			Date:   end.AddDate(0, 0, -i).Format(contracts.DateLayout),
			High:   float64(100 + i),
			Low:    float64(90 + i),
			Volume: 1000,
		})
	}
	return pages
}

func dates(records []contracts.PriceRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Date
	}
	return out
}

func TestPagesFor(t *testing.T) {
	tests := []struct {
		days, rows, want int
	}{
		{20, 10, 2},
		{21, 10, 3},
		{3, 10, 1},
		{250, 10, 25},
		{2, 5, 1},
		{0, 10, 0},
		{5, 0, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PagesFor(tt.days, tt.rows), "days=%d rows=%d", tt.days, tt.rows)
	}
}

func TestRead_Lazy(t *testing.T) {
	src := &fakeSource{pages: history(30, 10)}
	reader := NewReader(src, logger.Nop())

	seq := reader.Read(context.Background(), "001", 1, 3)
	assert.Empty(t, src.calls(), "no fetch before iteration")

	first := Take(seq, 1)
	require.Len(t, first, 1)
	assert.Equal(t, "2024-06-28", first[0].Date)
	assert.Equal(t, []int{1}, src.calls(), "stopping early must not fetch later pages")
}

func TestRead_PageOrderAndRestart(t *testing.T) {
	src := &fakeSource{pages: history(30, 10)}
	reader := NewReader(src, logger.Nop())

	seq := reader.Read(context.Background(), "001", 1, 3)

	var firstRun, secondRun []contracts.PriceRecord
	for r := range seq {
		firstRun = append(firstRun, r)
	}
	for r := range seq {
		secondRun = append(secondRun, r)
	}

	require.Len(t, firstRun, 30)
	assert.Equal(t, dates(firstRun), dates(secondRun))
	assert.Equal(t, []int{1, 2, 3, 1, 2, 3}, src.calls(), "each iteration re-fetches")

	for i := 1; i < len(firstRun); i++ {
		assert.Greater(t, firstRun[i-1].Date, firstRun[i].Date)
	}
}

func TestRead_FailedPageContinues(t *testing.T) {
	src := &fakeSource{
		pages: history(30, 10),
		errs:  map[int]error{2: errors.New("boom")},
	}
	reader := NewReader(src, logger.Nop())

	records := Take(reader.Read(context.Background(), "001", 1, 3), 100)

	assert.Len(t, records, 20)
	assert.Equal(t, "2024-06-19", records[9].Date)
	assert.Equal(t, "2024-06-08", records[10].Date)
	assert.Equal(t, []int{1, 2, 3}, src.calls())
}

func TestRead_EmptyPageEndsSeries(t *testing.T) {
	src := &fakeSource{pages: history(15, 10)}
	reader := NewReader(src, logger.Nop())

	records := Take(reader.Read(context.Background(), "001", 1, 10), 100)

	assert.Len(t, records, 15)
	assert.Equal(t, []int{1, 2, 3}, src.calls())
}

func TestRead_RepeatedPageTruncates(t *testing.T) {
	pages := history(10, 10)
	pages[2] = pages[1] // source repeats its last page
	src := &fakeSource{pages: pages}
	reader := NewReader(src, logger.Nop())

	records := Take(reader.Read(context.Background(), "001", 1, 5), 100)

	assert.Len(t, records, 10)
	assert.Equal(t, []int{1, 2}, src.calls())
}

func TestRead_OutOfOrderWithinPage(t *testing.T) {
	src := &fakeSource{pages: map[int][]contracts.PriceRecord{
		1: {
			{Date: "2024-06-27"},
			{Date: "2024-06-28"},
		},
	}}
	reader := NewReader(src, logger.Nop())

	records := Take(reader.Read(context.Background(), "001", 1, 1), 10)
	assert.Equal(t, []string{"2024-06-27"}, dates(records))
}

func TestRead_CancelledContext(t *testing.T) {
	src := &fakeSource{pages: history(30, 10)}
	reader := NewReader(src, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := Take(reader.Read(ctx, "001", 1, 3), 100)
	assert.Empty(t, records)
	assert.Empty(t, src.calls())
}

func TestWindow(t *testing.T) {
	src := &fakeSource{pages: history(250, 10)}
	reader := NewReader(src, logger.Nop())

	window, err := reader.Window(context.Background(), "001", 20, 10)
	require.NoError(t, err)
	assert.Len(t, window, 20)
	assert.Equal(t, []int{1, 2}, src.calls())

	src2 := &fakeSource{pages: history(250, 10)}
	window, err = NewReader(src2, logger.Nop()).Window(context.Background(), "001", 3, 10)
	require.NoError(t, err)
	assert.Len(t, window, 3)
	assert.Equal(t, []int{1}, src2.calls())
}

func TestWindow_FailedPage(t *testing.T) {
	tests := []struct {
		name     string
		failPage int
	}{
		{"first page", 1},
		{"middle page", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{
				pages: history(30, 10),
				errs:  map[int]error{tt.failPage: errors.New("boom")},
			}
			reader := NewReader(src, logger.Nop())

			window, err := reader.Window(context.Background(), "001", 25, 10)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrIncompleteWindow)
			assert.Contains(t, err.Error(), fmt.Sprintf("page %d", tt.failPage))
			assert.Less(t, len(window), 25)
		})
	}
}

func TestWindow_FailedPageOutsideWindow(t *testing.T) {
	src := &fakeSource{
		pages: history(30, 10),
		errs:  map[int]error{3: errors.New("boom")},
	}
	reader := NewReader(src, logger.Nop())

	window, err := reader.Window(context.Background(), "001", 20, 10)
	require.NoError(t, err)
	assert.Len(t, window, 20)
	assert.Equal(t, []int{1, 2}, src.calls())
}

func TestWindow_CancelledContext(t *testing.T) {
	src := &fakeSource{pages: history(30, 10)}
	reader := NewReader(src, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	window, err := reader.Window(ctx, "001", 20, 10)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, window)
}

func TestWindow_ShortHistory(t *testing.T) {
	src := &fakeSource{pages: history(7, 10)}
	reader := NewReader(src, logger.Nop())

	window, err := reader.Window(context.Background(), "001", 250, 10)
	require.NoError(t, err)
	assert.Len(t, window, 7)
	assert.Equal(t, []int{1, 2}, src.calls())
}

func TestTake(t *testing.T) {
	seq := func(yield func(int) bool) {
		for i := 0; i < 5; i++ {
			if !yield(i) {
				return
			}
		}
	}

	assert.Equal(t, []int{0, 1, 2}, Take(seq, 3))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, Take(seq, 10))
	assert.Nil(t, Take(seq, 0))
	assert.Equal(t, "[0 1]", fmt.Sprint(Take(seq, 2)))
}
