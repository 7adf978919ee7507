package universe

import (
	"context"

	"github.com/wonny/screener/internal/contracts"
)

// Source lists the instruments of a market
type Source interface {
	ListInstruments(ctx context.Context) ([]contracts.Instrument, error)
}

// SourceFunc adapts a listing function (KIND, Naver US listing) to Source
type SourceFunc func(ctx context.Context) ([]contracts.Instrument, error)

// ListInstruments calls f
func (f SourceFunc) ListInstruments(ctx context.Context) ([]contracts.Instrument, error) {
	return f(ctx)
}

// Dedup wraps a source so that every code appears once, first occurrence wins
func Dedup(src Source) Source {
	return SourceFunc(func(ctx context.Context) ([]contracts.Instrument, error) {
		instruments, err := src.ListInstruments(ctx)
		if err != nil {
			return nil, err
		}
		return DedupInstruments(instruments), nil
	})
}

// DedupInstruments removes repeated codes and empty codes, keeping order
func DedupInstruments(instruments []contracts.Instrument) []contracts.Instrument {
	seen := make(map[string]struct{}, len(instruments))
	out := make([]contracts.Instrument, 0, len(instruments))
	for _, inst := range instruments {
		if inst.Code == "" {
			continue
		}
		if _, dup := seen[inst.Code]; dup {
			continue
		}
		seen[inst.Code] = struct{}{}
		out = append(out, inst)
	}
	return out
}
