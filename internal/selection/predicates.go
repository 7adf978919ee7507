package selection

import "github.com/wonny/screener/internal/contracts"

// Predicates take a most-recent-first window and fail closed:
// a window that is too short, or a degenerate input, is a plain false.

// NewHighPrice reports whether today's high is at least every high in the window.
// Windows shorter than the lookback (recent listings) are judged on what exists.
func NewHighPrice(window []contracts.PriceRecord) bool {
	if len(window) == 0 {
		return false
	}

	todayHigh := window[0].High
	for _, r := range window[1:] {
		if r.High > todayHigh {
			return false
		}
	}
	return true
}

// AmplitudePct is (max high - min low) / min low * 100 over the first days records.
// ok is false when the window is shorter than days or min low is not positive.
func AmplitudePct(window []contracts.PriceRecord, days int) (pct float64, ok bool) {
	if days <= 0 || len(window) < days {
		return 0, false
	}

	high, low := window[0].High, window[0].Low
	for _, r := range window[1:days] {
		high = max(high, r.High)
		low = min(low, r.Low)
	}
	if low <= 0 {
		return 0, false
	}

	return (high - low) / low * 100, true
}

// Amplitude reports whether the amplitude over days is within [minPct, maxPct]
func Amplitude(window []contracts.PriceRecord, days int, minPct, maxPct float64) bool {
	pct, ok := AmplitudePct(window, days)
	return ok && pct >= minPct && pct <= maxPct
}

// NotMaxVolumeInLast reports whether today's volume is not the largest of the last days records.
// A tie with the maximum counts as the maximum.
func NotMaxVolumeInLast(window []contracts.PriceRecord, days int) bool {
	if days <= 0 || len(window) < days {
		return false
	}

	maxVolume := window[0].Volume
	for _, r := range window[1:days] {
		maxVolume = max(maxVolume, r.Volume)
	}
	return window[0].Volume < maxVolume
}

// NotMaxVolumeInLast3 is NotMaxVolumeInLast over 3 days
func NotMaxVolumeInLast3(window []contracts.PriceRecord) bool {
	return NotMaxVolumeInLast(window, 3)
}

// ConsecutiveRise reports whether highs and lows strictly rose on each of the last days records
// (high[0] > high[1] > ... and low[0] > low[1] > ...).
func ConsecutiveRise(window []contracts.PriceRecord, days int) bool {
	if days < 2 || len(window) < days {
		return false
	}

	for i := 0; i < days-1; i++ {
		if window[i].High <= window[i+1].High || window[i].Low <= window[i+1].Low {
			return false
		}
	}
	return true
}

// ConsecutiveRise3 is ConsecutiveRise over 3 days
func ConsecutiveRise3(window []contracts.PriceRecord) bool {
	return ConsecutiveRise(window, 3)
}
