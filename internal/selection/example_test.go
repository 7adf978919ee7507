package selection_test

import (
	"fmt"

	"github.com/wonny/screener/internal/contracts"
	"github.com/wonny/screener/internal/selection"
)

// Example_predicates evaluates a three-day breakout window, most recent first
func Example_predicates() {
	window := []contracts.PriceRecord{
		{Date: "2024-03-05", High: 120, Low: 108, Volume: 900},
		{Date: "2024-03-04", High: 115, Low: 105, Volume: 1000},
		{Date: "2024-03-03", High: 110, Low: 100, Volume: 800},
	}

	pct, _ := selection.AmplitudePct(window, 3)
	fmt.Printf("amplitude: %.1f%%\n", pct)
	fmt.Println("in band:", selection.Amplitude(window, 3, 10, 30))
	fmt.Println("not max volume:", selection.NotMaxVolumeInLast3(window))
	fmt.Println("rising:", selection.ConsecutiveRise3(window))
	fmt.Println("new high:", selection.NewHighPrice(window))
	// Output:
	// amplitude: 20.0%
	// in band: true
	// not max volume: true
	// rising: true
	// new high: true
}
