package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// universeCmd represents the universe command
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "종목 목록 조회",
	Long: `스크리닝 대상 종목 목록을 출력합니다.
REDIS_ENABLED=true 이면 캐시된 목록을 먼저 사용합니다.

Example:
  go run ./cmd/screener universe
  go run ./cmd/screener universe --market us --limit 20`,
	RunE: runUniverse,
}

var universeLimit int

func init() {
	rootCmd.AddCommand(universeCmd)

	universeCmd.Flags().IntVar(&universeLimit, "limit", 0, "출력할 최대 종목 수 (0 = 전체)")
}

func runUniverse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	d, err := buildDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	instruments, err := d.universe.ListInstruments(ctx)
	if err != nil {
		return fmt.Errorf("list universe: %w", err)
	}

	shown := instruments
	if universeLimit > 0 && universeLimit < len(shown) {
		shown = shown[:universeLimit]
	}

	widths := []int{10, 30, 8}
	PrintTableHeader([]string{"CODE", "NAME", "MARKET"}, widths)
	for _, inst := range shown {
		PrintTableRow([]string{inst.Code, inst.Name, inst.Market}, widths)
	}
	PrintSeparator()
	PrintKeyValue("Total", fmt.Sprintf("%d", len(instruments)), 6)

	return nil
}
