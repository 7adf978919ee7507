package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// seriesCmd represents the series command
var seriesCmd = &cobra.Command{
	Use:   "series [code]",
	Short: "종목 일별 시세 조회",
	Long: `한 종목의 최근 일별 시세를 최신순으로 출력합니다.

Example:
  go run ./cmd/screener series 005930
  go run ./cmd/screener series AAPL --market us --days 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSeries,
}

var seriesDays int

func init() {
	rootCmd.AddCommand(seriesCmd)

	seriesCmd.Flags().IntVar(&seriesDays, "days", 20, "조회 일수")
}

func runSeries(cmd *cobra.Command, args []string) error {
	if seriesDays <= 0 {
		return fmt.Errorf("--days must be positive")
	}

	ctx := cmd.Context()

	d, err := buildDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	code := args[0]
	records, err := d.reader.Window(ctx, code, seriesDays, rowsPerPage(d.cfg))
	if err != nil {
		return fmt.Errorf("read %s: %w", code, err)
	}
	if len(records) == 0 {
		PrintWarning(fmt.Sprintf("%s: 시세 없음", code))
		return nil
	}

	widths := []int{10, 12, 12, 12, 12, 14}
	PrintTableHeader([]string{"DATE", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME"}, widths)
	for _, r := range records {
		PrintTableRow([]string{
			r.Date,
			formatPrice(r.Open),
			formatPrice(r.High),
			formatPrice(r.Low),
			formatPrice(r.Close),
			formatPrice(r.Volume),
		}, widths)
	}

	return nil
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
