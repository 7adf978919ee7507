package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/screener/internal/contracts"
	"github.com/wonny/screener/internal/selection"
)

// screenCmd represents the screen command
var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "스크리닝 1회 실행",
	Long: `전체 종목을 2단계로 스크리닝하고 리포트를 출력합니다.

조건 기본값은 SCREEN_* 환경변수에서 읽고, 플래그로 덮어씁니다.

Example:
  go run ./cmd/screener screen
  go run ./cmd/screener screen --new-high-days 120 --amplitude-max 25
  go run ./cmd/screener screen --codes 005930,000660
  go run ./cmd/screener screen --json --save`,
	RunE: runScreen,
}

var (
	screenAmplitudeDays int
	screenAmplitudeMin  float64
	screenAmplitudeMax  float64
	screenNewHighDays   int
	screenRecentDays    int
	screenConcurrency   int
	screenCodes         []string
	screenJSON          bool
	screenSave          bool
)

func init() {
	rootCmd.AddCommand(screenCmd)

	// Flags (지정한 것만 기본값을 덮어씀)
	f := screenCmd.Flags()
	f.IntVar(&screenAmplitudeDays, "amplitude-days", 0, "진폭 계산 기간")
	f.Float64Var(&screenAmplitudeMin, "amplitude-min", 0, "진폭 하한 (%)")
	f.Float64Var(&screenAmplitudeMax, "amplitude-max", 0, "진폭 상한 (%)")
	f.IntVar(&screenNewHighDays, "new-high-days", 0, "신고가 기준 기간")
	f.IntVar(&screenRecentDays, "recent-days", 0, "거래량/연속상승 기간")
	f.IntVar(&screenConcurrency, "concurrency", 0, "동시 종목 처리 수")
	f.StringSliceVar(&screenCodes, "codes", nil, "유니버스 대신 지정 종목만 스크리닝")
	f.BoolVar(&screenJSON, "json", false, "리포트를 JSON으로 출력")
	f.BoolVar(&screenSave, "save", false, "결과를 DB에 저장 (DATABASE_URL 필요)")
}

// applyScreenFlags overrides criteria with the flags that were set
func applyScreenFlags(cmd *cobra.Command, c contracts.ScreeningCriteria) contracts.ScreeningCriteria {
	f := cmd.Flags()
	if f.Changed("amplitude-days") {
		c.AmplitudeDays = screenAmplitudeDays
	}
	if f.Changed("amplitude-min") {
		c.AmplitudeMinPct = screenAmplitudeMin
	}
	if f.Changed("amplitude-max") {
		c.AmplitudeMaxPct = screenAmplitudeMax
	}
	if f.Changed("new-high-days") {
		c.NewHighDays = screenNewHighDays
	}
	if f.Changed("recent-days") {
		c.RecentDays = screenRecentDays
	}
	if f.Changed("concurrency") {
		c.Concurrency = screenConcurrency
	}
	return c
}

// codesToInstruments turns --codes into an ad-hoc universe
func codesToInstruments(codes []string) []contracts.Instrument {
	instruments := make([]contracts.Instrument, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		instruments = append(instruments, contracts.Instrument{Code: code, Name: code})
	}
	return instruments
}

func runScreen(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	d, err := buildDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	if screenSave && d.runs == nil {
		return fmt.Errorf("--save requires DATABASE_URL")
	}

	criteria := applyScreenFlags(cmd, d.criteria())

	var result *contracts.ScreeningResult
	if len(screenCodes) > 0 {
		result, err = d.screener.ScreenInstruments(ctx, criteria, codesToInstruments(screenCodes))
	} else {
		result, err = d.screener.Screen(ctx, criteria)
	}
	if err != nil {
		return fmt.Errorf("screen: %w", err)
	}

	report := selection.BuildReport(result)
	if screenJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
	} else {
		PrintDoubleSeparator()
		fmt.Print(report.Text())
		PrintDoubleSeparator()
	}

	if screenSave {
		id, err := d.runs.SaveRun(ctx, result)
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		d.log.WithField("run_id", id).Info("Screening run saved")
	}

	return nil
}
