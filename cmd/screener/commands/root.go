package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	market         string
	universeSource string
	profilePath    string
	verbose        bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "신고가 돌파 종목 스크리너",
	Long: `Breakout Screener CLI

종목 목록을 받아 2단계로 거릅니다.
1차: 최근 진폭, 거래량 최대, 연속 상승
2차: 장기 신고가

Usage:
  go run ./cmd/screener [command]

Examples:
  go run ./cmd/screener screen
  go run ./cmd/screener screen --market us --json
  go run ./cmd/screener screen --profile configs/profiles/breakout_us.yaml
  go run ./cmd/screener universe
  go run ./cmd/screener series 005930 --days 20
  go run ./cmd/screener api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// Ctrl+C cancels the command context, so a running screen stops fetching.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags (비어 있으면 환경변수 설정 사용)
	rootCmd.PersistentFlags().StringVar(&market, "market", "", "market (kr|us), default SCREEN_MARKET")
	rootCmd.PersistentFlags().StringVar(&universeSource, "universe-source", "", "universe source (remote|postgres), default SCREEN_UNIVERSE_SOURCE")
	rootCmd.PersistentFlags().StringVar(&profilePath, "profile", "", "screening profile YAML (e.g. configs/profiles/breakout_kr.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
