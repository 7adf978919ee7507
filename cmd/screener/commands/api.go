package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/screener/internal/api"
	"github.com/wonny/screener/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health               - Health check
  GET  /metrics              - Prometheus metrics
  POST /api/screen           - 스크리닝 실행
  GET  /api/runs             - 스크리닝 이력 (DATABASE_URL 필요)
  GET  /api/runs/{id}        - 스크리닝 결과
  GET  /api/universe         - 종목 목록
  GET  /api/series/{code}    - 일별 시세
  GET  /ws/runs              - 스크리닝 실행 알림 (WebSocket)

Example:
  go run ./cmd/screener api
  go run ./cmd/screener api --port 8080
  go run ./cmd/screener api --schedule`,
	RunE: runAPIServer,
}

var (
	apiPort     string
	apiSchedule bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default PORT)")
	apiCmd.Flags().BoolVar(&apiSchedule, "schedule", false, "정기 스크리닝도 같은 프로세스에서 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	d, err := buildDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	// Override port if flag is set
	if apiPort != "" {
		d.cfg.Port = apiPort
	}

	var runs handlers.RunStore
	if d.runs != nil {
		runs = d.runs
	}

	feed := handlers.NewRunFeed(d.log)
	defer feed.Close()

	screenHandler := handlers.NewScreenHandler(d.screener, runs, d.criteria(), d.log).WithFeed(feed)
	marketHandler := handlers.NewMarketHandler(d.universe, d.reader, rowsPerPage(d.cfg), d.log)
	router := api.NewRouter(screenHandler, marketHandler, feed, d.cfg.MetricsEnabled, d.log)
	server := api.New(d.cfg, d.log, router)

	if apiSchedule {
		sched, job, err := newScheduler(d)
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		job.WithFeed(feed)
		sched.Start()
		defer sched.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", d.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal or a failed listener
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	d.log.Info("Server stopped")
	return nil
}
