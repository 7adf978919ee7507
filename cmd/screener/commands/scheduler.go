package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/screener/internal/scheduler"
	"github.com/wonny/screener/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "정기 스크리닝 스케줄러",
	Long: `장 마감 후 스크리닝을 정기적으로 실행합니다.
스케줄은 SCREEN_SCHEDULE (초 단위 포함 cron) 에서 읽습니다.

Subcommands:
  start   - 스케줄러 시작
  run     - 스크리닝 작업 즉시 실행

Example:
  go run ./cmd/screener scheduler start
  go run ./cmd/screener scheduler run`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작합니다. Ctrl+C로 종료할 수 있습니다.
DATABASE_URL 이 있으면 결과를 저장합니다.`,
		RunE: runScheduler,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run",
		Short: "스크리닝 작업 즉시 실행",
		RunE:  runJobNow,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// newScheduler registers the screening job
func newScheduler(d *deps) (*scheduler.Scheduler, *jobs.ScreenJob, error) {
	var runs jobs.RunSaver
	if d.runs != nil {
		runs = d.runs
	}

	job := jobs.NewScreenJob(d.screener, runs, d.criteria(), d.cfg.Screening.Schedule, d.log)
	sched := scheduler.New(d.log)
	if err := sched.AddJob(job); err != nil {
		return nil, nil, err
	}

	return sched, job, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	d, err := buildDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	sched, job, err := newScheduler(d)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	next, _ := sched.NextRun(job.Name())
	PrintSuccess("Scheduler started")
	PrintKeyValue("Job", job.Name(), 8)
	PrintKeyValue("Schedule", job.Schedule(), 8)
	PrintKeyValue("Next run", next.Format("2006-01-02 15:04:05"), 8)
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()

	return nil
}

func runJobNow(cmd *cobra.Command, args []string) error {
	d, err := buildDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.Close()

	sched, job, err := newScheduler(d)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// Ctrl+C는 스케줄러 컨텍스트를 통해 작업을 멈춤
	go func() {
		<-cmd.Context().Done()
		sched.Stop()
	}()

	result, err := sched.RunJob(job.Name())
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	PrintKeyValue("Attempts", fmt.Sprintf("%d", result.Attempts), 8)
	PrintKeyValue("Duration", result.Duration.String(), 8)
	if !result.Success {
		PrintError(result.Error)
		return fmt.Errorf("job %s failed", job.Name())
	}

	PrintSuccess("Job completed")
	return nil
}
