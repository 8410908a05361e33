package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	"github.com/oklog/ulid/v2"

	"github.com/ewerton255/sprint-task-scheduler/internal/board"
	"github.com/ewerton255/sprint-task-scheduler/internal/config"
	"github.com/ewerton255/sprint-task-scheduler/internal/report"
	"github.com/ewerton255/sprint-task-scheduler/internal/schedule"
	"github.com/ewerton255/sprint-task-scheduler/internal/sprint"
	"github.com/ewerton255/sprint-task-scheduler/pkg/clog"
	"github.com/ewerton255/sprint-task-scheduler/pkg/storage"
)

var (
	app = kingpin.New("sprintscheduler", "Half-day block sprint task scheduler")

	scheduleCmd     = app.Command("schedule", "Schedule the sprint from a board snapshot")
	scheduleConfig  = scheduleCmd.Flag("config", "Configuration directory").Default("config").String()
	scheduleSeed    = scheduleCmd.Flag("seed", "Seed for executor shuffling (0 seeds from the clock)").Default("0").Int64()
	scheduleNoColor = scheduleCmd.Flag("no-color", "Disable colored output").Bool()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	switch command {
	case scheduleCmd.FullCommand():
		if err := runSchedule(*scheduleConfig, *scheduleSeed, *scheduleNoColor); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func runSchedule(configDir string, seed int64, noColor bool) error {
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}

	logger := slog.New(clog.NewAttributesHandler(clog.NewTextHandler(
		os.Stderr,
		clog.WithColor(!noColor),
		clog.WithLevel(env.SlogLevel()),
	)))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = clog.ContextWithSlog(ctx)

	runID := ulid.Make().String()
	clog.AddAttribute(ctx, "run_id", runID)
	logger.InfoContext(ctx, "loading configuration", "dir", configDir)

	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	env.ApplyOutputOverrides(&cfg.Output)

	src := board.NewSnapshot(cfg.SnapshotFile, board.SprintMeta{
		Name:      cfg.Sprint.Name,
		Team:      cfg.Team,
		StartDate: cfg.Sprint.StartDate,
		EndDate:   cfg.Sprint.EndDate,
	})
	sp, err := src.Load(ctx)
	if err != nil {
		return err
	}
	board.ApplyDependencies(sp, cfg.Dependencies)

	opts := []schedule.Option{schedule.WithLogger(logger)}
	if seed != 0 {
		opts = append(opts, schedule.WithRand(rand.New(rand.NewSource(seed))))
	}
	schedule.New(sp, cfg.Executors.Pools(), cfg.DayOffs, opts...).Run()

	store, err := newStorage(ctx, cfg.Output)
	if err != nil {
		return err
	}
	gen := report.NewGenerator(sp, cfg.DayOffs, store, runID, logger)
	if err := gen.Generate(ctx); err != nil {
		return err
	}

	printSummary(sp, gen.ReportPath())
	return nil
}

func newStorage(ctx context.Context, out config.OutputConfig) (storage.Storage, error) {
	switch out.Type {
	case "s3":
		return storage.NewS3Storage(ctx, out.S3Bucket, out.S3Prefix, out.S3Region)
	default:
		return storage.NewLocalStorage(out.Dir)
	}
}

func printSummary(sp *sprint.Sprint, reportPath string) {
	var scheduled, open, skipped int
	for _, t := range sp.AllTasks() {
		switch {
		case t.Status.Terminal():
			skipped++
		case t.Status == sprint.StatusScheduled:
			scheduled++
		default:
			open++
		}
	}

	fmt.Println()
	color.Green("Sprint %s scheduled", sp.Name)
	color.Green("  %d tasks scheduled, %d already closed or cancelled", scheduled, skipped)
	if open > 0 {
		color.Red("  %d tasks could not be scheduled (see report)", open)
	}
	color.Blue("  report: %s", reportPath)
}
