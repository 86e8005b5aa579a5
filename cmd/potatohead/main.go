package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/demml/potatohead-sub001/config"
	applogger "github.com/demml/potatohead-sub001/logger"
	"github.com/demml/potatohead-sub001/runtime"
	"github.com/demml/potatohead-sub001/store"
	"github.com/demml/potatohead-sub001/telemetry"
	"github.com/demml/potatohead-sub001/workflow"
	"github.com/rs/zerolog"
)

const version = "0.1.0"

const usage = `usage: potatohead <command> [flags]

commands:
  run     run a workflow defined in a run file
  plan    print the execution plan of a run file
  events  print the task events stored for a workflow run
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errors.New("missing command")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "run":
		return runCommand(ctx, args[1:], out)
	case "plan":
		return planCommand(args[1:], out)
	case "events":
		return eventsCommand(ctx, args[1:], out)
	case "-h", "--help", "help":
		fmt.Fprint(out, usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func runCommand(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var (
		file     = fs.String("f", "run.yaml", "Path to the run file")
		schedule = fs.String("cron", "", "Run repeatedly on a cron expression, @every descriptor or duration")
		dbPath   = fs.String("db", "", "Path to a SQLite database recording task events")
		metrics  = fs.String("metrics", "", "Address to serve prometheus metrics on (e.g. :9090)")
		trace    = fs.Bool("trace", false, "Export OpenTelemetry spans to stderr")
		logFile  = fs.String("logfile", "", "Path to log file. If not set, logs to stdout/stderr")
		pretty   = fs.Bool("pretty", false, "Use pretty console output (only valid when logfile is not set)")
		logLevel = fs.String("log-level", "", "Log level, overrides the run file")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadRunConfig(*file)
	if err != nil {
		return err
	}

	if *logFile == "" {
		*logFile = cfg.LogFile
	}
	if *logFile != "" && *pretty {
		return fmt.Errorf("--logfile and --pretty are mutually exclusive")
	}
	if *logLevel == "" {
		*logLevel = cfg.LogLevel
	}
	logger, err := applogger.InitWithLevel(*logFile, *pretty, *logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info().
		Str("file", *file).
		Str("workflow", cfg.Name).
		Int("tasks", len(cfg.Tasks)).
		Msg("potatohead starting")

	if *trace {
		tp, err := telemetry.InitTracerProvider(version, os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
				logger.Warn().Err(err).Msg("Failed to flush traces")
			}
		}()
	}

	if *metrics != "" {
		srv := serveMetrics(*metrics, logger)
		defer srv.Close() //nolint:errcheck // best effort on exit
	}

	var sinks []workflow.EventSink
	if *dbPath != "" {
		logger.Info().Str("path", *dbPath).Msg("Opening event store")
		es, err := store.Open(*dbPath, logger)
		if err != nil {
			return fmt.Errorf("failed to open event store: %w", err)
		}
		defer es.Close() //nolint:errcheck // No remedy for db close errors
		sinks = append(sinks, es)
	}

	wf, err := buildWorkflow(ctx, cfg, logger, sinks)
	if err != nil {
		return err
	}
	global := globalContext(cfg)

	if *schedule != "" {
		enc := json.NewEncoder(out)
		s, err := runtime.NewScheduler(wf, *schedule, logger,
			runtime.WithGlobalContext(global),
			runtime.WithRunImmediately(),
			runtime.WithResultHandler(func(result *workflow.Result, err error) {
				if result != nil {
					_ = enc.Encode(summarize(result, err)) //nolint:errcheck // stdout
				}
			}),
		)
		if err != nil {
			return err
		}
		return s.Start(ctx)
	}

	result, runErr := wf.Run(ctx, global)
	if result != nil {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summarize(result, runErr)); err != nil {
			return err
		}
	}
	return runErr
}

func planCommand(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	file := fs.String("f", "run.yaml", "Path to the run file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadRunConfig(*file)
	if err != nil {
		return err
	}
	wf, err := buildWorkflow(context.Background(), cfg, zerolog.Nop(), nil)
	if err != nil {
		return err
	}
	for i, step := range wf.ExecutionPlan() {
		fmt.Fprintf(out, "step %d: %v\n", i+1, step)
	}
	return nil
}

func eventsCommand(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	var (
		dbPath     = fs.String("db", "", "Path to the SQLite event database")
		workflowID = fs.String("workflow", "", "Workflow run id")
		taskID     = fs.String("task", "", "Only events of this task")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dbPath == "" || *workflowID == "" {
		return fmt.Errorf("--db and --workflow are required")
	}

	es, err := store.Open(*dbPath, zerolog.Nop())
	if err != nil {
		return err
	}
	defer es.Close() //nolint:errcheck // read-only

	var events []workflow.TaskEvent
	if *taskID != "" {
		events, err = es.ListTaskEvents(ctx, *workflowID, *taskID)
	} else {
		events, err = es.ListEvents(ctx, *workflowID)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return err
		}
	}
	return nil
}

func serveMetrics(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	return srv
}

type taskSummary struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Retries int    `json:"retries"`
	Output  string `json:"output,omitempty"`
}

type runSummary struct {
	WorkflowID string        `json:"workflow_id"`
	Name       string        `json:"name"`
	Duration   string        `json:"duration"`
	Error      string        `json:"error,omitempty"`
	Tasks      []taskSummary `json:"tasks"`
}

func summarize(result *workflow.Result, err error) runSummary {
	s := runSummary{
		WorkflowID: result.WorkflowID,
		Name:       result.Name,
		Duration:   result.Finished.Sub(result.Started).String(),
	}
	if err != nil {
		s.Error = err.Error()
	}
	for _, id := range result.Tasks.ExecutionOrder() {
		t, ok := result.Tasks.Get(id)
		if !ok {
			continue
		}
		ts := taskSummary{ID: id, Status: string(t.Status()), Retries: t.RetryCount()}
		if r := t.Result(); r != nil {
			ts.Output = r.Content()
		}
		s.Tasks = append(s.Tasks, ts)
	}
	return s
}
