package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/signalsfoundry/drone-deconfliction/core"
	"github.com/signalsfoundry/drone-deconfliction/internal/config"
	"github.com/signalsfoundry/drone-deconfliction/internal/logging"
	"github.com/signalsfoundry/drone-deconfliction/internal/missionio"
	"github.com/signalsfoundry/drone-deconfliction/internal/missionplot"
	"github.com/signalsfoundry/drone-deconfliction/internal/observability"
	"github.com/signalsfoundry/drone-deconfliction/internal/report"
	"github.com/signalsfoundry/drone-deconfliction/kb"
)

// Exit codes.
const (
	exitClear    = 0
	exitError    = 1
	exitConflict = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	configPath  string
	primaryPath string
	flightsPath string
	plotView    string
}

// run executes one deconfliction check and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitClear
		}
		fmt.Fprintf(stderr, "deconflict: %v\n", err)
		return exitError
	}

	log := logging.New(cfg.Logging)
	ctx, log = logging.WithRunLogger(ctx, log)

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		return exitError
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewDetectorCollector(prometheus.NewRegistry())
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.Err(err))
		return exitError
	}
	if metricsSrv := serveMetrics(ctx, cfg.Output.MetricsAddr, collector, log); metricsSrv != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	conflicts, err := check(ctx, cfg, opts, collector, stdout, log)
	if cfg.Output.MetricsFile != "" {
		if werr := collector.WriteTextfile(cfg.Output.MetricsFile); werr != nil {
			log.Warn(ctx, "failed to write metrics textfile", logging.Err(werr))
		}
	}
	if err != nil {
		log.Error(ctx, "deconfliction failed", logging.Err(err))
		return exitError
	}
	if conflicts > 0 {
		return exitConflict
	}
	return exitClear
}

// parseArgs resolves settings with precedence flags > environment > file >
// defaults.
func parseArgs(args []string, stderr io.Writer) (config.Config, options, error) {
	fs := flag.NewFlagSet("deconflict", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.configPath, "config", "", "Path to a YAML settings file")
	fs.StringVar(&opts.primaryPath, "primary", "", "Primary mission document (JSON or YAML)")
	fs.StringVar(&opts.flightsPath, "flights", "", "Batch document of other scheduled flights")
	fs.StringVar(&opts.plotView, "plot-view", "top", "Plot projection: top (X/Y) or side (X/Z)")

	safetyBuffer := fs.Float64("safety-buffer", 0, "Proximity score (m) below which samples conflict")
	binWidth := fs.Duration("bin-width", 0, "Width of the time bins samples are grouped into")
	timeWeight := fs.Float64("time-weight", 0, "Metres per second of time offset in the proximity score")
	parallelism := fs.Int("parallelism", 0, "Other missions compared concurrently")
	cruiseSpeed := fs.Float64("cruise-speed", 0, "Default cruise speed (m/s); 0 fits each mission window")
	reportPath := fs.String("report", "", "Write the conflict report here (.json, .msgpack, optional .zst)")
	reportFormat := fs.String("report-format", "", "Override the report encoding: json or msgpack")
	plotPath := fs.String("plot", "", "Write a trajectory plot here (.png, .svg, .pdf)")
	framesPath := fs.String("frames", "", "Write per-tick positions as JSON lines here")
	frameTick := fs.Duration("frame-tick", 0, "Spacing of animation frames")
	summary := fs.Int("summary", 0, "Conflicts printed in the text summary (0 keeps the configured limit)")
	metricsFile := fs.String("metrics-file", "", "Write Prometheus metrics in textfile format here")
	metricsAddr := fs.String("metrics-addr", "", "Serve Prometheus /metrics on this address while running")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, opts, err
	}
	if opts.primaryPath == "" {
		return config.Config{}, opts, errors.New("-primary is required")
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, opts, err
	}
	if cfg, err = config.ApplyEnv(cfg); err != nil {
		return config.Config{}, opts, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "safety-buffer":
			cfg.Detector.SafetyBuffer = *safetyBuffer
		case "bin-width":
			cfg.Detector.BinWidth = *binWidth
		case "time-weight":
			cfg.Detector.TimeWeight = *timeWeight
		case "parallelism":
			cfg.Detector.Parallelism = *parallelism
		case "cruise-speed":
			cfg.Detector.CruiseSpeed = *cruiseSpeed
		case "report":
			cfg.Output.Report = *reportPath
		case "report-format":
			cfg.Output.ReportFormat = *reportFormat
		case "plot":
			cfg.Output.Plot = *plotPath
		case "frames":
			cfg.Output.Frames = *framesPath
		case "frame-tick":
			cfg.Output.FrameTick = *frameTick
		case "summary":
			if *summary > 0 {
				cfg.Output.SummaryLimit = *summary
			}
		case "metrics-file":
			cfg.Output.MetricsFile = *metricsFile
		case "metrics-addr":
			cfg.Output.MetricsAddr = *metricsAddr
		}
	})

	if err := cfg.Validate(); err != nil {
		return config.Config{}, opts, err
	}
	return cfg, opts, nil
}

// check loads the missions, runs detection and writes every requested
// artefact. It returns the number of conflict records.
func check(ctx context.Context, cfg config.Config, opts options, recorder core.DetectionRecorder, stdout io.Writer, log logging.Logger) (int, error) {
	store := kb.NewKnowledgeBase()
	unsubscribe := store.Subscribe(func(e kb.Event) {
		if e.Type == kb.EventMissionAdded {
			log.Debug(ctx, "mission registered",
				logging.String("mission_id", e.MissionID),
				logging.String("start", e.Window.StartTime.Format(time.RFC3339)),
				logging.String("end", e.Window.EndTime.Format(time.RFC3339)),
			)
		}
	})
	defer unsubscribe()

	if err := loadMissions(store, opts); err != nil {
		return 0, err
	}
	primary, others := store.Primary(), store.Others()
	log.Info(ctx, "missions loaded",
		logging.String("primary_mission_id", primary.ID),
		logging.Int("waypoints", len(primary.Waypoints)),
		logging.Int("other_missions", len(others)),
	)

	detector, err := core.NewDetector(cfg.DetectorConfig(), core.WithLogger(log), core.WithRecorder(recorder))
	if err != nil {
		return 0, err
	}
	conflicts, err := detector.Detect(ctx, primary, others)
	if err != nil {
		return 0, err
	}
	events := core.SummarizeConflicts(conflicts, cfg.Output.EventGap)
	rep := report.New(primary.ID, cfg.Detector.SafetyBuffer, conflicts, events)

	if err := report.WriteSummary(stdout, rep, cfg.Output.SummaryLimit); err != nil {
		return 0, err
	}
	if cfg.Output.Report != "" {
		enc, err := report.ParseEncoding(cfg.Output.ReportFormat)
		if err != nil {
			return 0, err
		}
		if err := report.WriteFile(cfg.Output.Report, rep, enc); err != nil {
			return 0, fmt.Errorf("write report: %w", err)
		}
		log.Info(ctx, "conflict report saved", logging.String("path", cfg.Output.Report))
	}
	if cfg.Output.Plot != "" {
		view, err := missionplot.ParseView(opts.plotView)
		if err != nil {
			return 0, err
		}
		if err := missionplot.Save(cfg.Output.Plot, missionplot.TracksFor(primary, others), conflicts, view); err != nil {
			return 0, err
		}
		log.Info(ctx, "plot saved", logging.String("path", cfg.Output.Plot))
	}
	if cfg.Output.Frames != "" {
		n, err := writeFramesFile(ctx, cfg.Output.Frames, store, cfg.Output.FrameTick)
		if err != nil {
			return 0, fmt.Errorf("write frames: %w", err)
		}
		log.Info(ctx, "animation frames saved", logging.String("path", cfg.Output.Frames), logging.Int("frames", n))
	}
	return len(conflicts), nil
}

func loadMissions(store *kb.KnowledgeBase, opts options) error {
	primary, err := missionio.LoadPrimary(opts.primaryPath)
	if err != nil {
		return err
	}
	if err := store.AddPrimary(primary); err != nil {
		return err
	}
	if opts.flightsPath == "" {
		return nil
	}
	flights, err := missionio.LoadFlights(opts.flightsPath)
	if err != nil {
		return err
	}
	for _, m := range flights {
		if err := store.AddMission(m); err != nil {
			return fmt.Errorf("%s: %w", opts.flightsPath, err)
		}
	}
	return nil
}

func serveMetrics(ctx context.Context, addr string, collector *observability.DetectorCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn(ctx, "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(ctx, "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
