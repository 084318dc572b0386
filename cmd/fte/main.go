package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/digitalfte/fte/internal/assistant"
	"github.com/digitalfte/fte/internal/config"
	"github.com/digitalfte/fte/internal/docs"
	"github.com/digitalfte/fte/internal/doctor"
	"github.com/digitalfte/fte/internal/extract"
	"github.com/digitalfte/fte/internal/iterate"
	"github.com/digitalfte/fte/internal/logsink"
	"github.com/digitalfte/fte/internal/orchestrator"
	"github.com/digitalfte/fte/internal/planner"
	"github.com/digitalfte/fte/internal/ratelimit"
	"github.com/digitalfte/fte/internal/scheduler"
	"github.com/digitalfte/fte/internal/sink"
	"github.com/digitalfte/fte/internal/ux"
	"github.com/digitalfte/fte/internal/vault"
	"github.com/digitalfte/fte/internal/vcsync"
	"github.com/digitalfte/fte/internal/watcher"
	"github.com/digitalfte/fte/internal/watcher/filewatcher"
	"github.com/digitalfte/fte/internal/web"
	"github.com/digitalfte/fte/internal/zone"
)

func main() {
	app := &cli.Command{
		Name:        "fte",
		Usage:       "Mail and file triage pipeline: plan, approve, execute",
		Description: "Run 'fte docs' for documentation on configuration, folders, zones, and sinks.",
		Commands: []*cli.Command{
			runCmd(),
			dashboardOnlyCmd(),
			demoCmd(),
			iterateCmd(),
			statusCmd(),
			doctorCmd(),
			docsCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%serror:%s %v\n", ux.Red, ux.Reset, err)
		os.Exit(1)
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{Name: "config", Usage: "Path to a YAML config file (optional; § environment variables always win)"}
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// runtime bundles the collaborators every long-running command needs,
// wired once from a resolved Config.
type runtime struct {
	cfg     *config.Config
	store   *vault.Store
	zone    *zone.Policy
	logs    *logsink.Sink
	logger  *ux.Logger
	assist  assistant.Assistant
	sched   *scheduler.Scheduler
	orch    *orchestrator.Orchestrator
}

func buildRuntime(cfg *config.Config) (*runtime, error) {
	if err := vault.EnsureLayout(cfg.VaultPath); err != nil {
		return nil, fmt.Errorf("preparing vault at %s: %w", cfg.VaultPath, err)
	}
	store := vault.New(cfg.VaultPath)
	zonePolicy := zone.New(cfg.WorkZone)
	logs := logsink.New(cfg.VaultPath)
	logger := ux.New(ux.ParseLevel(cfg.LogLevel))

	for _, w := range zone.CheckMisplacedCredentials(cfg.WorkZone, credentialsFromEnv()) {
		logger.Warnf("%s", w)
	}

	a := assistant.New("")
	p := planner.New(a, cfg.AssistantModel)
	rate := ratelimit.New(cfg.VaultPath)

	// mail/social/accounting backends are the out-of-scope external
	// collaborators (providers, HTTP APIs, the accounting backend) — a
	// real deployment supplies them via its own entrypoint; none are
	// constructed here.
	sinks := sink.NewRegistry()

	orch := orchestrator.New(store, p, sinks, logs, rate, zonePolicy, orchestrator.Config{
		AutoApproveThreshold: cfg.AutoApproveThreshold,
		DailySendLimit:       cfg.DailySendLimit,
	})

	var watchers []watcher.Watcher
	if cfg.FileWatchEnabled && zonePolicy.Allows(zone.ReadExternalEvents) {
		dropDir := filepath.Join(cfg.VaultPath, vault.IncomingFiles)
		if err := os.MkdirAll(dropDir, 0755); err != nil {
			return nil, fmt.Errorf("preparing %s: %w", dropDir, err)
		}
		watchers = append(watchers, filewatcher.New(store, dropDir, blobExtractor(a, cfg.AssistantModel), cfg.FileWatchDryRun))
	}
	// the mail watcher needs a mailwatcher.Provider wrapping the mail
	// API, the same out-of-scope collaborator the mail sink depends on;
	// it is omitted here for the same reason.

	sched := scheduler.New(store, orch, zonePolicy, watchers...)
	sched.ApplyUpdate = func(u vcsync.Update) error {
		return logs.Append(logsink.Entry{
			Timestamp: time.Now().UTC(),
			Actor:     "sync",
			Action:    "update_applied",
			Source:    u.Source,
			Result:    fmt.Sprintf("%s: %s", u.Kind, u.Detail),
		})
	}

	return &runtime{
		cfg: cfg, store: store, zone: zonePolicy, logs: logs,
		logger: logger, assist: a, sched: sched, orch: orch,
	}, nil
}

// blobExtractor dispatches a dropped file to the PDF or image extractor
// by extension, returning "" for anything unsupported (§4.E).
func blobExtractor(a assistant.Assistant, model string) filewatcher.Extractor {
	return func(path, ext string) string {
		if ext == ".pdf" {
			return extract.PDF(path)
		}
		if extract.SupportedImageExtensions[ext] {
			return extract.Image(context.Background(), a, path, model)
		}
		return ""
	}
}

// credentialsFromEnv reports which execution-side secrets this process
// holds, for the startup misplaced-credential warning (§4.I). The
// concrete secret names belong to the out-of-scope provider
// collaborators; these are the conventional names a deployment sets.
func credentialsFromEnv() zone.Credentials {
	hasAny := func(names ...string) bool {
		for _, n := range names {
			if os.Getenv(n) != "" {
				return true
			}
		}
		return false
	}
	return zone.Credentials{
		HasExecutionSecrets: hasAny("MAIL_SEND_TOKEN", "SOCIAL_API_KEY", "ACCOUNTING_API_KEY"),
		HasGmailCreds:       hasAny("GMAIL_CREDENTIALS", "GMAIL_OAUTH_TOKEN"),
	}
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run the scheduler continuously (or once) against the configured vault",
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{Name: "once", Usage: "Run exactly one cycle and exit"},
			&cli.FloatFlag{Name: "auto", Usage: "Override the configured auto-approve threshold for this run"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Print the resolved cycle plan without executing it"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if os.Getenv("CLAUDECODE") != "" {
				return fmt.Errorf("fte cannot run inside Claude Code (CLAUDECODE env var is set); run from a regular terminal")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.IsSet("auto") {
				cfg.AutoApproveThreshold = cmd.Float("auto")
			}

			rt, err := buildRuntime(cfg)
			if err != nil {
				return err
			}

			if cmd.Bool("dry-run") {
				fmt.Printf("%sResolved cycle plan (dry run, nothing executed):%s\n", ux.Bold, ux.Reset)
				ux.RenderStatus(rt.store, rt.zone)
				return nil
			}

			if rt.cfg.WebEnabled && rt.zone.Allows(zone.WriteDashboard) {
				stop, err := serveDashboard(rt)
				if err != nil {
					return err
				}
				defer stop()
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()

			if cmd.Bool("once") {
				rt.logger.CycleHeader(1)
				start := time.Now()
				report, err := rt.sched.RunOnce(ctx)
				narrateCycle(rt.logger, report, time.Since(start))
				return err
			}

			return rt.sched.RunDaemon(ctx, rt.cfg.GmailCheckInterval, func(report *scheduler.Report) {
				narrateCycle(rt.logger, report, 0)
			})
		},
	}
}

func narrateCycle(logger *ux.Logger, report *scheduler.Report, elapsed time.Duration) {
	if report == nil {
		return
	}
	for _, err := range report.ItemErrors {
		logger.ItemFailed("cycle", "item", err)
	}
	logger.CycleComplete(report.Processed, report.Executed, report.Reviewed, elapsed)
	if report.Reinstated > 0 {
		logger.Infof("reinstated %d artifact(s) from quarantine", report.Reinstated)
	}
}

func serveDashboard(rt *runtime) (func(), error) {
	srv := web.New(rt.store, rt.logs, rt.zone)
	httpSrv := &http.Server{Addr: ":" + strconv.Itoa(rt.cfg.WebPort), Handler: srv.Router()}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			rt.logger.Errorf("dashboard: %v", err)
		}
	}()
	rt.logger.Infof("dashboard listening on :%d", rt.cfg.WebPort)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(ctx)
	}, nil
}

func dashboardOnlyCmd() *cli.Command {
	return &cli.Command{
		Name:  "dashboard-only",
		Usage: "Serve the HTTP dashboard without ingesting new events",
		Flags: []cli.Flag{configFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := vault.EnsureLayout(cfg.VaultPath); err != nil {
				return fmt.Errorf("preparing vault at %s: %w", cfg.VaultPath, err)
			}
			store := vault.New(cfg.VaultPath)
			zonePolicy := zone.New(cfg.WorkZone)
			logs := logsink.New(cfg.VaultPath)

			srv := web.New(store, logs, zonePolicy)
			addr := ":" + strconv.Itoa(cfg.WebPort)
			httpSrv := &http.Server{Addr: addr, Handler: srv.Router()}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- httpSrv.ListenAndServe() }()
			fmt.Printf("%sdashboard:%s listening on %s (zone=%s)\n", ux.Bold, ux.Reset, addr, zonePolicy.Zone)

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return httpSrv.Shutdown(shutdownCtx)
			case err := <-errCh:
				if err != nil && err != http.ErrServerClosed {
					return err
				}
				return nil
			}
		},
	}
}

// demoMailProvider stands in for the out-of-scope mail transport so
// `fte demo` can show a reply actually being "sent" without any real
// credentials.
type demoMailProvider struct{}

func (demoMailProvider) SendReply(_ context.Context, providerID, to, subject, body string) error {
	fmt.Printf("%s[demo mail]%s would reply to %s (re: %s, gmail_id=%s):\n%s\n", ux.Dim, ux.Reset, to, subject, providerID, body)
	return nil
}

func demoCmd() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "Run a scripted end-to-end walkthrough against a scratch vault",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			root, err := os.MkdirTemp("", "fte-demo-*")
			if err != nil {
				return err
			}
			fmt.Printf("%sdemo vault:%s %s\n\n", ux.Bold, ux.Reset, root)

			if err := vault.EnsureLayout(root); err != nil {
				return err
			}
			store := vault.New(root)
			logs := logsink.New(root)
			rate := ratelimit.New(root)
			zonePolicy := zone.New(zone.Local)

			fakeAssistant := &assistant.Fake{Responses: []string{
				"Analysis: Routine status request from a known customer.\n" +
					"Recommended Actions: Send a short confirmation reply.\n" +
					"Requires Approval: no, standard acknowledgement.\n" +
					"---BEGIN REPLY---\nThanks for checking in — your order is on track.\n---END REPLY---\n" +
					"Confidence: 0.95",
			}}
			p := planner.New(fakeAssistant, "demo-model")
			sinks := sink.NewRegistry(sink.WithBreaker(sink.NewMail(demoMailProvider{})))
			orch := orchestrator.New(store, p, sinks, logs, rate, zonePolicy, orchestrator.Config{
				AutoApproveThreshold: 0.5,
				DailySendLimit:       10,
			})
			sched := scheduler.New(store, orch, zonePolicy)

			h := vault.NewHeader()
			h.Set("type", "email")
			h.Set("from", "customer@example.com")
			h.Set("subject", "Order status?")
			h.Set("id", "demo-msg-1")
			if _, err := store.Write(vault.NeedsAction, "email-demo-msg-1.md", h, "Hi, just checking on my order."); err != nil {
				return err
			}

			fmt.Println("cycle 1: drafting and auto-approving the reply")
			if _, err := sched.RunOnce(ctx); err != nil {
				return err
			}
			ux.RenderStatus(store, zonePolicy)

			recent, err := logs.Recent(10)
			if err != nil {
				return err
			}
			fmt.Printf("%slog:%s\n", ux.Bold, ux.Reset)
			for _, e := range recent {
				fmt.Printf("  %s %s %s — %s\n", e.Actor, e.Action, e.Source, e.Result)
			}
			fmt.Printf("\nremove %s when done inspecting it.\n", root)
			return nil
		},
	}
}

func iterateCmd() *cli.Command {
	return &cli.Command{
		Name:      "iterate",
		Usage:     "Drive a multi-step assistant task to completion",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			configFlag(),
			&cli.IntFlag{Name: "max-iterations", Value: iterate.DefaultMaxIterations},
			&cli.StringFlag{Name: "strategy", Value: string(iterate.PromiseTag), Usage: "promise_tag or file_movement"},
			&cli.StringFlag{Name: "task-file", Usage: "Done/ filename to watch for (file_movement strategy)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			prompt := cmd.Args().First()
			if prompt == "" {
				return fmt.Errorf("prompt argument is required")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := vault.EnsureLayout(cfg.VaultPath); err != nil {
				return err
			}
			store := vault.New(cfg.VaultPath)
			a := assistant.New("")
			driver := iterate.New(a, store, filepath.Join(cfg.VaultPath, vault.Logs))

			result, err := driver.Run(ctx, iterate.Task{
				Prompt:        prompt,
				MaxIterations: int(cmd.Int("max-iterations")),
				Strategy:      iterate.Strategy(cmd.String("strategy")),
				TaskFile:      cmd.String("task-file"),
				Model:         cfg.AssistantModel,
			})
			if err != nil {
				return err
			}
			fmt.Printf("completed=%v iterations=%d\n\n%s\n", result.Completed, result.Iterations, result.Output)
			return nil
		},
	}
}

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the vault's current folder-count breakdown",
		Flags: []cli.Flag{configFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := vault.EnsureLayout(cfg.VaultPath); err != nil {
				return err
			}
			store := vault.New(cfg.VaultPath)
			zonePolicy := zone.New(cfg.WorkZone)
			ux.RenderStatus(store, zonePolicy)
			return nil
		},
	}
}

func doctorCmd() *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "Gather failure context and ask the assistant to diagnose it",
		Flags: []cli.Flag{configFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := vault.EnsureLayout(cfg.VaultPath); err != nil {
				return err
			}
			store := vault.New(cfg.VaultPath)
			logs := logsink.New(cfg.VaultPath)
			a := assistant.New("")
			return doctor.Run(ctx, a, store, logs, cfg.AssistantModel)
		},
	}
}

func docsCmd() *cli.Command {
	return &cli.Command{
		Name:      "docs",
		Usage:     "Show documentation",
		ArgsUsage: "[topic]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				fmt.Print("\nAvailable topics:\n\n")
				for _, t := range docs.All() {
					fmt.Printf("  %-12s %s\n", t.Name, t.Summary)
				}
				fmt.Println("\nRun 'fte docs <topic>' to read a topic.")
				return nil
			}
			t, err := docs.Get(name)
			if err != nil {
				return err
			}
			fmt.Print(t.Content)
			return nil
		},
	}
}
