package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"portalprobe/internal/browser"
	"portalprobe/internal/config"
	"portalprobe/internal/extract"
	"portalprobe/internal/job"
	"portalprobe/internal/search"
	"portalprobe/internal/summary"
)

var (
	runTarget      string
	runJobID       string
	runJobsFile    string
	runConcurrency int
	runTimeout     time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute validation jobs against the portal",
	Long: `Run a single job from flags, or a batch from a YAML jobs file.
Each job gets its own browser session; batch jobs run as independent engine
instances fanned out up to --concurrency.`,
	RunE: runJobs,
}

func init() {
	runCmd.Flags().StringVar(&runTarget, "target", "", "target service/circuit identifier")
	runCmd.Flags().StringVar(&runJobID, "job-id", "", "job identifier (generated when empty)")
	runCmd.Flags().StringVar(&runJobsFile, "jobs", "", "YAML file with a list of jobs")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 1, "parallel sessions for batch runs")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 10*time.Minute, "overall per-job timeout")
}

func loadJobs() ([]job.Params, error) {
	if runJobsFile != "" {
		data, err := os.ReadFile(runJobsFile)
		if err != nil {
			return nil, fmt.Errorf("read jobs file: %w", err)
		}
		var jobs []job.Params
		if err := yaml.Unmarshal(data, &jobs); err != nil {
			return nil, fmt.Errorf("parse jobs file: %w", err)
		}
		return jobs, nil
	}

	if runTarget == "" {
		return nil, fmt.Errorf("either --target or --jobs is required")
	}
	id := runJobID
	if id == "" {
		id = uuid.NewString()
	}
	return []job.Params{{JobID: id, TargetID: runTarget}}, nil
}

func runJobs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	jobs, err := loadJobs()
	if err != nil {
		return err
	}

	logger.Info("starting jobs",
		zap.Int("count", len(jobs)),
		zap.Int("concurrency", runConcurrency))

	envelopes := make([]job.Envelope, len(jobs))

	// One engine instance and one session per job; the group only bounds
	// how many run at once.
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(runConcurrency)
	for i, params := range jobs {
		i, params := i, params
		g.Go(func() error {
			adapter := job.NewAdapter(job.Options{
				Opener:      browser.NewManager(cfg.BrowserConfig(), logger),
				Search:      search.DefaultSelectors(),
				Extract:     extract.DefaultSelectors(),
				Username:    cfg.Portal.Username,
				Password:    cfg.Portal.Password,
				Policy:      cfg.RetryPolicy(),
				EvidenceDir: cfg.Evidence.Dir,
				Summary:     &summary.FileWriter{Dir: cfg.Evidence.Dir},
				Log:         logger,
			})

			jobCtx, cancel := context.WithTimeout(ctx, runTimeout)
			defer cancel()
			envelopes[i] = adapter.Execute(jobCtx, params)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, env := range envelopes {
		// Payloads stay on disk; the printed envelope carries the index only.
		for i := range env.Evidence {
			env.Evidence[i].Payload = nil
		}
		if err := enc.Encode(env); err != nil {
			return err
		}
	}
	return nil
}
