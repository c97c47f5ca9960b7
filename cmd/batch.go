package main

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/company-intel/internal/model"
)

var batchLimit int

var batchCmd = &cobra.Command{
	Use:   "batch <file.csv>",
	Short: "Scrape companies from a CSV file",
	Long:  "Reads company_name,seed_url rows (header optional) and scrapes each company concurrently under the shared rate limits.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		jobs, err := readJobsCSV(args[0])
		if err != nil {
			return err
		}
		if batchLimit > 0 && len(jobs) > batchLimit {
			jobs = jobs[:batchLimit]
		}
		if len(jobs) == 0 {
			zap.L().Info("no jobs to process")
			return nil
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var done, failed atomic.Int64

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Batch.MaxConcurrentCompanies)

		for _, job := range jobs {
			g.Go(func() error {
				if err := processJob(gctx, env, job); err != nil {
					failed.Add(1)
					// Job-fatal errors (bad credentials) abort the batch; per-job
					// problems are already recorded in the run.
					return err
				}
				done.Add(1)
				return nil
			})
		}
		err = g.Wait()

		zap.L().Info("batch finished",
			zap.Int("jobs", len(jobs)),
			zap.Int64("complete", done.Load()),
			zap.Int64("failed", failed.Load()),
		)
		return err
	},
}

// processJob runs one company end to end and persists its run.
func processJob(ctx context.Context, env *scrapeEnv, job model.Job) error {
	run, err := env.Store.CreateRun(ctx, job)
	if err != nil {
		return eris.Wrap(err, "create run")
	}
	if err := env.Store.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
		return eris.Wrap(err, "mark run running")
	}

	result, runErr := env.Engine().Run(ctx, job)

	status := model.RunStatusComplete
	if runErr != nil {
		status = model.RunStatusFailed
	}
	if result != nil {
		if err := env.Store.UpdateRunResult(ctx, run.ID, result, status); err != nil {
			zap.L().Warn("persist run result failed", zap.String("run_id", run.ID), zap.Error(err))
		}
	} else if err := env.Store.UpdateRunStatus(ctx, run.ID, status); err != nil {
		zap.L().Warn("persist run status failed", zap.String("run_id", run.ID), zap.Error(err))
	}

	if runErr != nil {
		return eris.Wrapf(runErr, "scrape %s", job.CompanyName)
	}
	zap.L().Info("company scraped",
		zap.String("company", job.CompanyName),
		zap.Int("fields_found", len(result.Info.Found())),
		zap.Float64("avg_confidence", result.AverageConfidence),
	)
	return nil
}

// readJobsCSV parses company_name,seed_url rows. A header row is detected by
// its first cell and skipped.
func readJobsCSV(path string) ([]model.Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var jobs []model.Job
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", path)
		}
		if len(rec) == 0 {
			continue
		}
		name := strings.TrimSpace(rec[0])
		if name == "" || strings.EqualFold(name, "company_name") || strings.EqualFold(name, "name") {
			continue
		}
		job := model.Job{CompanyName: name}
		if len(rec) > 1 {
			job.SeedURL = strings.TrimSpace(rec[1])
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of companies to process (0 = all)")
	rootCmd.AddCommand(batchCmd)
}
