package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/briandowns/spinner"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/company-intel/internal/engine"
	"github.com/sells-group/company-intel/internal/model"
)

var (
	scrapeName string
	scrapeURL  string
	scrapeJSON bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape company information for a single company",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var opts []engine.Option
		var sp *spinner.Spinner
		if !scrapeJSON {
			sp = spinner.New(spinner.CharSets[9], 100*time.Millisecond)
			sp.Suffix = " starting"
			sp.Start()
			defer sp.Stop()
			opts = append(opts, engine.WithSnapshotFunc(func(snap model.Snapshot) {
				sp.Suffix = fmt.Sprintf(" [%s] fields %d/%d: %s",
					snap.Phase, len(snap.FieldsFound), len(model.Fields), snap.LastAction)
			}))
		}

		job := model.Job{CompanyName: scrapeName, SeedURL: scrapeURL}

		run, err := env.Store.CreateRun(ctx, job)
		if err != nil {
			return eris.Wrap(err, "create run")
		}
		if err := env.Store.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
			return eris.Wrap(err, "mark run running")
		}

		result, runErr := env.Engine(opts...).Run(ctx, job)
		if sp != nil {
			sp.Stop()
		}

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
			return eris.Wrap(runErr, "scrape")
		}

		if scrapeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}

		printResult(result)
		return nil
	},
}

func printResult(result *model.Result) {
	fmt.Printf("\n%s  [%s]  avg confidence %.2f\n\n",
		result.Job.CompanyName, result.Phase, result.AverageConfidence)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tCONFIDENCE\tSOURCE\tVALUE")
	for _, f := range model.Fields {
		fv := result.Info.Get(f)
		if fv == nil {
			fmt.Fprintf(w, "%s\t-\t-\t(not found)\n", f.DisplayName())
			continue
		}
		fmt.Fprintf(w, "%s\t%.2f\t%s\t%s\n", f.DisplayName(), fv.Confidence, fv.Source, truncate(fv.Value, 80))
	}
	w.Flush()

	fmt.Printf("\nVisited %d sources, %d attempts on site, %d searches\n",
		len(result.Sources), result.WebsiteAttempts, result.SearchAttempts)
	if len(result.Errors) > 0 {
		fmt.Printf("%d errors recorded (see logs)\n", len(result.Errors))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeName, "name", "", "company name (required)")
	scrapeCmd.Flags().StringVar(&scrapeURL, "url", "", "company website URL (optional; search-only without it)")
	scrapeCmd.Flags().BoolVar(&scrapeJSON, "json", false, "print result as JSON")
	_ = scrapeCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(scrapeCmd)
}
