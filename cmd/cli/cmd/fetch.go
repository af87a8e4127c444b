package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"capsulectl/internal/codeocean"
	"capsulectl/internal/config"
	"capsulectl/internal/fetch"
	"capsulectl/internal/jobs"
	"capsulectl/internal/logger"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download result files for completed computations",
	Long: `Download the result files of one computation (--job-id) or of every
computation in a jobs file (--jobs-file), mirroring the remote folder
structure under the download root.

Only computations in the completed state with results are downloaded;
running, failed and unknown jobs are reported and skipped. Files already
on disk are skipped unless --force is set, and files larger than
--max-size-mb are skipped (0 disables the limit).

Example:
  capsulectl fetch --job-id 2a66df60-f96d-401e-8384-2e4aedeee818
  capsulectl fetch --jobs-file jobs.json --max-size-mb 10 --force`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		jobID, _ := flags.GetString("job-id")
		jobsFile, _ := flags.GetString("jobs-file")
		maxSizeMB, _ := flags.GetFloat64("max-size-mb")
		force, _ := flags.GetBool("force")
		out, _ := flags.GetString("out")

		cfg, err := config.Load()
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			return
		}
		if out == "" {
			out = cfg.DownloadRoot
		}
		if maxSizeMB < 0 {
			maxSizeMB = 0
		}

		client := codeocean.NewClient(cfg.Domain, cfg.Token)
		fetcher := fetch.New(client, out, maxSizeMB, force, logger.New())
		ctx := cmd.Context()

		var reports []*fetch.JobReport
		if jobID != "" {
			reports = []*fetch.JobReport{fetcher.FetchJob(ctx, jobID, jobID)}
		} else {
			ledger, err := jobs.Load(jobsFile)
			if err != nil {
				cmd.Printf("Error: %v\n", err)
				return
			}
			if len(ledger.Jobs) == 0 {
				cmd.Printf("No jobs found in %s\n", jobsFile)
				return
			}
			reports = fetcher.FetchAll(ctx, ledger.Jobs)
		}

		printFetchSummary(cmd, reports, out)
	},
}

func printFetchSummary(cmd *cobra.Command, reports []*fetch.JobReport, out string) {
	var downloaded, skippedExists, skippedTooLarge, failed, jobsFetched, jobsSkipped int

	for _, report := range reports {
		if report.Skipped {
			jobsSkipped++
			cmd.Printf("• %s: skipped (%s)\n", report.Key, report.SkipReason)
			continue
		}
		jobsFetched++
		cmd.Printf("✓ %s: %d downloaded, %d exist, %d too large, %d failed\n",
			report.Key,
			report.Downloaded(),
			report.Count(fetch.OutcomeSkippedExists),
			report.Count(fetch.OutcomeSkippedTooLarge),
			report.Count(fetch.OutcomeFailed))

		downloaded += report.Downloaded()
		skippedExists += report.Count(fetch.OutcomeSkippedExists)
		skippedTooLarge += report.Count(fetch.OutcomeSkippedTooLarge)
		failed += report.Count(fetch.OutcomeFailed)
	}

	cmd.Println("\nFetch summary")
	cmd.Println("──────────────────────────────")
	cmd.Printf("Jobs fetched:       %d\n", jobsFetched)
	cmd.Printf("Jobs skipped:       %d\n", jobsSkipped)
	cmd.Printf("Files downloaded:   %d\n", downloaded)
	cmd.Printf("Skipped (exists):   %d\n", skippedExists)
	cmd.Printf("Skipped (size):     %d\n", skippedTooLarge)
	cmd.Printf("Failed:             %d\n", failed)
	cmd.Printf("Download root:      %s\n", out)
}

func init() {
	flags := fetchCmd.Flags()
	flags.String("job-id", "", "single computation ID to download results from")
	flags.String("jobs-file", "", "path to a jobs file with computations to download")
	flags.Float64("max-size-mb", 50, "maximum file size in MB to download (0 = no limit)")
	flags.Bool("force", false, "download files even if they already exist locally")
	flags.String("out", "", "download root directory")
	viper.BindPFlag("out", flags.Lookup("out"))

	fetchCmd.MarkFlagsMutuallyExclusive("job-id", "jobs-file")
	fetchCmd.MarkFlagsOneRequired("job-id", "jobs-file")

	rootCmd.AddCommand(fetchCmd)
}
