package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"capsulectl/internal/codeocean"
	"capsulectl/internal/config"
	"capsulectl/internal/jobs"
	"capsulectl/internal/sweep"
	"capsulectl/pkg/api"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit one computation per sweep combination",
	Long: `Expand a sweep definition into parameter combinations and submit one
capsule computation for each. The returned computation IDs are appended to
the jobs file; a record with the same parameters as an earlier submission
replaces it.

A combination whose submission fails is reported and the rest of the batch
continues.

Example:
  capsulectl submit --sweep sweep.json
  capsulectl submit --sweep sweep.json --jobs-file runs/jobs.json --output-prefix /results/npe`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		sweepPath, _ := flags.GetString("sweep")
		jobsFile, _ := flags.GetString("jobs-file")
		outputPrefix, _ := flags.GetString("output-prefix")

		cfg, err := config.Load()
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			return
		}

		def, err := sweep.Load(sweepPath)
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			return
		}
		if outputPrefix == "" {
			outputPrefix = def.OutputPrefix
		}

		combos, err := def.Expand()
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			return
		}

		ledger, err := jobs.LoadOrInit(jobsFile)
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			return
		}

		client := codeocean.NewClient(cfg.Domain, cfg.Token)
		ctx := cmd.Context()

		capsule, err := client.GetCapsule(ctx, def.CapsuleID)
		if err != nil {
			cmd.Printf("Error: capsule %s not reachable: %v\n", def.CapsuleID, err)
			return
		}
		cmd.Printf("Capsule: %s (%s)\n", capsule.Name, capsule.ID)
		cmd.Printf("Submitting %d combination(s)...\n", len(combos))

		submitted := 0
		for _, combo := range combos {
			req := api.RunCapsuleRequest{
				CapsuleID:       def.CapsuleID,
				NamedParameters: combo.NamedParams(outputPrefix),
			}

			comp, err := client.RunCapsule(ctx, req)
			if err != nil {
				if apiErr, ok := err.(*codeocean.APIError); ok {
					cmd.Printf("✗ %s: submission failed (%d): %s\n", combo.Key, apiErr.StatusCode, apiErr.Message)
				} else {
					cmd.Printf("✗ %s: submission failed: %v\n", combo.Key, err)
				}
				continue
			}

			ledger.Append(jobs.Record{
				Key:           combo.Key,
				ComputationID: comp.ID,
				Parameters:    combo.Params,
				SubmittedAt:   time.Now().UTC(),
			})
			submitted++
			cmd.Printf("✓ %s -> %s\n", combo.Key, comp.ID)
		}

		if submitted > 0 {
			if err := ledger.Save(jobsFile); err != nil {
				cmd.Printf("Error: %v\n", err)
				return
			}
		}

		cmd.Printf("\nSubmitted %d/%d job(s). Jobs file: %s\n", submitted, len(combos), jobsFile)
	},
}

func init() {
	flags := submitCmd.Flags()
	flags.StringP("sweep", "s", "", "path to the sweep definition file (required)")
	flags.String("jobs-file", "jobs.json", "path of the jobs file to append records to")
	flags.String("output-prefix", "", "remote directory prefix for per-run outputs (overrides the sweep file)")
	submitCmd.MarkFlagRequired("sweep")

	rootCmd.AddCommand(submitCmd)
}
