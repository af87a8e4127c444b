package cmd

import (
	"context"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"capsulectl/internal/codeocean"
	"capsulectl/internal/config"
	"capsulectl/internal/jobs"
	"capsulectl/pkg/api"
)

// States that end a computation's lifecycle. Status-query errors also
// count as terminal here so one bad record cannot stall the watch.
var terminalStates = map[string]bool{
	api.StateCompleted: true,
	api.StateFailed:    true,
	api.StateStopped:   true,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll all submitted computations until they finish",
	Long: `Read the jobs file and poll every computation's state on an interval,
printing state changes as they happen. The watch ends when every
computation has reached a terminal state (completed, failed or stopped),
then prints a per-state summary. Ctrl-C stops the watch early.`,
	Run: func(cmd *cobra.Command, args []string) {
		jobsFile, _ := cmd.Flags().GetString("jobs-file")

		cfg, err := config.Load()
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			return
		}

		ledger, err := jobs.Load(jobsFile)
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			return
		}
		if len(ledger.Jobs) == 0 {
			cmd.Printf("No jobs found in %s\n", jobsFile)
			return
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		go func() {
			<-sigChan
			cancel()
		}()

		client := codeocean.NewClient(cfg.Domain, cfg.Token)
		interval := cfg.PollInterval

		cmd.Printf("Watching %d job(s), polling every %s\n", len(ledger.Jobs), interval)

		lastStates := make(map[string]string, len(ledger.Jobs))
		for {
			allDone := true
			cmd.Printf("\n[%s] Status update:\n", time.Now().Format("2006-01-02 15:04:05"))

			for _, rec := range ledger.Jobs {
				state := queryState(ctx, client, rec.ComputationID)

				change := ""
				if old, ok := lastStates[rec.Key]; ok && old != state {
					change = " (was: " + old + ")"
				}
				lastStates[rec.Key] = state
				cmd.Printf("  %-40s %s%s\n", rec.Key, colorizeState(state), change)

				if state != stateQueryError && !terminalStates[state] {
					allDone = false
				}
			}

			if allDone {
				break
			}

			select {
			case <-ctx.Done():
				cmd.Println("\nWatch cancelled.")
				printStateSummary(cmd, lastStates)
				return
			case <-time.After(interval):
			}
		}

		cmd.Println("\nAll jobs finished.")
		printStateSummary(cmd, lastStates)
	},
}

const stateQueryError = "error"

func queryState(ctx context.Context, client *codeocean.Client, computationID string) string {
	comp, err := client.GetComputation(ctx, computationID)
	if err != nil {
		return stateQueryError
	}
	return comp.State
}

func printStateSummary(cmd *cobra.Command, states map[string]string) {
	counts := make(map[string]int)
	for _, state := range states {
		counts[state]++
	}

	keys := make([]string, 0, len(counts))
	for state := range counts {
		keys = append(keys, state)
	}
	sort.Strings(keys)

	cmd.Println("\nState summary:")
	for _, state := range keys {
		cmd.Printf("  %-15s: %d\n", state, counts[state])
	}
}

func init() {
	watchCmd.Flags().String("jobs-file", "jobs.json", "path of the jobs file to watch")
	watchCmd.Flags().Duration("interval", 10*time.Second, "time between status polls")
	viper.BindPFlag("interval", watchCmd.Flags().Lookup("interval"))

	rootCmd.AddCommand(watchCmd)
}
