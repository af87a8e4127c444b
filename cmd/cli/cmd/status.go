package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"capsulectl/internal/codeocean"
	"capsulectl/internal/config"
	"capsulectl/pkg/api"
)

var statusCmd = &cobra.Command{
	Use:   "status [computation_id]",
	Short: "Get status of a computation",
	Long:  `Retrieve the current state of a single computation (initializing, running, completed, failed, stopped) and whether its result files are available for download.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		computationID := args[0]

		cfg, err := config.Load()
		if err != nil {
			cmd.Printf("Error: %v\n", err)
			return
		}

		client := codeocean.NewClient(cfg.Domain, cfg.Token)
		comp, err := client.GetComputation(cmd.Context(), computationID)
		if err != nil {
			if apiErr, ok := err.(*codeocean.APIError); ok {
				cmd.Printf("Request failed with status code: %d\n", apiErr.StatusCode)
			} else {
				cmd.Printf("Request failed: %v\n", err)
			}
			return
		}

		printComputation(cmd, comp)
	},
}

func printComputation(cmd *cobra.Command, comp *api.Computation) {
	icon := stateIcon(comp.State)
	cmd.Printf("%s %sComputation Details%s\n", icon, colorBold, colorReset)
	cmd.Println("──────────────────────────────")

	cmd.Printf("%sID:%s           %s\n", colorDim, colorReset, comp.ID)
	if comp.Name != "" {
		cmd.Printf("%sName:%s         %s\n", colorDim, colorReset, comp.Name)
	}
	cmd.Printf("%sState:%s        %s\n", colorDim, colorReset, colorizeState(comp.State))

	if comp.HasResults {
		cmd.Printf("%sHas Results:%s  %syes%s\n", colorDim, colorReset, colorGreen, colorReset)
	} else {
		cmd.Printf("%sHas Results:%s  no\n", colorDim, colorReset)
	}

	if comp.Created > 0 {
		created := time.Unix(comp.Created, 0)
		cmd.Printf("%sCreated:%s      %s\n", colorDim, colorReset, formatTimeWithRelative(created))
	}
	if comp.RunTime > 0 {
		cmd.Printf("%sRun Time:%s     %s\n", colorDim, colorReset, formatDuration(time.Duration(comp.RunTime)*time.Second))
	}
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func stateIcon(state string) string {
	switch state {
	case api.StateCompleted:
		return colorGreen + "✓" + colorReset
	case api.StateFailed, api.StateStopped:
		return colorRed + "✗" + colorReset
	case api.StateRunning, api.StateFinalizing:
		return colorYellow + "⏳" + colorReset
	case api.StateInitializing, api.StatePending:
		return colorCyan + "◯" + colorReset
	default:
		return "•"
	}
}

func colorizeState(state string) string {
	icon := stateIcon(state)
	switch state {
	case api.StateCompleted:
		return icon + " " + colorGreen + state + colorReset
	case api.StateFailed, api.StateStopped:
		return icon + " " + colorRed + state + colorReset
	case api.StateRunning, api.StateFinalizing:
		return icon + " " + colorYellow + state + colorReset
	case api.StateInitializing, api.StatePending:
		return icon + " " + colorCyan + state + colorReset
	default:
		return state
	}
}

func formatTimeWithRelative(t time.Time) string {
	relative := relativeTime(t)
	return fmt.Sprintf("%s %s(%s ago)%s", t.Format("Mon, 02 Jan 2006 15:04:05 MST"), colorDim, relative, colorReset)
}

func relativeTime(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	} else if duration < time.Hour {
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		return fmt.Sprintf("%dh", int(duration.Hours()))
	} else {
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
