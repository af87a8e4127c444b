package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "capsulectl",
	Short: "capsulectl submits capsule computations to Code Ocean and fetches their results",
	Long: `capsulectl is a command-line tool for running parameter sweeps on a
Code Ocean deployment and collecting the output files.

A sweep definition file names a capsule and the parameter combinations to
run. Each combination becomes one computation on the platform; the returned
computation IDs are recorded in a local jobs file that the other commands
read.

Common workflows:

  Submit a sweep:
    capsulectl submit --sweep sweep.json

  Watch all submitted computations until they finish:
    capsulectl watch

  Check a single computation:
    capsulectl status <computation-id>

  Download results, skipping files over 50 MB and files already on disk:
    capsulectl fetch --jobs-file jobs.json

Configuration:
  Set the platform endpoint and credentials via flags, environment
  variables, or a config file:
    CODEOCEAN_DOMAIN      Platform base URL
    CODEOCEAN_TOKEN       API token for authentication`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".capsulectl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".capsulectl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "CODEOCEAN_VARNAME"
	viper.SetEnvPrefix("CODEOCEAN")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.capsulectl.yaml)")

	rootCmd.PersistentFlags().String("domain", "https://codeocean.allenneuraldynamics.org", "Code Ocean deployment URL")
	viper.BindPFlag("domain", rootCmd.PersistentFlags().Lookup("domain"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "API token for authentication")
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))

	rootCmd.PersistentFlags().String("token-file", "", "file to read the API token from when --token is not set")
	viper.BindPFlag("token-file", rootCmd.PersistentFlags().Lookup("token-file"))
}
