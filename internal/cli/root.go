package cli

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "scheduleflow",
	Short: "AI-assisted scheduling and suggestion backend",
	Long:  "ScheduleFlow ingests activity events, nudges users with AI-generated suggestions, and answers AI-assisted scheduling, task and email requests.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
