package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "weblogd",
	Short: "HTTP daemon with structured, rotating request logs",
	Long: `weblogd serves a small JSON API behind a request-correlation
middleware. Every request is written as one structured record to a
dedicated, rotating request log; application records go to a separate
rotating log.`,
	SilenceUsage: true,
}

var (
	cfgFile    string
	workingDir string
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.toml)")
	rootCmd.PersistentFlags().StringVarP(&workingDir, "dir", "d", ".", "working directory log paths are relative to")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
