package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "circuit-gate",
		Short: "Rule-driven circuit breaker in front of an HTTP API",
		Long: `circuit-gate proxies requests to an upstream API and stops forwarding
while a rule's failure threshold has been crossed, answering with the
rule's configured status code until the breaker interval elapses.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default ./config/config.yaml or ./config.yaml)")
	rootCmd.AddCommand(newServeCmd(), newRulesCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", slog.Any("err", err))
		os.Exit(1)
	}
}
