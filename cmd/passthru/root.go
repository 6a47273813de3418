package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootLogLevel string

var rootCmd = &cobra.Command{
	Use:   "passthru",
	Short: "Native-API passthrough gateway for LLM vendors",
	Long: "passthru forwards client requests to a vendor's native API, " +
		"preserving client credentials and filling in gateway keys only where the client sent none.",
	SilenceUsage: true,
}

func init() {
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	rootCmd.AddCommand(newServeCmd(), newResolveCmd(), newVersionCmd())
}

// setupLogging configures the global zerolog logger.
func setupLogging(level string, jsonLogs bool) {
	if jsonLogs {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "passthru "+version)
		},
	}
}
