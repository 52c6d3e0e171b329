package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// newRootCmd builds the CLI against the process-wide Prometheus registry.
func newRootCmd() *cobra.Command {
	return newRootCmdWith(prometheus.DefaultRegisterer)
}

func newRootCmdWith(reg prometheus.Registerer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hoarder",
		Short: "Sweeps experience codes against a lookup service.",
		Long: `hoarder walks a descending range of experience codes, asks the lookup
service whether each one resolves to a resource, and reports every answer
as soon as it arrives.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadEnvFile(cmd)
		},
	}

	cmd.PersistentFlags().String("config", "", "path to a YAML config file")
	cmd.PersistentFlags().String("env-file", ".env", "dotenv file with HOARDER_* overrides (skipped if missing)")

	cmd.AddCommand(newSweepCmd(reg))
	cmd.AddCommand(newCodeCmd())
	return cmd
}

// loadEnvFile exports the variables of --env-file into the process
// environment. Variables already set win. A missing default file is not an
// error; a missing file named explicitly is.
func loadEnvFile(cmd *cobra.Command) error {
	path, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return fmt.Errorf("read env-file flag: %w", err)
	}
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("env-file") {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
