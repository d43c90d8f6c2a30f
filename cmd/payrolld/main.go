// Command payrolld serves the payroll pipeline over HTTP, fires the
// monthly schedules and runs maintenance tasks.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "payrolld",
		Short:         "Idempotent payroll generation and dispatch",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	load := func() (*Config, error) { return LoadConfig(configPath) }

	root.AddCommand(serveCmd(load))
	root.AddCommand(runCmd(load))
	root.AddCommand(execCmd(load))
	root.AddCommand(cleanupCmd(load))
	root.AddCommand(migrateCmd(load))
	return root
}
