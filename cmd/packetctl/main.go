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
	root := &cobra.Command{
		Use:           "packetctl",
		Short:         "Operate the coaching packet pipeline",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(failedCmd())
	root.AddCommand(retryCmd())
	root.AddCommand(regenerateCmd())
	root.AddCommand(historyCmd())
	root.AddCommand(pollOnceCmd())
	root.AddCommand(migrateCmd())
	return root
}
