package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is stamped by the build.
var version = "dev"

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "printdrop",
		Short:         "Watch a directory, archive matching files, and print them",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newDaemonCommand(&configFlag))
	rootCmd.AddCommand(newConfigCommand(&configFlag))
	rootCmd.AddCommand(newHistoryCommand(&configFlag))
	rootCmd.AddCommand(newTestNotifyCommand(&configFlag))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the printdrop version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("printdrop %s\n", version)
		},
	})

	return rootCmd
}
