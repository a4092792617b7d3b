package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"printdrop/internal/config"
	"printdrop/internal/history"
)

func newHistoryCommand(configFlag *string) *cobra.Command {
	var limit int
	var failedOnly bool

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent processing records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := config.Load(*configFlag)
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limit, failedOnly)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No history entries.")
				return nil
			}

			writer := table.NewWriter()
			writer.SetOutputMirror(os.Stdout)
			if isatty.IsTerminal(os.Stdout.Fd()) {
				writer.SetStyle(table.StyleLight)
			}
			writer.AppendHeader(table.Row{"Finished", "File", "Outcome", "Printed", "Destination", "Error"})
			for _, entry := range entries {
				printed := ""
				if entry.Printed {
					printed = "yes"
				}
				writer.AppendRow(table.Row{
					entry.FinishedAt.Local().Format(time.DateTime),
					filepath.Base(entry.Path),
					entry.Outcome,
					printed,
					entry.Destination,
					entry.Error,
				})
			}
			writer.Render()
			return nil
		},
	}

	historyCmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of entries to list")
	historyCmd.Flags().BoolVar(&failedOnly, "failed", false, "Only list failed entries")
	return historyCmd
}
