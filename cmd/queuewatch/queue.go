package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/teralabs/queuewatch/internal/client"
	"github.com/teralabs/queuewatch/internal/queue"
	"github.com/teralabs/queuewatch/internal/render"
)

func queueCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Print the current queue snapshot",
		Long: `Fetch the live queue snapshot for one game server and print it
as a table.

Examples:
  # Snapshot for the configured default server
  queuewatch queue

  # Snapshot for a specific server
  queuewatch queue --server Kaiator`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := cfg.Server
			if server != "" {
				target = server
			}

			qc := client.New(cfg.API.BaseURL, target, cfg.API.Timeout(), logger)
			snap, err := qc.FetchSnapshot(cmd.Context())
			if err != nil {
				return err
			}

			printSnapshot(os.Stdout, target, snap)
			return nil
		},
	}

	cmd.Flags().StringVarP(&server, "server", "s", "", "override the configured server name")
	return cmd
}

func printSnapshot(w io.Writer, server string, snap render.Snapshot) {
	fmt.Fprintf(w, "Queue snapshot for %s (updated %s)\n\n", server, snap.LastUpdated.Local().Format("15:04:05"))
	printKind(w, "Dungeons", snap.Dungeons)
	fmt.Fprintln(w)
	printKind(w, "Battlegrounds", snap.Battlegrounds)
}

func printKind(w io.Writer, title string, rows []queue.Row) {
	total := 0
	for _, row := range rows {
		total += row.Queued
	}
	fmt.Fprintf(w, "%s (total %d)\n", title, total)

	if len(rows) == 0 {
		fmt.Fprintln(w, "  no data")
		return
	}
	for _, row := range rows {
		for _, id := range row.Instances {
			fmt.Fprintf(w, "  %-10s %5d queued\n", id, row.Queued)
		}
	}
}
