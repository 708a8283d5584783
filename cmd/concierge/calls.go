package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/wolfman30/concierge-dialer/internal/calls"
)

func newCallsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calls",
		Short: "Inspect the call log",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent call attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(opts.cfg.DatabaseURL) == "" {
				return errors.New("DATABASE_URL is required")
			}
			pool, err := pgxpool.New(cmd.Context(), opts.cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			records, err := calls.NewPGStore(pool).ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printCalls(cmd, records)
		},
	}
	list.Flags().IntVar(&limit, "limit", calls.DefaultListLimit, "number of calls to show (max 100)")

	cmd.AddCommand(list)
	return cmd
}

func printCalls(cmd *cobra.Command, records []calls.Record) error {
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no calls yet")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tSTATUS\tRESTAURANT\tPHONE\tPARTY\tWHEN\tID")
	for _, r := range records {
		when := strings.TrimSpace(r.ReservationDate + " " + r.WindowStart)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Status, r.TargetName, r.TargetPhone, r.PartySize, when, r.ID)
	}
	return tw.Flush()
}
