package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wolfman30/concierge-dialer/internal/intent"
	"github.com/wolfman30/concierge-dialer/internal/naturaldate"
	"github.com/wolfman30/concierge-dialer/internal/phone"
	"github.com/wolfman30/concierge-dialer/internal/slots"
)

func newParseCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Run the slot parsers against free text",
	}

	var timezone string
	dateCmd := &cobra.Command{
		Use:   "date <text>",
		Short: "Resolve a date expression to YYYY-MM-DD",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if timezone == "" {
				timezone = opts.cfg.ReferenceTimezone
			}
			p, err := naturaldate.NewParser(timezone)
			if err != nil {
				return err
			}
			date := p.ParseDate(strings.Join(args, " "), "")
			if date == "" {
				return errors.New("no date found")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", date, naturaldate.PrettyDate(date))
			return nil
		},
	}
	dateCmd.Flags().StringVar(&timezone, "tz", "", "reference timezone (defaults to REFERENCE_TIMEZONE)")

	timeCmd := &cobra.Command{
		Use:   "time <text>",
		Short: "Resolve a time or time range to HH:mm",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if start, end, ok := naturaldate.ParseTimeRange(text); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s-%s (%s)\n", start, end, naturaldate.PrettyRange(start, end))
				return nil
			}
			start := naturaldate.To24h(text)
			if start == "" {
				return errors.New("no time found")
			}
			end := slots.DefaultEnd(start)
			fmt.Fprintf(cmd.OutOrStdout(), "%s-%s (%s)\n", start, end, naturaldate.PrettyRange(start, end))
			return nil
		},
	}

	phoneCmd := &cobra.Command{
		Use:   "phone <text>",
		Short: "Extract a phone number as E.164 and say whose it is",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			number := phone.Extract(text)
			if number == "" {
				return errors.New("no phone number found")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", number, phone.Assign(text, false, false))
			return nil
		},
	}

	intentCmd := &cobra.Command{
		Use:   "intent <text>",
		Short: "Classify an utterance as discovery or booking",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := intent.Classify(strings.Join(args, " "), slots.ModeDiscovery)
			fmt.Fprintf(cmd.OutOrStdout(), "mode=%s destination_phone_intent=%t\n", res.Mode, res.DestinationPhoneIntent)
			return nil
		},
	}

	cmd.AddCommand(dateCmd, timeCmd, phoneCmd, intentCmd)
	return cmd
}
