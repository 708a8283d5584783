package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wolfman30/concierge-dialer/internal/brain"
	"github.com/wolfman30/concierge-dialer/internal/calls"
	"github.com/wolfman30/concierge-dialer/internal/conversation"
	"github.com/wolfman30/concierge-dialer/internal/naturaldate"
	"github.com/wolfman30/concierge-dialer/internal/places"
	"github.com/wolfman30/concierge-dialer/internal/slots"
)

// printPlacer writes the call request instead of dialing.
type printPlacer struct {
	w io.Writer
}

func (p printPlacer) Place(_ context.Context, req calls.Request) (calls.PlaceResult, error) {
	raw, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return calls.PlaceResult{}, err
	}
	fmt.Fprintf(p.w, "[dry-run] would place call:\n%s\n", raw)
	return calls.PlaceResult{CallID: "dry-run-" + req.RequestID}, nil
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the concierge in the terminal",
		Long:  "Runs an in-memory conversation against BRAIN_URL. Type exit to quit.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, opts, dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print call requests instead of dialing")
	return cmd
}

func runChat(cmd *cobra.Command, opts *rootOptions, dryRun bool) error {
	cfg := opts.cfg
	logger := opts.logger(cmd)
	out := cmd.OutOrStdout()

	if strings.TrimSpace(cfg.BrainURL) == "" {
		return errors.New("BRAIN_URL is required")
	}
	dates, err := naturaldate.NewParser(cfg.ReferenceTimezone)
	if err != nil {
		return err
	}
	directory, err := places.LoadDirectory(cfg.KnownBusinessesFile)
	if err != nil {
		return err
	}
	resolver := places.NewResolver(directory, nil, logger)

	var placer calls.Placer = printPlacer{w: out}
	if !dryRun {
		client, err := calls.NewClient(calls.ClientConfig{
			URL:      cfg.CallNowURL,
			APIKey:   cfg.CallNowAPIKey,
			DevToken: cfg.CallDevToken,
			Logger:   logger,
		})
		if err != nil {
			return fmt.Errorf("call client (use --dry-run to skip dialing): %w", err)
		}
		placer = client
	}

	orch := conversation.NewOrchestrator(
		brain.NewClient(cfg.BrainURL,
			brain.WithAPIKey(cfg.BrainAPIKey),
			brain.WithModel(cfg.BrainModel),
			brain.WithTimeout(cfg.BrainTimeout),
			brain.WithLogger(logger),
		),
		conversation.Config{
			Normalizer: slots.NewNormalizer(dates),
			Dispatcher: calls.NewDispatcher(placer,
				calls.WithFinder(resolver),
				calls.WithDates(dates),
				calls.WithSource(cfg.CallSource),
				calls.WithLogger(logger),
			),
			Resolver:      resolver,
			Logger:        logger,
			MaxToolRounds: cfg.MaxToolRounds,
			TurnTimeout:   cfg.TurnTimeout,
		},
	)
	manager := conversation.NewManager(orch, nil, logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	conv, err := manager.Create(ctx)
	if err != nil {
		return err
	}
	return repl(ctx, cmd.InOrStdin(), out, conv)
}

func repl(ctx context.Context, in io.Reader, out io.Writer, conv *conversation.Conversation) error {
	fmt.Fprintln(out, "Where would you like to eat? (type exit to quit)")
	scanner := bufio.NewScanner(in)
	seen := 0
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		start := time.Now()
		snap, err := conv.Send(ctx, line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		for _, m := range snap.Messages[seen:] {
			if m.Role == brain.RoleAssistant {
				fmt.Fprintln(out, m.Content)
			}
		}
		seen = len(snap.Messages)
		if snap.State == conversation.StateCallDispatched {
			fmt.Fprintf(out, "[call dispatched in %s]\n", time.Since(start).Round(time.Millisecond))
		}
	}
}
