package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zatekoja/coachpackets/internal/app"
	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/infrastructure/observability"
	"github.com/zatekoja/coachpackets/pkg/config"
)

// withApp loads configuration, wires the service and runs fn against it
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	observability.InitLogger("packetctl", cfg.Environment, cfg.LogLevel)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func failedCmd() *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "failed",
		Short: "List packets that need operator attention",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				packets, err := a.Services.Admin.ListFailed(ctx, limit)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), packets)
				}
				printPackets(cmd.OutOrStdout(), packets)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum packets to list")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")
	return cmd
}

func retryCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "retry [packet-id]",
		Short: "Queue a packet for immediate generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				packet, err := a.Services.Admin.RetryNow(ctx, args[0], reset)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Packet %s queued (status %s, attempts %d)\n", packet.ID, packet.Status, packet.RetryCount)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Reset the retry counter")
	return cmd
}

func regenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate [packet-id]",
		Short: "Generate a fresh version of a packet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				packet, err := a.Services.Admin.Regenerate(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Packet %s queued for regeneration\n", packet.ID)
				return nil
			})
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [packet-id]",
		Short: "Show the audit trail of a packet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				entries, err := a.Services.Admin.History(ctx, args[0], limit)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tACTION\tDETAILS")
				for _, e := range entries {
					details, _ := json.Marshal(e.Details)
					fmt.Fprintf(w, "%s\t%s\t%s\n", e.CreatedAt.Format(time.RFC3339), e.Action, details)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum entries to show")
	return cmd
}

func pollOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poll-once",
		Short: "Run a single queue cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				claimed, err := a.Services.Queue.RunCycle(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Processed %d packet(s)\n", claimed)
				return nil
			})
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Migrate(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
				return nil
			})
		},
	}
}

func printPackets(out io.Writer, packets []*entities.Packet) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCLIENT\tTYPE\tSTATUS\tATTEMPTS\tERROR")
	for _, p := range packets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", p.ID, p.ClientID, p.DocumentType, p.Status, p.RetryCount, lastError(p))
	}
	w.Flush()
	if len(packets) == 0 {
		fmt.Fprintln(out, "No failed packets")
	}
}

func lastError(p *entities.Packet) string {
	if p.LastError == nil {
		return "-"
	}
	return *p.LastError
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
