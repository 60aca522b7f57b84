package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stockroomapp/stockroom-server/internal/domain"
	"github.com/stockroomapp/stockroom-server/internal/service"
)

var (
	bold  = color.New(color.Bold)
	cyan  = color.New(color.FgCyan)
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
	dim   = color.New(color.Faint)
)

var workspacesCmd = &cobra.Command{
	Use:   "workspaces",
	Short: "List workspaces with row and tombstone counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := cmd.Context()
		workspaces, err := st.Workspaces(ctx)
		if err != nil {
			return err
		}
		if len(workspaces) == 0 {
			dim.Println("No workspaces")
			return nil
		}

		bold.Printf("%-40s %8s %10s\n", "WORKSPACE", "ROWS", "TOMBSTONES")
		for _, ws := range workspaces {
			stats, err := st.Stats(ctx, ws)
			if err != nil {
				return err
			}
			total := 0
			for _, n := range stats.Rows {
				total += n
			}
			fmt.Printf("%-40s %8d %10d\n", ws, total, stats.Tombstones)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats <workspace>",
	Short: "Show per-kind row counts for a workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.Stats(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		bold.Printf("=== Workspace %s ===\n\n", args[0])
		for _, kind := range stats.SortedKinds() {
			fmt.Printf("  %-12s %d\n", kind.CollectionName(), stats.Rows[kind])
		}
		fmt.Println()
		red.Printf("  %-12s %d\n", "tombstones", stats.Tombstones)

		sess, err := st.BeginRead(cmd.Context())
		if err != nil {
			return err
		}
		defer sess.Rollback()

		watermark, err := sess.Tombstones().PruneWatermark(cmd.Context())
		if err != nil {
			return err
		}
		if watermark != nil {
			dim.Printf("  pruned through %s\n", watermark.Format(time.RFC3339))
		}
		return nil
	},
}

var (
	deltaSince string
	deltaKinds string
	deltaLimit int
	deltaJSON  bool
)

var deltaCmd = &cobra.Command{
	Use:   "delta <workspace>",
	Short: "Preview the delta a client would pull",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var since *time.Time
		if deltaSince != "" {
			t, err := time.Parse(time.RFC3339Nano, deltaSince)
			if err != nil {
				return fmt.Errorf("invalid --since: %w", err)
			}
			since = &t
		}

		var names []string
		for part := range strings.SplitSeq(deltaKinds, ",") {
			if part = strings.TrimSpace(part); part != "" {
				names = append(names, part)
			}
		}
		kinds, err := domain.ParseEntityKinds(names)
		if err != nil {
			return err
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		svc := service.NewDeltaService(st, service.SyncOptions{}, quietLogger())
		delta, err := svc.GetDelta(cmd.Context(), domain.DeltaQuery{
			ModifiedSince: since,
			WorkspaceID:   args[0],
			Kinds:         kinds,
			Limit:         deltaLimit,
		})
		if err != nil {
			return err
		}

		if deltaJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(delta)
		}

		printDelta(delta)
		return nil
	},
}

func init() {
	deltaCmd.Flags().StringVar(&deltaSince, "since", "", "modified_since cursor (RFC3339)")
	deltaCmd.Flags().StringVar(&deltaKinds, "kinds", "", "Comma-separated kinds (default: all)")
	deltaCmd.Flags().IntVar(&deltaLimit, "limit", 0, "Rows per kind (default: server default)")
	deltaCmd.Flags().BoolVar(&deltaJSON, "json", false, "Print the raw delta as JSON")
}

func printDelta(d *domain.Delta) {
	bold.Printf("server_time  %s\n", d.Metadata.ServerTime.Format(time.RFC3339Nano))
	if d.Metadata.HasMore {
		cyan.Printf("has_more     next_cursor=%s\n", d.Metadata.NextCursor.Format(time.RFC3339Nano))
	}
	if d.Metadata.ResyncRequired {
		red.Println("resync_required")
	}
	fmt.Println()

	for _, kind := range d.Kinds {
		rows := d.Collections[kind]
		bold.Printf("%s (%d)\n", kind.CollectionName(), len(rows))
		for _, row := range rows {
			sync := row.Sync()
			green.Printf("  %s", sync.ID)
			dim.Printf("  v%d  %s\n", sync.Version, sync.ModifiedAt.Format(time.RFC3339Nano))
		}
	}

	if len(d.Deleted) > 0 {
		fmt.Println()
		bold.Printf("deleted (%d)\n", len(d.Deleted))
		for _, ref := range d.Deleted {
			red.Printf("  %-10s %s", ref.EntityKind, ref.EntityID)
			dim.Printf("  %s\n", ref.DeletedAt.Format(time.RFC3339Nano))
		}
	}
}
