package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hupe1980/tilestore"
	"github.com/hupe1980/tilestore/filter"
	"github.com/hupe1980/tilestore/fragment"
)

type fragmentSummary struct {
	ID        string    `json:"id"`
	Current   bool      `json:"current"`
	CreatedAt time.Time `json:"created_at"`
	Tiles     int       `json:"tiles"`
	Bytes     uint64    `json:"bytes"`
}

// currentID returns the committed fragment id, or "" when nothing was
// committed yet.
func currentID(cmd *cobra.Command, st *tilestore.Store) (string, error) {
	id, err := st.Fragments().Current(cmd.Context())
	if errors.Is(err, fragment.ErrNotFound) {
		return "", nil
	}
	return id, err
}

func newCurrentCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Print the current fragment id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			st, err := g.openStore(cmd)
			if err != nil {
				return err
			}
			defer closeStore(st, &err)

			id, err := currentID(cmd, st)
			if err != nil {
				return err
			}
			if id == "" {
				return errors.New("no committed fragment")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}
}

func newListCommand(g *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List fragments, oldest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			st, err := g.openStore(cmd)
			if err != nil {
				return err
			}
			defer closeStore(st, &err)

			cur, err := currentID(cmd, st)
			if err != nil {
				return err
			}
			ids, err := st.Fragments().List(cmd.Context())
			if err != nil {
				return err
			}

			summaries := make([]fragmentSummary, 0, len(ids))
			for _, id := range ids {
				r, err := st.Fragments().OpenFragment(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("fragment %s: %w", id, err)
				}
				m := r.Metadata()
				summaries = append(summaries, fragmentSummary{
					ID:        id,
					Current:   id == cur,
					CreatedAt: m.CreatedAt,
					Tiles:     len(m.Tiles),
					Bytes:     m.TotalSize,
				})
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := gojson.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summaries)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "\tID\tCREATED\tTILES\tBYTES")
			for _, s := range summaries {
				mark := ""
				if s.Current {
					mark = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", mark, s.ID, s.CreatedAt.Format(time.RFC3339), s.Tiles, s.Bytes)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func newInfoCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info [fragment]",
		Short: "Show the filter pipeline and tile index of a fragment",
		Long:  "Show the filter pipeline and tile index of a fragment. Without an argument the current fragment is shown.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			st, err := g.openStore(cmd)
			if err != nil {
				return err
			}
			defer closeStore(st, &err)

			cur, err := currentID(cmd, st)
			if err != nil {
				return err
			}
			id := cur
			if len(args) == 1 {
				id = args[0]
			}
			if id == "" {
				return errors.New("no committed fragment")
			}

			r, err := st.Fragments().OpenFragment(cmd.Context(), id)
			if err != nil {
				return err
			}
			m := r.Metadata()

			types, err := filter.DescriptorTypes(m.Pipeline)
			if err != nil {
				return fmt.Errorf("fragment %s: %w", id, err)
			}
			names := make([]string, len(types))
			for i, t := range types {
				names[i] = t.String()
			}
			pipeline := strings.Join(names, ",")
			if pipeline == "" {
				pipeline = "none"
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "id:\t%s\n", m.ID)
			fmt.Fprintf(tw, "current:\t%t\n", id == cur)
			fmt.Fprintf(tw, "created:\t%s\n", m.CreatedAt.Format(time.RFC3339Nano))
			fmt.Fprintf(tw, "pipeline:\t%s\n", pipeline)
			fmt.Fprintf(tw, "tiles:\t%d\n", len(m.Tiles))
			fmt.Fprintf(tw, "bytes:\t%d\n", m.TotalSize)
			if err := tw.Flush(); err != nil {
				return err
			}
			if len(m.Tiles) == 0 {
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout())
			tw = tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "TILE\tOFFSET\tRECORD\tSIZE\t")
			for _, ti := range m.Tiles {
				fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t\n", ti.ID, ti.Offset, ti.RecordSize, ti.TileSize)
			}
			return tw.Flush()
		},
	}
}

func newCatCommand(g *globalFlags) *cobra.Command {
	var fragID string
	cmd := &cobra.Command{
		Use:   "cat <tile>",
		Short: "Write the unfiltered bytes of a tile to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("tile id %q: %w", args[0], err)
			}

			st, err := g.openStore(cmd)
			if err != nil {
				return err
			}
			defer closeStore(st, &err)

			var r *fragment.Reader
			if fragID == "" {
				r, err = st.OpenFragment(cmd.Context())
			} else {
				r, err = st.Fragments().OpenFragment(cmd.Context(), fragID)
			}
			if err != nil {
				return err
			}

			t, err := r.ReadTile(cmd.Context(), uint32(id))
			if err != nil {
				return err
			}
			defer t.Release()

			_, err = cmd.OutOrStdout().Write(t.Buffer().Data())
			return err
		},
	}
	cmd.Flags().StringVarP(&fragID, "fragment", "f", "", "fragment to read instead of the current one")
	return cmd
}

func newGCCommand(g *globalFlags) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "gc",
		Short: "Delete every fragment except the current one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			st, err := g.openStore(cmd)
			if err != nil {
				return err
			}
			defer closeStore(st, &err)

			cur, err := currentID(cmd, st)
			if err != nil {
				return err
			}
			if cur == "" {
				return errors.New("no committed fragment, refusing to collect")
			}
			ids, err := st.Fragments().List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, id := range ids {
				if id == cur {
					continue
				}
				if dryRun {
					fmt.Fprintln(out, "would delete", id)
					continue
				}
				if err := st.DeleteFragment(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintln(out, "deleted", id)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "only print what would be deleted")
	return cmd
}
