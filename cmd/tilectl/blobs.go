package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/tilestore"
	"github.com/hupe1980/tilestore/filter"
)

func newPutCommand(g *globalFlags) *cobra.Command {
	var filters string
	cmd := &cobra.Command{
		Use:   "put <name> [file]",
		Short: "Store a file as a named blob",
		Long:  "Store a file as a named blob run through a filter pipeline. Without a file, or with -, stdin is read.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			fs, err := filter.Parse(filters)
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[1:])
			if err != nil {
				return err
			}

			st, err := g.openStore(cmd, tilestore.WithFilters(fs...))
			if err != nil {
				return err
			}
			defer closeStore(st, &err)

			if err := st.PutBytes(cmd.Context(), args[0], data); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d bytes\n", args[0], len(data))
			return err
		},
	}
	cmd.Flags().StringVar(&filters, "filters", "zstd,crc32c", "comma separated filter pipeline, e.g. shuffle,zstd:3,crc32c")
	return cmd
}

func newGetCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Write a named blob to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			st, err := g.openStore(cmd)
			if err != nil {
				return err
			}
			defer closeStore(st, &err)

			data, err := st.GetBytes(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
