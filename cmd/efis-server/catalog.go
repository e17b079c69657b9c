package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/signalsfoundry/efis-adapter/kb"
	"github.com/spf13/cobra"
)

func newCatalogCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the category catalog",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check [path]",
		Short: "Validate a category catalog file and list its entries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := root.load()
				if err != nil {
					return err
				}
				path = cfg.Catalog.Path
			}

			cats, err := kb.LoadCatalogFile(path)
			if err != nil {
				return err
			}
			catalog, err := kb.NewCatalog(cats...)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tENABLED")
			for _, c := range catalog.List() {
				fmt.Fprintf(tw, "%s\t%s\t%t\n", c.ID, c.Name, c.Valid)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d categories OK\n", path, catalog.Len())
			return nil
		},
	})
	return cmd
}
