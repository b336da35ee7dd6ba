package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/silk/pkg/presenter"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List the directories skills can be linked into",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		if len(cfg.Targets) == 0 {
			presenter.Info("No link targets configured")
			return nil
		}

		tw := tabwriter.NewWriter(presenter.Writer(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tDISPLAY NAME\tDIRECTORY")
		fmt.Fprintln(tw, "----\t------------\t---------")
		for _, t := range cfg.Targets {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Name, t.DisplayName, t.Dir)
		}
		return tw.Flush()
	},
}
