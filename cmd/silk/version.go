package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/silk/pkg/presenter"
	"github.com/jingkaihe/silk/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := version.Get()

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			out, err := info.JSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(presenter.Writer(), out)
			return nil
		}

		fmt.Fprintf(presenter.Writer(), "silk %s (commit %s, built %s, %s)\n",
			info.Version, info.GitCommit, info.BuildTime, info.GoVersion)
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("json", false, "Output in JSON format")
}
