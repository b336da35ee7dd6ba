package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/silk/pkg/presenter"
)

var skillsCmd = &cobra.Command{
	Use:   "skills <ref>",
	Short: "Show the skills of an installed plugin and where they are linked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		output, _ := cmd.Flags().GetString("output")
		if err := validateOutput(output); err != nil {
			return err
		}

		store, err := newStore(cfg)
		if err != nil {
			return err
		}

		p, err := store.Lookup(ctx, args[0])
		if err != nil {
			return err
		}

		view := newPluginView(p, store.Targets())
		if output != OutputTable {
			return writeStructured(presenter.Writer(), output, view)
		}

		if len(view.Skills) == 0 {
			presenter.Info(fmt.Sprintf("No skills in %s", p.Name()))
			return nil
		}
		presenter.Section(p.Name())
		return writeSkillTable(presenter.Writer(), view, store.Targets())
	},
}

func init() {
	skillsCmd.Flags().StringP("output", "o", OutputTable, "Output format: table, json or yaml")
}
