package main

import (
	"github.com/spf13/cobra"

	"github.com/jingkaihe/silk/pkg/presenter"
)

// ListConfig holds configuration for the list command
type ListConfig struct {
	Output string
	Filter string
}

// NewListConfig creates a new ListConfig with default values
func NewListConfig() *ListConfig {
	return &ListConfig{
		Output: OutputTable,
		Filter: "",
	}
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List installed plugins",
	Long: `List installed plugins with their skill counts.

Examples:
  silk list                    # table
  silk list --output json      # machine readable
  silk list --filter 'acme/*'  # glob on owner/repo
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		config := getListConfigFromFlags(cmd)

		if err := validateOutput(config.Output); err != nil {
			return err
		}

		store, err := newStore(cfg)
		if err != nil {
			return err
		}

		installed, err := store.ListInstalled(ctx)
		if err != nil {
			return err
		}

		views := make([]pluginView, 0, len(installed))
		for _, p := range installed {
			views = append(views, newPluginView(p, store.Targets()))
		}
		views, err = filterViews(views, config.Filter)
		if err != nil {
			return err
		}

		if len(views) == 0 && config.Output == OutputTable {
			presenter.Warning("No plugins installed. Run 'silk install <ref>' to add one.")
			return nil
		}

		return writePluginList(presenter.Writer(), config.Output, views)
	},
}

func init() {
	defaults := NewListConfig()
	listCmd.Flags().StringP("output", "o", defaults.Output, "Output format: table, json or yaml")
	listCmd.Flags().String("filter", defaults.Filter, "Glob matched against owner/repo")
}

// getListConfigFromFlags extracts list configuration from command flags
func getListConfigFromFlags(cmd *cobra.Command) *ListConfig {
	config := NewListConfig()

	if output, err := cmd.Flags().GetString("output"); err == nil {
		config.Output = output
	}
	if filter, err := cmd.Flags().GetString("filter"); err == nil {
		config.Filter = filter
	}

	return config
}
