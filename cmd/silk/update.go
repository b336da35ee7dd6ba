package main

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/silk/pkg/jobs"
	"github.com/jingkaihe/silk/pkg/plugins"
	"github.com/jingkaihe/silk/pkg/presenter"
)

// UpdateConfig holds configuration for the update command
type UpdateConfig struct {
	All bool
}

// NewUpdateConfig creates a new UpdateConfig with default values
func NewUpdateConfig() *UpdateConfig {
	return &UpdateConfig{
		All: false,
	}
}

var updateCmd = &cobra.Command{
	Use:   "update [ref...]",
	Short: "Pull the latest changes of installed plugins",
	Long: `Pull installed plugins and rescan their skills. Links to skills that moved
inside the repository are repointed; links to skills that disappeared are
removed.

Examples:
  silk update acme/toolkit    # one plugin
  silk update --all           # every installed plugin
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		config := getUpdateConfigFromFlags(cmd)

		if len(args) == 0 && !config.All {
			return errors.New("specify the plugins to update or use --all")
		}

		store, err := newStore(cfg)
		if err != nil {
			return err
		}

		var (
			selected []*plugins.Plugin
			result   *multierror.Error
		)
		if config.All {
			selected, err = store.ListInstalled(ctx)
			if err != nil {
				return err
			}
			if len(selected) == 0 {
				presenter.Info("No plugins installed")
				return nil
			}
		} else {
			for _, ref := range args {
				p, err := store.Lookup(ctx, ref)
				if err != nil {
					result = multierror.Append(result, err)
					continue
				}
				selected = append(selected, p)
			}
		}

		runner := jobs.NewRunner(ctx, store)
		for _, p := range selected {
			presenter.Info(fmt.Sprintf("Updating %s...", p.Name()))
			runner.Update(p)
		}

		if err := waitForJobs(ctx, runner); err != nil {
			result = multierror.Append(result, err)
		}
		return result.ErrorOrNil()
	},
}

func init() {
	defaults := NewUpdateConfig()
	updateCmd.Flags().BoolP("all", "a", defaults.All, "Update every installed plugin")
}

// getUpdateConfigFromFlags extracts update configuration from command flags
func getUpdateConfigFromFlags(cmd *cobra.Command) *UpdateConfig {
	config := NewUpdateConfig()

	if all, err := cmd.Flags().GetBool("all"); err == nil {
		config.All = all
	}

	return config
}
