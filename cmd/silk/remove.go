package main

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/silk/pkg/presenter"
	"github.com/jingkaihe/silk/pkg/skills"
	"github.com/jingkaihe/silk/pkg/targets"
)

// RemoveConfig holds configuration for the remove command
type RemoveConfig struct {
	NoConfirm bool
}

// NewRemoveConfig creates a new RemoveConfig with default values
func NewRemoveConfig() *RemoveConfig {
	return &RemoveConfig{
		NoConfirm: false,
	}
}

var removeCmd = &cobra.Command{
	Use:     "remove <ref>...",
	Aliases: []string{"rm", "delete"},
	Short:   "Remove installed plugins and unlink their skills",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		config := getRemoveConfigFromFlags(cmd)
		if presenter.IsQuiet() && !config.NoConfirm {
			return errors.New("--quiet hides the confirmation prompt, pass --yes to remove")
		}

		store, err := newStore(cfg)
		if err != nil {
			return err
		}

		var result *multierror.Error
		for _, ref := range args {
			p, err := store.Lookup(ctx, ref)
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}

			if !config.NoConfirm && !presenter.Confirm(fmt.Sprintf("Remove %s and unlink its skills?", p.Name())) {
				presenter.Info(fmt.Sprintf("Skipped %s", p.Name()))
				continue
			}

			if err := store.Remove(ctx, p); err != nil {
				result = multierror.Append(result, err)
				continue
			}
			presenter.Success(fmt.Sprintf("Deleted: %s", p.Name()))
			for _, link := range leftoverLinks(p.Skills(), store.Targets()) {
				presenter.Warning(fmt.Sprintf("Link left behind: %s", link))
			}
		}

		return result.ErrorOrNil()
	},
}

// leftoverLinks returns the link paths of list that still exist in any target
func leftoverLinks(list []skills.Skill, ts []targets.Target) []string {
	var out []string
	for _, s := range list {
		for _, t := range ts {
			path := s.LinkPath(t)
			if path == "" {
				continue
			}
			if _, err := os.Lstat(path); err == nil {
				out = append(out, path)
			}
		}
	}
	return out
}

func init() {
	defaults := NewRemoveConfig()
	removeCmd.Flags().BoolP("yes", "y", defaults.NoConfirm, "Skip confirmation prompt")
}

// getRemoveConfigFromFlags extracts remove configuration from command flags
func getRemoveConfigFromFlags(cmd *cobra.Command) *RemoveConfig {
	config := NewRemoveConfig()

	if yes, err := cmd.Flags().GetBool("yes"); err == nil {
		config.NoConfirm = yes
	}

	return config
}
