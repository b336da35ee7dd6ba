package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/silk/pkg/jobs"
	"github.com/jingkaihe/silk/pkg/presenter"
)

var installCmd = &cobra.Command{
	Use:   "install <ref>...",
	Short: "Install plugins from git repositories",
	Long: `Clone one or more git repositories into the plugin cache and discover
their skills. Installing a plugin that is already cached pulls the latest
changes instead.

Examples:
  silk install acme/toolkit                        # GitHub shorthand
  silk install https://gitlab.com/team/skills.git  # any host over HTTPS
  silk install git@github.com:acme/toolkit.git     # SSH
  silk install acme/toolkit acme/widgets           # several at once
`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store, err := newStore(cfg)
		if err != nil {
			return err
		}

		runner := jobs.NewRunner(ctx, store)
		for _, ref := range args {
			presenter.Info(fmt.Sprintf("Installing %s...", ref))
			runner.Install(ref)
		}

		return waitForJobs(ctx, runner)
	},
}
