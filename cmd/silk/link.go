package main

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/silk/pkg/logger"
	"github.com/jingkaihe/silk/pkg/presenter"
	"github.com/jingkaihe/silk/pkg/skills"
	"github.com/jingkaihe/silk/pkg/targets"
)

// LinkConfig holds configuration for the link and unlink commands
type LinkConfig struct {
	Targets    []string
	AllTargets bool
}

// NewLinkConfig creates a new LinkConfig with default values
func NewLinkConfig() *LinkConfig {
	return &LinkConfig{
		Targets:    []string{},
		AllTargets: false,
	}
}

var linkCmd = &cobra.Command{
	Use:   "link <ref> <skill>",
	Short: "Link a skill into agent skill directories",
	Long: `Create a symlink to a skill of an installed plugin in one or more link
targets. The skill may be given by its name or its qualified owner:repo:name.
Without --target the skill is linked into every configured target.

Examples:
  silk link acme/toolkit pdf                  # every target
  silk link acme/toolkit pdf --target claude  # one target
`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLink(cmd, args, true)
	},
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink <ref> <skill>",
	Short: "Remove a skill's links from agent skill directories",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLink(cmd, args, false)
	},
}

func runLink(cmd *cobra.Command, args []string, link bool) error {
	ctx := cmd.Context()
	config := getLinkConfigFromFlags(cmd)

	store, err := newStore(cfg)
	if err != nil {
		return err
	}

	selected, err := resolveTargets(targets.NewRegistry(store.Targets()), config.Targets, config.AllTargets)
	if err != nil {
		return err
	}

	p, err := store.Lookup(ctx, args[0])
	if err != nil {
		return err
	}
	skill, ok := p.Skill(args[1])
	if !ok {
		return errors.Errorf("skill %q not found in %s", args[1], p.Name())
	}

	log := logger.G(ctx).WithField("skill", skill.QualifiedName())

	var result *multierror.Error
	for _, t := range selected {
		if link {
			err = linkOne(skill, t)
		} else {
			err = unlinkOne(skill, t)
		}
		if err != nil {
			log.WithError(err).WithField("target", t.Name).Debug("link operation failed")
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func linkOne(s skills.Skill, t targets.Target) error {
	err := s.LinkTo(t)
	switch {
	case skills.IsAlreadyLinked(err):
		presenter.Info(fmt.Sprintf("%s is already linked to %s", s.Name, t.DisplayName))
		return nil
	case err != nil:
		return &skills.TargetError{Target: t, Op: "link", Err: err}
	}
	presenter.Success(fmt.Sprintf("Linked %s to %s", s.Name, t.DisplayName))
	return nil
}

func unlinkOne(s skills.Skill, t targets.Target) error {
	err := s.UnlinkFrom(t)
	switch {
	case skills.IsNotLinked(err):
		presenter.Info(fmt.Sprintf("%s is not linked to %s", s.Name, t.DisplayName))
		return nil
	case err != nil:
		return &skills.TargetError{Target: t, Op: "unlink", Err: err}
	}
	presenter.Success(fmt.Sprintf("Unlinked %s from %s", s.Name, t.DisplayName))
	return nil
}

// resolveTargets picks the targets named on the command line. No names, or
// all, selects every configured target.
func resolveTargets(registry *targets.Registry, names []string, all bool) ([]targets.Target, error) {
	if all || len(names) == 0 {
		if registry.Len() == 0 {
			return nil, errors.New("no link targets configured")
		}
		return registry.All(), nil
	}

	selected := make([]targets.Target, 0, len(names))
	seen := map[string]bool{}
	for _, name := range names {
		t, ok := registry.Get(name)
		if !ok {
			return nil, errors.Errorf("unknown target %q (available: %s)", name, strings.Join(registry.Names(), ", "))
		}
		if seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		selected = append(selected, t)
	}
	return selected, nil
}

func init() {
	defaults := NewLinkConfig()
	for _, cmd := range []*cobra.Command{linkCmd, unlinkCmd} {
		cmd.Flags().StringSliceP("target", "t", defaults.Targets, "Link target name (repeatable)")
		cmd.Flags().Bool("all-targets", defaults.AllTargets, "Use every configured target")
		cmd.MarkFlagsMutuallyExclusive("target", "all-targets")
	}
}

// getLinkConfigFromFlags extracts link configuration from command flags
func getLinkConfigFromFlags(cmd *cobra.Command) *LinkConfig {
	config := NewLinkConfig()

	if names, err := cmd.Flags().GetStringSlice("target"); err == nil {
		config.Targets = names
	}
	if all, err := cmd.Flags().GetBool("all-targets"); err == nil {
		config.AllTargets = all
	}

	return config
}
