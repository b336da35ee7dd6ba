package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/silk/pkg/plugins"
	"github.com/jingkaihe/silk/pkg/targets"
)

// Output formats
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

type skillView struct {
	Name          string   `json:"name" yaml:"name"`
	QualifiedName string   `json:"qualifiedName" yaml:"qualified_name"`
	Description   string   `json:"description,omitempty" yaml:"description,omitempty"`
	Path          string   `json:"path" yaml:"path"`
	LinkedTargets []string `json:"linkedTargets" yaml:"linked_targets"`
}

type pluginView struct {
	Name   string      `json:"name" yaml:"name"`
	Host   string      `json:"host" yaml:"host"`
	Path   string      `json:"path" yaml:"path"`
	Skills []skillView `json:"skills" yaml:"skills"`
}

func (v pluginView) linkedCount() int {
	n := 0
	for _, s := range v.Skills {
		if len(s.LinkedTargets) > 0 {
			n++
		}
	}
	return n
}

func newPluginView(p *plugins.Plugin, ts []targets.Target) pluginView {
	v := pluginView{
		Name:   p.Name(),
		Host:   p.Host,
		Path:   p.Path,
		Skills: []skillView{},
	}
	for _, s := range p.Skills() {
		linked := []string{}
		for _, t := range s.LinkedTargets(ts) {
			linked = append(linked, t.Name)
		}
		v.Skills = append(v.Skills, skillView{
			Name:          s.Name,
			QualifiedName: s.QualifiedName(),
			Description:   s.Description,
			Path:          s.Dir(),
			LinkedTargets: linked,
		})
	}
	return v
}

// filterViews keeps the plugins whose owner/repo matches pattern
func filterViews(views []pluginView, pattern string) ([]pluginView, error) {
	if pattern == "" {
		return views, nil
	}

	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid filter %q", pattern)
	}

	out := make([]pluginView, 0, len(views))
	for _, v := range views {
		if g.Match(v.Name) {
			out = append(out, v)
		}
	}
	return out, nil
}

func validateOutput(format string) error {
	switch format {
	case OutputTable, OutputJSON, OutputYAML:
		return nil
	default:
		return errors.Errorf("unsupported output format %q (use table, json or yaml)", format)
	}
}

// writeStructured encodes v as JSON or YAML
func writeStructured(w io.Writer, format string, v interface{}) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(v), "failed to encode JSON")
	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "failed to encode YAML")
		}
		return errors.Wrap(enc.Close(), "failed to encode YAML")
	default:
		return errors.Errorf("unsupported output format %q", format)
	}
}

func writePluginList(w io.Writer, format string, views []pluginView) error {
	if err := validateOutput(format); err != nil {
		return err
	}
	if format != OutputTable {
		return writeStructured(w, format, views)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tHOST\tSKILLS\tLINKED\tPATH")
	fmt.Fprintln(tw, "----\t----\t------\t------\t----")
	for _, v := range views {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", v.Name, v.Host, len(v.Skills), v.linkedCount(), v.Path)
	}
	return tw.Flush()
}

func writeSkillTable(w io.Writer, v pluginView, ts []targets.Target) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := []string{"SKILL"}
	rule := []string{"-----"}
	for _, t := range ts {
		header = append(header, strings.ToUpper(t.Name))
		rule = append(rule, strings.Repeat("-", len(t.Name)))
	}
	header = append(header, "DESCRIPTION")
	rule = append(rule, "-----------")
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	fmt.Fprintln(tw, strings.Join(rule, "\t"))

	for _, s := range v.Skills {
		row := []string{s.Name}
		for _, t := range ts {
			state := "-"
			for _, name := range s.LinkedTargets {
				if name == t.Name {
					state = "linked"
					break
				}
			}
			row = append(row, state)
		}
		row = append(row, s.Description)
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
