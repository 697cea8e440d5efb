package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/organize/organize/internal/pipeline"
	"github.com/organize/organize/internal/plugins"
	"github.com/organize/organize/internal/providers"
)

// ruleFile is a minimal YAML shape for a single rule: enough to exercise
// run/snapshot end to end. The full rule language/compiler (filters,
// partitioners, multiple locations) is out of scope (spec.md §1); this
// stub only understands a search path, an optional extension filter, and
// a move or copy destination template.
type ruleFile struct {
	Name       string   `yaml:"name"`
	Search     string   `yaml:"search"`
	Extensions []string `yaml:"extensions"`
	Move       string   `yaml:"move"`
	Copy       string   `yaml:"copy"`
}

func loadRuleFile(path string) (pipeline.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Rule{}, fmt.Errorf("read rule file: %w", err)
	}
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return pipeline.Rule{}, fmt.Errorf("parse rule file: %w", err)
	}
	if rf.Name == "" || rf.Search == "" {
		return pipeline.Rule{}, fmt.Errorf("rule file %s: name and search are required", path)
	}

	stages := []pipeline.Stage{
		{Kind: pipeline.KindSearch, Params: pipeline.NewParams(), Location: providers.Location{
			Path: rf.Search, Mode: providers.MergeReplace,
		}},
	}
	if len(rf.Extensions) > 0 {
		stages = append(stages, pipeline.Stage{
			Kind: pipeline.KindFilter, Params: pipeline.NewParams(),
			Filter: plugins.ExtensionFilter{Extensions: rf.Extensions},
		})
	}
	switch {
	case rf.Move != "":
		stages = append(stages, pipeline.Stage{
			Kind: pipeline.KindAction, Params: pipeline.NewParams(),
			Action: plugins.MoveAction{DestinationTemplate: rf.Move},
		})
	case rf.Copy != "":
		stages = append(stages, pipeline.Stage{
			Kind: pipeline.KindAction, Params: pipeline.NewParams(),
			Action: plugins.CopyAction{DestinationTemplate: rf.Copy},
		})
	}

	return pipeline.Rule{Name: rf.Name, Stages: stages}, nil
}
