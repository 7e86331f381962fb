package planner

import (
	_ "embed"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

//go:embed prompts.yaml
var defaultPromptsYAML []byte

// Prompt is the text attached to one unit.
type Prompt struct {
	// Description is what routers see when the unit is offered as a tool.
	Description string `yaml:"description"`
	// Instruction is the unit's instruction template.
	Instruction string `yaml:"instruction"`
}

// Prompts holds the text for every unit in the planner pipeline.
type Prompts struct {
	Weather         Prompt `yaml:"weather"`
	Router          Prompt `yaml:"router"`
	HomeActivities  Prompt `yaml:"home_activities"`
	ResearchGroup   Prompt `yaml:"research_group"`
	LocalActivities Prompt `yaml:"local_activities"`
	SpecialEvents   Prompt `yaml:"special_events"`
	Summarizer      Prompt `yaml:"summarizer"`
}

// DefaultPrompts returns the built-in prompts.
func DefaultPrompts() (Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(defaultPromptsYAML, &p); err != nil {
		return Prompts{}, fmt.Errorf("parse built-in prompts: %w", err)
	}
	return p, nil
}

// LoadPrompts reads a YAML prompts file and overlays it on the defaults.
// Fields missing from the file keep their built-in text. An empty path
// returns the defaults.
func LoadPrompts(path string) (Prompts, error) {
	p, err := DefaultPrompts()
	if err != nil {
		return Prompts{}, err
	}
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Prompts{}, fmt.Errorf("read prompts %s: %w", path, err)
	}
	var overlay Prompts
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return Prompts{}, fmt.Errorf("parse prompts %s: %w", path, err)
	}
	p.merge(overlay)
	return p, nil
}

func (p *Prompts) merge(o Prompts) {
	for _, pair := range []struct{ dst, src *Prompt }{
		{&p.Weather, &o.Weather},
		{&p.Router, &o.Router},
		{&p.HomeActivities, &o.HomeActivities},
		{&p.ResearchGroup, &o.ResearchGroup},
		{&p.LocalActivities, &o.LocalActivities},
		{&p.SpecialEvents, &o.SpecialEvents},
		{&p.Summarizer, &o.Summarizer},
	} {
		if pair.src.Description != "" {
			pair.dst.Description = pair.src.Description
		}
		if pair.src.Instruction != "" {
			pair.dst.Instruction = pair.src.Instruction
		}
	}
}
