// Package planner assembles the weekend planner pipeline: check the weather,
// route to home or outdoor research, then summarize the findings.
package planner

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/relay/internal/flow"
)

// Context keys read and written by the pipeline.
const (
	KeyArea    = "area"
	KeyAges    = "ages"
	KeyWeather = "weather_forecast"
	KeyRoute   = "research_route"
	KeyHome    = "home_activities_findings"
	KeyLocal   = "local_activities_findings"
	KeySpecial = "special_activities_findings"
	KeySummary = "final_summary"
)

// Unit names.
const (
	RootName            = "WeekendPlannerRootAgent"
	WeatherName         = "WeatherAgent"
	RouterName          = "WeatherRouter"
	HomeActivitiesName  = "HomeActivitiesAgent"
	ResearchGroupName   = "ActivityResearchGroup"
	LocalActivitiesName = "WeekendLocalActivityAgent"
	SpecialEventsName   = "WeekendSpecialActivityAgent"
	SummarizerName      = "SummarizerAgent"
)

// Routes offered by the weather router.
const (
	RouteHome     = "home_activities_agent"
	RouteResearch = "activity_research_group"
)

// Forecast classifications the weather unit is asked to produce.
const (
	ForecastGood     = "good"
	ForecastBad      = "bad"
	ForecastStayHome = "do not leave home"
)

// Inputs returns the run inputs for one area and a comma separated list of
// kid ages.
func Inputs(area, ages string) map[string]string {
	return map[string]string{
		KeyArea: strings.TrimSpace(area),
		KeyAges: strings.TrimSpace(ages),
	}
}

// Build assembles the pipeline against inv.
func Build(inv flow.Invoker, p Prompts) (flow.Unit, error) {
	search := []flow.Capability{flow.CapabilitySearch}

	weather, err := flow.NewTask(flow.TaskConfig{
		Name:         WeatherName,
		Description:  p.Weather.Description,
		Instruction:  p.Weather.Instruction,
		Inputs:       []string{KeyArea},
		OutputKey:    KeyWeather,
		Capabilities: search,
		Invoker:      inv,
	})
	if err != nil {
		return nil, fmt.Errorf("build planner: %w", err)
	}

	home, err := flow.NewTask(flow.TaskConfig{
		Name:         HomeActivitiesName,
		Description:  p.HomeActivities.Description,
		Instruction:  p.HomeActivities.Instruction,
		Inputs:       []string{KeyAges},
		OutputKey:    KeyHome,
		Capabilities: search,
		Invoker:      inv,
	})
	if err != nil {
		return nil, fmt.Errorf("build planner: %w", err)
	}

	local, err := flow.NewTask(flow.TaskConfig{
		Name:         LocalActivitiesName,
		Description:  p.LocalActivities.Description,
		Instruction:  p.LocalActivities.Instruction,
		Inputs:       []string{KeyWeather, KeyAges, KeyArea},
		OutputKey:    KeyLocal,
		Capabilities: search,
		Invoker:      inv,
	})
	if err != nil {
		return nil, fmt.Errorf("build planner: %w", err)
	}

	special, err := flow.NewTask(flow.TaskConfig{
		Name:         SpecialEventsName,
		Description:  p.SpecialEvents.Description,
		Instruction:  p.SpecialEvents.Instruction,
		Inputs:       []string{KeyWeather, KeyAges, KeyArea},
		OutputKey:    KeySpecial,
		Capabilities: search,
		Invoker:      inv,
	})
	if err != nil {
		return nil, fmt.Errorf("build planner: %w", err)
	}

	research := flow.NewGroup(ResearchGroupName, local, special)

	router, err := flow.NewRouter(flow.RouterConfig{
		Name:        RouterName,
		Instruction: p.Router.Instruction,
		Inputs:      []string{KeyWeather},
		OutputKey:   KeyRoute,
		Invoker:     inv,
		Candidates: []*flow.Tool{
			flow.NewTool(RouteHome, p.HomeActivities.Description, home),
			flow.NewTool(RouteResearch, p.ResearchGroup.Description, research),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build planner: %w", err)
	}

	summarizer, err := flow.NewTask(flow.TaskConfig{
		Name:        SummarizerName,
		Description: p.Summarizer.Description,
		Instruction: p.Summarizer.Instruction,
		Inputs:      []string{KeyWeather, KeyArea, KeyAges},
		Optional:    []string{KeyLocal, KeySpecial, KeyHome},
		OutputKey:   KeySummary,
		Invoker:     inv,
	})
	if err != nil {
		return nil, fmt.Errorf("build planner: %w", err)
	}

	root := flow.NewGroup(RootName, weather, router, summarizer)
	if err := flow.Validate(root); err != nil {
		return nil, fmt.Errorf("build planner: %w", err)
	}
	return root, nil
}
