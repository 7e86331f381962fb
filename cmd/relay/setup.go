package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"

	"github.com/ShayCichocki/relay/internal/api"
	"github.com/ShayCichocki/relay/internal/config"
	"github.com/ShayCichocki/relay/internal/orchestrator"
	"github.com/ShayCichocki/relay/internal/state"
	"github.com/ShayCichocki/relay/pkg/models"
)

// clientConfig maps user configuration onto the API client.
func clientConfig(cfg *config.Config) (api.ClientConfig, error) {
	cc := api.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		MaxTokens:     cfg.Anthropic.MaxTokens,
		BaseURL:       cfg.Anthropic.BaseURL,
		MaxRetries:    cfg.Anthropic.MaxRetries,
		Timeout:       cfg.Anthropic.Timeout,
		UseAWSBedrock: cfg.Anthropic.Bedrock.Enabled,
		AWSRegion:     cfg.Anthropic.Bedrock.Region,
		AWSProfile:    cfg.Anthropic.Bedrock.Profile,
	}
	if !cc.UseAWSBedrock {
		key, err := config.GetAPIKey(cfg)
		if err != nil {
			return api.ClientConfig{}, err
		}
		cc.APIKey = key
	}
	return cc, nil
}

// newInvoker builds the model-backed invoker and returns its client for
// usage reporting.
func newInvoker(cfg *config.Config) (*api.Invoker, *api.Client, error) {
	if err := config.RequireCredentials(cfg); err != nil {
		return nil, nil, fmt.Errorf("credentials: %w (set ANTHROPIC_API_KEY or enable anthropic.bedrock)", err)
	}
	cc, err := clientConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	client, err := api.NewClient(cc)
	if err != nil {
		return nil, nil, fmt.Errorf("create API client: %w", err)
	}
	inv := api.NewInvoker(client, api.WithSearch(cfg.Search.Enabled, cfg.Search.MaxUses))
	return inv, client, nil
}

// storePath returns the configured history database path.
func storePath(cfg *config.Config) string {
	if cfg.State.Path != "" {
		return cfg.State.Path
	}
	return state.GlobalDBPath()
}

// openStore opens and migrates the run history database.
func openStore(cfg *config.Config) (*state.DB, error) {
	db, err := state.OpenWithDriver(cfg.State.Driver, storePath(cfg))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// newLogger opens the debug log: log.path when set, otherwise under the
// project state directory.
func newLogger(cfg *config.Config, stateDir string) *orchestrator.DebugLogger {
	if cfg.Log.Path == "" {
		return orchestrator.NewDebugLoggerForDir(stateDir)
	}
	logger, err := orchestrator.NewDebugLogger(cfg.Log.Path)
	if err != nil {
		log.Printf("[relay] warning: %v, debug log disabled", err)
		return orchestrator.NopLogger()
	}
	return logger
}

// statusColor returns the color used to display a run status.
func statusColor(status models.RunStatus) color.Attribute {
	switch status {
	case models.RunStatusCompleted:
		return color.FgGreen
	case models.RunStatusFailed:
		return color.FgRed
	case models.RunStatusCancelled:
		return color.FgYellow
	default:
		return color.FgCyan
	}
}

func colorStatus(status string) string {
	return color.New(statusColor(models.RunStatus(status))).Sprint(status)
}

func printStatus(symbol, message string, c color.Attribute) {
	color.New(c).Fprint(os.Stdout, symbol)
	fmt.Printf(" %s\n", message)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// normalizeAreas trims repeated --area values and drops blanks and duplicates.
func normalizeAreas(values []string) []string {
	var areas []string
	seen := make(map[string]bool)
	for _, a := range values {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		areas = append(areas, a)
	}
	return areas
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
