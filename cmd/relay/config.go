package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/relay/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify relay configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/relay/config.yaml
Project-specific overrides can be placed in .relay.yaml`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		switch len(args) {
		case 0:
			return displayAllConfig(cfg)
		case 1:
			value, err := config.Value(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Println(value)
			return nil
		default:
			return setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) error {
	for _, key := range config.Keys() {
		value, err := config.Value(cfg, key)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", key, value)
	}
	fmt.Printf("\ncredentials: %s\n", config.GetAPIKeySource(cfg))
	return nil
}

// setConfigKey sets a configuration value and saves the user config.
func setConfigKey(cfg *config.Config, key, value string) error {
	if err := config.SetValue(cfg, key, value); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	display, _ := config.Value(cfg, key)
	fmt.Printf("Set %s = %s\n", key, display)
	return nil
}
