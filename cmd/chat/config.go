package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"streamchat/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and edit the client config",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective config (keys redacted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Printf("config:      %s\n", path)
		fmt.Printf("server_url:  %s\n", cfg.ServerURL)
		fmt.Printf("provider:    %s\n", cfg.Provider)
		fmt.Printf("model:       %s\n", cfg.Model)
		fmt.Printf("temperature: %g\n", cfg.Temperature)
		fmt.Printf("search:      %s\n", onOff(cfg.EnableSearch))
		for name := range cfg.APIKeys {
			fmt.Printf("api key:     %s (set)\n", name)
		}
		return nil
	},
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key <provider> <api-key>",
	Short: "Store an API key for a provider",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.APIKeys[args[0]] = args[1]
		if err := config.SaveClient(path, cfg); err != nil {
			return err
		}
		fmt.Printf("Saved key for %s\n", args[0])
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Set server_url, provider, model, temperature, or search",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}

		switch args[0] {
		case "server_url":
			cfg.ServerURL = args[1]
		case "provider":
			cfg.Provider = args[1]
		case "model":
			cfg.Model = args[1]
		case "temperature":
			t, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("temperature must be a number")
			}
			cfg.Temperature = t
		case "search":
			cfg.EnableSearch = args[1] == "on" || args[1] == "true"
		default:
			return fmt.Errorf("unknown field %q", args[0])
		}

		if err := config.SaveClient(path, cfg); err != nil {
			return err
		}
		fmt.Printf("Set %s\n", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetKeyCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
