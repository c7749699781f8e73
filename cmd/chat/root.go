package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"streamchat/internal/config"
)

var (
	configPath  string
	serverURL   string
	providerArg string
	modelArg    string
)

var rootCmd = &cobra.Command{
	Use:   "streamchat",
	Short: "Chat with LLM providers through a streamchat server",
	Long: `streamchat is the terminal client of the streamchat server.

It streams assistant replies token by token, keeps conversations in named
sessions on the server, and can let the model search the web mid-answer.

Quick start:
  streamchat config set-key openai sk-...   # store a provider key
  streamchat chat                           # start chatting
  streamchat sessions list                  # browse saved sessions`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.streamchat.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Server base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&providerArg, "provider", "", "Provider name (overrides config)")
	rootCmd.PersistentFlags().StringVar(&modelArg, "model", "", "Model id (overrides config)")
}

// loadConfig reads the YAML config and applies flag overrides on top.
func loadConfig() (config.ClientConfig, string, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultClientConfigPath()
		if err != nil {
			return config.ClientConfig{}, "", err
		}
	}

	cfg, err := config.LoadClient(path)
	if err != nil {
		return cfg, path, err
	}

	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	if providerArg != "" {
		cfg.Provider = providerArg
	}
	if modelArg != "" {
		cfg.Model = modelArg
	}
	return cfg, path, nil
}
