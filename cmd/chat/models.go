package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"streamchat/internal/api"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available for the configured provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Provider == "" {
			return fmt.Errorf("provider must be set")
		}
		client := api.NewClient(cfg.ServerURL)

		models, err := client.ListModels(context.Background(), cfg.Provider, cfg.APIKey(cfg.Provider))
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, headerStyle.Render("ID")+"\t"+headerStyle.Render("NAME"))
		for _, m := range models {
			fmt.Fprintf(w, "%s\t%s\n", m.ID, m.Name)
		}
		return w.Flush()
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate-key",
	Short: "Check the stored API key against the provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Provider == "" {
			return fmt.Errorf("provider must be set")
		}
		client := api.NewClient(cfg.ServerURL)

		valid, message, err := client.ValidateKey(context.Background(), cfg.Provider, cfg.APIKey(cfg.Provider))
		if err != nil {
			return err
		}
		fmt.Println(message)
		if !valid {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd, validateCmd)
}
