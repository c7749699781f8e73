package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"streamchat/internal/api"
	"streamchat/internal/chat"
	"streamchat/internal/search"
)

var (
	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat() error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Provider == "" || cfg.Model == "" {
		return fmt.Errorf("provider and model must be set (flags or %s)", "~/.streamchat.yaml")
	}
	apiKey := cfg.APIKey(cfg.Provider)
	if apiKey == "" {
		return fmt.Errorf("no API key stored for %q; run: streamchat config set-key %s <key>", cfg.Provider, cfg.Provider)
	}

	client := api.NewClient(cfg.ServerURL)

	// One slot: the REPL waits for the turn's terminal callback before
	// prompting again.
	turnDone := make(chan struct{}, 1)

	conv := chat.NewConversation(chat.Callbacks{
		OnChunkProgress: func(approxTokens int) {
			fmt.Printf("\r%s", statusStyle.Render(fmt.Sprintf("streaming… ~%d tokens", approxTokens)))
		},
		OnStreamingStateChange: func(streaming bool) {
			if !streaming {
				fmt.Print("\r\033[K")
			}
		},
		OnResults: func(results []search.Result) {
			fmt.Printf("\r\033[K%s\n", resultStyle.Render(fmt.Sprintf("✦ %d search results", len(results))))
		},
		OnToolCall: func(name string) {
			fmt.Printf("\r\033[K%s\n", statusStyle.Render("⚙ "+name))
		},
	})

	orch := chat.NewOrchestrator(client, client, conv, chat.Notify{
		OnComplete: func(userText, assistantText, newSessionID string) {
			fmt.Printf("\r\033[K%s\n\n", assistantStyle.Render(assistantText))
			if newSessionID != "" {
				fmt.Println(statusStyle.Render("session " + newSessionID))
			}
			turnDone <- struct{}{}
		},
		OnError: func(message string) {
			fmt.Printf("\r\033[K%s\n", errorStyle.Render("error: "+message))
			turnDone <- struct{}{}
		},
		OnHistory: func(sessionID string, msgs []chat.Message) {
			fmt.Println(statusStyle.Render(fmt.Sprintf("loaded %d messages from %s", len(msgs), sessionID)))
			for _, m := range msgs {
				switch m.Role {
				case "user":
					fmt.Println(promptStyle.Render("you: ") + m.Content)
				default:
					fmt.Println(assistantStyle.Render(m.Content))
				}
			}
		},
	})
	orch.SetSettings(chat.Settings{
		Provider:    cfg.Provider,
		APIKey:      apiKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		EnableTools: cfg.EnableSearch,
	})

	fmt.Println(statusStyle.Render(fmt.Sprintf("%s · %s · search %s", cfg.Provider, cfg.Model, onOff(cfg.EnableSearch))))
	fmt.Println(statusStyle.Render("commands: /new /switch <id> /regen /attach <file> /attach-url <url> /search on|off /quit"))

	ctx := context.Background()
	var attachments []chat.Attachment
	sent := false

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("you> "))
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := handleCommand(ctx, orch, client, line, &attachments, turnDone, &sent)
			if err != nil {
				fmt.Println(errorStyle.Render(err.Error()))
			}
			if quit {
				return nil
			}
			continue
		}

		orch.Submit(ctx, line, attachments)
		attachments = nil
		sent = true
		<-turnDone
	}
}

func handleCommand(ctx context.Context, orch *chat.Orchestrator, client *api.Client, line string, attachments *[]chat.Attachment, turnDone chan struct{}, sent *bool) (quit bool, err error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil

	case "/new":
		orch.SwitchSession("")
		*sent = false
		fmt.Println(statusStyle.Render("new conversation"))

	case "/switch":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: /switch <session-id>")
		}
		orch.SwitchSession(fields[1])
		*sent = false

	case "/regen":
		if !*sent {
			return false, fmt.Errorf("nothing to regenerate yet")
		}
		orch.Regenerate(ctx)
		<-turnDone

	case "/attach":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: /attach <file>")
		}
		content, err := os.ReadFile(fields[1])
		if err != nil {
			return false, err
		}
		*attachments = append(*attachments, chat.Attachment{
			Name:    filepath.Base(fields[1]),
			Content: string(content),
		})
		fmt.Println(statusStyle.Render("attached " + fields[1]))

	case "/attach-url":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: /attach-url <url>")
		}
		articles, err := client.ProcessURLs(ctx, fields[1:])
		if err != nil {
			return false, err
		}
		for _, a := range articles {
			if !a.Success {
				fmt.Println(errorStyle.Render(fmt.Sprintf("could not fetch %s: %s", a.URL, a.Error)))
				continue
			}
			*attachments = append(*attachments, chat.Attachment{
				Name:    a.Title,
				Content: a.Content,
			})
			fmt.Println(statusStyle.Render("attached " + a.Title + " (" + a.URL + ")"))
		}

	case "/search":
		if len(fields) < 2 || (fields[1] != "on" && fields[1] != "off") {
			return false, fmt.Errorf("usage: /search on|off")
		}
		s := orch.Settings()
		s.EnableTools = fields[1] == "on"
		orch.SetSettings(s)
		fmt.Println(statusStyle.Render("search " + fields[1]))

	default:
		return false, fmt.Errorf("unknown command %s", fields[0])
	}
	return false, nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
