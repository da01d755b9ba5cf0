package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vaultvoice/vaultvoice/pkg/audio"
	"github.com/vaultvoice/vaultvoice/pkg/gemini"
	"github.com/vaultvoice/vaultvoice/pkg/realtime"
	"github.com/vaultvoice/vaultvoice/pkg/settings"
	"github.com/vaultvoice/vaultvoice/pkg/tools"
	"github.com/vaultvoice/vaultvoice/pkg/vault"
)

func newChatCmd(opts *rootOptions) *cobra.Command {
	var model string
	var voice string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start a live voice session against the vault",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.settings()
			if err != nil {
				return err
			}
			if cfg.APIKey == "" {
				return errors.New("no API key configured (set GEMINI_API_KEY)")
			}
			if model != "" {
				cfg.Model = model
			}
			if voice != "" {
				cfg.Voice = voice
			}
			return runChat(cmd, opts, cfg)
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "model to use (overrides config)")
	cmd.Flags().StringVar(&voice, "voice", "", "voice to use (overrides config)")
	return cmd
}

func runChat(cmd *cobra.Command, opts *rootOptions, cfg *settings.Settings) error {
	log := opts.logger()
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	store, err := vault.New(cfg.VaultPath)
	if err != nil {
		return err
	}
	registry := tools.NewVaultRegistry(store, log)

	watcher, err := vault.Watch(store, log, func(path, op string) {
		log.Debug().Str("path", path).Str("op", op).Msg("vault changed")
	})
	if err != nil {
		log.Warn().Err(err).Msg("vault watcher unavailable")
	} else {
		defer watcher.Close()
	}

	sink := realtime.EventSink{
		OnStatusChange: func(status realtime.Status) {
			fmt.Fprintf(out, "[status] %s\n", status)
		},
		OnLog: func(message string, kind realtime.LogKind, durationMS int64) {
			if kind == realtime.LogError {
				fmt.Fprintf(errOut, "[error] %s\n", message)
				return
			}
			log.Debug().Str("kind", string(kind)).Int64("duration_ms", durationMS).Msg(message)
		},
		OnTranscription: func(role realtime.Role, text string, final bool) {
			if final {
				fmt.Fprintf(out, "[%s] %s\n", role, strings.TrimSpace(text))
			}
		},
		OnSystemMessage: func(text string, tool *realtime.ToolData) {
			if tool != nil {
				fmt.Fprintf(out, "[tool] %s (%s)\n", text, tool.Name)
				return
			}
			fmt.Fprintf(out, "[system] %s\n", text)
		},
		OnFileStateChange: func(folder, note string) {
			log.Debug().Str("folder", folder).Str("note", note).Msg("file context changed")
		},
		OnUsageUpdate: func(usage realtime.Usage) {
			log.Debug().Int("total_tokens", usage.TotalTokens).Msg("usage update")
		},
		OnInterrupted: func() {
			fmt.Fprintln(out, "[interrupted]")
		},
	}

	coordinator := realtime.New(realtime.Options{
		Dialer: &gemini.Dialer{APIKey: cfg.APIKey, Logger: log},
		Tools:  registry,
		Sink:   sink,
		Logger: log,
		OpenMic: func() (audio.FrameSource, error) {
			return audio.NewFFmpegMic()
		},
		OpenSpeaker: func() (audio.Player, error) {
			return audio.NewFFplaySpeaker()
		},
	})
	defer coordinator.Stop()

	startCfg := realtime.StartConfig{
		Model:         cfg.Model,
		Voice:         cfg.Voice,
		BasePrompt:    cfg.SystemPrompt,
		CustomContext: cfg.CustomContext,
	}
	if err := coordinator.Start(cmd.Context(), startCfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "Connected with %s (%s voice). Speak, or type a message.\n", cfg.Model, cfg.Voice)
	fmt.Fprintln(out, "Commands: /stop, /start, /status, /usage, /quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch line {
		case "/quit", "/exit":
			return nil
		case "/stop":
			coordinator.Stop()
		case "/start":
			if err := coordinator.Start(cmd.Context(), startCfg); err != nil {
				fmt.Fprintf(errOut, "start: %v\n", err)
			}
		case "/status":
			fmt.Fprintf(out, "[status] %s\n", coordinator.Status())
		case "/usage":
			usage := coordinator.UsageTotal()
			fmt.Fprintf(out, "[usage] prompt=%d response=%d total=%d\n",
				usage.PromptTokens, usage.ResponseTokens, usage.TotalTokens)
		default:
			if strings.HasPrefix(line, "/") {
				fmt.Fprintln(out, "commands: /stop, /start, /status, /usage, /quit")
				continue
			}
			if err := coordinator.SendText(line); err != nil {
				fmt.Fprintf(errOut, "send: %v\n", err)
			}
		}
	}
}
