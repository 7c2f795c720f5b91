package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mattjoyce/cursor-voice/internal/actions"
	"github.com/mattjoyce/cursor-voice/internal/api"
	"github.com/mattjoyce/cursor-voice/internal/auth"
	"github.com/mattjoyce/cursor-voice/internal/bridge"
	"github.com/mattjoyce/cursor-voice/internal/chat"
	"github.com/mattjoyce/cursor-voice/internal/config"
	"github.com/mattjoyce/cursor-voice/internal/dispatch"
	"github.com/mattjoyce/cursor-voice/internal/doctor"
	"github.com/mattjoyce/cursor-voice/internal/editor"
	"github.com/mattjoyce/cursor-voice/internal/events"
	"github.com/mattjoyce/cursor-voice/internal/history"
	"github.com/mattjoyce/cursor-voice/internal/lock"
	"github.com/mattjoyce/cursor-voice/internal/log"
	"github.com/mattjoyce/cursor-voice/internal/notify"
	"github.com/mattjoyce/cursor-voice/internal/protocol"
	"github.com/mattjoyce/cursor-voice/internal/session"
	"github.com/mattjoyce/cursor-voice/internal/storage"
)

const loopBuffer = 64

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the voice-command daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags.configPath)
			if err != nil {
				return err
			}
			log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func loadConfig(explicit string) (*config.Config, error) {
	path, err := config.Discover(explicit)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// daemon is the wired set of components behind serve.
type daemon struct {
	hub      *events.Hub
	bridge   *bridge.Server
	loop     *session.Loop
	api      *api.Server
	history  *history.Store
	closeFns []func() error
}

func (d *daemon) close() {
	for i := len(d.closeFns) - 1; i >= 0; i-- {
		_ = d.closeFns[i]()
	}
}

// build wires every component from cfg without starting anything.
func build(ctx context.Context, cfg *config.Config) (*daemon, error) {
	logger := log.WithComponent("main")
	d := &daemon{hub: events.NewHub(cfg.Events.Buffer)}

	notifier := notify.NewSink(d.hub)
	workspace := editor.NewWorkspace(d.hub)
	chatProvider, err := newChat(cfg.Chat, d.hub)
	if err != nil {
		return nil, err
	}
	handlers := actions.New(workspace, chatProvider, notifier)

	observers := dispatch.Observers{events.DispatchObserver{Hub: d.hub}}
	if cfg.History.IsEnabled() {
		db, err := storage.OpenSQLite(ctx, cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		d.closeFns = append(d.closeFns, db.Close)
		d.history = history.NewStore(db, cfg.History.MaxEntries)
		observers = append(observers, d.history)
		logger.Info("history enabled", "path", cfg.History.Path, "max_entries", cfg.History.MaxEntries)
	}

	d.bridge = bridge.New(bridge.Config{
		Listen:   cfg.Bridge.Listen,
		Language: cfg.Voice.Language,
	})

	ctrl, err := session.New(session.Options{
		Source:         d.bridge,
		Notifier:       notifier,
		Observer:       observers,
		CommandTimeout: cfg.Voice.CommandTimeout,
		Stage:          handlers.StageMessage,
		Send:           handlers.SendToAssistant,
		ExtraPhrases:   cfg.Voice.Phrases,
		OnStateChange: func(st session.Status) {
			if d.history != nil {
				d.history.SetSession(st.SessionID)
			}
			d.hub.Publish(events.TypeSessionState, st)
		},
	})
	if err != nil {
		d.close()
		return nil, err
	}
	commands := ctrl.Status().Commands

	d.loop = session.NewLoop(ctrl, loopBuffer)
	d.bridge.Attach(sourceEvents{sink: d.loop, hub: d.hub})

	if cfg.API.Enabled {
		tokens := make([]auth.TokenConfig, 0, len(cfg.API.Auth.Tokens))
		for _, t := range cfg.API.Auth.Tokens {
			tokens = append(tokens, auth.TokenConfig{Token: t.Token, Scopes: t.Scopes})
		}
		deps := api.Deps{
			Session:  d.loop,
			Editor:   workspace,
			Source:   d.bridge,
			Events:   d.hub,
			Commands: commands,
		}
		if d.history != nil {
			deps.History = d.history
		}
		apiConfig := api.Config{
			Listen: cfg.API.Listen,
			APIKey: cfg.API.Auth.APIKey,
			Tokens: tokens,
		}
		if cfg.Chat.Provider == config.ChatWebhook {
			apiConfig.ChatReplySecret = cfg.Chat.Webhook.Secret
		}
		d.api = api.New(apiConfig, deps, log.WithComponent("api"))
	}
	return d, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := log.WithComponent("main")
	logger.Info("cursor-voice starting", "version", version, "config", cfg.Path)

	report := doctor.New(cfg).Validate()
	for _, w := range report.Warnings {
		logger.Warn("config review", "field", w.Field, "issue", w.Message)
	}
	if !report.Valid {
		return fmt.Errorf("configuration invalid:\n%s", doctor.FormatHuman(report))
	}

	pidLock, err := lock.AcquirePIDLock(cfg.Service.PIDFile)
	if err != nil {
		return fmt.Errorf("acquire PID lock %s (another instance may be running): %w", cfg.Service.PIDFile, err)
	}
	defer pidLock.Release()

	d, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer d.close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.loop.Run(gctx) })
	g.Go(func() error { return d.bridge.Start(gctx) })
	if d.api != nil {
		g.Go(func() error { return d.api.Start(gctx) })
		logger.Info("API server enabled", "listen", cfg.API.Listen)
	}

	logger.Info("cursor-voice running (press Ctrl+C to stop)",
		"recognizer_page", "http://"+cfg.Bridge.Listen+"/")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("component failed", "error", err)
		return err
	}
	logger.Info("cursor-voice stopped")
	return nil
}

func newChat(cfg config.ChatConfig, hub *events.Hub) (actions.Chat, error) {
	switch cfg.Provider {
	case "", config.ChatEvents:
		return chat.NewEvents(hub), nil
	case config.ChatWebhook:
		return chat.NewWebhook(cfg.Webhook.URL, cfg.Webhook.Secret, cfg.Webhook.Timeout), nil
	case config.ChatOpenAI:
		return chat.NewOpenAI(chat.OpenAIConfig{
			APIKey:       cfg.OpenAI.APIKey,
			BaseURL:      cfg.OpenAI.BaseURL,
			Model:        cfg.OpenAI.Model,
			SystemPrompt: cfg.OpenAI.SystemPrompt,
		}, hub)
	default:
		return nil, fmt.Errorf("unknown chat provider %q", cfg.Provider)
	}
}

// sourceStatePayload is the data of a source.state event.
type sourceStatePayload struct {
	Connected bool   `json:"connected"`
	Ready     bool   `json:"ready"`
	Engine    string `json:"engine,omitempty"`
}

// sourceEvents forwards recognizer frames to the session and mirrors
// recognizer attachment onto the hub.
type sourceEvents struct {
	sink bridge.Sink
	hub  *events.Hub
}

func (s sourceEvents) Deliver(ctx context.Context, msg *protocol.SourceMessage) error {
	if msg.Command == protocol.CommandReady {
		s.hub.Publish(events.TypeSourceState, sourceStatePayload{Connected: true, Ready: true, Engine: msg.Engine})
	}
	return s.sink.Deliver(ctx, msg)
}

func (s sourceEvents) Disconnected(ctx context.Context) error {
	s.hub.Publish(events.TypeSourceState, sourceStatePayload{})
	return s.sink.Disconnected(ctx)
}
