package process

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"wcpredict/internal/adapters/inbound/pushws"
	"wcpredict/internal/adapters/outbound/api"
	"wcpredict/internal/auth"
	"wcpredict/internal/config"
	"wcpredict/internal/core/display"
	"wcpredict/internal/core/notify"
	"wcpredict/internal/core/state/matches"
	syncengine "wcpredict/internal/core/sync"
	"wcpredict/internal/events"
	"wcpredict/internal/localstore"
	"wcpredict/internal/telemetry"
)

// Run boots the prediction daemon: local store, session, REST client, the two
// push channels, the match table, the prediction engine, and the notification
// aggregator. It blocks until SIGINT/SIGTERM.
func Run() {
	cfg := config.Load()
	telemetry.Init(telemetry.ParseLogLevel(cfg.LogLevel))
	telemetry.Infof("Starting wcpredict daemon")

	bus := events.NewBus()

	// ── Local store ────────────────────────────────────────────
	store, err := localstore.Open(cfg.StorePath)
	if err != nil {
		telemetry.Errorf("local store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	// ── Session + REST client ──────────────────────────────────
	session, err := auth.NewSession(store)
	if err != nil {
		telemetry.Errorf("session: %v", err)
		os.Exit(1)
	}
	client := api.NewClient(cfg.APIBaseURL, session)
	session.Attach(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if session.Authenticated() {
		if err := session.Restore(ctx); err != nil {
			telemetry.Warnf("session restore: %v", err)
		}
	}
	if !session.Authenticated() {
		if cfg.Email == "" || cfg.Password == "" {
			telemetry.Errorf("no stored session and no credentials configured (WCPREDICT_EMAIL / WCPREDICT_PASSWORD)")
			os.Exit(1)
		}
		if err := session.Login(ctx, cfg.Email, cfg.Password); err != nil {
			telemetry.Errorf("login: %v", err)
			os.Exit(1)
		}
	}
	if _, err := session.ResumePendingInvite(ctx); err != nil {
		telemetry.Warnf("pending invite: %v", err)
	}

	// ── Phrase table ───────────────────────────────────────────
	phrases := config.DefaultPhrases()
	if loaded, err := config.LoadPhrases(cfg.PhrasesPath); err == nil {
		phrases = loaded
	} else {
		telemetry.Debugf("phrases: %v, using defaults", err)
	}

	// ── Match table ────────────────────────────────────────────
	table := matches.NewTable(client, bus)
	table.SetPollInterval(cfg.MatchPollInterval)
	bus.Subscribe(events.EventMatchPush, func(evt events.Event) {
		if m, ok := evt.Payload.(events.MatchUpdateEvent); ok {
			table.ApplyPush(m)
		}
	})

	// ── Prediction engine ──────────────────────────────────────
	engine := syncengine.NewEngine(client, table, bus, cfg.DebounceInterval)
	engine.Start(ctx)
	defer engine.Stop()

	// ── Notifications ──────────────────────────────────────────
	aggregator := notify.NewAggregator(client, bus, phrases, cfg.UnreadPollInterval)
	aggregator.Start()

	// Console subscribes after the table so it sees merged state.
	console := display.NewConsole(table)
	console.Subscribe(bus)

	// ── Push channels ──────────────────────────────────────────
	matchWS := pushws.NewClient("matches", cfg.WSURL, session, bus, store)
	pushws.SubscribeMatchTopics(matchWS, bus)

	notifWS := pushws.NewClient("notifications", cfg.WSURL, session, bus, store)
	pushws.SubscribeNotifications(notifWS, bus)

	matchWS.Connect(ctx)
	notifWS.Connect(ctx)
	defer matchWS.Close()
	defer notifWS.Close()

	// ── Initial loads ──────────────────────────────────────────
	if err := engine.LoadAll(ctx); err != nil {
		telemetry.Warnf("load predictions: %v", err)
	}
	_ = aggregator.FetchAll(ctx)
	_ = aggregator.FetchUnreadCount(ctx)

	go table.Run(ctx)
	go aggregator.Run(ctx)

	// ── Shutdown ───────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	telemetry.Infof("Shutting down...")
	cancel()

	telemetry.Infof("shutdown complete  pushes=%d  refreshes=%d  saves=%d  save_errors=%d  reconnects=%d",
		telemetry.Metrics.PushEventsReceived.Value(),
		telemetry.Metrics.MatchRefreshes.Value(),
		telemetry.Metrics.SavesIssued.Value(),
		telemetry.Metrics.SaveErrors.Value(),
		telemetry.Metrics.WSReconnects.Value(),
	)
}
