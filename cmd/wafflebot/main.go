package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/wafflebot/internal/adapters"
	"github.com/iamwavecut/wafflebot/internal/adapters/llm/gemini"
	"github.com/iamwavecut/wafflebot/internal/adapters/llm/openai"
	"github.com/iamwavecut/wafflebot/internal/bot"
	"github.com/iamwavecut/wafflebot/internal/config"
	"github.com/iamwavecut/wafflebot/internal/db/sqlite"
	"github.com/iamwavecut/wafflebot/internal/event"
	"github.com/iamwavecut/wafflebot/internal/filters"
	"github.com/iamwavecut/wafflebot/internal/flood"
	adminhandlers "github.com/iamwavecut/wafflebot/internal/handlers/admin"
	chathandlers "github.com/iamwavecut/wafflebot/internal/handlers/chat"
	"github.com/iamwavecut/wafflebot/internal/i18n"
	"github.com/iamwavecut/wafflebot/internal/infra"
	"github.com/iamwavecut/wafflebot/internal/infrastructure/telegram"
	"github.com/iamwavecut/wafflebot/internal/lifecycle"
	"github.com/iamwavecut/wafflebot/internal/observability"
	"github.com/iamwavecut/wafflebot/internal/policy/permissions"
	"github.com/iamwavecut/wafflebot/internal/punish"
	"github.com/iamwavecut/wafflebot/internal/settings"
	"github.com/iamwavecut/wafflebot/internal/warns"
)

const (
	journalQueueSize = 256
	adminsCacheSize  = 1024
	stopTimeout      = 10 * time.Second

	scorerNone   = "none"
	scorerOpenAI = "openai"
	scorerGemini = "gemini"
)

func main() {
	log.SetFormatter(&config.WaffleFormatter{})
	log.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetLevel(log.Level(cfg.LogLevel))

	if !i18n.Supported(cfg.DefaultLanguage) {
		log.WithField("lang", cfg.DefaultLanguage).Warn("no translations for language, keys are shown as is")
	}
	i18n.SetDefaultLanguage(cfg.DefaultLanguage)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Errorln("bot stopped")
		time.Sleep(1 * time.Second)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		return errors.Wrap(err, "cant initialize bot api")
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}
	gateway := telegram.NewOperations(botAPI)

	client, err := sqlite.NewSQLiteClient(ctx, infra.GetWorkDir(cfg.DotPath), cfg.DBFile)
	if err != nil {
		return errors.WithMessage(err, "cant open database")
	}
	defer func() { _ = client.Close() }()

	var rdb redis.UniversalClient
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return errors.Wrap(err, "cant reach redis")
		}
	}

	var cache settings.Cache = settings.NewMemoryCache(cfg.Cache.SettingsSize, cfg.Cache.SettingsTTL)
	if rdb != nil && cfg.Cache.SharedInRedis {
		cache = settings.NewRedisCache(rdb, cfg.Cache.SettingsTTL)
	}
	store := settings.NewStore(client, cache)
	if err := store.Preload(ctx); err != nil {
		log.WithError(err).Warn("cant preload chat settings")
	}

	var floodStore flood.Store = flood.NewMemoryStore()
	if rdb != nil {
		floodStore = flood.NewRedisStore(rdb)
	}
	counter := flood.NewCounter(floodStore)

	bus := event.NewBus(journalQueueSize)
	worker := event.NewWorker(bus)
	event.NewJournal(gateway, cfg.JournalChatID).Subscribe(worker)

	ledger := warns.NewLedger(client)
	admins := permissions.NewAdmins(gateway, client, adminsCacheSize, cfg.Cache.AdminsTTL)
	engine := punish.NewEngine(gateway, ledger, counter, store.Warns, bus)

	scorer, err := newScorer(ctx, cfg.NSFW)
	if err != nil {
		return err
	}
	chain := filters.NewChain(
		filters.NewFlood(counter, store.Antiflood, gateway, engine),
		filters.NewForward(store.Forward, gateway, engine),
		filters.NewQuotes(store.Quotes, gateway, engine),
		filters.NewTLinks(store.TLinks, gateway, engine),
		filters.NewLinks(store.Links, gateway, engine),
		filters.NewMedia(store.Blocks, gateway, bus),
		filters.NewNSFW(scorer, gateway, store.NSFW, gateway, engine).WithTempDir(infra.GetWorkDir(cfg.DotPath, "tmp")),
	)

	features := chathandlers.Features{
		Warns:         store.Warns,
		Meeting:       store.Meeting,
		Captcha:       store.Captcha,
		Moderation:    store.Moderation,
		Reports:       store.Reports,
		Rules:         store.Rules,
		BlockChannels: store.BlockChannels,
	}
	editor := adminhandlers.NewEditor(gateway, client, admins, store)

	processor := bot.NewUpdateProcessor(cfg.EnabledHandlers)
	processor.Register("admin", editor)
	processor.Register("gatekeeper", chathandlers.NewGatekeeper(gateway, client, features))
	processor.Register("reactor", chathandlers.NewReactor(gateway, client, admins, chain, engine, ledger, features, bus))
	if missing := processor.Missing(); len(missing) > 0 {
		log.WithField("handlers", strings.Join(missing, ",")).Warn("unknown handlers enabled")
	}

	metrics, err := observability.NewServer(cfg.MetricsAddr)
	if err != nil {
		return errors.Wrap(err, "cant create metrics server")
	}
	components := lifecycle.NewRuntime().
		Register("metrics", metrics).
		Register("journal", worker).
		Register("editor", editor)
	if err := components.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		defer cancel()
		if err := components.Stop(stopCtx); err != nil {
			log.WithError(err).Warn("unclean shutdown")
		}
	}()

	log.Info(tool.ExecTemplate(`started as @{{ .name }} with handlers {{ .handlers }}`, map[string]any{
		"name":     botAPI.Self.UserName,
		"handlers": strings.Join(cfg.EnabledHandlers, ","),
	}))

	updateConfig := api.NewUpdate(0)
	updateConfig.Timeout = 60
	updateConfig.AllowedUpdates = bot.AllowedUpdates
	updates, updateErrs := bot.GetUpdatesChans(ctx, botAPI, updateConfig)

	done := make(chan error, 1)
	go func() {
		done <- infra.Recoverable(ctx, -1, "process_updates", func(ctx context.Context) error {
			return processUpdates(ctx, processor, updates, updateErrs)
		})
	}()

	select {
	case err := <-done:
		return err
	case <-infra.MonitorExecutable(ctx):
		log.Warn("executable file was modified")
		return nil
	case <-ctx.Done():
		log.Info("shutting down")
		return nil
	}
}

func processUpdates(ctx context.Context, processor *bot.UpdateProcessor, updates api.UpdatesChannel, errs chan error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if !ok || ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "bot api get updates error")
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			observe := observability.StartUpdate()
			if err := processor.ProcessAPI(ctx, update); err != nil {
				log.WithError(err).Errorln("cant process update")
				observe("error")
				continue
			}
			observe("ok")
		}
	}
}

// newScorer returns nil when image scoring is disabled.
func newScorer(ctx context.Context, cfg config.NSFW) (adapters.ImageScorer, error) {
	if !tool.In(cfg.Type, scorerNone, scorerOpenAI, scorerGemini) {
		return nil, errors.Errorf("unknown nsfw api type %q", cfg.Type)
	}
	logger := log.WithField("object", "ImageScorer")
	switch cfg.Type {
	case scorerOpenAI:
		return openai.NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL, logger), nil
	case scorerGemini:
		scorer, err := gemini.NewGemini(ctx, cfg.APIKey, cfg.Model, logger)
		if err != nil {
			return nil, errors.WithMessage(err, "cant create gemini scorer")
		}
		return scorer, nil
	}
	return nil, nil
}
