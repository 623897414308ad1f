package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/pmarren/alertline/internal/bot"
	"github.com/pmarren/alertline/internal/config"
	"github.com/pmarren/alertline/internal/lifecycle"
	"github.com/pmarren/alertline/internal/logger"
	"github.com/pmarren/alertline/internal/secrets"
	"github.com/pmarren/alertline/internal/server"
	"github.com/pmarren/alertline/internal/storage"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	vaultToken = flag.String("vault-token", os.Getenv("VAULT_TOKEN"), "Vault token (defaults to $VAULT_TOKEN)")
	homeChat   = flag.Int64("home-chat", 0, "Chat ID for scoped command registration (overrides config)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *vaultToken == "" {
		log.Fatalf("A vault token is required (-vault-token or $VAULT_TOKEN)")
	}

	logg := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	logg.Info().Str("config", *configPath).Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sec, err := secrets.Fetch(ctx, cfg.Vault.Addr, *vaultToken, cfg.Vault.Mount, cfg.Vault.SecretPath)
	if err != nil {
		logg.Fatal().Err(err).Msg("Failed to fetch secrets")
	}

	store, err := storage.New(ctx, storage.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: sec.DBPassword,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		logg.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error().Err(err).Msg("Failed to close database")
		}
	}()

	api, err := tgbotapi.NewBotAPI(sec.TelegramBotToken)
	if err != nil {
		logg.Fatal().Err(err).Msg("Failed to create Telegram client")
	}
	logg.Info().Str("username", api.Self.UserName).Msg("Telegram bot authorized")

	shutdown := lifecycle.NewSignal()
	errHandler := lifecycle.NewShutdownErrorHandler(shutdown, logg)

	srv := server.New(server.Config{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Store:        store,
		Errors:       errHandler,
		Log:          logg,
	})

	homeChatID := cfg.Telegram.HomeChatID
	if *homeChat != 0 {
		homeChatID = *homeChat
	}
	commandBot := bot.New(bot.Config{
		API:        api,
		Store:      store,
		Errors:     errHandler,
		HomeChatID: homeChatID,
		Log:        logg,
	})

	orch := lifecycle.NewOrchestrator(shutdown, cfg.Shutdown.GracePeriod, logg, srv, commandBot)
	if err := orch.Run(ctx); err != nil {
		logg.Error().Err(err).Msg("Service exited with error")
		os.Exit(1)
	}
	logg.Info().Msg("Service stopped")
}
