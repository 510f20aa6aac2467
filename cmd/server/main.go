package main

import (
	"context"
	"log"
	"time"

	"marketplace-chat/internal/auth"
	"marketplace-chat/internal/chat"
	"marketplace-chat/internal/notify"
	"marketplace-chat/internal/presence"
	"marketplace-chat/internal/server"
	"marketplace-chat/internal/storage"

	"github.com/caarlos0/env/v6"
	"go.uber.org/zap"
)

type appConfig struct {
	Debug bool `env:"DEBUG" envDefault:"false"`
}

func main() {
	app := appConfig{}
	if err := env.Parse(&app); err != nil {
		log.Fatalf("Cannot parse env config: %v", err)
	}

	newLogger := zap.NewProduction
	if app.Debug {
		newLogger = zap.NewDevelopment
	}
	logger, err := newLogger()
	if err != nil {
		log.Fatalf("zap logger: %v", err)
	}
	defer logger.Sync()

	sugar := logger.Sugar()
	sugar.Info("Application is starting")

	var (
		serverCfg   server.EnvConfig
		storageCfg  storage.Config
		authCfg     auth.EnvConfig
		chatCfg     chat.EnvConfig
		notifyCfg   notify.EnvConfig
		presenceCfg presence.EnvConfig
	)
	for _, cfg := range []interface{}{&serverCfg, &storageCfg, &authCfg, &chatCfg, &notifyCfg, &presenceCfg} {
		if err := env.Parse(cfg); err != nil {
			sugar.Fatalf("Cannot parse env config: %v", err)
		}
	}

	ctx := context.Background()

	store, err := storage.New(ctx, sugar, storageCfg, storage.ConnectionTimeout(30*time.Second))
	if err != nil {
		sugar.Fatalf("Cannot create Store instance: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		sugar.Fatalf("Cannot apply schema: %v", err)
	}

	authenticator := auth.NewAuthenticator(sugar, auth.NewJWTVerifier(authCfg.Secret, authCfg.Issuer), store, authCfg.Timeout)

	chatOpts := []chat.Option{
		chat.WithEnvConfig(chatCfg),
		chat.NotifyTimeout(notifyCfg.Timeout),
	}
	afterShutdown := []func(){}

	if len(notifyCfg.Brokers) > 0 {
		bridge := notify.NewKafkaBridge(sugar, notifyCfg)
		chatOpts = append(chatOpts, chat.WithNotifier(bridge))
		afterShutdown = append(afterShutdown, func() {
			if err := bridge.Close(); err != nil {
				sugar.Errorf("Closing kafka writer: %v", err)
			}
		})
		sugar.Infof("Publishing notifications to %s", notifyCfg.Topic)
	} else {
		chatOpts = append(chatOpts, chat.WithNotifier(notify.NewNopBridge(sugar)))
	}

	if presenceCfg.Addr != "" {
		client := presence.NewClient(presenceCfg)
		if err := client.Ping(ctx).Err(); err != nil {
			sugar.Fatalf("Cannot reach redis at %s: %v", presenceCfg.Addr, err)
		}
		chatOpts = append(chatOpts, chat.WithPresenceMirror(presence.NewRedisMirror(client, presenceCfg.Prefix, presenceCfg.TTL)))
		afterShutdown = append(afterShutdown, func() {
			if err := client.Close(); err != nil {
				sugar.Errorf("Closing redis client: %v", err)
			}
		})
		sugar.Infof("Mirroring presence to redis at %s", presenceCfg.Addr)
	}

	dispatcher := chat.NewDispatcher(sugar, store, store, chatOpts...)

	serverOpts := []server.Option{
		server.WithEnvConfig(serverCfg),
		server.ReadTimeout(5 * time.Second),
		server.TimeoutHandler(10*time.Second, "Request timed out"),
		// pending notifications go out before their transports close
		server.RegisterAfterShutdown(dispatcher.Wait),
	}
	for _, f := range afterShutdown {
		serverOpts = append(serverOpts, server.RegisterAfterShutdown(f))
	}
	serverOpts = append(serverOpts, server.RegisterAfterShutdown(func() {
		sugar.Info("Closing store")
		store.Close()
		sugar.Info("Store is closed")
	}))

	srv, err := server.New(sugar, store, authenticator, dispatcher, serverOpts...)
	if err != nil {
		sugar.Fatalf("Cannot create Server instance: %v", err)
	}

	if err := srv.Start(); err != nil {
		sugar.Fatalf("Cannot start http srv: %v", err)
	}
}
