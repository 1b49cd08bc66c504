package main

import (
	"context"
	"log"
	"os"

	"github.com/example/chat-server/config"
	"github.com/example/chat-server/modules/api"
	"github.com/example/chat-server/modules/auth"
	"github.com/example/chat-server/modules/avatar"
	"github.com/example/chat-server/modules/broadcast"
	"github.com/example/chat-server/modules/chat"
	"github.com/example/chat-server/modules/friends"
	"github.com/example/chat-server/modules/mirror"
	"github.com/example/chat-server/modules/ratelimit"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	fsjetstream "github.com/go-monolith/mono/plugin/fs-jetstream"
)

func main() {
	log.Println("=== Chat Server ===")

	cfg := config.Load()

	// The embedded NATS server carries both the event bus and avatar storage.
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
		mono.WithJetStreamStorageDir(cfg.StoragePath),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	storagePlugin, err := fsjetstream.New(fsjetstream.Config{
		Buckets: []fsjetstream.BucketConfig{
			{
				Name:        avatar.BucketName,
				Description: "User avatars (webp)",
				MaxBytes:    512 * 1024 * 1024,
				Storage:     fsjetstream.FileStorage,
				Compression: false,
			},
		},
	})
	if err != nil {
		log.Fatalf("Failed to create storage plugin: %v", err)
	}
	if err := app.RegisterPlugin(storagePlugin, "storage"); err != nil {
		log.Fatalf("Failed to register storage plugin: %v", err)
	}

	authModule := auth.NewModule(cfg.Auth)
	friendsModule := friends.NewModule(cfg.Friends, app.Logger())
	chatModule := chat.NewModule(cfg.Chat, app.Logger())
	avatarModule := avatar.NewModule(app.Logger())
	broadcastModule := broadcast.NewModule()
	apiModule := api.NewModule(cfg.Port)

	// The hub, avatar service and limiter are not exposed through the
	// service container, so the api module receives them directly.
	apiModule.SetHub(broadcastModule.GetHub())
	apiModule.SetAvatarModule(avatarModule)

	app.Register(authModule)      // Accounts, tokens, profiles
	app.Register(friendsModule)   // Friend requests and friendships
	app.Register(chatModule)      // Rooms, messages, direct messages
	app.Register(avatarModule)    // Avatar processing on fs-jetstream
	app.Register(broadcastModule) // WebSocket hub + event consumer

	if cfg.RateLimit.Enabled {
		rateLimitModule := ratelimit.NewModule(cfg.RateLimit)
		apiModule.SetRateLimiter(rateLimitModule.Middleware())
		app.Register(rateLimitModule)
	}
	if cfg.Discord.WebhookURL != "" {
		app.Register(mirror.NewModule(cfg.Discord))
	}

	app.Register(apiModule) // HTTP/WebSocket API

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg *config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Modules:")
	log.Println("  - auth, friends, chat: gorm + sqlite, one database each")
	log.Println("  - avatar: webp avatars in the fs-jetstream 'avatars' bucket")
	log.Println("  - broadcast: event consumer feeding the WebSocket hub")
	if cfg.RateLimit.Enabled {
		log.Printf("  - rate-limiter: %d requests per %s (redis %s)",
			cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowSize, cfg.RateLimit.RedisAddr)
	}
	if cfg.Discord.WebhookURL != "" {
		log.Printf("  - discord-mirror: room %q", cfg.Discord.MirrorRoom)
	}
	log.Println("")
	log.Printf("REST API (http://localhost:%s):", cfg.Port)
	log.Println("  POST   /api/v1/auth/signup|login|refresh|logout")
	log.Println("  GET    /api/v1/me, PATCH /api/v1/me, POST /api/v1/me/avatar")
	log.Println("  GET    /api/v1/users?q=, GET /api/v1/users/:username")
	log.Println("  GET    /api/v1/friends, /api/v1/friends/requests")
	log.Println("  GET    /api/v1/rooms, POST /api/v1/rooms, /api/v1/rooms/:id/...")
	log.Println("  GET    /api/v1/dms, /api/v1/dms/:username")
	log.Println("")
	log.Printf("WebSocket (ws://localhost:%s/ws?token=<access token>):", cfg.Port)
	log.Println("  Client frames: subscribe, unsubscribe, message, dm, dm_history, edit, delete, ping")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
