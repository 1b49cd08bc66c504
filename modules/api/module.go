package api

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/example/chat-server/modules/auth"
	"github.com/example/chat-server/modules/avatar"
	"github.com/example/chat-server/modules/broadcast"
	"github.com/example/chat-server/modules/chat"
	"github.com/example/chat-server/modules/friends"
	"github.com/example/chat-server/modules/ratelimit"
	"github.com/go-monolith/mono"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// APIModule serves the REST API and the websocket endpoint.
type APIModule struct {
	app     *fiber.App
	port    string
	auth    auth.AuthPort
	friends friends.FriendsPort
	chat    chat.ChatPort
	hub     *broadcast.Hub
	avatars *avatar.Module
	limiter *ratelimit.Middleware
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule listening on port.
func NewModule(port string) *APIModule {
	return &APIModule{
		port: port,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"auth", "friends", "chat"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.auth = auth.NewAuthAdapter(container)
	case "friends":
		m.friends = friends.NewFriendsAdapter(container)
	case "chat":
		m.chat = chat.NewChatAdapter(container)
	}
}

// SetHub sets the websocket hub owned by the broadcast module.
func (m *APIModule) SetHub(hub *broadcast.Hub) {
	m.hub = hub
}

// SetAvatarModule sets the avatar module. Its service becomes available once
// that module has started.
func (m *APIModule) SetAvatarModule(avatars *avatar.Module) {
	m.avatars = avatars
}

// SetRateLimiter sets the rate limiting middleware. Without it, requests are
// not rate limited.
func (m *APIModule) SetRateLimiter(limiter *ratelimit.Middleware) {
	m.limiter = limiter
}

// Start initializes and starts the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.auth == nil || m.friends == nil || m.chat == nil {
		return fmt.Errorf("auth, friends and chat dependencies must be set")
	}
	if m.hub == nil {
		return fmt.Errorf("websocket hub not set")
	}

	m.app = fiber.New(fiber.Config{
		AppName:               "Chat Server",
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		BodyLimit:             avatar.MaxUploadSize + 64*1024,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	m.app.Use(cors.New(cors.Config{
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	handlers := NewHandlers(m.auth, m.friends, m.chat, m.avatarStore)
	ws := NewWSHandler(m.hub, m.chat, m.limiter)
	setupRoutes(m.app, handlers, ws, m.auth, m.limiter, m.health)

	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(":" + m.port); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	log.Printf("[api] HTTP server started on :%s", m.port)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[api] Shutting down HTTP server...")
	return m.app.ShutdownWithContext(ctx)
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"port": m.port,
		},
	}
}

func (m *APIModule) avatarStore() AvatarStore {
	if m.avatars == nil {
		return nil
	}
	if svc := m.avatars.Service(); svc != nil {
		return svc
	}
	return nil
}

func (m *APIModule) health() map[string]any {
	details := map[string]any{"status": "healthy"}
	if m.hub != nil {
		details["connected_clients"] = m.hub.ClientCount()
		details["online_users"] = m.hub.UserCount()
	}
	return details
}

// setupRoutes configures all API routes.
func setupRoutes(app *fiber.App, h *Handlers, ws *WSHandler, authPort auth.AuthPort, limiter *ratelimit.Middleware, health func() map[string]any) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(health())
	})

	if ws != nil {
		app.Get("/ws", WebSocketAuthMiddleware(authPort), websocket.New(ws.Handle))
	}

	limit := writeLimit(limiter)
	v1 := app.Group("/api/v1")

	// Public routes
	authRoutes := v1.Group("/auth", limit)
	authRoutes.Post("/signup", h.Signup)
	authRoutes.Post("/login", h.Login)
	authRoutes.Post("/refresh", h.Refresh)
	authRoutes.Post("/logout", h.Logout)
	v1.Get("/avatars/:user/:file", h.GetAvatar)

	// Protected routes
	protected := v1.Group("", AuthMiddleware(authPort), limit)

	protected.Get("/me", h.Me)
	protected.Patch("/me", h.UpdateMe)
	protected.Post("/me/avatar", h.UploadAvatar)

	protected.Get("/users", h.SearchUsers)
	protected.Get("/users/:username", h.GetUser)

	protected.Get("/friends", h.ListFriends)
	protected.Get("/friends/requests", h.ListFriendRequests)
	protected.Post("/friends/requests", h.SendFriendRequest)
	protected.Post("/friends/requests/:id/accept", h.AcceptFriendRequest)
	protected.Post("/friends/requests/:id/decline", h.DeclineFriendRequest)
	protected.Delete("/friends/:username", h.RemoveFriend)

	protected.Get("/rooms", h.ListRooms)
	protected.Post("/rooms", h.CreateRoom)
	protected.Post("/rooms/invite/:code", h.JoinByInvite)
	protected.Get("/rooms/:id", h.GetRoom)
	protected.Delete("/rooms/:id", h.DeleteRoom)
	protected.Post("/rooms/:id/join", h.JoinRoom)
	protected.Post("/rooms/:id/leave", h.LeaveRoom)
	protected.Post("/rooms/:id/kick", h.KickMember)
	protected.Post("/rooms/:id/ban", h.BanMember)
	protected.Post("/rooms/:id/unban", h.UnbanMember)
	protected.Get("/rooms/:id/members", h.ListMembers)
	protected.Get("/rooms/:id/messages", h.RoomHistory)
	protected.Post("/rooms/:id/messages", h.PostMessage)

	protected.Patch("/messages/:id", h.EditMessage)
	protected.Delete("/messages/:id", h.DeleteMessage)

	protected.Get("/dms", h.ListDMThreads)
	protected.Get("/dms/:username", h.DMHistory)
	protected.Post("/dms/:username", h.SendDM)

	protected.Post("/admin/users/:username/ban", h.BanUser)
	protected.Post("/admin/users/:username/unban", h.UnbanUser)
}
