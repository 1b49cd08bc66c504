// Package mirror copies messages from one room to a Discord channel.
package mirror

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/example/chat-server/config"
	"github.com/example/chat-server/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/gtuk/discordwebhook"
)

// maxContentLength is Discord's limit for a webhook message body.
const maxContentLength = 2000

// Module posts messages sent to the mirrored room to a Discord webhook.
type Module struct {
	cfg  config.DiscordConfig
	send func(url string, message discordwebhook.Message) error
}

var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventConsumerModule = (*Module)(nil)
)

// NewModule creates a new mirror module.
func NewModule(cfg config.DiscordConfig) *Module {
	return &Module{
		cfg:  cfg,
		send: discordwebhook.SendMessage,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "discord-mirror"
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	log.Printf("[discord-mirror] Module started, mirroring room %q", m.cfg.MirrorRoom)
	return nil
}

// Stop stops the module.
func (m *Module) Stop(_ context.Context) error {
	log.Println("[discord-mirror] Module stopped")
	return nil
}

// RegisterEventConsumers subscribes to room messages.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}
	return nil
}

func (m *Module) handleMessageSent(_ context.Context, event events.MessageEvent, _ *mono.Msg) error {
	if !m.mirrors(event) {
		return nil
	}

	username := event.SenderName
	content := truncate(event.Content, maxContentLength)
	message := discordwebhook.Message{
		Username: &username,
		Content:  &content,
	}
	if err := m.send(m.cfg.WebhookURL, message); err != nil {
		log.Printf("[discord-mirror] Failed to post message %s: %v", event.MessageID, err)
	}
	return nil
}

// mirrors reports whether the message belongs to the mirrored room.
func (m *Module) mirrors(event events.MessageEvent) bool {
	if m.cfg.WebhookURL == "" || event.RoomID == "" {
		return false
	}
	return strings.EqualFold(event.RoomName, m.cfg.MirrorRoom)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
