package avatar

import (
	"context"
	"fmt"

	"github.com/example/chat-server/modules/auth"
	"github.com/go-monolith/mono"
	fsjetstream "github.com/go-monolith/mono/plugin/fs-jetstream"
	"github.com/go-monolith/mono/pkg/types"
)

// BucketName is the fs-jetstream bucket avatars live in.
const BucketName = "avatars"

// Module stores avatars using the fs-jetstream plugin.
type Module struct {
	storage  *fsjetstream.PluginModule
	profiles ProfileUpdater
	service  *Service
	logger   types.Logger
}

var (
	_ mono.Module          = (*Module)(nil)
	_ mono.UsePluginModule = (*Module)(nil)
	_ mono.DependentModule = (*Module)(nil)
)

// NewModule creates a new avatar module.
func NewModule(logger types.Logger) *Module {
	return &Module{
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "avatar"
}

// Dependencies returns the modules this module depends on.
func (m *Module) Dependencies() []string {
	return []string{"auth"}
}

// SetDependencyServiceContainer receives the auth service container.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "auth" {
		m.profiles = auth.NewAuthAdapter(container)
	}
}

// SetPlugin receives the storage plugin from the framework.
func (m *Module) SetPlugin(alias string, plugin mono.PluginModule) {
	if alias != "storage" {
		return
	}
	storage, ok := plugin.(*fsjetstream.PluginModule)
	if !ok {
		m.logger.Error("Invalid plugin type for storage",
			"alias", alias,
			"expected", "*fsjetstream.PluginModule")
		return
	}
	m.storage = storage
	m.logger.Info("Received storage plugin", "alias", alias)
}

// Start opens the avatars bucket.
func (m *Module) Start(_ context.Context) error {
	if m.storage == nil {
		return fmt.Errorf("required plugin 'storage' not registered")
	}
	if m.profiles == nil {
		return fmt.Errorf("auth dependency not set")
	}

	bucket := m.storage.Bucket(BucketName)
	if bucket == nil {
		return fmt.Errorf("bucket '%s' not found in storage plugin", BucketName)
	}

	m.service = NewService(NewBucketStore(bucket), m.profiles)
	m.service.onError = m.logger.Warn

	m.logger.Info("Avatar module started", "bucket", BucketName)
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Avatar module stopped")
	return nil
}

// Service returns the avatar service instance.
func (m *Module) Service() *Service {
	return m.service
}
