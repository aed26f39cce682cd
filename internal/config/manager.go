package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// ConfigManager holds the live configuration and reloads it when the
// config file changes.
type ConfigManager struct {
	config       *ServerConfig
	loader       *ConfigLoader
	configPath   string
	pollInterval time.Duration
	logger       *slog.Logger
	mutex        sync.RWMutex
	callbacks    []func(*ServerConfig)
}

// NewConfigManager creates a new configuration manager
func NewConfigManager(configPath string, logger *slog.Logger) *ConfigManager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ConfigManager{
		loader:       NewConfigLoader(configPath, logger),
		configPath:   configPath,
		pollInterval: 30 * time.Second,
		logger:       logger,
	}
}

// Initialize loads the initial configuration.
func (cm *ConfigManager) Initialize() error {
	config, err := cm.loader.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	cm.mutex.Lock()
	cm.config = config
	cm.mutex.Unlock()
	return nil
}

// GetConfig returns a copy of the current configuration
func (cm *ConfigManager) GetConfig() *ServerConfig {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	configCopy := *cm.config
	return &configCopy
}

// RegisterCallback registers a callback for configuration changes
func (cm *ConfigManager) RegisterCallback(callback func(*ServerConfig)) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.callbacks = append(cm.callbacks, callback)
}

// Watch polls the config file until ctx is done and reloads it when its
// modification time moves forward. A file that fails to load keeps the
// previous configuration in place.
func (cm *ConfigManager) Watch(ctx context.Context) {
	if cm.configPath == "" {
		return
	}

	ticker := time.NewTicker(cm.pollInterval)
	defer ticker.Stop()

	var lastModTime time.Time
	if stat, err := os.Stat(cm.configPath); err == nil {
		lastModTime = stat.ModTime()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stat, err := os.Stat(cm.configPath)
			if err != nil || !stat.ModTime().After(lastModTime) {
				continue
			}
			lastModTime = stat.ModTime()
			cm.reload()
		}
	}
}

func (cm *ConfigManager) reload() {
	newConfig, err := cm.loader.LoadConfig()
	if err != nil {
		cm.logger.Error("config reload failed, keeping previous configuration", "error", err)
		return
	}
	cm.logger.Info("configuration file changed, reloaded", "path", cm.configPath)
	cm.onConfigChange(newConfig)
}

// onConfigChange stores the new configuration and notifies callbacks
func (cm *ConfigManager) onConfigChange(newConfig *ServerConfig) {
	cm.mutex.Lock()
	cm.config = newConfig
	callbacks := append([]func(*ServerConfig){}, cm.callbacks...)
	cm.mutex.Unlock()

	for _, callback := range callbacks {
		configCopy := *newConfig
		callback(&configCopy)
	}
}
