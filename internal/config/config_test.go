package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skillswap.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestDefaultServerConfig_IsValid(t *testing.T) {
	require.NoError(t, DefaultServerConfig().Validate())
}

func TestLoadConfig_FileWithCommentsAndEnvOverride(t *testing.T) {
	path := writeConfigFile(t, `{
		// chat limits
		"port": ":7000",
		"rate_limit_window": "30s",
		"max_message_length": 500,
		"heartbeat_interval": "20s",
		"read_timeout": "25s", // trailing comma below is fine
	}`)
	t.Setenv("SKILLSWAP_PORT", ":8000")
	t.Setenv("SKILLSWAP_MONGO_URI", "mongodb://db:27017")

	cfg, err := NewConfigLoader(path, nil).LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow.Duration)
	assert.Equal(t, 500, cfg.MaxMessageLength)
	assert.Equal(t, 20*time.Second, cfg.HeartbeatInterval.Duration)
	assert.Equal(t, "mongodb://db:27017", cfg.MongoURI)
	assert.Equal(t, DefaultServerConfig().MaxCommentLength, cfg.MaxCommentLength)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewConfigLoader(filepath.Join(t.TempDir(), "absent.json"), nil).LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultServerConfig().Port, cfg.Port)
}

func TestLoadConfig_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{name: "unparseable", contents: `{"port": `},
		{name: "bad duration", contents: `{"read_timeout": "soon"}`},
		{name: "heartbeat not shorter than read timeout", contents: `{"heartbeat_interval": "2m", "read_timeout": "1m"}`},
		{name: "empty secret", contents: `{"session_secret": ""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfigLoader(writeConfigFile(t, tt.contents), nil).LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestRateLimiter_Window(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.RateLimitMessages = 2
	cfg.RateLimitWindow = Duration{time.Minute}

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(cfg)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("user-1"))
	assert.True(t, rl.Allow("user-1"))
	assert.False(t, rl.Allow("user-1"))
	assert.True(t, rl.Allow("user-2"), "limits are per key")

	now = now.Add(2 * time.Minute)
	assert.True(t, rl.Allow("user-1"), "a new window resets the count")
}

func TestRateLimiter_DropsExpiredWindows(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.RateLimitMessages = 1
	cfg.RateLimitWindow = Duration{time.Minute}

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(cfg)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("user-1"))
	assert.True(t, rl.Allow("user-2"))
	now = now.Add(30 * time.Second)
	assert.True(t, rl.Allow("user-3"))
	assert.False(t, rl.Allow("user-1"), "window still open")
	assert.Len(t, rl.limits, 3)

	now = now.Add(2 * time.Minute)
	assert.True(t, rl.Allow("user-4"))
	assert.Len(t, rl.limits, 1, "only the fresh window is kept")
	assert.Contains(t, rl.limits, "user-4")
}

func TestRateLimiter_Disabled(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.RateLimitMessages = 1
	rl := NewRateLimiter(cfg)
	assert.True(t, rl.Allow("k"))
	assert.False(t, rl.Allow("k"))

	cfg.EnableRateLimit = false
	rl.UpdateConfig(cfg)
	assert.True(t, rl.Allow("k"))
}

func TestConfigManager_ReloadNotifiesCallbacks(t *testing.T) {
	path := writeConfigFile(t, `{"max_message_length": 100}`)
	manager := NewConfigManager(path, nil)
	require.NoError(t, manager.Initialize())
	assert.Equal(t, 100, manager.GetConfig().MaxMessageLength)

	var seen *ServerConfig
	manager.RegisterCallback(func(cfg *ServerConfig) { seen = cfg })

	require.NoError(t, os.WriteFile(path, []byte(`{"max_message_length": 200}`), 0o644))
	manager.reload()

	require.NotNil(t, seen)
	assert.Equal(t, 200, seen.MaxMessageLength)
	assert.Equal(t, 200, manager.GetConfig().MaxMessageLength)

	require.NoError(t, os.WriteFile(path, []byte(`{"max_message_length": `), 0o644))
	manager.reload()
	assert.Equal(t, 200, manager.GetConfig().MaxMessageLength, "broken file keeps previous config")
}

func TestServerMetrics_Snapshot(t *testing.T) {
	metrics := NewServerMetrics()
	metrics.IncrementConnections()
	metrics.IncrementConnections()
	metrics.DecrementConnections()
	metrics.RoomOpened()
	metrics.RecordBroadcast(3, 1, 1)
	metrics.AddHiddenReviews(2)

	snapshot := metrics.GetMetrics()
	assert.Equal(t, int64(2), snapshot.TotalConnections)
	assert.Equal(t, int64(1), snapshot.ActiveConnections)
	assert.Equal(t, int64(1), snapshot.ActiveRooms)
	assert.Equal(t, int64(1), snapshot.Broadcasts)
	assert.Equal(t, int64(3), snapshot.Deliveries)
	assert.Equal(t, int64(1), snapshot.SkippedDeliveries)
	assert.Equal(t, int64(1), snapshot.FailedDeliveries)
	assert.Equal(t, int64(2), snapshot.HiddenReviews)
}
