package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/jsonc"
)

// Duration is a time.Duration that reads "30s" style strings from JSON.
// Plain numbers are taken as nanoseconds.
type Duration struct {
	time.Duration
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch value := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d.Duration = parsed
	case float64:
		d.Duration = time.Duration(value)
	default:
		return fmt.Errorf("invalid duration %s", string(data))
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string   `json:"port"`
	ShutdownTimeout Duration `json:"shutdown_timeout"`
	LogLevel        string   `json:"log_level"`
	LogFormat       string   `json:"log_format"`

	// WebSocket transport
	HeartbeatInterval Duration `json:"heartbeat_interval"`
	ReadTimeout       Duration `json:"read_timeout"`
	WriteTimeout      Duration `json:"write_timeout"`
	SendBuffer        int      `json:"send_buffer"`
	MaxFrameSize      int64    `json:"max_frame_size"`
	AllowedOrigins    []string `json:"allowed_origins"`

	// Input limits
	MaxMessageLength int `json:"max_message_length"`
	MaxCommentLength int `json:"max_comment_length"`

	// Chat rate limiting, per sender
	RateLimitMessages int      `json:"rate_limit_messages"`
	RateLimitWindow   Duration `json:"rate_limit_window"`
	EnableRateLimit   bool     `json:"enable_rate_limit"`

	// Cookie session
	SessionSecret string   `json:"session_secret"`
	SessionMaxAge Duration `json:"session_max_age"`
	SecureCookies bool     `json:"secure_cookies"`

	// MongoDB; an empty URI selects the in-memory repositories
	MongoURI            string   `json:"mongo_uri"`
	MongoDatabase       string   `json:"mongo_database"`
	MongoConnectTimeout Duration `json:"mongo_connect_timeout"`
	MongoMaxPoolSize    uint64   `json:"mongo_max_pool_size"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            ":5000",
		ShutdownTimeout: Duration{30 * time.Second},
		LogLevel:        "info",
		LogFormat:       "text",

		HeartbeatInterval: Duration{54 * time.Second},
		ReadTimeout:       Duration{60 * time.Second},
		WriteTimeout:      Duration{10 * time.Second},
		SendBuffer:        256,
		MaxFrameSize:      4096,

		MaxMessageLength: 1000,
		MaxCommentLength: 2000,

		RateLimitMessages: 30,
		RateLimitWindow:   Duration{time.Minute},
		EnableRateLimit:   true,

		SessionSecret: "skillswap-secret",
		SessionMaxAge: Duration{7 * 24 * time.Hour},

		MongoDatabase:       "skillswap",
		MongoConnectTimeout: Duration{10 * time.Second},
		MongoMaxPoolSize:    100,
	}
}

// Validate reports settings that would make the server misbehave.
func (c *ServerConfig) Validate() error {
	var problems []string
	if c.Port == "" {
		problems = append(problems, "port is empty")
	}
	if c.HeartbeatInterval.Duration <= 0 || c.HeartbeatInterval.Duration >= c.ReadTimeout.Duration {
		problems = append(problems, "heartbeat_interval must be positive and shorter than read_timeout")
	}
	if c.SendBuffer <= 0 {
		problems = append(problems, "send_buffer must be positive")
	}
	if c.MaxMessageLength <= 0 || c.MaxCommentLength <= 0 {
		problems = append(problems, "input length limits must be positive")
	}
	if c.EnableRateLimit && (c.RateLimitMessages <= 0 || c.RateLimitWindow.Duration <= 0) {
		problems = append(problems, "rate limit needs positive rate_limit_messages and rate_limit_window")
	}
	if c.SessionSecret == "" {
		problems = append(problems, "session_secret is empty")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// NewLogger builds the process logger described by LogLevel and LogFormat.
func (c *ServerConfig) NewLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	options := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, options))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, options))
}

// ServerMetrics holds server counters
type ServerMetrics struct {
	TotalConnections  int64     `json:"total_connections"`
	ActiveConnections int64     `json:"active_connections"`
	ActiveRooms       int64     `json:"active_rooms"`
	Broadcasts        int64     `json:"broadcasts"`
	Deliveries        int64     `json:"deliveries"`
	SkippedDeliveries int64     `json:"skipped_deliveries"`
	FailedDeliveries  int64     `json:"failed_deliveries"`
	MalformedFrames   int64     `json:"malformed_frames"`
	StoredMessages    int64     `json:"stored_messages"`
	HiddenReviews     int64     `json:"hidden_reviews"`
	StartTime         time.Time `json:"start_time"`
	LastMessageTime   time.Time `json:"last_message_time"`
	MessageRate       float64   `json:"message_rate"`
	mutex             sync.RWMutex
}

// NewServerMetrics creates new server metrics
func NewServerMetrics() *ServerMetrics {
	return &ServerMetrics{
		StartTime: time.Now(),
	}
}

// IncrementConnections increments connection count
func (sm *ServerMetrics) IncrementConnections() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.TotalConnections++
	sm.ActiveConnections++
}

// DecrementConnections decrements active connection count
func (sm *ServerMetrics) DecrementConnections() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.ActiveConnections--
}

// RoomOpened records a room entry being created.
func (sm *ServerMetrics) RoomOpened() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.ActiveRooms++
}

// RoomClosed records a room entry being deleted.
func (sm *ServerMetrics) RoomClosed() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.ActiveRooms--
}

// RecordBroadcast records the outcome of one room fan-out.
func (sm *ServerMetrics) RecordBroadcast(delivered, skipped, failed int) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.Broadcasts++
	sm.Deliveries += int64(delivered)
	sm.SkippedDeliveries += int64(skipped)
	sm.FailedDeliveries += int64(failed)
}

// IncrementMalformedFrames counts inbound control frames that failed to decode.
func (sm *ServerMetrics) IncrementMalformedFrames() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.MalformedFrames++
}

// IncrementMessages increments stored chat message count
func (sm *ServerMetrics) IncrementMessages() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.StoredMessages++
	sm.LastMessageTime = time.Now()
}

// AddHiddenReviews counts reviews withheld by moderation.
func (sm *ServerMetrics) AddHiddenReviews(n int) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.HiddenReviews += int64(n)
}

// GetMetrics returns current metrics with calculated rates
func (sm *ServerMetrics) GetMetrics() *ServerMetrics {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	var messageRate float64
	if uptime := time.Since(sm.StartTime).Seconds(); uptime > 0 {
		messageRate = float64(sm.StoredMessages) / uptime
	}

	return &ServerMetrics{
		TotalConnections:  sm.TotalConnections,
		ActiveConnections: sm.ActiveConnections,
		ActiveRooms:       sm.ActiveRooms,
		Broadcasts:        sm.Broadcasts,
		Deliveries:        sm.Deliveries,
		SkippedDeliveries: sm.SkippedDeliveries,
		FailedDeliveries:  sm.FailedDeliveries,
		MalformedFrames:   sm.MalformedFrames,
		StoredMessages:    sm.StoredMessages,
		HiddenReviews:     sm.HiddenReviews,
		StartTime:         sm.StartTime,
		LastMessageTime:   sm.LastMessageTime,
		MessageRate:       messageRate,
	}
}

// RateLimiter manages fixed-window rate limiting per key
type RateLimiter struct {
	limits    map[string]*rateWindow
	enabled   bool
	max       int
	window    time.Duration
	now       func() time.Time
	lastPrune time.Time
	mutex     sync.Mutex
}

type rateWindow struct {
	count int
	start time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *ServerConfig) *RateLimiter {
	rl := &RateLimiter{
		limits: make(map[string]*rateWindow),
		now:    time.Now,
	}
	rl.UpdateConfig(config)
	return rl
}

// UpdateConfig applies new limits; open windows keep their counts.
func (rl *RateLimiter) UpdateConfig(config *ServerConfig) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	rl.enabled = config.EnableRateLimit
	rl.max = config.RateLimitMessages
	rl.window = config.RateLimitWindow.Duration
}

// Allow reports whether key may perform one more action in the current window.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	if !rl.enabled {
		return true
	}

	now := rl.now()
	rl.prune(now)

	limit, exists := rl.limits[key]
	if !exists || now.Sub(limit.start) > rl.window {
		limit = &rateWindow{start: now}
		rl.limits[key] = limit
	}

	if limit.count >= rl.max {
		return false
	}
	limit.count++
	return true
}

// prune drops expired windows, at most once per window.
func (rl *RateLimiter) prune(now time.Time) {
	if now.Sub(rl.lastPrune) <= rl.window {
		return
	}
	for key, limit := range rl.limits {
		if now.Sub(limit.start) > rl.window {
			delete(rl.limits, key)
		}
	}
	rl.lastPrune = now
}

// ConfigLoader handles loading configuration from various sources
type ConfigLoader struct {
	configPath string
	logger     *slog.Logger
	mutex      sync.Mutex
}

// NewConfigLoader creates a new configuration loader
func NewConfigLoader(configPath string, logger *slog.Logger) *ConfigLoader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ConfigLoader{
		configPath: configPath,
		logger:     logger,
	}
}

// LoadConfig loads configuration from defaults, the config file and
// environment variables, in that order of precedence (lowest first).
func (cl *ConfigLoader) LoadConfig() (*ServerConfig, error) {
	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	config := DefaultServerConfig()

	if cl.configPath != "" {
		err := cl.loadFromFile(config)
		switch {
		case errors.Is(err, os.ErrNotExist):
			cl.logger.Warn("config file not found, using defaults", "path", cl.configPath)
		case err != nil:
			return nil, err
		}
	}

	loadFromEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// loadFromFile loads configuration from a JSON file. Comments and trailing
// commas are allowed.
func (cl *ConfigLoader) loadFromFile(config *ServerConfig) error {
	data, err := os.ReadFile(cl.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(jsonc.ToJSON(data), config); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", cl.configPath, err)
	}

	cl.logger.Info("loaded configuration", "path", cl.configPath)
	return nil
}

// loadFromEnv overrides configuration with SKILLSWAP_* environment variables
func loadFromEnv(config *ServerConfig) {
	envString("SKILLSWAP_PORT", &config.Port)
	envString("SKILLSWAP_LOG_LEVEL", &config.LogLevel)
	envString("SKILLSWAP_LOG_FORMAT", &config.LogFormat)
	envDuration("SKILLSWAP_SHUTDOWN_TIMEOUT", &config.ShutdownTimeout)

	envDuration("SKILLSWAP_HEARTBEAT_INTERVAL", &config.HeartbeatInterval)
	envDuration("SKILLSWAP_READ_TIMEOUT", &config.ReadTimeout)
	envDuration("SKILLSWAP_WRITE_TIMEOUT", &config.WriteTimeout)
	envInt("SKILLSWAP_SEND_BUFFER", &config.SendBuffer)
	if origins := os.Getenv("SKILLSWAP_ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}

	envInt("SKILLSWAP_MAX_MESSAGE_LENGTH", &config.MaxMessageLength)
	envInt("SKILLSWAP_MAX_COMMENT_LENGTH", &config.MaxCommentLength)

	envInt("SKILLSWAP_RATE_LIMIT_MESSAGES", &config.RateLimitMessages)
	envDuration("SKILLSWAP_RATE_LIMIT_WINDOW", &config.RateLimitWindow)
	envBool("SKILLSWAP_ENABLE_RATE_LIMIT", &config.EnableRateLimit)

	envString("SKILLSWAP_SESSION_SECRET", &config.SessionSecret)
	envBool("SKILLSWAP_SECURE_COOKIES", &config.SecureCookies)

	envString("SKILLSWAP_MONGO_URI", &config.MongoURI)
	envString("SKILLSWAP_MONGO_DATABASE", &config.MongoDatabase)
}

func envString(key string, target *string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func envInt(key string, target *int) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func envBool(key string, target *bool) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func envDuration(key string, target *Duration) {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			target.Duration = parsed
		}
	}
}
