package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds validated environment configuration
type Config struct {
	// Server
	Port        string
	CORSOrigin  string
	CORSMethods []string

	// External question provider
	QuizBaseURL string

	// Environment
	NodeEnv         string
	Production      bool
	DevelopmentMode bool
	LogLevel        string

	// Rate limits
	RateLimitWsIP string
}

const defaultQuizBaseURL = "https://quizizz.com/api/main/game"

// ValidateEnv validates all recognized environment variables and returns a Config.
// Returns an error listing every violation if any variable is invalid.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errors []string

	// Optional: PORT (defaults to 3001)
	cfg.Port = getEnvOrDefault("PORT", "3001")
	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.Port))
	}

	// Optional: CORS_ORIGIN (defaults to localhost dev client)
	cfg.CORSOrigin = getEnvOrDefault("CORS_ORIGIN", "http://localhost:3000")

	// Optional: CORS_METHODS (comma-separated)
	methods := getEnvOrDefault("CORS_METHODS", "GET,POST")
	cfg.CORSMethods = splitAndTrim(methods)
	if len(cfg.CORSMethods) == 0 {
		errors = append(errors, fmt.Sprintf("CORS_METHODS must name at least one method (got '%s')", methods))
	}

	// Optional: QUIZIZZ_BASE_URL overrides the default provider endpoint
	cfg.QuizBaseURL = getEnvOrDefault("QUIZIZZ_BASE_URL", defaultQuizBaseURL)
	if !strings.HasPrefix(cfg.QuizBaseURL, "http://") && !strings.HasPrefix(cfg.QuizBaseURL, "https://") {
		errors = append(errors, fmt.Sprintf("QUIZIZZ_BASE_URL must be an http(s) URL (got '%s')", cfg.QuizBaseURL))
	}

	// Optional: NODE_ENV (production selects production defaults)
	cfg.NodeEnv = getEnvOrDefault("NODE_ENV", "development")
	cfg.Production = cfg.NodeEnv == "production"
	cfg.DevelopmentMode = os.Getenv("DEVELOPMENT_MODE") == "true" || !cfg.Production

	// Optional: LOG_LEVEL (defaults to "info")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Rate limits (format: <count>-<period>, e.g. "100-M" = 100/minute)
	cfg.RateLimitWsIP = getEnvOrDefault("RATE_LIMIT_WS_IP", "100-M")

	if len(errors) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return cfg, nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Game holds the static gameplay tuning table. Values are not read from the
// environment; they are the balance knobs of the game itself.
type Game struct {
	// Health and combat
	StartingHealth    int
	TagDamage         int
	TagScoreSteal     int
	IFrameDuration    time.Duration
	KnockbackEnabled  bool
	KnockbackDistance int
	KnockbackDuration time.Duration
	CollisionCooldown time.Duration

	// Roles
	HunterPercentage float64
	MinHunters       int
	MaxHunters       int
	EnforcerChance   float64

	// Phases
	HuntDuration      time.Duration
	BlitzDuration     time.Duration
	RoundEndDuration  time.Duration
	GameTotalDuration time.Duration
	BlitzQuestions    int
	BlitzWinnerBonus  int
	UnfreezePassCount int

	// Connection
	ReconnectGracePeriod time.Duration
	PositionThrottle     time.Duration
	RespawnGracePeriod   time.Duration

	// Coins
	CoinValue        int
	CoinRespawnTime  time.Duration
	CoinInitialCount int
	MinCoinDistance  int

	// Sinkholes
	SinkholeInitialCount int
	SinkholeMaxCount     int
	SinkholeMinInterval  time.Duration
	SinkholeMaxInterval  time.Duration
	TeleportCooldown     time.Duration
	CollectionRadius     int

	// Traps
	TrapInitialCount int
}

// DefaultGame returns the production tuning table.
func DefaultGame() Game {
	return Game{
		StartingHealth:    100,
		TagDamage:         50,
		TagScoreSteal:     10,
		IFrameDuration:    3 * time.Second,
		KnockbackEnabled:  true,
		KnockbackDistance: 2,
		KnockbackDuration: 300 * time.Millisecond,
		CollisionCooldown: 500 * time.Millisecond,

		HunterPercentage: 0.3,
		MinHunters:       1,
		MaxHunters:       30,
		EnforcerChance:   0.3,

		HuntDuration:      30 * time.Second,
		BlitzDuration:     15 * time.Second,
		RoundEndDuration:  3 * time.Second,
		GameTotalDuration: 300 * time.Second,
		BlitzQuestions:    3,
		BlitzWinnerBonus:  5,
		UnfreezePassCount: 2,

		ReconnectGracePeriod: 10 * time.Second,
		PositionThrottle:     30 * time.Millisecond,
		RespawnGracePeriod:   100 * time.Millisecond,

		CoinValue:        1,
		CoinRespawnTime:  2 * time.Second,
		CoinInitialCount: 20,
		MinCoinDistance:  3,

		SinkholeInitialCount: 2,
		SinkholeMaxCount:     6,
		SinkholeMinInterval:  15 * time.Second,
		SinkholeMaxInterval:  25 * time.Second,
		TeleportCooldown:     2 * time.Second,
		CollectionRadius:     1,

		TrapInitialCount: 4,
	}
}
