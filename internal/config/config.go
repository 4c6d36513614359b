package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BlobModeLocal = "local"
	BlobModeS3    = "s3"
	BlobModeAuto  = "auto"
)

const (
	AIModeMock      = "mock"
	AIModeAnthropic = "anthropic"
	AIModeOpenAI    = "openai"
)

const (
	AuthModeNone = "none"
	AuthModeDev  = "dev"
	AuthModeJWT  = "jwt"
)

// MaxToolAttempts caps how often a forced tool call is re-asked.
const MaxToolAttempts = 5

type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

func (c S3Config) MissingRequired() []string {
	missing := make([]string, 0, 5)
	if strings.TrimSpace(c.Endpoint) == "" {
		missing = append(missing, "S3_ENDPOINT")
	}
	if strings.TrimSpace(c.Region) == "" {
		missing = append(missing, "S3_REGION")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		missing = append(missing, "S3_BUCKET")
	}
	if strings.TrimSpace(c.AccessKeyID) == "" {
		missing = append(missing, "S3_ACCESS_KEY_ID")
	}
	if strings.TrimSpace(c.SecretAccessKey) == "" {
		missing = append(missing, "S3_SECRET_ACCESS_KEY")
	}
	return missing
}

func (c S3Config) IsConfigured() bool {
	return len(c.MissingRequired()) == 0
}

func (c S3Config) Diagnostics() (level string, code string, msg string) {
	allEmpty := strings.TrimSpace(c.Endpoint) == "" &&
		strings.TrimSpace(c.Region) == "" &&
		strings.TrimSpace(c.Bucket) == "" &&
		strings.TrimSpace(c.AccessKeyID) == "" &&
		strings.TrimSpace(c.SecretAccessKey) == ""

	if allEmpty {
		return "INFO", "s3_not_configured", "not configured (all empty)"
	}

	missing := c.MissingRequired()
	if len(missing) > 0 {
		return "WARN", "s3_partial_config", fmt.Sprintf("partial config, missing=%v", missing)
	}

	return "INFO", "s3_ready", "ready"
}

// DiagnosticsSummary returns a loggable summary without secrets.
func (c S3Config) DiagnosticsSummary() string {
	return fmt.Sprintf("endpoint=%s region=%s bucket=%s access_key_id=%s secret_access_key=%s",
		nonEmptyOrDash(c.Endpoint),
		nonEmptyOrDash(c.Region),
		nonEmptyOrDash(c.Bucket),
		setOrNot(c.AccessKeyID),
		setOrNot(c.SecretAccessKey),
	)
}

func nonEmptyOrDash(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "-"
	}
	return v
}

func setOrNot(v string) string {
	if strings.TrimSpace(v) == "" {
		return "not set"
	}
	return "set"
}

// BlobConfig selects where raw menu pages are archived.
type BlobConfig struct {
	Mode        string // local|s3|auto
	SnapshotDir string // local mode root; empty disables local archiving
	S3          S3Config
}

type ScraperConfig struct {
	BaseURL             string
	TimeoutSeconds      int
	Concurrency         int
	RequestsPerSecond   float64
	DisableFlatFallback bool
	MaxRangeDays        int
	Timezone            string
}

func (c ScraperConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Location resolves Timezone, falling back to UTC with a warning.
func (c ScraperConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("WARNING: unknown MENU_TIMEZONE=%q (%v), fallback to UTC", c.Timezone, err)
		return time.UTC
	}
	return loc
}

type AIConfig struct {
	Mode            string // mock | anthropic | openai
	MaxOutputTokens int
	Temperature     float64
	TimeoutSeconds  int
	MaxToolAttempts int
	DefaultApproach string

	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string
}

// Config is the process configuration read from the environment.
type Config struct {
	Env  string // local | staging | prod
	Port int

	// Database
	DatabaseURL       string // runtime connection (resolved: pooled > url > direct)
	DatabaseURLRaw    string
	DatabaseURLPooled string
	DatabaseURLDirect string // for migrations / DDL (may be empty)

	// Migrations
	RunMigrationsOnStartup bool

	// CORS
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	// Rate limiting of the public API
	RateLimitRPS   int
	RateLimitBurst int

	Scraper ScraperConfig

	// Menu cache (0 disables)
	MenuCacheTTLMinutes int

	Blob BlobConfig

	AI AIConfig

	// Authentication
	AuthMode      string // none | dev | jwt
	JWTSecret     string
	JWTIssuer     string
	JWTTTLMinutes int
}

// Load reads the configuration from environment variables. Unknown or
// out-of-range values fall back to defaults with a warning.
func Load() *Config {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}

	port := envInt("PORT", 8080)

	// ---------- Database ----------
	// Priority: DATABASE_URL_POOLED > DATABASE_URL > DATABASE_URL_DIRECT
	dbPooled := strings.TrimSpace(os.Getenv("DATABASE_URL_POOLED"))
	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	dbDirect := strings.TrimSpace(os.Getenv("DATABASE_URL_DIRECT"))

	runtimeDB := dbPooled
	if runtimeDB == "" {
		runtimeDB = dbURL
	}
	if runtimeDB == "" {
		runtimeDB = dbDirect
	}

	// ---------- CORS ----------
	corsOrigins := parseCORSOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"), env)
	corsAllowCreds := parseBoolEnv("CORS_ALLOW_CREDENTIALS")

	// ---------- Scraper ----------
	scraperBase := strings.TrimSpace(os.Getenv("SCRAPER_BASE_URL"))
	if scraperBase == "" {
		scraperBase = "https://fso.ueat.utoronto.ca/FSO/ServiceMenuReport"
	}
	scraperTimeout := envInt("SCRAPER_TIMEOUT_SECONDS", 20)
	if scraperTimeout <= 0 {
		scraperTimeout = 20
	}
	scraperConcurrency := envInt("SCRAPER_CONCURRENCY", 4)
	if scraperConcurrency <= 0 {
		scraperConcurrency = 4
	}
	if scraperConcurrency > 16 {
		log.Printf("WARNING: SCRAPER_CONCURRENCY=%d too high, capped at 16", scraperConcurrency)
		scraperConcurrency = 16
	}
	scraperRPS := envFloat("SCRAPER_RPS", 5)
	if scraperRPS < 0 {
		scraperRPS = 0
	}
	maxRangeDays := envInt("SCRAPER_MAX_RANGE_DAYS", 7)
	if maxRangeDays <= 0 {
		maxRangeDays = 7
	}
	timezone := strings.TrimSpace(os.Getenv("MENU_TIMEZONE"))
	if timezone == "" {
		timezone = "America/Toronto"
	}

	cacheTTL := envInt("MENU_CACHE_TTL_MINUTES", 60)
	if cacheTTL < 0 {
		cacheTTL = 0
	}

	// ---------- Blob / S3 ----------
	blobCfg := BlobConfig{
		Mode:        parseBlobMode("BLOB_MODE", BlobModeLocal),
		SnapshotDir: strings.TrimSpace(os.Getenv("SNAPSHOT_DIR")),
		S3: S3Config{
			Endpoint:        strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
			Region:          strings.TrimSpace(os.Getenv("S3_REGION")),
			Bucket:          strings.TrimSpace(os.Getenv("S3_BUCKET")),
			AccessKeyID:     strings.TrimSpace(os.Getenv("S3_ACCESS_KEY_ID")),
			SecretAccessKey: strings.TrimSpace(os.Getenv("S3_SECRET_ACCESS_KEY")),
		},
	}

	// ---------- AI ----------
	aiMode := strings.ToLower(strings.TrimSpace(os.Getenv("AI_MODE")))
	if aiMode == "" {
		aiMode = AIModeMock
	}
	if aiMode != AIModeMock && aiMode != AIModeAnthropic && aiMode != AIModeOpenAI {
		log.Printf("WARNING: unknown AI_MODE=%q, fallback to mock", aiMode)
		aiMode = AIModeMock
	}

	aiMaxOutputTokens := envInt("AI_MAX_OUTPUT_TOKENS", 2000)
	if aiMaxOutputTokens <= 0 {
		aiMaxOutputTokens = 2000
	}
	aiTemperature := envFloat("AI_TEMPERATURE", 0.3)
	if aiTemperature < 0 {
		aiTemperature = 0
	}
	if aiTemperature > 1 {
		aiTemperature = 1
	}
	aiTimeoutSeconds := envInt("AI_TIMEOUT_SECONDS", 60)
	if aiTimeoutSeconds <= 0 {
		aiTimeoutSeconds = 60
	}
	maxToolAttempts := envInt("LLM_MAX_TOOL_ATTEMPTS", MaxToolAttempts)
	if maxToolAttempts <= 0 || maxToolAttempts > MaxToolAttempts {
		if maxToolAttempts > MaxToolAttempts {
			log.Printf("WARNING: LLM_MAX_TOOL_ATTEMPTS=%d above cap, using %d", maxToolAttempts, MaxToolAttempts)
		}
		maxToolAttempts = MaxToolAttempts
	}
	approach := strings.ToLower(strings.TrimSpace(os.Getenv("LLM_DEFAULT_APPROACH")))
	if approach == "" {
		approach = "v1"
	}
	if approach != "v1" && approach != "v2" && approach != "v3" {
		log.Printf("WARNING: unknown LLM_DEFAULT_APPROACH=%q, fallback to v1", approach)
		approach = "v1"
	}

	anthropicModel := strings.TrimSpace(os.Getenv("ANTHROPIC_MODEL"))
	if anthropicModel == "" {
		anthropicModel = "claude-haiku-4-5-20251001"
	}
	openAIModel := strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if openAIModel == "" {
		openAIModel = "gpt-4.1-mini"
	}
	openAIBaseURL := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	if openAIBaseURL == "" {
		openAIBaseURL = "https://api.openai.com/v1"
	}

	// ---------- Auth ----------
	authMode := strings.ToLower(strings.TrimSpace(os.Getenv("AUTH_MODE")))
	if authMode == "" {
		authMode = AuthModeNone
	}
	if authMode != AuthModeNone && authMode != AuthModeDev && authMode != AuthModeJWT {
		log.Printf("WARNING: unknown AUTH_MODE=%q, fallback to none", authMode)
		authMode = AuthModeNone
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "change_me"
	}
	if jwtSecret == "change_me" && env != "local" {
		log.Println("WARNING: JWT_SECRET is set to 'change_me' in non-local environment!")
	}
	jwtIssuer := os.Getenv("JWT_ISSUER")
	if jwtIssuer == "" {
		jwtIssuer = "dining-planner"
	}
	jwtTTLMinutes := envInt("JWT_TTL_MINUTES", 10080)
	if jwtTTLMinutes <= 0 {
		jwtTTLMinutes = 10080
	}

	return &Config{
		Env:               env,
		Port:              port,
		DatabaseURL:       runtimeDB,
		DatabaseURLRaw:    dbURL,
		DatabaseURLPooled: dbPooled,
		DatabaseURLDirect: dbDirect,

		RunMigrationsOnStartup: parseBoolEnv("RUN_MIGRATIONS_ON_STARTUP"),

		CORSAllowedOrigins:   corsOrigins,
		CORSAllowCredentials: corsAllowCreds,

		RateLimitRPS:   envInt("RATE_LIMIT_RPS", 0),
		RateLimitBurst: envInt("RATE_LIMIT_BURST", 0),

		Scraper: ScraperConfig{
			BaseURL:             scraperBase,
			TimeoutSeconds:      scraperTimeout,
			Concurrency:         scraperConcurrency,
			RequestsPerSecond:   scraperRPS,
			DisableFlatFallback: parseBoolEnv("SCRAPER_DISABLE_FLAT_FALLBACK"),
			MaxRangeDays:        maxRangeDays,
			Timezone:            timezone,
		},
		MenuCacheTTLMinutes: cacheTTL,

		Blob: blobCfg,

		AI: AIConfig{
			Mode:            aiMode,
			MaxOutputTokens: aiMaxOutputTokens,
			Temperature:     aiTemperature,
			TimeoutSeconds:  aiTimeoutSeconds,
			MaxToolAttempts: maxToolAttempts,
			DefaultApproach: approach,
			AnthropicAPIKey: strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")),
			AnthropicModel:  anthropicModel,
			OpenAIAPIKey:    strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			OpenAIModel:     openAIModel,
			OpenAIBaseURL:   strings.TrimRight(openAIBaseURL, "/"),
		},

		AuthMode:      authMode,
		JWTSecret:     jwtSecret,
		JWTIssuer:     jwtIssuer,
		JWTTTLMinutes: jwtTTLMinutes,
	}
}

// Validate reports settings that make the process unable to serve.
func (c *Config) Validate() error {
	switch c.AI.Mode {
	case AIModeAnthropic:
		if c.AI.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when AI_MODE=anthropic")
		}
	case AIModeOpenAI:
		if c.AI.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when AI_MODE=openai")
		}
	}
	if c.AuthMode == AuthModeJWT && (c.JWTSecret == "" || c.JWTSecret == "change_me") && c.Env != "local" {
		return fmt.Errorf("JWT_SECRET must be set when AUTH_MODE=jwt outside local")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be 1-65535, got %d", c.Port)
	}
	return nil
}

// parseCORSOrigins parses CORS_ALLOWED_ORIGINS.
// In local mode, defaults to localhost origins if empty.
func parseCORSOrigins(raw, env string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if env == "local" {
			return []string{"http://localhost:3000", "http://localhost:5173"}
		}
		return nil // prod: deny by default
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func parseBlobMode(key string, defaultVal string) string {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if mode == "" {
		return defaultVal
	}
	switch mode {
	case BlobModeLocal, BlobModeS3, BlobModeAuto:
		return mode
	default:
		log.Printf("WARNING: unknown %s=%q, fallback to %s", key, mode, defaultVal)
		return defaultVal
	}
}

// envInt reads an int env var with a default value.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return defaultVal
	}
	return v
}

func parseBoolEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}
