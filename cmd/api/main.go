package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fdg312/dining-planner/internal/config"
	"github.com/fdg312/dining-planner/internal/dbmigrate"
	"github.com/fdg312/dining-planner/internal/httpserver"
)

func main() {
	cfg := config.Load()

	printStartupBanner(cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("FATAL config: %v", err)
	}
	validateProductionConfig(cfg)

	if cfg.RunMigrationsOnStartup {
		target, err := dbmigrate.SelectDatabaseURL(cfg, true)
		if err != nil {
			log.Fatalf("FATAL startup migrations: %v", err)
		}

		log.Printf("INFO startup migrations: command=up using=%s", target.Source)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err = dbmigrate.Run(ctx, "up", target.URL)
		cancel()
		if err != nil {
			log.Fatalf("FATAL startup migrations failed: %v", err)
		}
		log.Printf("INFO startup migrations: completed")
	}

	server := httpserver.New(cfg)
	defer server.Close()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		log.Println("INFO http: shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("WARN http: shutdown: %v", err)
		}
	}()

	if err := server.Start(); err != nil {
		log.Fatalf("FATAL http: %v", err)
	}
}

// printStartupBanner logs the resolved configuration once. Secrets are shown
// only as "set" / "not set".
func printStartupBanner(cfg *config.Config) {
	log.Println("========== Dining Planner API ==========")
	log.Printf("  env              = %s", cfg.Env)
	log.Printf("  port             = %d", cfg.Port)

	log.Println("---- database ----")
	log.Printf("  runtime_url      = %s", describeDBURL(cfg.DatabaseURL, cfg.DatabaseURLPooled))
	log.Printf("  direct           = %s", setOrNot(cfg.DatabaseURLDirect))
	log.Printf("  migrations_on_startup = %t", cfg.RunMigrationsOnStartup)
	log.Printf("  menu_cache_ttl   = %dm", cfg.MenuCacheTTLMinutes)

	log.Println("---- scraper ----")
	log.Printf("  base_url         = %s", cfg.Scraper.BaseURL)
	log.Printf("  concurrency      = %d", cfg.Scraper.Concurrency)
	log.Printf("  rps              = %g", cfg.Scraper.RequestsPerSecond)
	log.Printf("  flat_fallback    = %t", !cfg.Scraper.DisableFlatFallback)
	log.Printf("  timezone         = %s", cfg.Scraper.Timezone)

	log.Println("---- auth ----")
	log.Printf("  auth_mode        = %s", cfg.AuthMode)
	log.Printf("  jwt_secret       = %s", secretStatus(cfg.JWTSecret, "change_me"))

	log.Println("---- blob ----")
	log.Printf("  blob_mode        = %s", cfg.Blob.Mode)
	log.Printf("  snapshot_dir     = %s", nonEmptyOrDash(cfg.Blob.SnapshotDir))
	if cfg.Blob.Mode != config.BlobModeLocal {
		log.Printf("  s3: %s", cfg.Blob.S3.DiagnosticsSummary())
	}

	log.Println("---- ai ----")
	log.Printf("  ai_mode          = %s", cfg.AI.Mode)
	log.Printf("  default_approach = %s", cfg.AI.DefaultApproach)
	switch cfg.AI.Mode {
	case config.AIModeAnthropic:
		log.Printf("  anthropic_model  = %s", cfg.AI.AnthropicModel)
		log.Printf("  anthropic_key    = %s", setOrNot(cfg.AI.AnthropicAPIKey))
	case config.AIModeOpenAI:
		log.Printf("  openai_model     = %s", cfg.AI.OpenAIModel)
		log.Printf("  openai_api_key   = %s", setOrNot(cfg.AI.OpenAIAPIKey))
	}

	log.Println("========================================")
}

// validateProductionConfig performs fatal checks that only matter outside local.
func validateProductionConfig(cfg *config.Config) {
	isProd := cfg.Env == "production" || cfg.Env == "prod" || cfg.Env == "staging"

	if cfg.Blob.Mode == config.BlobModeS3 {
		if missing := cfg.Blob.S3.MissingRequired(); len(missing) > 0 {
			log.Fatalf("FATAL blob: BLOB_MODE=s3 but S3 config is incomplete, missing: %s", strings.Join(missing, ", "))
		}
	}

	if isProd && cfg.AuthMode == config.AuthModeDev {
		log.Fatalf("FATAL auth: AUTH_MODE=dev is not allowed in %s", cfg.Env)
	}

	if isProd && cfg.DatabaseURL == "" {
		log.Printf("WARN db: no DATABASE_URL configured in %s, menus are cached in memory only", cfg.Env)
	}
}

func setOrNot(v string) string {
	if strings.TrimSpace(v) == "" {
		return "not set"
	}
	return "set"
}

func nonEmptyOrDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func secretStatus(v, insecureDefault string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "not set"
	}
	if v == insecureDefault {
		return fmt.Sprintf("set (DEFAULT, insecure '%s')", insecureDefault)
	}
	return "set (custom)"
}

func describeDBURL(runtime, pooled string) string {
	if runtime == "" {
		return "not set (will use in-memory storage)"
	}
	if pooled != "" && runtime == pooled {
		return "set (via DATABASE_URL_POOLED)"
	}
	return "set"
}
