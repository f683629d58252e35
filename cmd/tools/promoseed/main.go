package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mystic-pricing/internal/app"
	"github.com/noah-isme/mystic-pricing/internal/obs"
	"github.com/noah-isme/mystic-pricing/internal/pricing"
	"github.com/noah-isme/mystic-pricing/internal/promo"
)

// promoseed writes promo rules into the Redis hash or the promo_rules table the API
// reads them from.
func main() {
	_ = godotenv.Load()

	target := flag.String("target", "redis", "where to write rules: redis or postgres")
	rules := flag.String("rules", envOr("PROMO_RULES", promo.DefaultRules), "comma separated CODE:kind:value rules")
	deactivate := flag.String("deactivate", "", "comma separated codes to remove")
	migrateOnly := flag.Bool("migrate-only", false, "apply the promo_rules schema and exit")
	flag.Parse()

	logger := obs.NewLogger("console", "info").With().Str("component", "promoseed").Logger()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	parsed, err := promo.ParseRules(*rules)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse rules")
	}
	codes := splitCodes(*deactivate)

	switch *target {
	case "redis":
		seedRedis(ctx, logger, parsed, codes)
	case "postgres":
		seedPostgres(ctx, logger, parsed, codes, *migrateOnly)
	default:
		logger.Fatal().Str("target", *target).Msg("unknown target")
	}
}

func seedRedis(ctx context.Context, logger zerolog.Logger, rules []pricing.PromoRule, codes []string) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		logger.Fatal().Msg("REDIS_URL is not set")
	}
	client, err := app.NewRedis(ctx, url, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect redis")
	}
	defer client.Close()

	src := promo.NewRedisSource(client, envOr("PROMO_REDIS_KEY", promo.DefaultRedisKey))
	for _, rule := range rules {
		if err := src.SaveRule(ctx, rule); err != nil {
			logger.Fatal().Err(err).Str("code", rule.Code).Msg("save rule")
		}
		logger.Info().Str("code", rule.Code).Str("kind", string(rule.Kind)).Str("value", rule.Value.String()).Msg("rule saved")
	}
	for _, code := range codes {
		if err := src.DeleteRule(ctx, code); err != nil {
			logger.Fatal().Err(err).Str("code", code).Msg("delete rule")
		}
		logger.Info().Str("code", code).Msg("rule removed")
	}
}

func seedPostgres(ctx context.Context, logger zerolog.Logger, rules []pricing.PromoRule, codes []string, migrateOnly bool) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}
	if err := promo.Migrate(url, logger); err != nil {
		logger.Fatal().Err(err).Msg("migrate")
	}
	if migrateOnly {
		return
	}
	pool, err := app.NewPool(ctx, url, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	src := promo.NewPostgresSource(pool)
	for _, rule := range rules {
		if err := src.SaveRule(ctx, rule); err != nil {
			logger.Fatal().Err(err).Str("code", rule.Code).Msg("save rule")
		}
		logger.Info().Str("code", rule.Code).Msg("rule saved")
	}
	for _, code := range codes {
		if err := src.DeactivateRule(ctx, code); err != nil {
			logger.Fatal().Err(err).Str("code", code).Msg("deactivate rule")
		}
		logger.Info().Str("code", code).Msg("rule deactivated")
	}
}

func splitCodes(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if code := strings.TrimSpace(part); code != "" {
			out = append(out, code)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
