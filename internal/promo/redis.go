package promo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/mystic-pricing/internal/pricing"
)

// DefaultRedisKey is the hash holding one JSON encoded rule per code.
const DefaultRedisKey = "promo:rules"

// RedisSource loads rules from a Redis hash.
type RedisSource struct {
	client redis.UniversalClient
	key    string
}

// NewRedisSource builds a source over client. An empty key falls back to DefaultRedisKey.
func NewRedisSource(client redis.UniversalClient, key string) *RedisSource {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisSource{client: client, key: key}
}

// LoadRules implements Source.
func (s *RedisSource) LoadRules(ctx context.Context) ([]pricing.PromoRule, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("promo redis source not configured")
	}
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("load promo rules: %w", err)
	}
	rules := make([]pricing.PromoRule, 0, len(fields))
	for field, raw := range fields {
		var rule pricing.PromoRule
		if err := json.Unmarshal([]byte(raw), &rule); err != nil {
			return nil, fmt.Errorf("decode promo rule %s: %w", field, err)
		}
		if rule.Code == "" {
			rule.Code = field
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// SaveRule upserts rule under its normalised code.
func (s *RedisSource) SaveRule(ctx context.Context, rule pricing.PromoRule) error {
	rule.Code = pricing.NormalizeCode(rule.Code)
	if err := rule.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(rule)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.key, rule.Code, data).Err()
}

// DeleteRule removes code. Missing codes are not an error.
func (s *RedisSource) DeleteRule(ctx context.Context, code string) error {
	return s.client.HDel(ctx, s.key, pricing.NormalizeCode(code)).Err()
}
