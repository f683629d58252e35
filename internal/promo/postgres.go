package promo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/mystic-pricing/internal/pricing"
)

// DB is the subset of pgxpool.Pool used by PostgresSource.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	selectActiveRules = `SELECT code, kind, value::text FROM promo_rules WHERE active ORDER BY code`
	upsertRule        = `INSERT INTO promo_rules (code, kind, value, active) VALUES ($1, $2, $3, TRUE)
ON CONFLICT (code) DO UPDATE SET kind = EXCLUDED.kind, value = EXCLUDED.value, active = TRUE, updated_at = now()`
	deactivateRule = `UPDATE promo_rules SET active = FALSE, updated_at = now() WHERE code = $1`
)

// PostgresSource loads active rules from the promo_rules table.
type PostgresSource struct {
	db DB
}

// NewPostgresSource builds a source over db.
func NewPostgresSource(db DB) *PostgresSource {
	return &PostgresSource{db: db}
}

// LoadRules implements Source.
func (s *PostgresSource) LoadRules(ctx context.Context) ([]pricing.PromoRule, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("promo postgres source not configured")
	}
	rows, err := s.db.Query(ctx, selectActiveRules)
	if err != nil {
		return nil, fmt.Errorf("query promo rules: %w", err)
	}
	defer rows.Close()

	var rules []pricing.PromoRule
	for rows.Next() {
		var code, kind, value string
		if err := rows.Scan(&code, &kind, &value); err != nil {
			return nil, fmt.Errorf("scan promo rule: %w", err)
		}
		parsedKind, err := pricing.ParseKind(kind)
		if err != nil {
			return nil, fmt.Errorf("promo rule %s: %w", code, err)
		}
		amount, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("promo rule %s: %w", code, err)
		}
		rules = append(rules, pricing.PromoRule{Code: code, Kind: parsedKind, Value: amount})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promo rules: %w", err)
	}
	return rules, nil
}

// SaveRule upserts rule and marks it active.
func (s *PostgresSource) SaveRule(ctx context.Context, rule pricing.PromoRule) error {
	rule.Code = pricing.NormalizeCode(rule.Code)
	if err := rule.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, upsertRule, rule.Code, string(rule.Kind), rule.Value.String())
	if err != nil {
		return fmt.Errorf("save promo rule %s: %w", rule.Code, err)
	}
	return nil
}

// DeactivateRule hides code from subsequent loads.
func (s *PostgresSource) DeactivateRule(ctx context.Context, code string) error {
	_, err := s.db.Exec(ctx, deactivateRule, pricing.NormalizeCode(code))
	if err != nil {
		return fmt.Errorf("deactivate promo rule: %w", err)
	}
	return nil
}
