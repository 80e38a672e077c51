package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/urbanease/urbanease/libs/db"
	"github.com/urbanease/urbanease/services/availability-service/internal/outbox"
	"github.com/urbanease/urbanease/services/availability-service/internal/rules"
)

// AvailabilityRepository stores each provider's three rule collections as
// jsonb documents, so the full-collection replacement the API promises maps
// onto a plain column overwrite.
type AvailabilityRepository struct {
	pool       *db.Pool
	outboxRepo *outbox.Repository
}

func NewAvailabilityRepository(pool *db.Pool, outboxRepo *outbox.Repository) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool, outboxRepo: outboxRepo}
}

func (r *AvailabilityRepository) Load(ctx context.Context, providerID string) (rules.RuleSet, error) {
	var weekly, specials, ranges []byte
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(a.weekly_rules, '[]'),
			COALESCE(a.special_dates, '[]'),
			COALESCE(a.date_ranges, '[]')
		FROM providers p
		LEFT JOIN provider_availability a ON a.provider_id = p.id
		WHERE p.id = $1
	`, providerID).Scan(&weekly, &specials, &ranges)
	if err != nil {
		return rules.RuleSet{}, err
	}

	var rs rules.RuleSet
	if err := json.Unmarshal(weekly, &rs.Weekly); err != nil {
		return rules.RuleSet{}, err
	}
	if err := json.Unmarshal(specials, &rs.SpecialDates); err != nil {
		return rules.RuleSet{}, err
	}
	if err := json.Unmarshal(ranges, &rs.DateRanges); err != nil {
		return rules.RuleSet{}, err
	}
	return rs.Normalized(), nil
}

// Replace overwrites exactly the collections the patch names and records an
// availability-updated outbox event in the same transaction. Unknown provider
// ids surface as a not-found error; an empty patch is the caller's bug.
func (r *AvailabilityRepository) Replace(ctx context.Context, providerID string, patch rules.Patch) error {
	if patch.Empty() {
		return errors.New("empty availability patch")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM providers WHERE id = $1)
	`, providerID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return pgx.ErrNoRows
	}

	// Seed the row so the per-collection updates can assume presence.
	if _, err := tx.Exec(ctx, `
		INSERT INTO provider_availability (provider_id)
		VALUES ($1)
		ON CONFLICT (provider_id) DO NOTHING
	`, providerID); err != nil {
		return err
	}

	if patch.Weekly != nil {
		if err := r.setCollection(ctx, tx, providerID, "weekly_rules", *patch.Weekly); err != nil {
			return err
		}
	}
	if patch.SpecialDates != nil {
		if err := r.setCollection(ctx, tx, providerID, "special_dates", *patch.SpecialDates); err != nil {
			return err
		}
	}
	if patch.DateRanges != nil {
		if err := r.setCollection(ctx, tx, providerID, "date_ranges", *patch.DateRanges); err != nil {
			return err
		}
	}

	payload, err := json.Marshal(map[string]any{
		"provider_id": providerID,
		"updated":     patch.Keys(),
		"updated_at":  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if err := r.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "provider",
		AggregateID:   providerID,
		EventType:     "provider.availability.updated.v1",
		Payload:       payload,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *AvailabilityRepository) setCollection(ctx context.Context, tx pgx.Tx, providerID, column string, collection any) error {
	doc, err := json.Marshal(collection)
	if err != nil {
		return err
	}
	// column comes from the fixed set above, never from input.
	_, err = tx.Exec(ctx, `
		UPDATE provider_availability
		SET `+column+` = $2, updated_at = now()
		WHERE provider_id = $1
	`, providerID, doc)
	return err
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
