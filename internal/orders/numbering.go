package orders

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"gorm.io/gorm"
)

// Sequence prefixes for the two order families. Regular orders number from a
// three digit sequence, procurement requests from a four digit one; both roll
// over per calendar year.
const (
	OrderPrefix   = "ORD"
	BulkBuyPrefix = "BBR"
)

type yearCounter interface {
	CountInYear(ctx context.Context, year int) (int64, error)
}

// FormatNumber renders a human readable order number for the given year and
// one-based sequence. Sequences beyond the pad width keep growing digits
// rather than wrapping.
func FormatNumber(prefix string, year int, seq int64, width int) string {
	return fmt.Sprintf("%s-%d-%0*d", prefix, year, width, seq)
}

// NextOrderNumber allocates the next ORD-YYYY-NNN number inside the caller's
// transaction. An advisory lock keyed on prefix+year serializes concurrent
// allocations so two checkouts never read the same count.
func NextOrderNumber(ctx context.Context, tx *gorm.DB, counter yearCounter, now time.Time) (string, error) {
	return nextNumber(ctx, tx, counter, OrderPrefix, now.UTC().Year(), 3)
}

// NextBulkBuyNumber allocates the next BBR-YYYY-NNNN number.
func NextBulkBuyNumber(ctx context.Context, tx *gorm.DB, counter yearCounter, now time.Time) (string, error) {
	return nextNumber(ctx, tx, counter, BulkBuyPrefix, now.UTC().Year(), 4)
}

func nextNumber(ctx context.Context, tx *gorm.DB, counter yearCounter, prefix string, year, width int) (string, error) {
	if tx != nil && tx.Dialector != nil && tx.Dialector.Name() == "postgres" {
		if err := tx.WithContext(ctx).
			Exec("SELECT pg_advisory_xact_lock(?)", sequenceLockKey(prefix, year)).Error; err != nil {
			return "", fmt.Errorf("failed to lock %s sequence: %w", prefix, err)
		}
	}
	count, err := counter.CountInYear(ctx, year)
	if err != nil {
		return "", err
	}
	return FormatNumber(prefix, year, count+1, width), nil
}

func sequenceLockKey(prefix string, year int) int64 {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s:%d", prefix, year)
	return int64(h.Sum32())
}
