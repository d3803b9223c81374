package patterns

import (
	"context"

	"github.com/miradorstack/mirador-triage/internal/models"
)

// StoreFunc adapts a function to the Store interface.
type StoreFunc func(ctx context.Context, batchID string, insights []models.PatternInsight) error

// StoreInsights implements Store.
func (f StoreFunc) StoreInsights(ctx context.Context, batchID string, insights []models.PatternInsight) error {
	return f(ctx, batchID, insights)
}
