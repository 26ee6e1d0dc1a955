package services

import (
	"context"

	"gorm.io/gorm"
)

// scanBatchSize bounds how many rows a full-collection scan holds at once.
const scanBatchSize = 500

// scanAll walks every row matched by q in primary-key order, one batch at
// a time. q must not carry its own ORDER BY.
func scanAll[T any](ctx context.Context, q *gorm.DB, fn func(*T) error) error {
	var batch []T
	return q.WithContext(ctx).FindInBatches(&batch, scanBatchSize, func(tx *gorm.DB, _ int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := range batch {
			if err := fn(&batch[i]); err != nil {
				return err
			}
		}
		return nil
	}).Error
}
