package mongodb

import (
	"context"
	"errors"
	"fmt"

	"gocab/internal/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// storageErr maps a driver error into the repository error taxonomy.
// Timeouts come back as models.ErrPersistenceTimeout so callers can retry;
// everything else is a non-retryable models.ErrPersistenceFailure.
func storageErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) {
		return fmt.Errorf("%s: %w", op, models.ErrPersistenceTimeout)
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrPersistenceFailure, err)
}
