package transaction

import (
	"context"

	"weather-inference/internal/domain/model"
)

type UseCase interface {
	// CurrentTransaction returns a random row of the dataset with unix_time
	// replaced by current_time in milliseconds
	CurrentTransaction(ctx context.Context) (*model.TransactionSample, error)
}
