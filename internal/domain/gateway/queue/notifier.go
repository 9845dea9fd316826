package queue

import (
	"context"
	"time"

	"weather-inference/internal/domain/entity"
	"weather-inference/internal/domain/model"
)

// RunNotifier announces published batches to downstream consumers
type RunNotifier interface {
	Notify(ctx context.Context, batch *entity.ResultBatch, objectKey, location string) error
}

type queueRunNotifier struct {
	sender    Sender
	queueName string
	now       func() time.Time
}

// NewRunNotifier publishes to queueName through sender
func NewRunNotifier(sender Sender, queueName string) RunNotifier {
	return &queueRunNotifier{
		sender:    sender,
		queueName: queueName,
		now:       time.Now,
	}
}

func (n *queueRunNotifier) Notify(ctx context.Context, batch *entity.ResultBatch, objectKey, location string) error {
	message := model.PredictionPublishedMessage{
		RunID:        batch.RunID,
		ModelVariant: string(batch.ModelVariant),
		ObjectKey:    objectKey,
		Location:     location,
		LabelSource:  batch.LabelSource,
		Results:      len(batch.Results),
		Failures:     len(batch.Failures),
		PublishedAt:  n.now().UTC(),
	}

	_, err := n.sender.SendMessage(ctx, n.queueName, message, map[string]string{
		"model_variant": string(batch.ModelVariant),
	})
	return err
}

type noopRunNotifier struct{}

// NewNoopRunNotifier is used when publishing notifications is disabled
func NewNoopRunNotifier() RunNotifier {
	return noopRunNotifier{}
}

func (noopRunNotifier) Notify(context.Context, *entity.ResultBatch, string, string) error {
	return nil
}
