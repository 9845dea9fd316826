package processor

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"weather-inference/internal/domain/entity"
	"weather-inference/internal/domain/model"
	"weather-inference/internal/domain/usecase/prediction"
	"weather-inference/pkg/log"
	"weather-inference/pkg/msg"
)

// PredictionRequestProcessor triggers on-demand runs from queue messages
type PredictionRequestProcessor struct {
	useCase   prediction.UseCase
	runs      map[entity.ModelVariant]entity.RunConfig
	locations []entity.Location
	validate  *validator.Validate
}

func NewPredictionRequestProcessor(useCase prediction.UseCase, runs []entity.RunConfig, locations []entity.Location) *PredictionRequestProcessor {
	byVariant := make(map[entity.ModelVariant]entity.RunConfig, len(runs))
	for _, run := range runs {
		byVariant[run.ModelVariant] = run
	}
	return &PredictionRequestProcessor{
		useCase:   useCase,
		runs:      byVariant,
		locations: locations,
		validate:  validator.New(),
	}
}

// HandleMessage implements the sqs.Handler interface. Messages that can never
// succeed are acknowledged; a run that published nothing is left for redelivery.
func (p *PredictionRequestProcessor) HandleMessage(ctx context.Context, message types.Message) error {
	messageID := aws.ToString(message.MessageId)

	var request model.PredictionRequestMessage
	if err := json.Unmarshal([]byte(aws.ToString(message.Body)), &request); err != nil {
		log.Warn(msg.GetMessage("processor.invalid-message", messageID, err), zap.String("message_id", messageID))
		return nil
	}
	if err := p.validate.Struct(request); err != nil {
		log.Warn(msg.GetMessage("processor.invalid-message", messageID, err), zap.String("message_id", messageID))
		return nil
	}

	run, ok := p.runs[entity.ModelVariant(request.ModelVariant)]
	if !ok {
		log.Warn(msg.GetMessage("prediction.run.unknown-variant", request.ModelVariant), zap.String("message_id", messageID))
		return nil
	}

	outcome, err := p.useCase.RunAndPersist(ctx, run, p.locations)
	if err == nil {
		return nil
	}

	log.Error(msg.GetMessage("processor.run-failed", run.ModelVariant, err),
		zap.String("message_id", messageID),
		zap.String("model_variant", string(run.ModelVariant)),
		zap.Error(err))

	var uploadErr *entity.UploadError
	if outcome != nil && outcome.Artifact != nil && !errors.As(err, &uploadErr) {
		return nil
	}
	if errors.Is(err, entity.ErrInvalidRunConfig) {
		return nil
	}
	return err
}
