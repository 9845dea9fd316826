package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"weather-inference/configs"
	"weather-inference/internal/application/container"
	"weather-inference/internal/domain/entity"
	"weather-inference/internal/domain/usecase/prediction"
	"weather-inference/pkg/log"
)

type options struct {
	variants    []string
	failureMode string
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "predict-once",
		Short:         "Run the configured predictions once and exit",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configs.Load()
			if err != nil {
				return err
			}
			if opts.failureMode != "" {
				cfg.Prediction.FailureMode = opts.failureMode
			}

			runs, err := selectRuns(cfg.Runs, opts.variants)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := container.Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			return runAll(ctx, app.PredictionUseCase, runs, cfg.Locations)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.variants, "variant", "v", nil, "model variants to run, all configured runs when empty")
	cmd.Flags().StringVar(&opts.failureMode, "failure-mode", "", "override app.prediction.failure-mode (all-or-nothing or isolated)")
	return cmd
}

// selectRuns keeps the configured order and rejects unknown variants
func selectRuns(configured []entity.RunConfig, variants []string) ([]entity.RunConfig, error) {
	if len(variants) == 0 {
		return configured, nil
	}

	wanted := make(map[entity.ModelVariant]bool, len(variants))
	for _, v := range variants {
		wanted[entity.ModelVariant(v)] = true
	}

	var runs []entity.RunConfig
	for _, run := range configured {
		if wanted[run.ModelVariant] {
			runs = append(runs, run)
			delete(wanted, run.ModelVariant)
		}
	}
	for variant := range wanted {
		return nil, fmt.Errorf("no run configured for model variant %q", variant)
	}
	return runs, nil
}

// runAll runs every variant even when an earlier one fails
func runAll(ctx context.Context, useCase prediction.UseCase, runs []entity.RunConfig, locations []entity.Location) error {
	var errs []error
	for _, run := range runs {
		outcome, err := useCase.RunAndPersist(ctx, run, locations)
		if err != nil {
			log.Error("prediction run failed", zap.String("model_variant", string(run.ModelVariant)), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", run.ModelVariant, err))
			continue
		}
		log.Info("prediction run published",
			zap.String("model_variant", string(run.ModelVariant)),
			zap.String("run_id", outcome.Batch.RunID),
			zap.String("location", outcome.Artifact.Location))
	}
	return errors.Join(errs...)
}
