package jobs

import (
	"context"

	"github.com/aruanc/sentinela/internal/contracts"
	"github.com/aruanc/sentinela/pkg/logger"
)

// FXResolver hands out the shared official rate
type FXResolver interface {
	Rate(ctx context.Context) (contracts.FXRate, error)
}

// FXWarmJob refreshes the PTAX cache before it expires so investigations
// never block on the FX round trip.
type FXWarmJob struct {
	fx     FXResolver
	logger *logger.Logger
}

// NewFXWarmJob creates a new FX warm job
func NewFXWarmJob(fx FXResolver, log *logger.Logger) *FXWarmJob {
	return &FXWarmJob{fx: fx, logger: log}
}

// Name returns the job name
func (j *FXWarmJob) Name() string {
	return "fx_warm"
}

// Schedule runs every 4 hours, well inside the 6-hour cache expiry
func (j *FXWarmJob) Schedule() string {
	return "0 0 */4 * * *"
}

// Run refreshes the cached rate
func (j *FXWarmJob) Run(ctx context.Context) error {
	rate, err := j.fx.Rate(ctx)
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"rate":      rate.Rate,
		"timestamp": rate.Timestamp,
	}).Info("FX cache warmed")

	return nil
}
