package pipeline

import "context"

// TrainingJob compiles the universe training set on a schedule
type TrainingJob struct {
	ctx     context.Context
	service *Service
}

// NewTrainingJob creates a new scheduled training job. Runs stop early once ctx is done.
func NewTrainingJob(ctx context.Context, service *Service) *TrainingJob {
	return &TrainingJob{ctx: ctx, service: service}
}

// Run compiles the training set of the whole universe
func (j *TrainingJob) Run() error {
	_, err := j.service.BuildTrainingSet(j.ctx, nil)
	return err
}

// Name returns the job name
func (j *TrainingJob) Name() string {
	return "compile_training_set"
}
