package models

import "time"

// FeatureImportance pairs a feature with its averaged importance.
type FeatureImportance struct {
	Name       string  `json:"name"`
	Importance float64 `json:"importance"`
}

// TrainingMetrics summarizes evaluation on the trailing partition.
type TrainingMetrics struct {
	Accuracy    float64             `json:"accuracy"`
	Precision   float64             `json:"precision"`
	Recall      float64             `json:"recall"`
	F1          float64             `json:"f1"`
	AccuracyA   float64             `json:"classifier_a_accuracy"`
	AccuracyB   float64             `json:"classifier_b_accuracy"`
	ReturnMAE   float64             `json:"return_mae"`
	ReturnRMSE  float64             `json:"return_rmse"`
	TrainRows   int                 `json:"train_rows"`
	TestRows    int                 `json:"test_rows"`
	Features    int                 `json:"features"`
	BestIterA   int                 `json:"best_iteration_a"`
	BestIterB   int                 `json:"best_iteration_b"`
	BestIterReg int                 `json:"best_iteration_reg"`
	TopFeatures []FeatureImportance `json:"top_features"`
}

// Training run statuses.
const (
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
	RunStatusSkipped   = "skipped"
)

// TrainingRun records one training attempt for a (class, scope) pair.
type TrainingRun struct {
	RunID        string          `json:"run_id"`
	Class        PredictionClass `json:"class"`
	Scope        string          `json:"scope"`
	Symbols      []string        `json:"symbols"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
	Status       string          `json:"status"`
	Error        string          `json:"error,omitempty"`
	ArtifactPath string          `json:"artifact_path,omitempty"`
	Metrics      TrainingMetrics `json:"metrics"`
}

// ArtifactInfo describes a persisted artifact without loading its models.
type ArtifactInfo struct {
	ID        string          `json:"id"`
	Class     PredictionClass `json:"class"`
	Scope     string          `json:"scope"`
	Path      string          `json:"path"`
	CreatedAt time.Time       `json:"created_at"`
	Latest    bool            `json:"latest"`
}
