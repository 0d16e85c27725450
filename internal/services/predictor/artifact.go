package predictor

import (
	"context"
	"fmt"
	"time"

	"StockPred/internal/domain/models"
	"StockPred/internal/services/gbm"
)

// Artifact is everything needed to reproduce inference for one (class, scope).
// It is never mutated after creation.
type Artifact struct {
	ID            string                 `json:"id"`
	Class         models.PredictionClass `json:"class"`
	Scope         string                 `json:"scope"`
	Profile       models.HorizonProfile  `json:"profile"`
	CreatedAt     time.Time              `json:"created_at"`
	SchemaVersion string                 `json:"schema_version"`
	EngineColumns []string               `json:"engine_columns"`
	FeatureNames  []string               `json:"feature_names"`
	ColumnMeans   map[string]float64     `json:"column_means"`
	Scaler        Scaler                 `json:"scaler"`
	ClassifierA   *gbm.Model             `json:"classifier_a"`
	ClassifierB   *gbm.Model             `json:"classifier_b"`
	Regressor     *gbm.Model             `json:"regressor"`
	Metrics       models.TrainingMetrics `json:"metrics"`
}

// Validate checks the artifact is internally consistent.
func (a *Artifact) Validate() error {
	d := len(a.FeatureNames)
	if d == 0 {
		return fmt.Errorf("artifact %s: no features", a.ID)
	}
	if len(a.Scaler.Mean) != d || len(a.Scaler.Scale) != d {
		return fmt.Errorf("artifact %s: scaler width %d, want %d", a.ID, len(a.Scaler.Mean), d)
	}
	for name, m := range map[string]*gbm.Model{"classifier_a": a.ClassifierA, "classifier_b": a.ClassifierB, "regressor": a.Regressor} {
		if m == nil {
			return fmt.Errorf("artifact %s: missing %s", a.ID, name)
		}
		if m.NumFeatures != d {
			return fmt.Errorf("artifact %s: %s expects %d features, want %d", a.ID, name, m.NumFeatures, d)
		}
	}
	return nil
}

// Info describes the artifact for listings.
func (a *Artifact) Info(path string, latest bool) models.ArtifactInfo {
	return models.ArtifactInfo{
		ID:        a.ID,
		Class:     a.Class,
		Scope:     a.Scope,
		Path:      path,
		CreatedAt: a.CreatedAt,
		Latest:    latest,
	}
}

// Store persists artifacts. Latest returns an error wrapping
// models.ErrModelNotTrained when nothing was saved for (class, scope).
type Store interface {
	Save(ctx context.Context, a *Artifact) (string, error)
	Latest(ctx context.Context, class models.PredictionClass, scope string) (*Artifact, error)
	List(ctx context.Context, class models.PredictionClass) ([]models.ArtifactInfo, error)
}
