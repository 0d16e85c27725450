package gbm

import (
	"errors"
	"fmt"
)

type Objective string

const (
	BinaryLogistic Objective = "binary:logistic"
	SquaredError   Objective = "reg:squarederror"
)

type Growth string

const (
	// DepthWise expands every node of a level before the next level.
	DepthWise Growth = "depthwise"
	// LeafWise always expands the leaf with the largest loss reduction.
	LeafWise Growth = "leafwise"
)

type ImportanceType string

const (
	ImportanceGain  ImportanceType = "gain"
	ImportanceSplit ImportanceType = "split"
)

// Params configures one boosted ensemble.
type Params struct {
	Objective      Objective      `json:"objective" yaml:"objective"`
	Growth         Growth         `json:"growth" yaml:"growth"`
	Importance     ImportanceType `json:"importance" yaml:"importance"`
	Rounds         int            `json:"rounds" yaml:"rounds"`
	LearningRate   float64        `json:"learning_rate" yaml:"learning_rate"`
	MaxDepth       int            `json:"max_depth" yaml:"max_depth"`
	MaxLeaves      int            `json:"max_leaves" yaml:"max_leaves"`
	MinChildWeight float64        `json:"min_child_weight" yaml:"min_child_weight"`
	MinDataInLeaf  int            `json:"min_data_in_leaf" yaml:"min_data_in_leaf"`
	Lambda         float64        `json:"lambda" yaml:"lambda"`
	Subsample      float64        `json:"subsample" yaml:"subsample"`
	ColSample      float64        `json:"colsample" yaml:"colsample"`
	MaxBins        int            `json:"max_bins" yaml:"max_bins"`
	EarlyStopping  int            `json:"early_stopping" yaml:"early_stopping"`
	Seed           int64          `json:"seed" yaml:"seed"`
}

// DepthWiseClassifier mirrors a level-wise boosted classifier: depth 6, L2 1, gain importance.
func DepthWiseClassifier() Params {
	return Params{
		Objective:      BinaryLogistic,
		Growth:         DepthWise,
		Importance:     ImportanceGain,
		Rounds:         200,
		LearningRate:   0.05,
		MaxDepth:       6,
		MinChildWeight: 1,
		Lambda:         1,
		Subsample:      0.8,
		ColSample:      0.8,
		MaxBins:        64,
		EarlyStopping:  50,
		Seed:           42,
	}
}

// LeafWiseClassifier mirrors a leaf-wise boosted classifier: 31 leaves, depth 6, 20 rows per leaf.
func LeafWiseClassifier() Params {
	return Params{
		Objective:      BinaryLogistic,
		Growth:         LeafWise,
		Importance:     ImportanceSplit,
		Rounds:         200,
		LearningRate:   0.05,
		MaxDepth:       6,
		MaxLeaves:      31,
		MinChildWeight: 1e-3,
		MinDataInLeaf:  20,
		Lambda:         0,
		Subsample:      0.8,
		ColSample:      0.8,
		MaxBins:        64,
		EarlyStopping:  50,
		Seed:           42,
	}
}

// DepthWiseRegressor predicts a continuous target with squared error.
func DepthWiseRegressor() Params {
	p := DepthWiseClassifier()
	p.Objective = SquaredError
	p.EarlyStopping = 0
	return p
}

func (p Params) Validate() error {
	var errs []error
	switch p.Objective {
	case BinaryLogistic, SquaredError:
	default:
		errs = append(errs, fmt.Errorf("unknown objective %q", p.Objective))
	}
	switch p.Growth {
	case DepthWise:
	case LeafWise:
		if p.MaxLeaves < 2 {
			errs = append(errs, errors.New("max_leaves must be >= 2 for leaf-wise growth"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown growth %q", p.Growth))
	}
	if p.Rounds <= 0 {
		errs = append(errs, errors.New("rounds must be > 0"))
	}
	if p.LearningRate <= 0 {
		errs = append(errs, errors.New("learning_rate must be > 0"))
	}
	if p.MaxDepth <= 0 {
		errs = append(errs, errors.New("max_depth must be > 0"))
	}
	if p.Subsample <= 0 || p.Subsample > 1 {
		errs = append(errs, errors.New("subsample must be in (0, 1]"))
	}
	if p.ColSample <= 0 || p.ColSample > 1 {
		errs = append(errs, errors.New("colsample must be in (0, 1]"))
	}
	if p.MaxBins < 2 || p.MaxBins > 256 {
		errs = append(errs, errors.New("max_bins must be in [2, 256]"))
	}
	if p.Lambda < 0 || p.MinChildWeight < 0 || p.MinDataInLeaf < 0 || p.EarlyStopping < 0 {
		errs = append(errs, errors.New("regularisation settings must be >= 0"))
	}
	return errors.Join(errs...)
}
