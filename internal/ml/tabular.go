// Package ml adapts externally trained model artifacts to the prediction pipeline.
package ml

import (
	"context"
	"fmt"
	"log/slog"
)

// TabularModel classifies fixed-order soil and climate feature vectors.
type TabularModel interface {
	PredictCrop(ctx context.Context, features []float64) (int, error)
	PredictFertilizer(ctx context.Context, features []float64) (int, error)
	// FertilizerFeatures is the input width of the fertilizer model, 7 or 8.
	FertilizerFeatures() int
}

// BoosterModel serves crop and fertilizer predictions from XGBoost boosters. Both may
// be the same booster, which is how the shipped model is trained.
type BoosterModel struct {
	crop       *Booster
	fertilizer *Booster
}

// LoadTabularModel loads the crop booster and, when fertilizerPath is set, a separate
// fertilizer booster.
func LoadTabularModel(cropPath, fertilizerPath string) (*BoosterModel, error) {
	crop, err := LoadBooster(cropPath)
	if err != nil {
		return nil, err
	}
	slog.Info("tabular model loaded", "path", cropPath, "features", crop.NumFeatures(), "classes", crop.NumClasses())

	fertilizer := crop
	if fertilizerPath != "" && fertilizerPath != cropPath {
		fertilizer, err = LoadBooster(fertilizerPath)
		if err != nil {
			return nil, err
		}
		slog.Info("fertilizer model loaded", "path", fertilizerPath, "features", fertilizer.NumFeatures())
	}
	return NewBoosterModel(crop, fertilizer), nil
}

func NewBoosterModel(crop, fertilizer *Booster) *BoosterModel {
	return &BoosterModel{crop: crop, fertilizer: fertilizer}
}

func (m *BoosterModel) PredictCrop(ctx context.Context, features []float64) (int, error) {
	if len(features) != 7 {
		return 0, fmt.Errorf("crop model takes 7 features, got %d", len(features))
	}
	return predict(ctx, m.crop, features)
}

func (m *BoosterModel) PredictFertilizer(ctx context.Context, features []float64) (int, error) {
	if len(features) != 7 && len(features) != 8 {
		return 0, fmt.Errorf("fertilizer model takes 7 or 8 features, got %d", len(features))
	}
	return predict(ctx, m.fertilizer, features)
}

func (m *BoosterModel) FertilizerFeatures() int {
	if n := m.fertilizer.NumFeatures(); n > 0 {
		return n
	}
	return 7
}

func predict(ctx context.Context, b *Booster, features []float64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return b.Predict(features)
}
