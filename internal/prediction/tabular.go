package prediction

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"agridoctor-back/internal/apperrors"
	"agridoctor-back/internal/models"
)

// cropConfidence is reported in place of a score; the tabular model only yields a class.
const cropConfidence = "Model provides categorical prediction"

type CropResult struct {
	Success    bool   `json:"success"`
	Crop       string `json:"crop"`
	CropID     int    `json:"crop_id"`
	Confidence string `json:"confidence"`
	Message    string `json:"message"`
}

type FertilizerResult struct {
	Success      bool   `json:"success"`
	Fertilizer   string `json:"fertilizer"`
	FertilizerID int    `json:"fertilizer_id"`
	Explanation  string `json:"explanation"`
	Message      string `json:"message"`
}

// PredictCrop recommends a crop for the given soil and climate measurements.
func (s *Service) PredictCrop(ctx context.Context, caller Caller, in models.SoilInput) (*CropResult, error) {
	ctx, span := tracer.Start(ctx, "PredictCrop")
	defer span.End()

	if err := ValidateSoil(in); err != nil {
		return nil, s.fail(span, kindCrop, "invalid", err)
	}
	if s.tabular == nil {
		return nil, s.fail(span, kindCrop, "unavailable", apperrors.Unavailable("ML model not loaded"))
	}

	start := time.Now()
	id, err := s.tabular.PredictCrop(ctx, soilFeatures(in))
	s.metrics.ObserveInference(kindCrop, time.Since(start))
	if err != nil {
		return nil, s.fail(span, kindCrop, "error", apperrors.Internal("Prediction failed", err))
	}

	crop := CropName(id)
	span.SetAttributes(attribute.Int("crop.id", id), attribute.String("crop.name", crop))

	record := &models.CropPrediction{
		UserID:     caller.ID,
		UserEmail:  caller.Email,
		Input:      in,
		Prediction: models.CropOutcome{Crop: crop, CropID: id},
		CreatedAt:  s.now().UTC(),
	}
	models.AssignID(&record.ID)
	s.persist(ctx, kindCrop, func(ctx context.Context) error {
		return s.store.SaveCropPrediction(ctx, record)
	}, record)
	s.metrics.ObservePrediction(kindCrop, "success")

	return &CropResult{
		Success:    true,
		Crop:       crop,
		CropID:     id,
		Confidence: cropConfidence,
		Message:    fmt.Sprintf("Based on the provided soil and climate conditions, %s is recommended for cultivation.", crop),
	}, nil
}

// PredictFertilizer recommends a fertilizer for the measurements and intended crop.
func (s *Service) PredictFertilizer(ctx context.Context, caller Caller, in models.FertilizerInput) (*FertilizerResult, error) {
	ctx, span := tracer.Start(ctx, "PredictFertilizer")
	defer span.End()

	if err := ValidateFertilizer(in); err != nil {
		return nil, s.fail(span, kindFertilizer, "invalid", err)
	}
	if s.tabular == nil {
		return nil, s.fail(span, kindFertilizer, "unavailable", apperrors.Unavailable("ML model not loaded"))
	}

	features, err := fertilizerFeatures(in, s.tabular.FertilizerFeatures())
	if err != nil {
		return nil, s.fail(span, kindFertilizer, "invalid", err)
	}

	start := time.Now()
	id, err := s.tabular.PredictFertilizer(ctx, features)
	s.metrics.ObserveInference(kindFertilizer, time.Since(start))
	if err != nil {
		return nil, s.fail(span, kindFertilizer, "error", apperrors.Internal("Prediction failed", err))
	}

	name := FertilizerName(id)
	explanation := FertilizerExplanation(name)
	span.SetAttributes(attribute.Int("fertilizer.id", id), attribute.String("fertilizer.name", name))

	record := &models.FertilizerPrediction{
		UserID:    caller.ID,
		UserEmail: caller.Email,
		Input:     in,
		Prediction: models.FertilizerOutcome{
			Fertilizer:   name,
			FertilizerID: id,
			Explanation:  explanation,
		},
		CreatedAt: s.now().UTC(),
	}
	models.AssignID(&record.ID)
	s.persist(ctx, kindFertilizer, func(ctx context.Context) error {
		return s.store.SaveFertilizerPrediction(ctx, record)
	}, record)
	s.metrics.ObservePrediction(kindFertilizer, "success")

	return &FertilizerResult{
		Success:      true,
		Fertilizer:   name,
		FertilizerID: id,
		Explanation:  explanation,
		Message:      fmt.Sprintf("Based on your soil analysis and crop type (%s), %s fertilizer is recommended.", in.CropType, name),
	}, nil
}

// fertilizerFeatures builds the fertilizer model input. A model trained with eight
// features takes the crop type as its index in CropNames.
func fertilizerFeatures(in models.FertilizerInput, width int) ([]float64, error) {
	features := soilFeatures(in.SoilInput)
	if width <= len(features) {
		return features, nil
	}
	idx, ok := CropIndex(in.CropType)
	if !ok {
		return nil, apperrors.Validation("unknown crop_type %q", in.CropType)
	}
	return append(features, float64(idx)), nil
}
