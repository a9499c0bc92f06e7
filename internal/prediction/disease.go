package prediction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"agridoctor-back/internal/apperrors"
	"agridoctor-back/internal/models"
	"agridoctor-back/internal/storage"
	"agridoctor-back/pkg/imaging"
)

// DiseaseRequest is one uploaded leaf image.
type DiseaseRequest struct {
	Filename    string
	ContentType string
	Data        []byte
}

type DiseaseResult struct {
	Success        bool                   `json:"success"`
	Plant          string                 `json:"plant"`
	Disease        string                 `json:"disease"`
	Confidence     float64                `json:"confidence"`
	IsHealthy      bool                   `json:"is_healthy"`
	TopPredictions []models.TopPrediction `json:"top_predictions"`
	Recommendation string                 `json:"recommendation"`
	Message        string                 `json:"message"`
}

// DetectDisease classifies a leaf image over DiseaseLabels.
func (s *Service) DetectDisease(ctx context.Context, caller Caller, req DiseaseRequest) (*DiseaseResult, error) {
	ctx, span := tracer.Start(ctx, "DetectDisease")
	defer span.End()
	span.SetAttributes(
		attribute.String("image.content_type", req.ContentType),
		attribute.Int("image.size", len(req.Data)),
	)

	if err := ValidateImage(req.ContentType, int64(len(req.Data)), s.maxImageSize); err != nil {
		return nil, s.fail(span, kindDisease, "invalid", err)
	}
	if s.image == nil {
		return nil, s.fail(span, kindDisease, "unavailable", apperrors.Unavailable("Disease detection model not loaded"))
	}

	spec := s.image.Spec()
	tensor, err := imaging.Load(req.Data, spec.Width, spec.Height, spec.Norm)
	if errors.Is(err, imaging.ErrTooManyPixels) {
		return nil, s.fail(span, kindDisease, "invalid",
			apperrors.Validation("Image dimensions too large. Maximum is %d megapixels.", imaging.MaxPixels/1_000_000))
	}
	if err != nil {
		return nil, s.fail(span, kindDisease, "error", apperrors.Internal("Failed to process image", err))
	}

	start := time.Now()
	scores, err := s.image.Predict(ctx, tensor)
	s.metrics.ObserveInference(kindDisease, time.Since(start))
	if err != nil {
		return nil, s.fail(span, kindDisease, "error", apperrors.Internal("Failed to process image", err))
	}
	if len(scores) != len(DiseaseLabels) {
		err := fmt.Errorf("model returned %d scores for %d labels", len(scores), len(DiseaseLabels))
		return nil, s.fail(span, kindDisease, "error", apperrors.Internal("Failed to process image", err))
	}

	detection, recommendation := s.decode(ToProbabilities(scores))
	span.SetAttributes(
		attribute.String("disease.plant", detection.Plant),
		attribute.String("disease.name", detection.Disease),
		attribute.Float64("disease.confidence", detection.Confidence),
	)

	record := &models.DiseaseDetection{
		UserID:         caller.ID,
		UserEmail:      caller.Email,
		Filename:       req.Filename,
		ContentType:    req.ContentType,
		Detection:      detection,
		Recommendation: recommendation,
		CreatedAt:      s.now().UTC(),
	}
	models.AssignID(&record.ID)
	record.ImageObject = s.archiveImage(ctx, caller, req, record.CreatedAt)

	saved := s.persist(ctx, kindDisease, func(ctx context.Context) error {
		return s.store.SaveDiseaseDetection(ctx, record)
	}, record)
	if !saved && record.ImageObject != "" {
		if err := s.archive.DeleteFile(ctx, record.ImageObject); err != nil {
			slog.WarnContext(ctx, "failed to remove orphaned leaf image", "object", record.ImageObject, "error", err)
		}
	}
	s.metrics.ObservePrediction(kindDisease, "success")

	return &DiseaseResult{
		Success:        true,
		Plant:          detection.Plant,
		Disease:        detection.Disease,
		Confidence:     detection.Confidence,
		IsHealthy:      detection.IsHealthy,
		TopPredictions: detection.TopPredictions,
		Recommendation: recommendation,
		Message:        diseaseMessage(detection),
	}, nil
}

// decode turns a probability vector into the primary detection and its advice.
func (s *Service) decode(probs []float64) (models.DetectionOutcome, string) {
	ranked := Rank(probs, s.topK)
	top := make([]models.TopPrediction, len(ranked))
	for i, idx := range ranked {
		plant, disease := ParseLabel(DiseaseLabels[idx])
		top[i] = models.TopPrediction{Disease: disease, Plant: plant, Confidence: probs[idx]}
	}

	best := top[0]
	detection := models.DetectionOutcome{
		Plant:          best.Plant,
		Disease:        best.Disease,
		Confidence:     best.Confidence,
		IsHealthy:      IsHealthy(best.Disease),
		TopPredictions: top,
	}
	return detection, Recommendation(best.Disease)
}

func diseaseMessage(d models.DetectionOutcome) string {
	if d.IsHealthy {
		return fmt.Sprintf("Great news! Your %s plant appears to be healthy.", d.Plant)
	}
	return fmt.Sprintf("Disease detected: %s in %s plant (Confidence: %.1f%%)", d.Disease, d.Plant, d.Confidence*100)
}

// archiveImage uploads the image when an archive is configured and returns its object
// name, or "" when skipped or failed.
func (s *Service) archiveImage(ctx context.Context, caller Caller, req DiseaseRequest, at time.Time) string {
	if s.archive == nil {
		return ""
	}
	name := storage.GenerateObjectName(caller.ID, req.Filename, at)
	_, err := s.archive.UploadFromReader(ctx, name, bytes.NewReader(req.Data), int64(len(req.Data)), req.ContentType)
	s.metrics.ObserveStorage("archive_image", err)
	if err != nil {
		slog.WarnContext(ctx, "failed to archive leaf image", "object", name, "error", err)
		return ""
	}
	return name
}

// ToProbabilities returns scores unchanged when they already form a probability
// distribution and their softmax otherwise.
func ToProbabilities(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if isDistribution(scores) {
		copy(out, scores)
		return out
	}

	peak := math.Inf(-1)
	for _, v := range scores {
		if v > peak {
			peak = v
		}
	}
	var sum float64
	for i, v := range scores {
		out[i] = math.Exp(v - peak)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func isDistribution(scores []float64) bool {
	var sum float64
	for _, v := range scores {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return false
		}
		sum += v
	}
	return math.Abs(sum-1) <= 1e-3
}

// Rank returns the indices of the k highest scores, best first. Ties keep label order.
func Rank(scores []float64, k int) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})
	if k < len(idx) {
		idx = idx[:k]
	}
	return idx
}
