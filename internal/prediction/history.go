package prediction

import (
	"context"
	"log/slog"

	"agridoctor-back/internal/apperrors"
	"agridoctor-back/internal/models"
)

func (s *Service) CropHistory(ctx context.Context, caller Caller, limit int) ([]models.CropPrediction, error) {
	items, err := s.store.ListCropPredictions(ctx, caller.ID, ClampLimit(limit))
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve history", err)
	}
	return items, nil
}

func (s *Service) FertilizerHistory(ctx context.Context, caller Caller, limit int) ([]models.FertilizerPrediction, error) {
	items, err := s.store.ListFertilizerPredictions(ctx, caller.ID, ClampLimit(limit))
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve history", err)
	}
	return items, nil
}

// DiseaseHistory lists past detections, attaching a download URL to every entry whose
// image was archived.
func (s *Service) DiseaseHistory(ctx context.Context, caller Caller, limit int) ([]models.DiseaseDetection, error) {
	items, err := s.store.ListDiseaseDetections(ctx, caller.ID, ClampLimit(limit))
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve history", err)
	}
	if s.archive == nil {
		return items, nil
	}
	for i := range items {
		if items[i].ImageObject == "" {
			continue
		}
		url, err := s.archive.GetPresignedURL(ctx, items[i].ImageObject)
		if err != nil {
			slog.WarnContext(ctx, "failed to presign leaf image", "object", items[i].ImageObject, "error", err)
			continue
		}
		items[i].ImageURL = url
	}
	return items, nil
}
