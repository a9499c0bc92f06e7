package prediction

import (
	"math"
	"strings"

	"agridoctor-back/internal/apperrors"
	"agridoctor-back/internal/models"
)

// Bound is an inclusive range for one soil or climate measurement.
type Bound struct {
	Field string
	Min   float64
	Max   float64
}

// SoilBounds lists the measurements in feature-vector order.
var SoilBounds = [7]Bound{
	{"N", 0, 200},
	{"P", 0, 200},
	{"K", 0, 300},
	{"temperature", 0, 60},
	{"humidity", 0, 100},
	{"ph", 0, 14},
	{"rainfall", 0, 500},
}

// soilFeatures assembles [N, P, K, temperature, humidity, ph, rainfall].
func soilFeatures(in models.SoilInput) []float64 {
	return []float64{in.N, in.P, in.K, in.Temperature, in.Humidity, in.PH, in.Rainfall}
}

// ValidateSoil rejects any measurement outside its bound, naming the first offender.
func ValidateSoil(in models.SoilInput) error {
	for i, v := range soilFeatures(in) {
		b := SoilBounds[i]
		if math.IsNaN(v) || v < b.Min || v > b.Max {
			return apperrors.Validation("%s must be between %g and %g, got %g", b.Field, b.Min, b.Max, v)
		}
	}
	return nil
}

func ValidateFertilizer(in models.FertilizerInput) error {
	if err := ValidateSoil(in.SoilInput); err != nil {
		return err
	}
	if strings.TrimSpace(in.CropType) == "" {
		return apperrors.Validation("crop_type is required")
	}
	return nil
}

// ValidateImage checks the declared type and the size of an upload before decoding.
func ValidateImage(contentType string, size, maxSize int64) error {
	if !strings.HasPrefix(contentType, "image/") {
		return apperrors.Validation("File must be an image (JPEG, PNG, etc.)")
	}
	if size > maxSize {
		return apperrors.Validation("Image file too large. Maximum size is %dMB.", maxSize/(1024*1024))
	}
	if size == 0 {
		return apperrors.Validation("Image file is empty")
	}
	return nil
}
