package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"agridoctor-back/internal/apperrors"
	"agridoctor-back/internal/models"
	"agridoctor-back/internal/prediction"
)

// CropRequest uses pointers so that a missing field is told apart from a zero reading.
type CropRequest struct {
	N           *float64 `json:"N" binding:"required"`
	P           *float64 `json:"P" binding:"required"`
	K           *float64 `json:"K" binding:"required"`
	Temperature *float64 `json:"temperature" binding:"required"`
	Humidity    *float64 `json:"humidity" binding:"required"`
	PH          *float64 `json:"ph" binding:"required"`
	Rainfall    *float64 `json:"rainfall" binding:"required"`
}

func (r CropRequest) soil() models.SoilInput {
	return models.SoilInput{
		N:           *r.N,
		P:           *r.P,
		K:           *r.K,
		Temperature: *r.Temperature,
		Humidity:    *r.Humidity,
		PH:          *r.PH,
		Rainfall:    *r.Rainfall,
	}
}

type FertilizerRequest struct {
	CropRequest
	CropType string `json:"crop_type" binding:"required"`
}

func PredictCrop(svc *prediction.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CropRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		res, err := svc.PredictCrop(c.Request.Context(), callerFrom(c), req.soil())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func PredictFertilizer(svc *prediction.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req FertilizerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}

		in := models.FertilizerInput{SoilInput: req.soil(), CropType: req.CropType}
		res, err := svc.PredictFertilizer(c.Request.Context(), callerFrom(c), in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func PredictionHealth(svc *prediction.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !svc.Status().CropModel {
			respondError(c, apperrors.Unavailable("ML model not loaded"))
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":       "healthy",
			"model_loaded": true,
			"message":      "XGBoost model is ready for predictions",
		})
	}
}

// limitParam reads ?limit=, leaving range handling to prediction.ClampLimit.
func limitParam(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Validation("limit must be an integer, got %q", raw)
	}
	return n, nil
}

func CropHistory(svc *prediction.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := limitParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		items, err := svc.CropHistory(c.Request.Context(), callerFrom(c), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "count": len(items), "predictions": items})
	}
}

func FertilizerHistory(svc *prediction.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := limitParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		items, err := svc.FertilizerHistory(c.Request.Context(), callerFrom(c), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "count": len(items), "predictions": items})
	}
}
