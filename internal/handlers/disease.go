package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"agridoctor-back/internal/apperrors"
	"agridoctor-back/internal/prediction"
)

const multipartOverhead = 1 << 20

// DetectDisease accepts a multipart upload in the "file" field.
func DetectDisease(svc *prediction.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		// room for the multipart envelope on top of the image itself
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, svc.MaxImageSize()+multipartOverhead)

		header, err := c.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondError(c, apperrors.Validation("Image file too large. Maximum size is %dMB.", svc.MaxImageSize()/(1024*1024)))
				return
			}
			respondError(c, apperrors.Validation("No image file provided"))
			return
		}

		f, err := header.Open()
		if err != nil {
			respondError(c, apperrors.Internal("Failed to read upload", err))
			return
		}
		defer f.Close()

		// one byte past the limit is enough to reject an oversize upload
		data, err := io.ReadAll(io.LimitReader(f, svc.MaxImageSize()+1))
		if err != nil {
			respondError(c, apperrors.Internal("Failed to read upload", err))
			return
		}

		res, err := svc.DetectDisease(c.Request.Context(), callerFrom(c), prediction.DiseaseRequest{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func DiseaseHealth(svc *prediction.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !svc.Status().DiseaseModel {
			respondError(c, apperrors.Unavailable("Disease detection model not loaded"))
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":           "healthy",
			"model_loaded":     true,
			"message":          "Plant disease detection model is ready",
			"supported_plants": prediction.SupportedPlants,
		})
	}
}

func DiseaseHistory(svc *prediction.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := limitParam(c)
		if err != nil {
			respondError(c, err)
			return
		}
		items, err := svc.DiseaseHistory(c.Request.Context(), callerFrom(c), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "count": len(items), "detections": items})
	}
}
