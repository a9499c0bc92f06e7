// Package handlers exposes the HTTP API with gin.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"agridoctor-back/internal/apperrors"
	"agridoctor-back/internal/middleware"
	"agridoctor-back/internal/prediction"
)

// respondError renders err as {"error": code, "detail": message}.
func respondError(c *gin.Context, err error) {
	appErr := apperrors.As(err)
	if appErr.Code == apperrors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	if appErr.Code == apperrors.CodeUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.JSON(appErr.Status(), gin.H{"error": appErr.Code, "detail": appErr.Message})
}

// badRequest reports a request body that could not be bound.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": apperrors.CodeValidation, "detail": err.Error()})
}

// callerFrom reads the identity AuthMiddleware stored in the context.
func callerFrom(c *gin.Context) prediction.Caller {
	return prediction.Caller{
		ID:    c.GetString(middleware.ContextUserID),
		Email: c.GetString(middleware.ContextEmail),
	}
}
