// Package database persists user accounts and prediction history.
package database

import (
	"context"
	"errors"

	"agridoctor-back/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Store is the persistence boundary of the service. History listings are scoped to a
// single user and ordered newest first.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	SaveCropPrediction(ctx context.Context, p *models.CropPrediction) error
	SaveFertilizerPrediction(ctx context.Context, p *models.FertilizerPrediction) error
	SaveDiseaseDetection(ctx context.Context, d *models.DiseaseDetection) error

	ListCropPredictions(ctx context.Context, userID string, limit int) ([]models.CropPrediction, error)
	ListFertilizerPredictions(ctx context.Context, userID string, limit int) ([]models.FertilizerPrediction, error)
	ListDiseaseDetections(ctx context.Context, userID string, limit int) ([]models.DiseaseDetection, error)

	Ping(ctx context.Context) error
	Close() error
}
