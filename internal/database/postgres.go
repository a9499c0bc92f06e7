package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"agridoctor-back/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type gormStore struct {
	db *gorm.DB
}

// InitDB opens a pooled Postgres connection and verifies it with a ping.
func InitDB(ctx context.Context, databaseURL string, maxConns int32) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	if maxConns > 0 {
		sqlDB.SetMaxOpenConns(int(maxConns))
		sqlDB.SetMaxIdleConns(int(maxConns) / 2)
	}
	sqlDB.SetConnMaxIdleTime(15 * time.Minute)
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	slog.InfoContext(ctx, "connected to postgres")
	return db, nil
}

// MigrateDB creates or updates the users and history tables.
func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.CropPrediction{},
		&models.FertilizerPrediction{},
		&models.DiseaseDetection{},
	)
}

// NewGormStore wraps an open gorm connection.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *gormStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *gormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, "email = ?", email)
}

func (s *gormStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, "username = ?", username)
}

func (s *gormStore) findUser(ctx context.Context, query string, arg string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *gormStore) SaveCropPrediction(ctx context.Context, p *models.CropPrediction) error {
	return translate(s.db.WithContext(ctx).Create(p).Error)
}

func (s *gormStore) SaveFertilizerPrediction(ctx context.Context, p *models.FertilizerPrediction) error {
	return translate(s.db.WithContext(ctx).Create(p).Error)
}

func (s *gormStore) SaveDiseaseDetection(ctx context.Context, d *models.DiseaseDetection) error {
	return translate(s.db.WithContext(ctx).Create(d).Error)
}

func (s *gormStore) ListCropPredictions(ctx context.Context, userID string, limit int) ([]models.CropPrediction, error) {
	var out []models.CropPrediction
	err := s.history(ctx, userID, limit).Find(&out).Error
	return out, translate(err)
}

func (s *gormStore) ListFertilizerPredictions(ctx context.Context, userID string, limit int) ([]models.FertilizerPrediction, error) {
	var out []models.FertilizerPrediction
	err := s.history(ctx, userID, limit).Find(&out).Error
	return out, translate(err)
}

func (s *gormStore) ListDiseaseDetections(ctx context.Context, userID string, limit int) ([]models.DiseaseDetection, error) {
	var out []models.DiseaseDetection
	err := s.history(ctx, userID, limit).Find(&out).Error
	return out, translate(err)
}

func (s *gormStore) history(ctx context.Context, userID string, limit int) *gorm.DB {
	return s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Limit(limit)
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *gormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}
