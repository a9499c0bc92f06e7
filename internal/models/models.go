package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	Email          string    `gorm:"uniqueIndex;not null" json:"email"`
	Username       string    `gorm:"uniqueIndex;not null" json:"username"`
	FullName       string    `json:"full_name,omitempty"`
	HashedPassword string    `gorm:"not null" json:"-"`
	IsActive       bool      `gorm:"not null" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}

// SoilInput is the measurement set shared by crop and fertilizer requests.
type SoilInput struct {
	N           float64 `json:"N"`
	P           float64 `json:"P"`
	K           float64 `json:"K"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	PH          float64 `json:"ph"`
	Rainfall    float64 `json:"rainfall"`
}

type FertilizerInput struct {
	SoilInput
	CropType string `json:"crop_type"`
}

type CropOutcome struct {
	Crop   string `json:"crop"`
	CropID int    `json:"crop_id"`
}

type FertilizerOutcome struct {
	Fertilizer   string `json:"fertilizer"`
	FertilizerID int    `json:"fertilizer_id"`
	Explanation  string `json:"explanation"`
}

// TopPrediction is one ranked alternative of a disease detection.
type TopPrediction struct {
	Disease    string  `json:"disease"`
	Plant      string  `json:"plant"`
	Confidence float64 `json:"confidence"`
}

type DetectionOutcome struct {
	Plant          string                             `json:"plant"`
	Disease        string                             `json:"disease"`
	Confidence     float64                            `json:"confidence"`
	IsHealthy      bool                               `json:"is_healthy"`
	TopPredictions datatypes.JSONSlice[TopPrediction] `gorm:"type:jsonb" json:"top_predictions"`
}

// CropPrediction is an append-only record, written once after a successful crop
// prediction.
type CropPrediction struct {
	ID         string      `gorm:"primaryKey;type:uuid" json:"_id"`
	UserID     string      `gorm:"index;not null" json:"user_id"`
	UserEmail  string      `json:"user_email"`
	Input      SoilInput   `gorm:"embedded;embeddedPrefix:input_" json:"input_data"`
	Prediction CropOutcome `gorm:"embedded;embeddedPrefix:prediction_" json:"prediction"`
	CreatedAt  time.Time   `gorm:"index" json:"created_at"`
}

type FertilizerPrediction struct {
	ID         string            `gorm:"primaryKey;type:uuid" json:"_id"`
	UserID     string            `gorm:"index;not null" json:"user_id"`
	UserEmail  string            `json:"user_email"`
	Input      FertilizerInput   `gorm:"embedded;embeddedPrefix:input_" json:"input_data"`
	Prediction FertilizerOutcome `gorm:"embedded;embeddedPrefix:prediction_" json:"prediction"`
	CreatedAt  time.Time         `gorm:"index" json:"created_at"`
}

type DiseaseDetection struct {
	ID             string           `gorm:"primaryKey;type:uuid" json:"_id"`
	UserID         string           `gorm:"index;not null" json:"user_id"`
	UserEmail      string           `json:"user_email"`
	Filename       string           `json:"filename"`
	ContentType    string           `json:"content_type"`
	ImageObject    string           `json:"-"`
	ImageURL       string           `gorm:"-" json:"image_url,omitempty"`
	Detection      DetectionOutcome `gorm:"embedded;embeddedPrefix:detection_" json:"detection"`
	Recommendation string           `json:"recommendation"`
	CreatedAt      time.Time        `gorm:"index" json:"created_at"`
}

// AssignID gives id a fresh UUID when it is empty.
func AssignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func (u *User) BeforeCreate(*gorm.DB) error {
	AssignID(&u.ID)
	return nil
}

func (p *CropPrediction) BeforeCreate(*gorm.DB) error {
	AssignID(&p.ID)
	return nil
}

func (p *FertilizerPrediction) BeforeCreate(*gorm.DB) error {
	AssignID(&p.ID)
	return nil
}

func (d *DiseaseDetection) BeforeCreate(*gorm.DB) error {
	AssignID(&d.ID)
	return nil
}
