package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ClassificationCompleted = "completed"
	ClassificationRejected  = "rejected"
)

// Classification records one pipeline run over an uploaded video.
type Classification struct {
	ID             string         `gorm:"primaryKey" json:"id"`
	Status         string         `gorm:"not null;index" json:"status"`
	Filename       string         `json:"filename"`
	Prediction     string         `json:"prediction"`
	BestAccuracy   float64        `json:"best_accuracy"`
	BestFrameLabel string         `json:"best_frame_label"`
	FrameCount     int            `json:"frame_count"`
	Counts         map[string]int `gorm:"type:text;serializer:json" json:"counts"`
	ImageKey       string         `json:"image_key"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
}

func (Classification) TableName() string {
	return "classifications"
}

func NewClassification(filename string) *Classification {
	return &Classification{
		ID:        uuid.New().String(),
		Filename:  filename,
		Counts:    map[string]int{},
		CreatedAt: time.Now(),
	}
}
