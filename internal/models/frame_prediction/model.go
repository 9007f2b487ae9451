package frame_prediction

import (
	"encoding/json"
	"time"
)

type FramePredictionDB struct {
	ID               string          `gorm:"type:uuid;primaryKey" json:"id"`
	ClassificationID string          `gorm:"type:uuid;not null;uniqueIndex:idx_run_position" json:"classification_id"`
	Position         int             `gorm:"not null;uniqueIndex:idx_run_position" json:"position"`
	FrameIndex       int             `gorm:"not null" json:"frame_index"`
	Label            string          `gorm:"not null" json:"label"`
	Confidence       float64         `gorm:"not null" json:"confidence"`
	Probabilities    json.RawMessage `gorm:"type:jsonb" json:"probabilities"`
	CreatedAt        time.Time       `gorm:"not null" json:"created_at"`
}

func (FramePredictionDB) TableName() string {
	return "frame_predictions"
}
