package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type CampaignModel struct {
	ID             string `gorm:"primaryKey"`
	OwnerID        string `gorm:"not null;index"`
	Name           string `gorm:"not null"`
	Description    string
	Type           string
	Model          string
	RecipientCount int    `gorm:"not null"`
	VideoURL       string
	SampleURL      string
	AudioURL       string
	Transcript     string `gorm:"type:text"`
	VoiceID        string
	Status         string    `gorm:"not null;index"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

type VideoModel struct {
	ID           string         `gorm:"primaryKey"`
	OwnerID      string         `gorm:"not null;index"`
	CampaignID   string         `gorm:"not null;index"`
	Email        string         `gorm:"not null"`
	Row          datatypes.JSON `gorm:"type:jsonb"`
	Script       string         `gorm:"type:text"`
	AudioURL     string
	VideoURL     string
	SynthJobID   string
	Status       string `gorm:"not null;index"`
	ErrorMessage string
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}
