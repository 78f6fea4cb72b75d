package store

import (
	"errors"

	"pitchcast/pkg/domain"
)

// ErrStatusConflict reports that a status-gated update matched no row: the
// entity is missing or its current status differs from the expected one.
var ErrStatusConflict = errors.New("status precondition not met")

// CampaignFields are the partial campaign updates the pipeline persists.
// Empty strings are left untouched.
type CampaignFields struct {
	VideoURL   string
	SampleURL  string
	AudioURL   string
	Transcript string
	VoiceID    string
}

// VideoFields are the partial video updates workers and the poller persist.
// Empty strings are left untouched.
type VideoFields struct {
	Script     string
	AudioURL   string
	VideoURL   string
	SynthJobID string
}

// Store defines persistence operations for campaigns and videos.
//
// Advance* apply a partial update together with a status transition, gated on
// the entity's current status matching from; a mismatch yields
// ErrStatusConflict and no write. That conditional write is the only way
// status moves forward, so concurrent duplicate invocations cannot both
// succeed.
type Store interface {
	// campaigns
	CreateCampaign(domain.Campaign) error
	GetCampaign(id string) (domain.Campaign, bool, error)
	UpdateCampaign(id string, fields CampaignFields) error
	AdvanceCampaign(id string, from, to domain.CampaignStatus, fields CampaignFields) error
	ListCampaignsByOwner(ownerID string) ([]domain.Campaign, error)

	// videos
	CreateVideo(domain.Video) error
	GetVideo(id string) (domain.Video, bool, error)
	AdvanceVideo(id string, from, to domain.VideoStatus, fields VideoFields) error
	MarkVideoFailed(id string, cause string) error
	ListVideosByStatus(status domain.VideoStatus) ([]domain.Video, error)
	ListVideosByCampaign(campaignID string) ([]domain.Video, error)
}
