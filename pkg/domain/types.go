package domain

import "time"

// CampaignStatus is the campaign pipeline position. Transitions only move
// forward and each one requires the exact previous status.
type CampaignStatus string

const (
	CampaignObjectCreated    CampaignStatus = "object_created"
	CampaignAudioExtracted   CampaignStatus = "audio_extracted"
	CampaignAudioTranscribed CampaignStatus = "audio_transcribed"
	CampaignVoiceCreated     CampaignStatus = "voice_created"
)

// Next returns the status that follows s in the pipeline, or "" when s is
// terminal or unknown.
func (s CampaignStatus) Next() CampaignStatus {
	switch s {
	case CampaignObjectCreated:
		return CampaignAudioExtracted
	case CampaignAudioExtracted:
		return CampaignAudioTranscribed
	case CampaignAudioTranscribed:
		return CampaignVoiceCreated
	}
	return ""
}

// VideoStatus tracks one recipient video through generation. Failed is
// reachable from any non-terminal status.
type VideoStatus string

const (
	VideoCreated         VideoStatus = "created"
	VideoScriptGenerated VideoStatus = "script_generated"
	VideoAudioGenerated  VideoStatus = "audio_generated"
	VideoCreating        VideoStatus = "video_creating"
	VideoDone            VideoStatus = "video_created"
	VideoFailed          VideoStatus = "failed"
)

// Next returns the status that follows s, or "" when s is terminal.
func (s VideoStatus) Next() VideoStatus {
	switch s {
	case VideoCreated:
		return VideoScriptGenerated
	case VideoScriptGenerated:
		return VideoAudioGenerated
	case VideoAudioGenerated:
		return VideoCreating
	case VideoCreating:
		return VideoDone
	}
	return ""
}

// Terminal reports whether no further transition can apply.
func (s VideoStatus) Terminal() bool {
	return s == VideoDone || s == VideoFailed
}

// RecipientRow holds arbitrary per-recipient fields from the uploaded data.
// The Email field is required.
type RecipientRow map[string]string

// EmailField is the one key every recipient row must carry.
const EmailField = "Email"

// Email returns the row's email address, if present.
func (r RecipientRow) Email() (string, bool) {
	v, ok := r[EmailField]
	return v, ok && v != ""
}

// Campaign is one personalization job: a template video, a voice sample, and
// one Video per recipient. Recipient count is frozen at creation.
type Campaign struct {
	ID             string         `json:"id"`
	OwnerID        string         `json:"ownerId"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Type           string         `json:"type"`
	Model          string         `json:"model"`
	RecipientCount int            `json:"recipientCount"`
	VideoURL       string         `json:"videoUrl,omitempty"`
	SampleURL      string         `json:"sampleUrl,omitempty"`
	AudioURL       string         `json:"audioUrl,omitempty"`
	Transcript     string         `json:"transcript,omitempty"`
	VoiceID        string         `json:"voiceId,omitempty"`
	Status         CampaignStatus `json:"status"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Video is one personalized output for a single recipient row.
type Video struct {
	ID           string       `json:"id"`
	OwnerID      string       `json:"ownerId"`
	CampaignID   string       `json:"campaignId"`
	Email        string       `json:"email"`
	Row          RecipientRow `json:"row"`
	Script       string       `json:"script,omitempty"`
	AudioURL     string       `json:"audioUrl,omitempty"`
	VideoURL     string       `json:"videoUrl,omitempty"`
	SynthJobID   string       `json:"synthJobId,omitempty"`
	Status       VideoStatus  `json:"status"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}
