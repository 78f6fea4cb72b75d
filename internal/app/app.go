package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"pitchcast/pkg/ai"
	"pitchcast/pkg/domain"
	"pitchcast/pkg/storage"
	"pitchcast/pkg/store"
)

// Capability interfaces for the external collaborators the core drives.
// Concrete implementations live in pkg/ai, pkg/media, pkg/queue.
type (
	// AudioExtractor pulls the audio track out of a stored template video
	// and returns the uploaded audio URL.
	AudioExtractor interface {
		ExtractAudio(ctx context.Context, videoBucket, videoKey, audioBucket, audioKey string) (string, error)
	}

	// Transcriber turns hosted audio into text.
	Transcriber interface {
		Transcribe(ctx context.Context, audioURL string) (string, error)
	}

	// VoiceCloner registers a voice from a hosted sample.
	VoiceCloner interface {
		Clone(ctx context.Context, name, sampleURL string) (string, error)
	}

	// SpeechSynthesizer renders text with a cloned voice.
	SpeechSynthesizer interface {
		Synthesize(ctx context.Context, voiceID, text string) ([]byte, error)
	}

	// VideoSynthesizer submits and polls lipsync jobs.
	VideoSynthesizer interface {
		Submit(ctx context.Context, audioURL, videoURL string) (string, error)
		Job(ctx context.Context, id string) (ai.SynthJob, error)
	}

	// ScriptGenerator produces the personalized script text.
	ScriptGenerator interface {
		GenerateText(ctx context.Context, model, systemPrompt, userPrompt string) (string, error)
	}

	// VideoEnqueuer hands a video id to the asynchronous task runner.
	// Delivery is at-least-once; ProcessVideo is safe to re-invoke.
	VideoEnqueuer interface {
		Enqueue(ctx context.Context, videoID string) error
	}
)

// EnqueuerFunc adapts a function to the VideoEnqueuer interface.
type EnqueuerFunc func(ctx context.Context, videoID string) error

func (f EnqueuerFunc) Enqueue(ctx context.Context, videoID string) error { return f(ctx, videoID) }

// Config holds runtime configuration for the core application.
type Config struct {
	Store       store.Store
	Objects     storage.ObjectStore
	Extractor   AudioExtractor
	Transcriber Transcriber
	Voices      VoiceCloner
	Speech      SpeechSynthesizer
	Synth       VideoSynthesizer
	Scripts     ScriptGenerator
	Enqueuer    VideoEnqueuer

	VideoBucket     string
	AudioBucket     string
	DefaultModel    string
	SynthTimeout    time.Duration
	PollConcurrency int
}

// App wires the campaign pipeline, video dispatch, and reconciliation around
// the store and the external-service adapters. It keeps no cross-request
// state: every operation reads current status from the store.
type App struct {
	store       store.Store
	objects     storage.ObjectStore
	extractor   AudioExtractor
	transcriber Transcriber
	voices      VoiceCloner
	speech      SpeechSynthesizer
	synth       VideoSynthesizer
	scripts     ScriptGenerator
	enqueuer    VideoEnqueuer

	videoBucket     string
	audioBucket     string
	defaultModel    string
	synthTimeout    time.Duration
	pollConcurrency int
}

// New constructs the application core.
func New(cfg Config) (*App, error) {
	switch {
	case cfg.Store == nil:
		return nil, fmt.Errorf("store required")
	case cfg.Objects == nil:
		return nil, fmt.Errorf("object store required")
	case cfg.Extractor == nil:
		return nil, fmt.Errorf("audio extractor required")
	case cfg.Transcriber == nil:
		return nil, fmt.Errorf("transcriber required")
	case cfg.Voices == nil:
		return nil, fmt.Errorf("voice cloner required")
	case cfg.Speech == nil:
		return nil, fmt.Errorf("speech synthesizer required")
	case cfg.Synth == nil:
		return nil, fmt.Errorf("video synthesizer required")
	case cfg.Scripts == nil:
		return nil, fmt.Errorf("script generator required")
	case cfg.Enqueuer == nil:
		return nil, fmt.Errorf("enqueuer required")
	case cfg.VideoBucket == "":
		return nil, fmt.Errorf("video bucket required")
	case cfg.AudioBucket == "":
		return nil, fmt.Errorf("audio bucket required")
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "gemini-2.0-flash"
	}
	synthTimeout := cfg.SynthTimeout
	if synthTimeout <= 0 {
		synthTimeout = 24 * time.Hour
	}
	pollConcurrency := cfg.PollConcurrency
	if pollConcurrency <= 0 {
		pollConcurrency = 4
	}
	return &App{
		store:           cfg.Store,
		objects:         cfg.Objects,
		extractor:       cfg.Extractor,
		transcriber:     cfg.Transcriber,
		voices:          cfg.Voices,
		speech:          cfg.Speech,
		synth:           cfg.Synth,
		scripts:         cfg.Scripts,
		enqueuer:        cfg.Enqueuer,
		videoBucket:     cfg.VideoBucket,
		audioBucket:     cfg.AudioBucket,
		defaultModel:    model,
		synthTimeout:    synthTimeout,
		pollConcurrency: pollConcurrency,
	}, nil
}

// CreateCampaignInput carries everything a new campaign needs. Recipient
// count is frozen from len(Rows) at creation.
type CreateCampaignInput struct {
	OwnerID     string
	Name        string
	Description string
	Type        string
	Model       string
	Rows        []domain.RecipientRow
	Video       io.Reader
	VideoSize   int64
	Sample      io.Reader
	SampleSize  int64
}

// CreateCampaign persists the campaign record and uploads the template video
// and voice sample, recording their URLs.
func (a *App) CreateCampaign(ctx context.Context, in CreateCampaignInput) (domain.Campaign, error) {
	switch {
	case strings.TrimSpace(in.OwnerID) == "":
		return domain.Campaign{}, fmt.Errorf("owner id required")
	case strings.TrimSpace(in.Name) == "":
		return domain.Campaign{}, fmt.Errorf("name required")
	case len(in.Rows) == 0:
		return domain.Campaign{}, fmt.Errorf("recipient rows required")
	case in.Video == nil:
		return domain.Campaign{}, fmt.Errorf("template video required")
	case in.Sample == nil:
		return domain.Campaign{}, fmt.Errorf("voice sample required")
	}

	now := time.Now().UTC()
	c := domain.Campaign{
		ID:             uuid.NewString(),
		OwnerID:        in.OwnerID,
		Name:           in.Name,
		Description:    in.Description,
		Type:           in.Type,
		Model:          in.Model,
		RecipientCount: len(in.Rows),
		Status:         domain.CampaignObjectCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := a.store.CreateCampaign(c); err != nil {
		return domain.Campaign{}, fmt.Errorf("create campaign: %w", err)
	}

	videoURL, err := a.objects.Put(ctx, a.videoBucket, templateKey(c.ID), in.Video, in.VideoSize, "video/mp4")
	if err != nil {
		return domain.Campaign{}, &AdapterError{Provider: "storage", Err: fmt.Errorf("upload template video: %w", err)}
	}
	if err := a.store.UpdateCampaign(c.ID, store.CampaignFields{VideoURL: videoURL}); err != nil {
		return domain.Campaign{}, fmt.Errorf("record template video url: %w", err)
	}

	sampleURL, err := a.objects.Put(ctx, a.audioBucket, sampleKey(c.ID), in.Sample, in.SampleSize, "audio/mpeg")
	if err != nil {
		_ = a.objects.Delete(ctx, a.videoBucket, templateKey(c.ID))
		return domain.Campaign{}, &AdapterError{Provider: "storage", Err: fmt.Errorf("upload voice sample: %w", err)}
	}
	if err := a.store.UpdateCampaign(c.ID, store.CampaignFields{SampleURL: sampleURL}); err != nil {
		return domain.Campaign{}, fmt.Errorf("record voice sample url: %w", err)
	}

	c.VideoURL = videoURL
	c.SampleURL = sampleURL
	return c, nil
}

// GetCampaign retrieves a campaign by ID.
func (a *App) GetCampaign(id string) (domain.Campaign, bool, error) {
	return a.store.GetCampaign(id)
}

// ListCampaigns returns a user's campaigns.
func (a *App) ListCampaigns(ownerID string) ([]domain.Campaign, error) {
	return a.store.ListCampaignsByOwner(ownerID)
}

// ListCampaignVideos returns a campaign's videos.
func (a *App) ListCampaignVideos(campaignID string) ([]domain.Video, error) {
	return a.store.ListVideosByCampaign(campaignID)
}

// Object keys follow the original bucket layout: one template video, one
// voice sample, and one extracted audio per campaign; one narration per
// video.
func templateKey(campaignID string) string { return "campaigns/" + campaignID + ".mp4" }
func sampleKey(campaignID string) string   { return "campaigns/" + campaignID + "_sample.mp3" }
func audioKey(campaignID string) string    { return "campaigns/" + campaignID + ".mp3" }
func narrationKey(videoID string) string   { return "videos/" + videoID + ".mp3" }
