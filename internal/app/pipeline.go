package app

import (
	"context"
	"errors"
	"fmt"

	"pitchcast/pkg/domain"
	"pitchcast/pkg/store"
)

// Advance drives a campaign through its remaining pipeline stages: extract
// audio → transcribe → clone voice. Each stage is gated on the campaign's
// current status matching that stage's precondition, and its result is
// persisted before the next stage runs, so a failure keeps all prior
// progress and a later call resumes from the failed stage. A campaign whose
// status matches no runnable stage (already complete, or unknown) fails with
// InvalidStageError and nothing is re-executed.
func (a *App) Advance(ctx context.Context, campaignID string) error {
	c, ok, err := a.store.GetCampaign(campaignID)
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}
	if !ok || c.Status == "" {
		return ErrCampaignNotFound
	}

	ran := false
	if c.Status == domain.CampaignObjectCreated {
		if err := a.extractStage(ctx, &c); err != nil {
			return err
		}
		ran = true
	}
	if c.Status == domain.CampaignAudioExtracted {
		if err := a.transcribeStage(ctx, &c); err != nil {
			return err
		}
		ran = true
	}
	if c.Status == domain.CampaignAudioTranscribed {
		if err := a.cloneStage(ctx, &c); err != nil {
			return err
		}
		ran = true
	}
	if !ran {
		return &InvalidStageError{Op: "advance", Status: c.Status}
	}
	return nil
}

func (a *App) extractStage(ctx context.Context, c *domain.Campaign) error {
	audioURL, err := a.extractor.ExtractAudio(ctx, a.videoBucket, templateKey(c.ID), a.audioBucket, audioKey(c.ID))
	if err != nil {
		return &StageError{Stage: "extract_audio", Err: &AdapterError{Provider: "storage", Err: err}}
	}
	if err := a.advanceCampaign(c, domain.CampaignAudioExtracted, store.CampaignFields{AudioURL: audioURL}); err != nil {
		return &StageError{Stage: "extract_audio", Err: err}
	}
	c.AudioURL = audioURL
	return nil
}

func (a *App) transcribeStage(ctx context.Context, c *domain.Campaign) error {
	transcript, err := a.transcriber.Transcribe(ctx, c.AudioURL)
	if err != nil {
		return &StageError{Stage: "transcribe", Err: &AdapterError{Provider: "transcription", Err: err}}
	}
	if err := a.advanceCampaign(c, domain.CampaignAudioTranscribed, store.CampaignFields{Transcript: transcript}); err != nil {
		return &StageError{Stage: "transcribe", Err: err}
	}
	c.Transcript = transcript
	return nil
}

func (a *App) cloneStage(ctx context.Context, c *domain.Campaign) error {
	voiceID, err := a.voices.Clone(ctx, c.Name, c.SampleURL)
	if err != nil {
		return &StageError{Stage: "clone_voice", Err: &AdapterError{Provider: "voice", Err: err}}
	}
	if err := a.advanceCampaign(c, domain.CampaignVoiceCreated, store.CampaignFields{VoiceID: voiceID}); err != nil {
		return &StageError{Stage: "clone_voice", Err: err}
	}
	c.VoiceID = voiceID
	return nil
}

// advanceCampaign persists the stage result and transition in one write,
// gated on the status the stage was entered at. A status conflict means a
// concurrent duplicate invocation won the transition, which is the same
// precondition violation InvalidStageError reports.
func (a *App) advanceCampaign(c *domain.Campaign, to domain.CampaignStatus, fields store.CampaignFields) error {
	if err := a.store.AdvanceCampaign(c.ID, c.Status, to, fields); err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			return &InvalidStageError{Op: "advance", Status: c.Status}
		}
		return fmt.Errorf("persist %s: %w", to, err)
	}
	c.Status = to
	return nil
}
