package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"pitchcast/pkg/domain"
	"pitchcast/pkg/store"
)

const scriptSystemPrompt = "You rewrite a sales video transcript into a short personalized script " +
	"for one recipient. Keep the speaker's tone and pacing, address the recipient naturally using " +
	"the provided fields, and return only the spoken text with no stage directions or markup."

// ErrCampaignNotReady means the parent campaign has not finished its pipeline
// yet, so generation cannot start. The error is retryable: the queue will
// redeliver the job once the campaign advances.
var ErrCampaignNotReady = errors.New("campaign voice not ready")

// ProcessVideo runs one video through generation: script, narration audio,
// lipsync submission. Each step is gated on the video's exact current status
// and persisted before the next, so a redelivered job resumes where the last
// attempt stopped and a video already past submission is a no-op. Provider
// failures mark the video failed and are not retried.
func (a *App) ProcessVideo(ctx context.Context, videoID string) error {
	v, ok, err := a.store.GetVideo(videoID)
	if err != nil {
		return fmt.Errorf("load video: %w", err)
	}
	if !ok {
		return ErrVideoNotFound
	}
	if v.Status.Terminal() || v.Status == domain.VideoCreating {
		return nil
	}

	c, ok, err := a.store.GetCampaign(v.CampaignID)
	if err != nil {
		return fmt.Errorf("load campaign: %w", err)
	}
	if !ok {
		return ErrCampaignNotFound
	}
	if c.Status != domain.CampaignVoiceCreated {
		return fmt.Errorf("%w: campaign %s is %s", ErrCampaignNotReady, c.ID, c.Status)
	}

	if v.Status == domain.VideoCreated {
		if err := a.scriptStep(ctx, &v, c); err != nil {
			return a.stepFailure(v.ID, err)
		}
	}
	if v.Status == domain.VideoScriptGenerated {
		if err := a.narrationStep(ctx, &v, c); err != nil {
			return a.stepFailure(v.ID, err)
		}
	}
	if v.Status == domain.VideoAudioGenerated {
		if err := a.submitStep(ctx, &v, c); err != nil {
			return a.stepFailure(v.ID, err)
		}
	}
	return nil
}

// stepFailure resolves a failed generation step. A status conflict means a
// duplicate delivery of the same job already advanced the video past this
// step; that delivery owns the video now, so this one stops without marking
// anything failed.
func (a *App) stepFailure(videoID string, err error) error {
	if errors.Is(err, store.ErrStatusConflict) {
		return nil
	}
	return a.failVideo(videoID, err)
}

func (a *App) scriptStep(ctx context.Context, v *domain.Video, c domain.Campaign) error {
	prompt, err := scriptPrompt(c.Transcript, v.Row)
	if err != nil {
		return &StageError{Stage: "generate_script", Err: err}
	}
	model := c.Model
	if model == "" {
		model = a.defaultModel
	}
	script, err := a.scripts.GenerateText(ctx, model, scriptSystemPrompt, prompt)
	if err != nil {
		return &StageError{Stage: "generate_script", Err: &AdapterError{Provider: "script", Err: err}}
	}
	if err := a.advanceVideo(v, domain.VideoScriptGenerated, store.VideoFields{Script: script}); err != nil {
		return &StageError{Stage: "generate_script", Err: err}
	}
	v.Script = script
	return nil
}

func (a *App) narrationStep(ctx context.Context, v *domain.Video, c domain.Campaign) error {
	audio, err := a.speech.Synthesize(ctx, c.VoiceID, v.Script)
	if err != nil {
		return &StageError{Stage: "generate_audio", Err: &AdapterError{Provider: "speech", Err: err}}
	}
	audioURL, err := a.objects.Put(ctx, a.audioBucket, narrationKey(v.ID), bytes.NewReader(audio), int64(len(audio)), "audio/mpeg")
	if err != nil {
		return &StageError{Stage: "generate_audio", Err: &AdapterError{Provider: "storage", Err: err}}
	}
	if err := a.advanceVideo(v, domain.VideoAudioGenerated, store.VideoFields{AudioURL: audioURL}); err != nil {
		return &StageError{Stage: "generate_audio", Err: err}
	}
	v.AudioURL = audioURL
	return nil
}

func (a *App) submitStep(ctx context.Context, v *domain.Video, c domain.Campaign) error {
	jobID, err := a.synth.Submit(ctx, v.AudioURL, c.VideoURL)
	if err != nil {
		return &StageError{Stage: "submit_synthesis", Err: &AdapterError{Provider: "synthesis", Err: err}}
	}
	if err := a.advanceVideo(v, domain.VideoCreating, store.VideoFields{SynthJobID: jobID}); err != nil {
		return &StageError{Stage: "submit_synthesis", Err: err}
	}
	v.SynthJobID = jobID
	return nil
}

func (a *App) advanceVideo(v *domain.Video, to domain.VideoStatus, fields store.VideoFields) error {
	if err := a.store.AdvanceVideo(v.ID, v.Status, to, fields); err != nil {
		return fmt.Errorf("persist %s: %w", to, err)
	}
	v.Status = to
	return nil
}

func (a *App) failVideo(videoID string, cause error) error {
	if err := a.store.MarkVideoFailed(videoID, cause.Error()); err != nil {
		slog.Error("mark video failed", "video_id", videoID, "err", err)
	}
	return cause
}

// scriptPrompt combines the campaign transcript with the recipient's row so
// the model can substitute personal details.
func scriptPrompt(transcript string, row domain.RecipientRow) (string, error) {
	fields, err := json.Marshal(row)
	if err != nil {
		return "", fmt.Errorf("encode recipient fields: %w", err)
	}
	return fmt.Sprintf("Original transcript:\n%s\n\nRecipient fields (JSON):\n%s\n\nWrite the personalized script.",
		transcript, fields), nil
}
