package app

import (
	"context"
	"errors"
	"testing"

	"pitchcast/pkg/domain"
	"pitchcast/pkg/store"
)

func TestProcessVideoRunsAllStepsToSubmission(t *testing.T) {
	env := newTestEnv(t)
	env.seedCampaign(t, domain.CampaignVoiceCreated)
	env.seedVideo(t, "vid-1", domain.VideoCreated)

	if err := env.app.ProcessVideo(context.Background(), "vid-1"); err != nil {
		t.Fatalf("process video: %v", err)
	}

	v := env.mustGetVideo(t, "vid-1")
	if v.Status != domain.VideoCreating {
		t.Fatalf("expected video_creating, got %s", v.Status)
	}
	if v.Script == "" || v.AudioURL == "" || v.SynthJobID == "" {
		t.Fatalf("expected all step outputs recorded, got %+v", v)
	}
	if _, ok := env.objects.objects["audio/videos/vid-1.mp3"]; !ok {
		t.Fatalf("narration audio not uploaded: %v", env.objects.objects)
	}
	if env.scripts.calls != 1 || env.speech.calls != 1 || env.synth.submits != 1 {
		t.Fatalf("expected each step once, got scripts=%d speech=%d submits=%d",
			env.scripts.calls, env.speech.calls, env.synth.submits)
	}
}

func TestProcessVideoRedeliveryIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	env.seedCampaign(t, domain.CampaignVoiceCreated)
	env.seedVideo(t, "vid-1", domain.VideoCreated)

	if err := env.app.ProcessVideo(context.Background(), "vid-1"); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := env.app.ProcessVideo(context.Background(), "vid-1"); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if env.scripts.calls != 1 || env.speech.calls != 1 || env.synth.submits != 1 {
		t.Fatalf("redelivery must not repeat work, got scripts=%d speech=%d submits=%d",
			env.scripts.calls, env.speech.calls, env.synth.submits)
	}
}

func TestProcessVideoResumesFromPersistedStep(t *testing.T) {
	env := newTestEnv(t)
	env.seedCampaign(t, domain.CampaignVoiceCreated)
	env.seedVideo(t, "vid-1", domain.VideoScriptGenerated)

	if err := env.app.ProcessVideo(context.Background(), "vid-1"); err != nil {
		t.Fatalf("process video: %v", err)
	}
	if env.scripts.calls != 0 {
		t.Fatalf("script step must not rerun, got %d calls", env.scripts.calls)
	}
	if v := env.mustGetVideo(t, "vid-1"); v.Status != domain.VideoCreating {
		t.Fatalf("expected video_creating, got %s", v.Status)
	}
}

func TestProcessVideoCampaignNotReadyIsRetryable(t *testing.T) {
	env := newTestEnv(t)
	env.seedCampaign(t, domain.CampaignAudioTranscribed)
	env.seedVideo(t, "vid-1", domain.VideoCreated)

	err := env.app.ProcessVideo(context.Background(), "vid-1")
	if !errors.Is(err, ErrCampaignNotReady) {
		t.Fatalf("expected ErrCampaignNotReady, got %v", err)
	}
	if v := env.mustGetVideo(t, "vid-1"); v.Status != domain.VideoCreated {
		t.Fatalf("video must stay created for a later retry, got %s", v.Status)
	}
}

func TestProcessVideoProviderFailureMarksFailed(t *testing.T) {
	env := newTestEnv(t)
	env.seedCampaign(t, domain.CampaignVoiceCreated)
	env.seedVideo(t, "vid-1", domain.VideoCreated)
	env.speech.err = errors.New("tts quota exceeded")

	err := env.app.ProcessVideo(context.Background(), "vid-1")
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != "generate_audio" {
		t.Fatalf("expected generate_audio StageError, got %v", err)
	}

	v := env.mustGetVideo(t, "vid-1")
	if v.Status != domain.VideoFailed {
		t.Fatalf("expected failed, got %s", v.Status)
	}
	if v.ErrorMessage == "" {
		t.Fatalf("expected cause recorded")
	}
	if v.Script == "" {
		t.Fatalf("script progress persisted before the failing step must survive")
	}

	// a redelivered job on the failed video does nothing
	if err := env.app.ProcessVideo(context.Background(), "vid-1"); err != nil {
		t.Fatalf("redelivery on failed video: %v", err)
	}
	if env.speech.calls != 1 {
		t.Fatalf("failed video must not retry, got %d speech calls", env.speech.calls)
	}
}

func TestProcessVideoDuplicateDeliveryConflictIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	env.seedCampaign(t, domain.CampaignVoiceCreated)
	env.seedVideo(t, "vid-1", domain.VideoCreated)

	// a reclaimed duplicate of the same job finishes the script step while
	// this worker's provider call is still in flight
	env.scripts.hook = func() {
		if err := env.store.AdvanceVideo("vid-1", domain.VideoCreated, domain.VideoScriptGenerated,
			store.VideoFields{Script: "winner script"}); err != nil {
			t.Errorf("concurrent advance: %v", err)
		}
	}

	if err := env.app.ProcessVideo(context.Background(), "vid-1"); err != nil {
		t.Fatalf("losing delivery must report success, got %v", err)
	}

	v := env.mustGetVideo(t, "vid-1")
	if v.Status == domain.VideoFailed {
		t.Fatalf("losing delivery must not fail the video: %+v", v)
	}
	if v.Status != domain.VideoScriptGenerated || v.Script != "winner script" {
		t.Fatalf("winner's progress must be untouched, got %+v", v)
	}
	if env.speech.calls != 0 {
		t.Fatalf("losing delivery must stop after the conflict, got %d speech calls", env.speech.calls)
	}
}

func TestProcessVideoUnknownVideo(t *testing.T) {
	env := newTestEnv(t)
	if err := env.app.ProcessVideo(context.Background(), "nope"); !errors.Is(err, ErrVideoNotFound) {
		t.Fatalf("expected ErrVideoNotFound, got %v", err)
	}
}
