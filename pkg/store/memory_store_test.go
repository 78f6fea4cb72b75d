package store

import (
	"errors"
	"testing"
	"time"

	"pitchcast/pkg/domain"
)

func seedCampaign(t *testing.T, m *MemoryStore, status domain.CampaignStatus) domain.Campaign {
	t.Helper()
	c := domain.Campaign{
		ID:             "c1",
		OwnerID:        "u1",
		Name:           "launch",
		RecipientCount: 2,
		Status:         status,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	if err := m.CreateCampaign(c); err != nil {
		t.Fatalf("create campaign: %v", err)
	}
	return c
}

func TestAdvanceCampaignGatesOnStatus(t *testing.T) {
	m := NewMemoryStore()
	seedCampaign(t, m, domain.CampaignObjectCreated)

	err := m.AdvanceCampaign("c1", domain.CampaignObjectCreated, domain.CampaignAudioExtracted, CampaignFields{AudioURL: "s3://a.mp3"})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	c, _, _ := m.GetCampaign("c1")
	if c.Status != domain.CampaignAudioExtracted || c.AudioURL != "s3://a.mp3" {
		t.Fatalf("unexpected campaign after advance: %+v", c)
	}

	// Same precondition again must conflict, not re-apply.
	err = m.AdvanceCampaign("c1", domain.CampaignObjectCreated, domain.CampaignAudioExtracted, CampaignFields{AudioURL: "s3://other.mp3"})
	if !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}
	c, _, _ = m.GetCampaign("c1")
	if c.AudioURL != "s3://a.mp3" {
		t.Fatalf("conflicting advance must not write, got %+v", c)
	}
}

func TestAdvanceCampaignMissingEntityConflicts(t *testing.T) {
	m := NewMemoryStore()
	err := m.AdvanceCampaign("nope", domain.CampaignObjectCreated, domain.CampaignAudioExtracted, CampaignFields{})
	if !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}
}

func TestAdvanceVideoAndFailure(t *testing.T) {
	m := NewMemoryStore()
	v := domain.Video{ID: "v1", CampaignID: "c1", Email: "a@x.com", Status: domain.VideoCreated}
	if err := m.CreateVideo(v); err != nil {
		t.Fatalf("create video: %v", err)
	}

	if err := m.AdvanceVideo("v1", domain.VideoCreated, domain.VideoScriptGenerated, VideoFields{Script: "hi"}); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if err := m.AdvanceVideo("v1", domain.VideoCreated, domain.VideoScriptGenerated, VideoFields{}); !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}

	if err := m.MarkVideoFailed("v1", "tts unavailable"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	got, _, _ := m.GetVideo("v1")
	if got.Status != domain.VideoFailed || got.ErrorMessage != "tts unavailable" {
		t.Fatalf("unexpected failed video: %+v", got)
	}

	// Terminal videos stay terminal.
	if err := m.MarkVideoFailed("v1", "again"); err != nil {
		t.Fatalf("re-mark failed: %v", err)
	}
	got, _, _ = m.GetVideo("v1")
	if got.ErrorMessage != "tts unavailable" {
		t.Fatalf("re-mark must not overwrite cause: %+v", got)
	}
}

func TestListCampaignsByOwnerInsertionOrder(t *testing.T) {
	m := NewMemoryStore()
	for _, c := range []domain.Campaign{
		{ID: "c1", OwnerID: "u1", Status: domain.CampaignObjectCreated},
		{ID: "c2", OwnerID: "u2", Status: domain.CampaignObjectCreated},
		{ID: "c3", OwnerID: "u1", Status: domain.CampaignVoiceCreated},
		{ID: "c4", OwnerID: "u1", Status: domain.CampaignObjectCreated},
	} {
		if err := m.CreateCampaign(c); err != nil {
			t.Fatalf("create campaign: %v", err)
		}
	}

	got, err := m.ListCampaignsByOwner("u1")
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(got) != 3 || got[0].ID != "c1" || got[1].ID != "c3" || got[2].ID != "c4" {
		t.Fatalf("expected c1,c3,c4 in creation order, got %+v", got)
	}
}

func TestListVideosByStatusAndCampaign(t *testing.T) {
	m := NewMemoryStore()
	for _, v := range []domain.Video{
		{ID: "v1", CampaignID: "c1", Status: domain.VideoCreating},
		{ID: "v2", CampaignID: "c1", Status: domain.VideoDone},
		{ID: "v3", CampaignID: "c2", Status: domain.VideoCreating},
	} {
		if err := m.CreateVideo(v); err != nil {
			t.Fatalf("create video: %v", err)
		}
	}

	creating, err := m.ListVideosByStatus(domain.VideoCreating)
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(creating) != 2 || creating[0].ID != "v1" || creating[1].ID != "v3" {
		t.Fatalf("unexpected in-flight videos: %+v", creating)
	}

	byCampaign, err := m.ListVideosByCampaign("c1")
	if err != nil {
		t.Fatalf("list by campaign: %v", err)
	}
	if len(byCampaign) != 2 {
		t.Fatalf("expected 2 videos for c1, got %d", len(byCampaign))
	}
}
