package store

import (
	"sync"
	"time"

	"pitchcast/pkg/domain"
)

// MemoryStore keeps campaigns and videos in-process. It mirrors the GormStore
// status-gating semantics and backs tests and local development.
type MemoryStore struct {
	mu            sync.RWMutex
	campaigns     map[string]domain.Campaign
	videos        map[string]domain.Video
	campaignOrder []string // campaign insertion order
	order         []string // video insertion order
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		campaigns: make(map[string]domain.Campaign),
		videos:    make(map[string]domain.Video),
	}
}

// CreateCampaign inserts a new campaign record and tracks insertion order.
func (m *MemoryStore) CreateCampaign(c domain.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.campaigns[c.ID]; !exists {
		m.campaignOrder = append(m.campaignOrder, c.ID)
	}
	m.campaigns[c.ID] = c
	return nil
}

// GetCampaign retrieves a campaign.
func (m *MemoryStore) GetCampaign(id string) (domain.Campaign, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.campaigns[id]
	return c, ok, nil
}

// UpdateCampaign applies a partial update without touching status.
func (m *MemoryStore) UpdateCampaign(id string, fields CampaignFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil
	}
	applyCampaignFields(&c, fields)
	m.campaigns[id] = c
	return nil
}

// AdvanceCampaign applies fields and the status transition, gated on from.
func (m *MemoryStore) AdvanceCampaign(id string, from, to domain.CampaignStatus, fields CampaignFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.Status != from {
		return ErrStatusConflict
	}
	applyCampaignFields(&c, fields)
	c.Status = to
	m.campaigns[id] = c
	return nil
}

// ListCampaignsByOwner returns an owner's campaigns in insertion order,
// matching the gorm store's created_at ordering.
func (m *MemoryStore) ListCampaignsByOwner(ownerID string) ([]domain.Campaign, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Campaign, 0)
	for _, id := range m.campaignOrder {
		if c, ok := m.campaigns[id]; ok && c.OwnerID == ownerID {
			res = append(res, c)
		}
	}
	return res, nil
}

// CreateVideo inserts a new video record and tracks insertion order.
func (m *MemoryStore) CreateVideo(v domain.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.videos[v.ID]; !exists {
		m.order = append(m.order, v.ID)
	}
	m.videos[v.ID] = v
	return nil
}

// GetVideo retrieves a video.
func (m *MemoryStore) GetVideo(id string) (domain.Video, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.videos[id]
	return v, ok, nil
}

// AdvanceVideo applies fields and the status transition, gated on from.
func (m *MemoryStore) AdvanceVideo(id string, from, to domain.VideoStatus, fields VideoFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok || v.Status != from {
		return ErrStatusConflict
	}
	applyVideoFields(&v, fields)
	v.Status = to
	v.UpdatedAt = time.Now().UTC()
	m.videos[id] = v
	return nil
}

// MarkVideoFailed moves a non-completed video to failed with a recorded cause.
func (m *MemoryStore) MarkVideoFailed(id string, cause string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok || v.Status == domain.VideoDone || v.Status == domain.VideoFailed {
		return nil
	}
	v.Status = domain.VideoFailed
	v.ErrorMessage = cause
	v.UpdatedAt = time.Now().UTC()
	m.videos[id] = v
	return nil
}

// ListVideosByStatus returns videos in a given status, in insertion order.
func (m *MemoryStore) ListVideosByStatus(status domain.VideoStatus) ([]domain.Video, error) {
	return m.listVideos(func(v domain.Video) bool { return v.Status == status }), nil
}

// ListVideosByCampaign returns a campaign's videos in insertion order.
func (m *MemoryStore) ListVideosByCampaign(campaignID string) ([]domain.Video, error) {
	return m.listVideos(func(v domain.Video) bool { return v.CampaignID == campaignID }), nil
}

func (m *MemoryStore) listVideos(keep func(domain.Video) bool) []domain.Video {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Video, 0)
	for _, id := range m.order {
		if v, ok := m.videos[id]; ok && keep(v) {
			res = append(res, v)
		}
	}
	return res
}

func applyCampaignFields(c *domain.Campaign, fields CampaignFields) {
	if fields.VideoURL != "" {
		c.VideoURL = fields.VideoURL
	}
	if fields.SampleURL != "" {
		c.SampleURL = fields.SampleURL
	}
	if fields.AudioURL != "" {
		c.AudioURL = fields.AudioURL
	}
	if fields.Transcript != "" {
		c.Transcript = fields.Transcript
	}
	if fields.VoiceID != "" {
		c.VoiceID = fields.VoiceID
	}
	c.UpdatedAt = time.Now().UTC()
}

func applyVideoFields(v *domain.Video, fields VideoFields) {
	if fields.Script != "" {
		v.Script = fields.Script
	}
	if fields.AudioURL != "" {
		v.AudioURL = fields.AudioURL
	}
	if fields.VideoURL != "" {
		v.VideoURL = fields.VideoURL
	}
	if fields.SynthJobID != "" {
		v.SynthJobID = fields.SynthJobID
	}
}
