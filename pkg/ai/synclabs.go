package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultSyncLabsBaseURL = "https://api.synclabs.so"

// SynthJob is the provider-reported state of a lipsync synthesis job.
type SynthJob struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	URL    string `json:"url"`
	Error  string `json:"errorMessage"`
}

// Completed reports whether the job finished and published an output URL.
func (j SynthJob) Completed() bool {
	return strings.EqualFold(j.Status, "COMPLETED") && j.URL != ""
}

// Failed reports a provider-side failure.
func (j SynthJob) Failed() bool {
	return strings.EqualFold(j.Status, "FAILED") || strings.EqualFold(j.Status, "REJECTED")
}

// SyncLabsClient submits and polls lipsync video synthesis jobs.
type SyncLabsClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewSyncLabsClient constructs a client with the provided API key.
func NewSyncLabsClient(apiKey string) (*SyncLabsClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("synclabs api key required")
	}
	return &SyncLabsClient{
		apiKey:     apiKey,
		baseURL:    defaultSyncLabsBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Submit starts a lipsync job for the narrated audio over the template video
// and returns the provider job ID.
func (c *SyncLabsClient) Submit(ctx context.Context, audioURL, videoURL string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"audioUrl":   audioURL,
		"videoUrl":   videoURL,
		"synergize":  true,
		"maxCredits": nil,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/lipsync", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("synclabs api error: %s", syncErrorDetail(resp))
	}
	var job SynthJob
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return "", err
	}
	if job.ID == "" {
		return "", fmt.Errorf("synclabs returned no job id")
	}
	return job.ID, nil
}

// Job fetches the current state of a lipsync job.
func (c *SyncLabsClient) Job(ctx context.Context, id string) (SynthJob, error) {
	if strings.TrimSpace(id) == "" {
		return SynthJob{}, fmt.Errorf("job id required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/lipsync/"+id, nil)
	if err != nil {
		return SynthJob{}, err
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SynthJob{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return SynthJob{}, fmt.Errorf("synclabs api error: %s", syncErrorDetail(resp))
	}
	var job SynthJob
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return SynthJob{}, err
	}
	return job, nil
}

func syncErrorDetail(resp *http.Response) string {
	var errResp struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&errResp)
	if errResp.Message != "" {
		return errResp.Message
	}
	return resp.Status
}
