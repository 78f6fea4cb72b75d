package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const defaultElevenLabsBaseURL = "https://api.elevenlabs.io/v1"

// ElevenLabsClient clones voices and synthesizes speech via ElevenLabs.
type ElevenLabsClient struct {
	apiKey     string
	baseURL    string
	modelID    string
	httpClient *http.Client
}

// NewElevenLabsClient constructs a client with the provided API key.
func NewElevenLabsClient(apiKey string) (*ElevenLabsClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("elevenlabs api key required")
	}
	return &ElevenLabsClient{
		apiKey:     apiKey,
		baseURL:    defaultElevenLabsBaseURL,
		modelID:    "eleven_multilingual_v2",
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// Clone registers a new voice from a hosted sample and returns its voice ID.
// The sample is fetched from sampleURL and re-uploaded as multipart, which is
// what the voices/add endpoint expects.
func (c *ElevenLabsClient) Clone(ctx context.Context, name, sampleURL string) (string, error) {
	sample, err := c.fetchSample(ctx, sampleURL)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("name", name); err != nil {
		return "", err
	}
	fw, err := w.CreateFormFile("files", "sample.mp3")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(sample); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/voices/add", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("elevenlabs api error: %s", apiErrorDetail(resp))
	}
	var out struct {
		VoiceID string `json:"voice_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.VoiceID == "" {
		return "", fmt.Errorf("elevenlabs returned no voice id")
	}
	return out.VoiceID, nil
}

// Synthesize renders text with a cloned voice and returns the mp3 bytes.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, voiceID, text string) ([]byte, error) {
	if strings.TrimSpace(voiceID) == "" {
		return nil, fmt.Errorf("voice id required")
	}
	payload, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": c.modelID,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/text-to-speech/"+voiceID, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("elevenlabs api error: %s", apiErrorDetail(resp))
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("elevenlabs returned empty audio")
	}
	return audio, nil
}

func (c *ElevenLabsClient) fetchSample(ctx context.Context, sampleURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sampleURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch voice sample: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch voice sample: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func apiErrorDetail(resp *http.Response) string {
	var errResp struct {
		Detail struct {
			Message string `json:"message"`
		} `json:"detail"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&errResp)
	if errResp.Detail.Message != "" {
		return errResp.Detail.Message
	}
	return resp.Status
}
