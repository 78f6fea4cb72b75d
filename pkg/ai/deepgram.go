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

const defaultDeepgramBaseURL = "https://api.deepgram.com/v1"

// DeepgramClient transcribes hosted audio via the Deepgram pre-recorded API.
type DeepgramClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewDeepgramClient constructs a client with the provided API key.
func NewDeepgramClient(apiKey, model string) (*DeepgramClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram api key required")
	}
	if strings.TrimSpace(model) == "" {
		model = "nova-2"
	}
	return &DeepgramClient{
		apiKey:     apiKey,
		baseURL:    defaultDeepgramBaseURL,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// Transcribe submits an audio URL and returns the transcript text.
func (c *DeepgramClient) Transcribe(ctx context.Context, audioURL string) (string, error) {
	if strings.TrimSpace(audioURL) == "" {
		return "", fmt.Errorf("audio url required")
	}
	body, err := json.Marshal(map[string]string{"url": audioURL})
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/listen?model=%s&smart_format=true", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			ErrMsg string `json:"err_msg"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.ErrMsg != "" {
			return "", fmt.Errorf("deepgram api error: %s", errResp.ErrMsg)
		}
		return "", fmt.Errorf("deepgram api error: %s", resp.Status)
	}

	var out transcribeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Results.Channels) == 0 || len(out.Results.Channels[0].Alternatives) == 0 {
		return "", fmt.Errorf("empty transcript from deepgram")
	}
	transcript := strings.TrimSpace(out.Results.Channels[0].Alternatives[0].Transcript)
	if transcript == "" {
		return "", fmt.Errorf("empty transcript from deepgram")
	}
	return transcript, nil
}

type transcribeResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}
