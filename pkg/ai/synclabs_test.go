package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestSyncLabs(t *testing.T, handler http.HandlerFunc) *SyncLabsClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewSyncLabsClient("test-key")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	c.baseURL = srv.URL
	return c
}

func TestSyncLabsSubmit(t *testing.T) {
	c := newTestSyncLabs(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/lipsync" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Fatalf("missing api key header")
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["audioUrl"] != "http://a" || body["videoUrl"] != "http://v" {
			t.Fatalf("unexpected payload: %+v", body)
		}
		_ = json.NewEncoder(w).Encode(SynthJob{ID: "job-1", Status: "PENDING"})
	})

	id, err := c.Submit(context.Background(), "http://a", "http://v")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if id != "job-1" {
		t.Fatalf("got job id %q", id)
	}
}

func TestSyncLabsJobStates(t *testing.T) {
	c := newTestSyncLabs(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/lipsync/done":
			_ = json.NewEncoder(w).Encode(SynthJob{ID: "done", Status: "COMPLETED", URL: "http://out.mp4"})
		case "/lipsync/pending":
			_ = json.NewEncoder(w).Encode(SynthJob{ID: "pending", Status: "PROCESSING"})
		case "/lipsync/broken":
			_ = json.NewEncoder(w).Encode(SynthJob{ID: "broken", Status: "FAILED", Error: "face not detected"})
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "no such job"})
		}
	})

	ctx := context.Background()
	done, err := c.Job(ctx, "done")
	if err != nil || !done.Completed() || done.URL != "http://out.mp4" {
		t.Fatalf("completed job: %+v err=%v", done, err)
	}
	pending, err := c.Job(ctx, "pending")
	if err != nil || pending.Completed() || pending.Failed() {
		t.Fatalf("pending job: %+v err=%v", pending, err)
	}
	broken, err := c.Job(ctx, "broken")
	if err != nil || !broken.Failed() || broken.Error != "face not detected" {
		t.Fatalf("failed job: %+v err=%v", broken, err)
	}
	if _, err := c.Job(ctx, "missing"); err == nil {
		t.Fatal("expected error for missing job")
	}
}
