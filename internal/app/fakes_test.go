package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"pitchcast/pkg/ai"
	"pitchcast/pkg/domain"
	"pitchcast/pkg/store"
)

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  map[string]error
	deleted []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte), putErr: make(map[string]error)}
}

func (f *fakeObjects) Put(_ context.Context, bucket, key string, r io.Reader, _ int64, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.putErr[bucket+"/"+key]; err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.objects[bucket+"/"+key] = data
	return "http://objects.test/" + bucket + "/" + key, nil
}

func (f *fakeObjects) Get(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("no object %s/%s", bucket, key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeObjects) Delete(_ context.Context, bucket, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, bucket+"/"+key)
	f.deleted = append(f.deleted, bucket+"/"+key)
	return nil
}

type fakeExtractor struct {
	calls int
	err   error
}

func (f *fakeExtractor) ExtractAudio(_ context.Context, _, _, audioBucket, audioKey string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "http://objects.test/" + audioBucket + "/" + audioKey, nil
}

type fakeTranscriber struct {
	calls      int
	transcript string
	err        error
	hook       func() // runs while the call is "in flight"
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.hook != nil {
		f.hook()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.transcript, nil
}

type fakeCloner struct {
	calls   int
	voiceID string
	err     error
}

func (f *fakeCloner) Clone(_ context.Context, _, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.voiceID, nil
}

type fakeSpeech struct {
	calls int
	err   error
}

func (f *fakeSpeech) Synthesize(_ context.Context, voiceID, text string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("mp3:" + voiceID + ":" + text), nil
}

type fakeSynth struct {
	mu        sync.Mutex
	submits   int
	submitErr error
	jobs      map[string]ai.SynthJob
	jobErr    map[string]error
}

func newFakeSynth() *fakeSynth {
	return &fakeSynth{jobs: make(map[string]ai.SynthJob), jobErr: make(map[string]error)}
}

func (f *fakeSynth) Submit(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submits++
	id := fmt.Sprintf("synth-%d", f.submits)
	f.jobs[id] = ai.SynthJob{ID: id, Status: "PENDING"}
	return id, nil
}

func (f *fakeSynth) Job(_ context.Context, id string) (ai.SynthJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.jobErr[id]; err != nil {
		return ai.SynthJob{}, err
	}
	job, ok := f.jobs[id]
	if !ok {
		return ai.SynthJob{}, fmt.Errorf("no job %s", id)
	}
	return job, nil
}

func (f *fakeSynth) setJob(id string, job ai.SynthJob) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[id] = job
}

type fakeScripts struct {
	calls int
	err   error
	hook  func() // runs while the call is "in flight"
}

func (f *fakeScripts) GenerateText(_ context.Context, _, _, userPrompt string) (string, error) {
	f.calls++
	if f.hook != nil {
		f.hook()
	}
	if f.err != nil {
		return "", f.err
	}
	return "script for " + firstLine(userPrompt), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	ids   []string
	errFn func(videoID string) error
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, videoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errFn != nil {
		if err := f.errFn(videoID); err != nil {
			return err
		}
	}
	f.ids = append(f.ids, videoID)
	return nil
}

type testEnv struct {
	app      *App
	store    *store.MemoryStore
	objects  *fakeObjects
	extract  *fakeExtractor
	trans    *fakeTranscriber
	cloner   *fakeCloner
	speech   *fakeSpeech
	synth    *fakeSynth
	scripts  *fakeScripts
	enqueuer *fakeEnqueuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    store.NewMemoryStore(),
		objects:  newFakeObjects(),
		extract:  &fakeExtractor{},
		trans:    &fakeTranscriber{transcript: "hello there, thanks for watching"},
		cloner:   &fakeCloner{voiceID: "voice-1"},
		speech:   &fakeSpeech{},
		synth:    newFakeSynth(),
		scripts:  &fakeScripts{},
		enqueuer: &fakeEnqueuer{},
	}
	app, err := New(Config{
		Store:       env.store,
		Objects:     env.objects,
		Extractor:   env.extract,
		Transcriber: env.trans,
		Voices:      env.cloner,
		Speech:      env.speech,
		Synth:       env.synth,
		Scripts:     env.scripts,
		Enqueuer:    env.enqueuer,
		VideoBucket: "videos",
		AudioBucket: "audio",
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	env.app = app
	return env
}

func (e *testEnv) seedCampaign(t *testing.T, status domain.CampaignStatus) domain.Campaign {
	t.Helper()
	now := time.Now().UTC()
	c := domain.Campaign{
		ID:             "camp-1",
		OwnerID:        "user-1",
		Name:           "launch",
		RecipientCount: 2,
		VideoURL:       "http://objects.test/videos/campaigns/camp-1.mp4",
		SampleURL:      "http://objects.test/audio/campaigns/camp-1_sample.mp3",
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	switch status {
	case domain.CampaignAudioExtracted:
		c.AudioURL = "http://objects.test/audio/campaigns/camp-1.mp3"
	case domain.CampaignAudioTranscribed:
		c.AudioURL = "http://objects.test/audio/campaigns/camp-1.mp3"
		c.Transcript = "hello there, thanks for watching"
	case domain.CampaignVoiceCreated:
		c.AudioURL = "http://objects.test/audio/campaigns/camp-1.mp3"
		c.Transcript = "hello there, thanks for watching"
		c.VoiceID = "voice-1"
	}
	if err := e.store.CreateCampaign(c); err != nil {
		t.Fatalf("seed campaign: %v", err)
	}
	return c
}

func (e *testEnv) seedVideo(t *testing.T, id string, status domain.VideoStatus) domain.Video {
	t.Helper()
	now := time.Now().UTC()
	v := domain.Video{
		ID:         id,
		OwnerID:    "user-1",
		CampaignID: "camp-1",
		Email:      id + "@x.com",
		Row:        domain.RecipientRow{"Email": id + "@x.com", "Name": "Pat"},
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	switch status {
	case domain.VideoScriptGenerated:
		v.Script = "hi Pat"
	case domain.VideoAudioGenerated, domain.VideoCreating:
		v.Script = "hi Pat"
		v.AudioURL = "http://objects.test/audio/videos/" + id + ".mp3"
	}
	if status == domain.VideoCreating {
		v.SynthJobID = "synth-" + id
	}
	if err := e.store.CreateVideo(v); err != nil {
		t.Fatalf("seed video: %v", err)
	}
	return v
}

func (e *testEnv) mustGetVideo(t *testing.T, id string) domain.Video {
	t.Helper()
	v, ok, err := e.store.GetVideo(id)
	if err != nil || !ok {
		t.Fatalf("get video %s: ok=%v err=%v", id, ok, err)
	}
	return v
}

func (e *testEnv) mustGetCampaign(t *testing.T, id string) domain.Campaign {
	t.Helper()
	c, ok, err := e.store.GetCampaign(id)
	if err != nil || !ok {
		t.Fatalf("get campaign %s: ok=%v err=%v", id, ok, err)
	}
	return c
}
