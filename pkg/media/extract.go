package media

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"pitchcast/pkg/storage"
)

// Extractor strips the audio track from stored template videos using ffmpeg.
type Extractor struct {
	objects storage.ObjectStore
	ffmpeg  string
}

// NewExtractor wraps an object store and an ffmpeg binary path.
func NewExtractor(objects storage.ObjectStore, ffmpegPath string) *Extractor {
	if strings.TrimSpace(ffmpegPath) == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Extractor{objects: objects, ffmpeg: ffmpegPath}
}

// ExtractAudio downloads the template video object, extracts its audio track
// as mp3, uploads the result, and returns the uploaded audio URL.
func (e *Extractor) ExtractAudio(ctx context.Context, videoBucket, videoKey, audioBucket, audioKey string) (string, error) {
	dir, err := os.MkdirTemp("", "pitchcast-extract-")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	inPath := filepath.Join(dir, "template"+filepath.Ext(videoKey))
	outPath := filepath.Join(dir, "audio.mp3")

	if err := e.download(ctx, videoBucket, videoKey, inPath); err != nil {
		return "", err
	}
	if err := e.run(ctx, inPath, outPath); err != nil {
		return "", err
	}

	out, err := os.Open(outPath)
	if err != nil {
		return "", fmt.Errorf("open extracted audio: %w", err)
	}
	defer out.Close()
	info, err := out.Stat()
	if err != nil {
		return "", fmt.Errorf("stat extracted audio: %w", err)
	}
	url, err := e.objects.Put(ctx, audioBucket, audioKey, out, info.Size(), "audio/mpeg")
	if err != nil {
		return "", fmt.Errorf("upload extracted audio: %w", err)
	}
	return url, nil
}

func (e *Extractor) download(ctx context.Context, bucket, key, dest string) error {
	r, err := e.objects.Get(ctx, bucket, key)
	if err != nil {
		return fmt.Errorf("fetch template video: %w", err)
	}
	defer r.Close()
	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("download template video: %w", err)
	}
	return nil
}

func (e *Extractor) run(ctx context.Context, inPath, outPath string) error {
	cmd := exec.CommandContext(ctx, e.ffmpeg, extractArgs(inPath, outPath)...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("create ffmpeg stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}
	var lastErrLine string
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lastErrLine = line
		}
	}
	if err := cmd.Wait(); err != nil {
		if lastErrLine != "" {
			return fmt.Errorf("ffmpeg failed: %s", lastErrLine)
		}
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	return nil
}

func extractArgs(inPath, outPath string) []string {
	return []string{
		"-y",
		"-i", inPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "2",
		"-nostats",
		outPath,
	}
}
