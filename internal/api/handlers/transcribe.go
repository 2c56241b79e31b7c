package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/nikhilbhutani/whisperapi/internal/cache"
	"github.com/nikhilbhutani/whisperapi/internal/media"
	"github.com/nikhilbhutani/whisperapi/internal/transcribe"
)

// ModelProvider hands out the shared transcription model.
type ModelProvider interface {
	Get(ctx context.Context) (transcribe.Model, error)
}

// ResultCache stores finished transcripts keyed by cache.Key.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]transcribe.Segment, error)
	Set(ctx context.Context, key string, segs []transcribe.Segment) error
}

// TranscriptionResult is the response body of POST /transcribe.
type TranscriptionResult struct {
	Segments []transcribe.Segment `json:"segments"`
}

type TranscribeOptions struct {
	TmpDir   string // empty: os.TempDir()
	Language string // empty: let the model detect it

	// Cache is optional. CacheNamespace identifies the model configuration
	// so transcripts from different models never collide.
	Cache          ResultCache
	CacheNamespace string
}

type TranscribeHandler struct {
	models ModelProvider
	prober media.Prober
	opts   TranscribeOptions
}

func NewTranscribeHandler(models ModelProvider, prober media.Prober, opts TranscribeOptions) *TranscribeHandler {
	return &TranscribeHandler{models: models, prober: prober, opts: opts}
}

// Transcribe accepts a multipart upload in field "file" and returns its
// timestamped segments.
func (h *TranscribeHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	res, err := h.transcribe(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *TranscribeHandler) transcribe(r *http.Request) (*TranscriptionResult, error) {
	start := time.Now()
	ctx := r.Context()

	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB in memory, rest on disk
		return nil, clientError("invalid multipart form", err)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, clientError("file required", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, internalError(fmt.Errorf("read upload: %w", err))
	}
	contentType := header.Header.Get("Content-Type")
	slog.Info("transcription request received",
		"filename", header.Filename, "content_type", contentType, "size", len(data))

	if !strings.HasPrefix(contentType, "audio/") {
		return nil, clientError("file must be an audio file", nil)
	}

	var key string
	if h.opts.Cache != nil {
		key = cache.Key(h.opts.CacheNamespace, data)
		segs, err := h.opts.Cache.Get(ctx, key)
		switch {
		case err == nil:
			slog.Info("transcript served from cache", "segments", len(segs))
			return &TranscriptionResult{Segments: segs}, nil
		case !errors.Is(err, cache.ErrMiss):
			slog.Warn("cache lookup failed", "error", err)
		}
	}

	path, err := h.stage(data)
	if err != nil {
		return nil, internalError(err)
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			slog.Warn("failed to remove temporary file", "path", path, "error", err)
			return
		}
		slog.Info("temporary file removed", "path", path)
	}()

	info, err := h.prober.Probe(ctx, path)
	if err != nil {
		slog.Warn("audio probe failed", "path", path, "error", err)
	}
	slog.Info("audio info",
		"duration", info.Duration, "sample_rate", info.SampleRate, "channels", info.Channels)

	model, err := h.models.Get(ctx)
	if err != nil {
		return nil, transcriptionError(err)
	}
	slog.Info("transcription started", "model", model.Name())
	out, err := model.Transcribe(ctx, transcribe.Request{FilePath: path, Language: h.opts.Language})
	if err != nil {
		return nil, transcriptionError(err)
	}

	segs := make([]transcribe.Segment, 0, len(out.Segments))
	for _, s := range out.Segments {
		s.Text = strings.TrimSpace(s.Text)
		segs = append(segs, s)
	}

	elapsed := time.Since(start).Seconds()
	var ratio float64
	if elapsed > 0 {
		ratio = info.Duration / elapsed
	}
	slog.Info("transcription finished", "segments", len(segs), "language", out.Language)
	slog.Info("processing stats",
		"audio_seconds", info.Duration, "elapsed_seconds", elapsed, "speed_ratio", ratio)

	if h.opts.Cache != nil {
		if err := h.opts.Cache.Set(ctx, key, segs); err != nil {
			slog.Warn("cache store failed", "error", err)
		}
	}

	return &TranscriptionResult{Segments: segs}, nil
}

// stage writes the upload to a uniquely named temporary file.
func (h *TranscribeHandler) stage(data []byte) (string, error) {
	f, err := os.CreateTemp(h.opts.TmpDir, "upload-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temporary file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write temporary file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temporary file: %w", err)
	}
	slog.Info("temporary file saved", "path", f.Name())
	return f.Name(), nil
}
