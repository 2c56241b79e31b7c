package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/nikhilbhutani/whisperapi/internal/config"
	"github.com/nikhilbhutani/whisperapi/internal/transcribe"
)

type fixedModel struct{}

func (fixedModel) Transcribe(ctx context.Context, req transcribe.Request) (*transcribe.Result, error) {
	return &transcribe.Result{Segments: []transcribe.Segment{{Start: 0, End: 1, Text: " hi "}}}, nil
}
func (fixedModel) Name() string { return "fixed" }
func (fixedModel) Close() error { return nil }

func testServer(t *testing.T, loader transcribe.Loader) (*httptest.Server, *transcribe.Manager) {
	t.Helper()
	cfg := &config.Config{
		Server:  config.ServerConfig{TmpDir: t.TempDir()},
		Whisper: config.WhisperConfig{Backend: config.BackendFasterWhisper, ModelSize: "base"},
	}
	models := transcribe.NewManager(loader)
	srv := httptest.NewServer(NewRouter(cfg, models, nil).Setup())
	t.Cleanup(srv.Close)
	return srv, models
}

func upload(t *testing.T, url, contentType string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="clip.wav"`)
	hdr.Set("Content-Type", contentType)
	part, _ := mw.CreatePart(hdr)
	_, _ = part.Write(data)
	_ = mw.Close()

	req, err := http.NewRequest(http.MethodPost, url+"/transcribe", &body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Origin", "https://example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /transcribe: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRouterTranscribe(t *testing.T) {
	srv, models := testServer(t, func(ctx context.Context) (transcribe.Model, error) {
		return fixedModel{}, nil
	})

	resp := upload(t, srv.URL, "audio/wav", []byte("RIFF...."))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
	var body struct {
		Segments []transcribe.Segment `json:"segments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Segments) != 1 || body.Segments[0].Text != "hi" {
		t.Fatalf("unexpected segments %+v", body.Segments)
	}
	if !models.Loaded() {
		t.Fatal("model should be loaded after the first request")
	}
}

func TestRouterRejectsNonAudioWithoutLoading(t *testing.T) {
	srv, models := testServer(t, func(ctx context.Context) (transcribe.Model, error) {
		t.Error("model must not load for rejected uploads")
		return fixedModel{}, nil
	})

	resp := upload(t, srv.URL, "text/plain", []byte("hello"))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if models.Loaded() {
		t.Fatal("model loaded for a rejected upload")
	}
}

func TestRouterHealthAndRoutes(t *testing.T) {
	srv, _ := testServer(t, func(ctx context.Context) (transcribe.Model, error) { return fixedModel{}, nil })

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz: %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/transcribe")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET /transcribe: %d", resp.StatusCode)
	}
}

func TestRouterRestrictedCORSOrigins(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{TmpDir: t.TempDir(), CORSOrigins: []string{"https://app.example.com"}},
	}
	models := transcribe.NewManager(func(ctx context.Context) (transcribe.Model, error) {
		return fixedModel{}, nil
	})
	srv := httptest.NewServer(NewRouter(cfg, models, nil).Setup())
	t.Cleanup(srv.Close)

	for origin, want := range map[string]string{
		"https://app.example.com":  "https://app.example.com",
		"https://evil.example.com": "",
	} {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
		req.Header.Set("Origin", origin)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("GET /healthz: %v", err)
		}
		resp.Body.Close()
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != want {
			t.Fatalf("origin %q: allow-origin %q, want %q", origin, got, want)
		}
	}
}

func TestModelLoaderOpenAI(t *testing.T) {
	cfg := &config.Config{
		Whisper: config.WhisperConfig{Backend: config.BackendOpenAI, ConvertToSimplified: true},
		OpenAI:  config.OpenAIConfig{Model: "whisper-1"},
	}
	m, err := ModelLoader(cfg)(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := m.Name(); got != "openai:whisper-1+t2s" {
		t.Fatalf("unexpected model name %q", got)
	}

	cfg.Whisper.ConvertToSimplified = false
	m, err = ModelLoader(cfg)(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := m.Name(); got != "openai:whisper-1" {
		t.Fatalf("unexpected model name %q", got)
	}
}

func TestModelLoaderUnknownBackend(t *testing.T) {
	cfg := &config.Config{Whisper: config.WhisperConfig{Backend: "vosk"}}
	_, err := ModelLoader(cfg)(context.Background())
	if err == nil || !strings.Contains(err.Error(), "vosk") {
		t.Fatalf("expected unknown backend error, got %v", err)
	}
}

func TestCacheNamespace(t *testing.T) {
	base := &config.Config{Whisper: config.WhisperConfig{
		Backend: config.BackendFasterWhisper, ModelSize: "base", ComputeType: "float32",
	}}
	if got := CacheNamespace(base); got != "faster-whisper:base:float32" {
		t.Fatalf("unexpected namespace %q", got)
	}

	conv := *base
	conv.Whisper.ConvertToSimplified = true
	conv.Whisper.Language = "zh"
	if got := CacheNamespace(&conv); got != "faster-whisper:base:float32:zh+t2s" {
		t.Fatalf("unexpected namespace %q", got)
	}
}
