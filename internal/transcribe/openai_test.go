package transcribe

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenAITranscribe(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "multipart/form-data" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
			return
		}
		fields := map[string]string{}
		reader := multipart.NewReader(r.Body, params["boundary"])
		for {
			part, err := reader.NextPart()
			if err != nil {
				break
			}
			data, _ := io.ReadAll(part)
			if part.FormName() != "file" {
				fields[part.FormName()] = string(data)
			}
		}
		if fields["model"] != "whisper-1" {
			t.Errorf("unexpected model %q", fields["model"])
		}
		if fields["response_format"] != "verbose_json" {
			t.Errorf("unexpected response_format %q", fields["response_format"])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"task": "transcribe",
			"language": "english",
			"duration": 4.2,
			"text": "Hello there. General Kenobi.",
			"segments": [
				{"id": 0, "start": 0.0, "end": 1.8, "text": " Hello there."},
				{"id": 1, "start": 1.8, "end": 4.2, "text": " General Kenobi. "}
			]
		}`))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o600); err != nil {
		t.Fatal(err)
	}

	o := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL + "/v1"})
	if got := o.Name(); got != "openai:whisper-1" {
		t.Fatalf("unexpected name %q", got)
	}

	res, err := o.Transcribe(context.Background(), Request{FilePath: path})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(res.Segments))
	}
	if res.Segments[0].Text != "Hello there." || res.Segments[1].Text != "General Kenobi." {
		t.Fatalf("unexpected segments %+v", res.Segments)
	}
	if res.Segments[1].Start != 1.8 || res.Segments[1].End != 4.2 {
		t.Fatalf("unexpected timestamps %+v", res.Segments[1])
	}
	if res.Duration != 4.2 {
		t.Fatalf("unexpected duration %v", res.Duration)
	}
}

func TestOpenAITranscribeServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "model overloaded", "type": "server_error"}}`))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o600); err != nil {
		t.Fatal(err)
	}

	o := NewOpenAI(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL + "/v1"})
	if _, err := o.Transcribe(context.Background(), Request{FilePath: path}); err == nil {
		t.Fatal("expected error")
	}
}
