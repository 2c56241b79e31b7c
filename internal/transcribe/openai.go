package transcribe

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds configuration for the OpenAI-compatible backend.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // default: "https://api.openai.com/v1"; point at a whisper.cpp server for local use
	Model   string // default: "whisper-1"
}

// OpenAI transcribes audio through an OpenAI-compatible
// /audio/transcriptions endpoint using the verbose_json format, which is the
// only format that carries segment timestamps.
type OpenAI struct {
	cfg    OpenAIConfig
	client *openai.Client
}

// NewOpenAI creates an OpenAI backend with defaults applied.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &OpenAI{cfg: cfg, client: openai.NewClientWithConfig(oc)}
}

func (o *OpenAI) Name() string { return "openai:" + o.cfg.Model }

func (o *OpenAI) Transcribe(ctx context.Context, req Request) (*Result, error) {
	if req.FilePath == "" {
		return nil, errors.New("openai: file path is required")
	}

	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.cfg.Model,
		FilePath: req.FilePath,
		Language: req.Language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}

	segs := make([]Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segs = append(segs, Segment{Start: s.Start, End: s.End, Text: s.Text})
	}

	return &Result{
		Segments: trimSegments(segs),
		Language: resp.Language,
		Duration: resp.Duration,
	}, nil
}

func (o *OpenAI) Close() error { return nil }
