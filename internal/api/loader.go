package api

import (
	"context"
	"fmt"

	"github.com/nikhilbhutani/whisperapi/internal/config"
	"github.com/nikhilbhutani/whisperapi/internal/transcribe"
)

// ModelLoader returns the loader for the configured backend. Nothing is
// started until the loader runs.
func ModelLoader(cfg *config.Config) transcribe.Loader {
	return func(ctx context.Context) (transcribe.Model, error) {
		var (
			m   transcribe.Model
			err error
		)
		switch cfg.Whisper.Backend {
		case config.BackendFasterWhisper:
			m, err = transcribe.StartFasterWhisper(ctx, transcribe.FasterWhisperConfig{
				PythonBin:   cfg.Whisper.PythonBin,
				Model:       cfg.ModelID(),
				Device:      cfg.Whisper.Device,
				ComputeType: cfg.Whisper.ComputeType,
			})
		case config.BackendOpenAI:
			m = transcribe.NewOpenAI(transcribe.OpenAIConfig{
				APIKey:  cfg.OpenAI.APIKey,
				BaseURL: cfg.OpenAI.BaseURL,
				Model:   cfg.OpenAI.Model,
			})
		default:
			return nil, fmt.Errorf("unknown WHISPER_BACKEND %q", cfg.Whisper.Backend)
		}
		if err != nil {
			return nil, err
		}

		if !cfg.Whisper.ConvertToSimplified {
			return m, nil
		}
		sm, err := transcribe.NewSimplifiedModel(m)
		if err != nil {
			m.Close()
			return nil, err
		}
		return sm, nil
	}
}

// CacheNamespace identifies the model configuration in cache keys without
// loading the model.
func CacheNamespace(cfg *config.Config) string {
	ns := cfg.Whisper.Backend + ":" + cfg.ModelID() + ":" + cfg.Whisper.ComputeType
	if cfg.Whisper.Backend == config.BackendOpenAI {
		ns = cfg.Whisper.Backend + ":" + cfg.OpenAI.Model
	}
	if cfg.Whisper.Language != "" {
		ns += ":" + cfg.Whisper.Language
	}
	if cfg.Whisper.ConvertToSimplified {
		ns += "+t2s"
	}
	return ns
}
