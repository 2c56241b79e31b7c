package media

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/vansante/go-ffprobe.v2"
)

// Info is the basic audio metadata of a file. Zero values mean unknown.
type Info struct {
	Duration   float64 // seconds
	SampleRate int
	Channels   int
}

// Prober reads audio metadata from a file on disk.
type Prober interface {
	Probe(ctx context.Context, path string) (Info, error)
}

// FFProbe reads metadata by running the ffprobe binary.
type FFProbe struct{}

// NewFFProbe returns a prober using binPath, or "ffprobe" from PATH when empty.
func NewFFProbe(binPath string) *FFProbe {
	if binPath != "" {
		ffprobe.SetFFProbeBinPath(binPath)
	}
	return &FFProbe{}
}

func (p *FFProbe) Probe(ctx context.Context, path string) (Info, error) {
	data, err := ffprobe.ProbeURL(ctx, path)
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return infoFromProbe(data)
}

func infoFromProbe(data *ffprobe.ProbeData) (Info, error) {
	if data == nil {
		return Info{}, errors.New("ffprobe: empty result")
	}

	var info Info
	if data.Format != nil {
		info.Duration = data.Format.DurationSeconds
	}

	stream := data.FirstAudioStream()
	if stream == nil {
		return info, errors.New("ffprobe: no audio stream")
	}
	info.Channels = stream.Channels
	if rate, err := strconv.Atoi(stream.SampleRate); err == nil {
		info.SampleRate = rate
	}
	if info.Duration == 0 {
		if d, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
			info.Duration = d
		}
	}
	return info, nil
}
