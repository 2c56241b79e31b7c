package transcribe

import (
	"context"
	"strings"
)

// Request holds the parameters for a single transcription.
type Request struct {
	FilePath string `json:"file_path"`
	Language string `json:"language,omitempty"`
}

// Segment is one timestamped span of transcribed speech. Times are in seconds.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result holds the segments in the order the model emitted them.
type Result struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
}

// Model is a loaded speech recognition model. Implementations must be safe
// for concurrent use.
type Model interface {
	Transcribe(ctx context.Context, req Request) (*Result, error)
	Name() string
	Close() error
}

func trimSegments(segs []Segment) []Segment {
	out := make([]Segment, len(segs))
	for i, s := range segs {
		out[i] = Segment{Start: s.Start, End: s.End, Text: strings.TrimSpace(s.Text)}
	}
	return out
}
