package media

import (
	"testing"

	"gopkg.in/vansante/go-ffprobe.v2"
)

func TestInfoFromProbe(t *testing.T) {
	t.Parallel()

	info, err := infoFromProbe(&ffprobe.ProbeData{
		Format: &ffprobe.Format{DurationSeconds: 2.5},
		Streams: []*ffprobe.Stream{
			{CodecType: "video"},
			{CodecType: "audio", SampleRate: "16000", Channels: 1},
		},
	})
	if err != nil {
		t.Fatalf("infoFromProbe: %v", err)
	}
	if info.Duration != 2.5 || info.SampleRate != 16000 || info.Channels != 1 {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestInfoFromProbeStreamDuration(t *testing.T) {
	t.Parallel()

	info, err := infoFromProbe(&ffprobe.ProbeData{
		Streams: []*ffprobe.Stream{
			{CodecType: "audio", SampleRate: "44100", Channels: 2, Duration: "12.75"},
		},
	})
	if err != nil {
		t.Fatalf("infoFromProbe: %v", err)
	}
	if info.Duration != 12.75 || info.SampleRate != 44100 || info.Channels != 2 {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestInfoFromProbeNoAudio(t *testing.T) {
	t.Parallel()

	info, err := infoFromProbe(&ffprobe.ProbeData{
		Format:  &ffprobe.Format{DurationSeconds: 3},
		Streams: []*ffprobe.Stream{{CodecType: "video"}},
	})
	if err == nil {
		t.Fatal("expected error without an audio stream")
	}
	if info.Duration != 3 {
		t.Fatalf("format duration should still be reported, got %v", info.Duration)
	}
	if _, err := infoFromProbe(nil); err == nil {
		t.Fatal("expected error for nil data")
	}
}
