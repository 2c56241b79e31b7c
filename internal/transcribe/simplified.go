package transcribe

import (
	"context"
	"fmt"

	"github.com/longbridgeapp/opencc"
)

// textConverter is the subset of *opencc.OpenCC used here.
type textConverter interface {
	Convert(in string) (string, error)
}

// SimplifiedModel wraps a Model and rewrites traditional Chinese characters
// in every segment to simplified ones. Text in other scripts is unchanged.
type SimplifiedModel struct {
	Model
	conv textConverter
}

// NewSimplifiedModel loads the t2s dictionary and wraps m.
func NewSimplifiedModel(m Model) (*SimplifiedModel, error) {
	cc, err := opencc.New("t2s")
	if err != nil {
		return nil, fmt.Errorf("load opencc t2s: %w", err)
	}
	return &SimplifiedModel{Model: m, conv: cc}, nil
}

func (s *SimplifiedModel) Name() string { return s.Model.Name() + "+t2s" }

func (s *SimplifiedModel) Transcribe(ctx context.Context, req Request) (*Result, error) {
	res, err := s.Model.Transcribe(ctx, req)
	if err != nil {
		return nil, err
	}
	for i := range res.Segments {
		text, err := s.conv.Convert(res.Segments[i].Text)
		if err != nil {
			return nil, fmt.Errorf("convert segment %d: %w", i, err)
		}
		res.Segments[i].Text = text
	}
	return res, nil
}
