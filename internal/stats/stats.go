// internal/stats/stats.go
package stats

import (
	"bytes"
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/user/artifactdl/internal/types"
)

// DefaultEncoding is used when the model name is unknown to tiktoken.
const DefaultEncoding = "cl100k_base"

// Counter measures artifacts in tokens for listings.
type Counter struct {
	tokenizer *tiktoken.Tiktoken
}

// NewCounter selects the tokenizer for model, falling back to cl100k_base.
func NewCounter(model string) (*Counter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(DefaultEncoding)
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &Counter{tokenizer: enc}, nil
}

// Count returns the token count for a string.
func (c *Counter) Count(text string) int {
	return len(c.tokenizer.Encode(text, nil, nil))
}

// EntryStat describes one archive entry.
type EntryStat struct {
	Path      string          `json:"path"`
	Language  string          `json:"language"`
	MessageID types.MessageID `json:"message_id"`
	Bytes     int             `json:"bytes"`
	Lines     int             `json:"lines"`
	Tokens    int             `json:"tokens,omitempty"`
}

// Summary aggregates the stats of a whole listing.
type Summary struct {
	Entries []EntryStat `json:"entries"`
	Bytes   int         `json:"bytes"`
	Lines   int         `json:"lines"`
	Tokens  int         `json:"tokens,omitempty"`
}

// Summarize computes per-entry sizes. A nil Counter skips token counts.
func Summarize(entries []types.NamedEntry, c *Counter) *Summary {
	s := &Summary{Entries: make([]EntryStat, 0, len(entries))}
	for _, e := range entries {
		st := EntryStat{
			Path:      e.Path,
			Language:  e.Language,
			MessageID: e.MessageID,
			Bytes:     len(e.Content),
			Lines:     countLines(e.Content),
		}
		if c != nil {
			st.Tokens = c.Count(string(e.Content))
		}
		s.Bytes += st.Bytes
		s.Lines += st.Lines
		s.Tokens += st.Tokens
		s.Entries = append(s.Entries, st)
	}
	return s
}

func countLines(b []byte) int {
	if len(b) == 0 {
		return 0
	}
	n := bytes.Count(b, []byte{'\n'})
	if b[len(b)-1] != '\n' {
		n++
	}
	return n
}
