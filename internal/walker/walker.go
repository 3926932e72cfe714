// Package walker reconstructs a conversation's message tree and collects the
// artifacts of every assistant message in chronological order.
package walker

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/user/artifactdl/internal/extract"
	"github.com/user/artifactdl/internal/naming"
	"github.com/user/artifactdl/internal/types"
)

// DefaultMaxDepth is the deepest level whose children are still visited.
const DefaultMaxDepth = 100

// ErrEmptyConversation is returned when no top-level message exists.
var ErrEmptyConversation = errors.New("conversation has no top-level message")

// SelectRoot returns the top-level message with the latest UpdatedAt. Ties
// keep the first one encountered.
func SelectRoot(messages []types.Message) (*types.Message, error) {
	var root *types.Message
	for i := range messages {
		m := &messages[i]
		if m.ParentMessageUUID != types.RootParentID {
			continue
		}
		if root == nil || m.UpdatedAt.After(root.UpdatedAt) {
			root = m
		}
	}
	if root == nil {
		return nil, ErrEmptyConversation
	}
	return root, nil
}

// Result is the outcome of one traversal.
type Result struct {
	Entries       []types.NamedEntry
	ArtifactCount int
	// Visited counts messages processed, Failed those skipped on error.
	Visited   int
	Failed    int
	Truncated bool
}

// Walker traverses a message tree depth first. A zero Walker uses
// DefaultMaxDepth, flat naming and the default logger.
type Walker struct {
	DirectoryMode bool
	MaxDepth      int
	Logger        *slog.Logger
}

type frame struct {
	msg   *types.Message
	depth int
}

// Walk visits start and its descendants in pre-order, children sorted by
// CreatedAt. Each assistant message's artifacts are named against a fresh
// UsedNames set. Once a node deeper than MaxDepth is processed its children
// are skipped and Result.Truncated is set; other branches continue.
func (w *Walker) Walk(start *types.Message, messages []types.Message) *Result {
	maxDepth := w.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	log := w.Logger
	if log == nil {
		log = slog.Default()
	}

	children := indexChildren(messages)
	used := naming.NewUsedNames()
	res := &Result{}

	stack := []frame{{msg: start, depth: 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		res.Visited++
		if err := w.process(f.msg, used, res); err != nil {
			res.Failed++
			log.Warn("skipping message", "message_id", f.msg.UUID, "error", err)
		}

		if f.depth > maxDepth {
			if !res.Truncated {
				log.Warn("maximum depth reached, not descending further", "max_depth", maxDepth, "message_id", f.msg.UUID)
			}
			res.Truncated = true
			continue
		}

		kids := children[f.msg.UUID]
		// Push in reverse so the earliest child is popped first.
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, frame{msg: kids[i], depth: f.depth + 1})
		}
	}
	return res
}

func (w *Walker) process(m *types.Message, used *naming.UsedNames, res *Result) error {
	if m.Sender != types.SenderAssistant {
		return nil
	}
	body := m.Body()
	if body == "" {
		return nil
	}

	for _, a := range extract.Extract(body) {
		path, err := naming.Allocate(a.Title, a.Language, m.Index, used, w.DirectoryMode)
		if err != nil {
			return err
		}
		res.Entries = append(res.Entries, types.NamedEntry{
			Path:      path,
			Content:   []byte(a.Content),
			Language:  a.Language,
			MessageID: m.UUID,
		})
		res.ArtifactCount++
	}
	return nil
}

// indexChildren groups messages by parent id, each group stable-sorted by
// CreatedAt.
func indexChildren(messages []types.Message) map[types.MessageID][]*types.Message {
	children := make(map[types.MessageID][]*types.Message)
	for i := range messages {
		m := &messages[i]
		children[m.ParentMessageUUID] = append(children[m.ParentMessageUUID], m)
	}
	for _, kids := range children {
		sort.SliceStable(kids, func(i, j int) bool {
			return kids[i].CreatedAt.Before(kids[j].CreatedAt)
		})
	}
	return children
}
