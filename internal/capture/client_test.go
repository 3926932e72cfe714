package capture

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/user/artifactdl/internal/types"
)

const testID = types.ConversationID("33333333-3333-3333-3333-333333333333")

type countingRetrier struct {
	attempts int
}

func (r *countingRetrier) Execute(_ context.Context, fn func() error) error {
	var err error
	for r.attempts = 1; r.attempts <= 3; r.attempts++ {
		if err = fn(); err == nil {
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return err
		}
	}
	return err
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/organizations/org-1/chat_conversations/"+string(testID) {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("tree") != "True" || r.URL.Query().Get("rendering_mode") != "messages" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if c, err := r.Cookie("sessionKey"); err != nil || c.Value != "sk-test" {
			t.Errorf("missing session cookie")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"uuid": string(testID),
			"name": "demo",
			"chat_messages": []map[string]any{{
				"uuid":                "m1",
				"parent_message_uuid": string(types.RootParentID),
				"sender":              "assistant",
				"text":                "hello",
				"index":               0,
				"created_at":          "2024-05-01T10:00:00Z",
				"updated_at":          "2024-05-01T10:00:00Z",
			}},
		})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL + "/", OrgID: "org-1", SessionKey: "sk-test"}, nil)
	p, err := c.Fetch(context.Background(), "", testID)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "demo" || len(p.ChatMessages) != 1 {
		t.Fatalf("unexpected payload %+v", p)
	}
	if p.ChatMessages[0].Sender != types.SenderAssistant || p.ChatMessages[0].ParentMessageUUID != types.RootParentID {
		t.Errorf("unexpected message %+v", p.ChatMessages[0])
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"chat_messages":[]}`))
	}))
	defer srv.Close()

	retry := &countingRetrier{}
	c := New(Config{BaseURL: srv.URL, OrgID: "org", SessionKey: "k"}, retry)
	p, err := c.Fetch(context.Background(), "", testID)
	if err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
	if p.UUID != testID {
		t.Errorf("expected payload id to default to %s, got %s", testID, p.UUID)
	}
}

func TestFetchUnauthorized(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, OrgID: "org", SessionKey: "k"}, &countingRetrier{})
	_, err := c.Fetch(context.Background(), "", testID)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 StatusError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected no retries for 403, got %d calls", calls.Load())
	}
}

func TestFetchRequiresCredentials(t *testing.T) {
	c := New(Config{OrgID: "org"}, nil)
	if _, err := c.Fetch(context.Background(), "", testID); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
	c = New(Config{SessionKey: "k"}, nil)
	if _, err := c.Fetch(context.Background(), "", testID); err == nil {
		t.Error("expected error without org id")
	}
}

func TestConversationIDFromURL(t *testing.T) {
	tests := []struct {
		in      string
		want    types.ConversationID
		wantErr bool
	}{
		{in: "https://claude.ai/chat/33333333-3333-3333-3333-333333333333", want: testID},
		{in: "https://claude.ai/chat/33333333-3333-3333-3333-333333333333?foo=bar", want: testID},
		{in: "33333333-3333-3333-3333-333333333333", want: testID},
		{in: "https://claude.ai/chat/33333333-3333-3333-3333-33333333333A", want: "33333333-3333-3333-3333-33333333333a"},
		{in: "https://claude.ai/projects", wantErr: true},
		{in: "https://claude.ai/chat/not-a-uuid", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ConversationIDFromURL(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%q: expected error, got %s", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: expected %s, got %s", tt.in, tt.want, got)
		}
	}
}
