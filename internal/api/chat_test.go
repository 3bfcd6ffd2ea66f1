package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"github.com/parley-ai/parley/internal/agent"
	"github.com/parley-ai/parley/internal/llm"
	"github.com/parley-ai/parley/internal/log"
	"github.com/parley-ai/parley/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeRunner echoes a canned answer and records the session ids it saw.
type fakeRunner struct {
	answer string
	err    error

	sessionIDs []string
	inputs     []string
}

func (f *fakeRunner) RunTurn(_ context.Context, sessionID, userInput string) (*agent.TurnResult, error) {
	f.sessionIDs = append(f.sessionIDs, sessionID)
	f.inputs = append(f.inputs, userInput)
	if f.err != nil {
		return nil, f.err
	}
	return &agent.TurnResult{Answer: f.answer}, nil
}

func newTestServer(t *testing.T, runner Runner) (*Server, *session.Store) {
	t.Helper()

	store, err := session.NewStore(t.TempDir(), log.NewNop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return New(":0", runner, store, log.NewNop()), store
}

func postChat(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestPostChat_NewSessionGetsGeneratedID(t *testing.T) {
	runner := &fakeRunner{answer: "hello there"}
	srv, _ := newTestServer(t, runner)

	rec := postChat(t, srv.Handler(), `{"userInput": "hi"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.ChatID == "" {
		t.Error("response must carry a generated chatId")
	}
	if resp.AIResponse != "hello there" {
		t.Errorf("aiResponse = %q", resp.AIResponse)
	}
	if len(runner.sessionIDs) != 1 || runner.sessionIDs[0] != resp.ChatID {
		t.Errorf("runner saw %v, response says %q", runner.sessionIDs, resp.ChatID)
	}
}

func TestPostChat_ExistingSessionIDEchoedBack(t *testing.T) {
	runner := &fakeRunner{answer: "ok"}
	srv, _ := newTestServer(t, runner)

	rec := postChat(t, srv.Handler(), `{"chatId": "abc-123", "userInput": "hi again"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.ChatID != "abc-123" {
		t.Errorf("chatId = %q, want abc-123", resp.ChatID)
	}
}

func TestPostChat_MissingUserInput(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{})

	for _, body := range []string{`{}`, `{"userInput": ""}`, `{"userInput": "   "}`} {
		rec := postChat(t, srv.Handler(), body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
		var resp errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding error response: %v", err)
		}
		if resp.Error != msgMissingInput {
			t.Errorf("error = %q, want %q", resp.Error, msgMissingInput)
		}
	}
}

func TestPostChat_MalformedJSON(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{})

	rec := postChat(t, srv.Handler(), `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPostChat_AgentFailureIs500(t *testing.T) {
	runner := &fakeRunner{err: fmt.Errorf("%w: boom", llm.ErrGatewayUnavailable)}
	srv, _ := newTestServer(t, runner)

	rec := postChat(t, srv.Handler(), `{"userInput": "hi"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if resp.Error != msgInternalError {
		t.Errorf("error = %q, want %q", resp.Error, msgInternalError)
	}
	if strings.Contains(rec.Body.String(), "boom") {
		t.Error("internal failure details leaked to the client")
	}
}

func TestPostChat_InvalidChatID(t *testing.T) {
	runner := &fakeRunner{err: fmt.Errorf("%w: %q", session.ErrInvalidID, "../x")}
	srv, _ := newTestServer(t, runner)

	rec := postChat(t, srv.Handler(), `{"chatId": "../x", "userInput": "hi"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetMessages_ReturnsTranscript(t *testing.T) {
	srv, store := newTestServer(t, &fakeRunner{})
	ctx := context.Background()

	err := store.Append(ctx, "abc",
		session.Human("hi"),
		session.AI("hello"))
	if err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/chat/abc/messages", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp messagesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.ChatID != "abc" {
		t.Errorf("chatId = %q", resp.ChatID)
	}
	if len(resp.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(resp.Messages))
	}
	if resp.Messages[0].Role != "human" || resp.Messages[0].Message != "hi" {
		t.Errorf("first message: %+v", resp.Messages[0])
	}
	if resp.Messages[1].Role != "ai" || resp.Messages[1].Message != "hello" {
		t.Errorf("second message: %+v", resp.Messages[1])
	}
}

func TestGetMessages_UnknownSessionIsEmptyList(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/chat/never-seen/messages", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"messages":[]`) {
		t.Errorf("expected an empty messages array, got %s", rec.Body.String())
	}
}

func TestGetMessages_TraversalIDRejected(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/chat/bad;id/messages", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := newTestServer(t, &fakeRunner{})

	t.Run("generated when absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Header().Get("X-Request-ID") == "" {
			t.Error("X-Request-ID should be set")
		}
	})

	t.Run("client id honored", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-ID", "client-supplied")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-ID"); got != "client-supplied" {
			t.Errorf("X-Request-ID = %q", got)
		}
	})
}

func TestRecoveryMiddleware_PanicBecomes500(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("handler exploded")
	})
	handler := chain(panicky, recoveryMiddleware(log.NewNop()))

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(msgInternalError)) {
		t.Errorf("body = %s", rec.Body.String())
	}
}
