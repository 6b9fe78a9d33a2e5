package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"teamsync/internal/types"
)

func newTestClient(serverURL string) *Client {
	return &Client{
		baseURL: serverURL,
		token:   "token",
		userID:  defaultUserID,
		http: &http.Client{
			Timeout: 2 * time.Second,
		},
	}
}

func TestCreateSessionPostsMessage(t *testing.T) {
	var seenPath, seenAuth string
	var body MessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		seenPath = r.URL.Path
		seenAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"teamSession":{"id":"s1","status":"created"},"messages":[]}`))
	}))
	defer server.Close()

	id, err := newTestClient(server.URL).CreateSession(context.Background(), "team-1", "Build X")
	if err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}
	if id != "s1" {
		t.Fatalf("unexpected session id %q", id)
	}
	if seenPath != "/team-run-no-wait/team-1" {
		t.Fatalf("unexpected path %s", seenPath)
	}
	if seenAuth != "Bearer token" {
		t.Fatalf("unexpected auth header %q", seenAuth)
	}
	if body.Message != "Build X" {
		t.Fatalf("unexpected body %#v", body)
	}
}

func TestCreateSessionRequiresTeam(t *testing.T) {
	if _, err := NewWithBaseURL("http://127.0.0.1:1", "token").CreateSession(context.Background(), " ", "x"); err == nil {
		t.Fatalf("expected error without team id")
	}
}

func TestContinueAndStopPaths(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	if err := c.ContinueSession(context.Background(), "team-1", "s1", "more"); err != nil {
		t.Fatalf("ContinueSession error: %v", err)
	}
	if err := c.StopSession(context.Background(), "s1"); err != nil {
		t.Fatalf("StopSession error: %v", err)
	}
	want := []string{"POST /team-continue-no-wait/team-1/s1", "POST /teams/sessions/s1/stop"}
	if len(seen) != 2 || seen[0] != want[0] || seen[1] != want[1] {
		t.Fatalf("unexpected requests %v", seen)
	}
}

func TestGetSessionDecodesSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/team-run-results/s1" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"teamSession":{
			"id":"s1",
			"status":"awaiting_tool_result",
			"toolTypeCalled":"ask-user",
			"currentAgent":"planner",
			"backlog":[{"id":1,"title":"Plan","status":"in_progress","priority":"high","result":{"ok":true}}]
		}}`))
	}))
	defer server.Close()

	session, err := newTestClient(server.URL).GetSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetSession error: %v", err)
	}
	if session.Status != types.RunStatusAwaitingToolResult || session.ToolTypeCalled != types.FunctionAskUser {
		t.Fatalf("unexpected session %#v", session)
	}
	if len(session.Backlog) != 1 || session.Backlog[0].ID != "1" || session.Backlog[0].Status != types.TaskStatusInProgress {
		t.Fatalf("unexpected backlog %#v", session.Backlog)
	}
}

func TestGetMessagesPageReadsTotalCount(t *testing.T) {
	var seenQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Total-Count", "42")
		_, _ = w.Write([]byte(`[{"id":"m1","sender":"user","message":"Build X"},{"id":"m2","sender":"planner","content":"done"}]`))
	}))
	defer server.Close()

	page, err := newTestClient(server.URL).GetMessagesPage(context.Background(), "s1", 0, 500)
	if err != nil {
		t.Fatalf("GetMessagesPage error: %v", err)
	}
	if seenQuery != "limit=500&skip=0&userId=user" {
		t.Fatalf("unexpected query %q", seenQuery)
	}
	if page.TotalCount != 42 || len(page.Messages) != 2 {
		t.Fatalf("unexpected page %#v", page)
	}
	if page.Messages[1].Text() != "done" {
		t.Fatalf("expected content fallback, got %q", page.Messages[1].Text())
	}
}

func TestGetDebugMessagesWithoutTotalHeader(t *testing.T) {
	var seenPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenPath = r.URL.Path
		_, _ = w.Write([]byte(`[{"id":"d1","sender":"system","message":"trace"}]`))
	}))
	defer server.Close()

	page, err := newTestClient(server.URL).GetDebugMessages(context.Background(), "s1", 0, 0)
	if err != nil {
		t.Fatalf("GetDebugMessages error: %v", err)
	}
	if seenPath != "/sessions/s1/messages/debug" {
		t.Fatalf("unexpected path %s", seenPath)
	}
	if page.TotalCount != 1 {
		t.Fatalf("expected total to fall back to page size, got %d", page.TotalCount)
	}
}

func TestInquiriesAndResponse(t *testing.T) {
	var response InquiryResponseRequest
	var responseMethod, responsePath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/inquiries/session/s1":
			_, _ = w.Write([]byte(`[{"id":"q1","sessionId":"s1","toolType":"ask-user","inquiry":{"question":"Which branch?"}}]`))
		case "/inquiries/q1/response":
			responseMethod = r.Method
			responsePath = r.URL.Path
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &response)
			_, _ = w.Write([]byte(`{"id":"q1","response":"main"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	inquiries, err := c.GetInquiries(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetInquiries error: %v", err)
	}
	if len(inquiries) != 1 || !inquiries[0].AsksUser() || inquiries[0].Answered() {
		t.Fatalf("unexpected inquiries %#v", inquiries)
	}
	if err := c.RespondToInquiry(context.Background(), "q1", "main"); err != nil {
		t.Fatalf("RespondToInquiry error: %v", err)
	}
	if responseMethod != http.MethodPut || responsePath != "/inquiries/q1/response" || response.Response != "main" {
		t.Fatalf("unexpected response request %s %s %#v", responseMethod, responsePath, response)
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "error field", body: `{"error":"team not found"}`, want: "team not found"},
		{name: "message field", body: `{"statusCode":404,"error":"Not Found","message":"Session missing"}`, want: "Session missing"},
		{name: "message list", body: `{"message":["message must be a string","message should not be empty"]}`, want: "message must be a string; message should not be empty"},
		{name: "no body", body: ``, want: "404 Not Found"},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(tc.body))
		}))
		_, err := newTestClient(server.URL).GetSession(context.Background(), "s1")
		server.Close()
		apiErr := AsAPIError(err)
		if apiErr == nil {
			t.Fatalf("%s: expected APIError, got %v", tc.name, err)
		}
		if apiErr.StatusCode != http.StatusNotFound || apiErr.Message != tc.want {
			t.Fatalf("%s: unexpected error %#v", tc.name, apiErr)
		}
	}
}

func TestMissingTokenFailsBeforeRequest(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	c := NewWithBaseURL(server.URL, "")
	_, err := c.GetSession(context.Background(), "s1")
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	if called {
		t.Fatalf("expected no request without token")
	}
}

func TestTokenLoadedFromFile(t *testing.T) {
	var seenAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("file-token\n"), 0o600); err != nil {
		t.Fatalf("write token: %v", err)
	}
	c := NewWithBaseURL(server.URL, "")
	c.tokenPath = path
	if _, err := c.GetInquiries(context.Background(), "s1"); err != nil {
		t.Fatalf("GetInquiries error: %v", err)
	}
	if seenAuth != "Bearer file-token" {
		t.Fatalf("unexpected auth header %q", seenAuth)
	}
}
