package server_test

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/idilsaglam/todolist/internal/auth"
	"github.com/idilsaglam/todolist/internal/events"
	"github.com/idilsaglam/todolist/internal/kv"
	"github.com/idilsaglam/todolist/internal/model"
	"github.com/idilsaglam/todolist/internal/server"
	"github.com/idilsaglam/todolist/internal/store"
)

// newTestServer spins up a full router over an in-memory store.
func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	t.Setenv("TODOLIST_API_KEY", "")

	bus := events.NewBus()
	st, err := store.New(kv.NewMemory(), store.WithBus(bus))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}

	authSvc, err := auth.NewService(t.TempDir())
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}

	router := server.NewRouter(st, authSvc, bus, nil)
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		authSvc.Close()
	})
	return srv, st
}

// do is a convenience helper for making requests to the test server.
func do(t *testing.T, srv *httptest.Server, method, path, body string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("NewRequest %s %s: %v", method, path, err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("Do %s %s: %v", method, path, err)
	}
	return resp
}

// decodeJSON reads and decodes a JSON response body into v.
func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
}

// requireStatus fails the test if the response status doesn't match.
func requireStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("status = %d, want %d; body: %s", resp.StatusCode, expected, body)
	}
}

// errEnvelope is the error response shape.
type errEnvelope struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

type todosResponse struct {
	Todos []model.Todo `json:"todos"`
}

// --- Tests ---

func TestGetTodosEmpty(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, srv, "GET", "/api/todos", "")
	requireStatus(t, resp, http.StatusOK)

	var out todosResponse
	decodeJSON(t, resp, &out)
	if out.Todos == nil {
		t.Error("todos is null, want []")
	}
	if len(out.Todos) != 0 {
		t.Errorf("todos = %v, want empty", out.Todos)
	}
}

func TestCreateTodoTrimsTitle(t *testing.T) {
	srv, st := newTestServer(t)

	resp := do(t, srv, "POST", "/api/todos", `{"title":"  milk  "}`)
	requireStatus(t, resp, http.StatusCreated)

	var td model.Todo
	decodeJSON(t, resp, &td)
	if td.ID != 1 || td.Title != "milk" {
		t.Errorf("created = %+v, want id 1 title milk", td)
	}
	if st.Len() != 1 {
		t.Errorf("store has %d todos, want 1", st.Len())
	}
}

func TestCreateEmptyThenConflict(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, srv, "POST", "/api/todos", `{}`)
	requireStatus(t, resp, http.StatusCreated)

	resp = do(t, srv, "POST", "/api/todos", `{"title":"anything"}`)
	requireStatus(t, resp, http.StatusConflict)

	var env errEnvelope
	decodeJSON(t, resp, &env)
	if env.Code != "DUPLICATE_EMPTY_ENTRY" {
		t.Errorf("error code = %q, want DUPLICATE_EMPTY_ENTRY", env.Code)
	}
	if env.Message == "" {
		t.Error("error message is empty")
	}
}

func TestGetSingleTodo(t *testing.T) {
	srv, st := newTestServer(t)
	st.Add("find me")

	resp := do(t, srv, "GET", "/api/todos/1", "")
	requireStatus(t, resp, http.StatusOK)

	var td model.Todo
	decodeJSON(t, resp, &td)
	if td.Title != "find me" {
		t.Errorf("title = %q, want %q", td.Title, "find me")
	}
}

func TestGetMissingTodo(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, srv, "GET", "/api/todos/42", "")
	requireStatus(t, resp, http.StatusNotFound)

	var env errEnvelope
	decodeJSON(t, resp, &env)
	if env.Code != "NOT_FOUND" {
		t.Errorf("error code = %q, want NOT_FOUND", env.Code)
	}
}

func TestGetTodoBadID(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, srv, "GET", "/api/todos/abc", "")
	requireStatus(t, resp, http.StatusBadRequest)

	var env errEnvelope
	decodeJSON(t, resp, &env)
	if env.Code != "BAD_REQUEST" {
		t.Errorf("error code = %q, want BAD_REQUEST", env.Code)
	}
}

func TestPatchTodo(t *testing.T) {
	srv, st := newTestServer(t)
	st.Add("old")

	resp := do(t, srv, "PATCH", "/api/todos/1", `{"title":" new "}`)
	requireStatus(t, resp, http.StatusOK)

	var td model.Todo
	decodeJSON(t, resp, &td)
	if td.Title != "new" {
		t.Errorf("title = %q, want trimmed %q", td.Title, "new")
	}
}

func TestPatchEmptyTitle(t *testing.T) {
	srv, st := newTestServer(t)
	st.Add("keep")

	resp := do(t, srv, "PATCH", "/api/todos/1", `{"title":""}`)
	requireStatus(t, resp, http.StatusBadRequest)

	var env errEnvelope
	decodeJSON(t, resp, &env)
	if env.Code != "EMPTY_TITLE" {
		t.Errorf("error code = %q, want EMPTY_TITLE", env.Code)
	}
	if got := st.Todos(); got[0].Title != "keep" {
		t.Errorf("title changed to %q", got[0].Title)
	}
}

func TestPatchMissingTodo(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, srv, "PATCH", "/api/todos/9", `{"title":"x"}`)
	requireStatus(t, resp, http.StatusNotFound)
}

func TestPatchInvalidJSON(t *testing.T) {
	srv, st := newTestServer(t)
	st.Add("keep")

	resp := do(t, srv, "PATCH", "/api/todos/1", `{broken`)
	requireStatus(t, resp, http.StatusBadRequest)

	var env errEnvelope
	decodeJSON(t, resp, &env)
	if env.Code != "BAD_REQUEST" {
		t.Errorf("error code = %q, want BAD_REQUEST", env.Code)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	srv, st := newTestServer(t)
	st.Add("bye")

	resp := do(t, srv, "DELETE", "/api/todos/1", "")
	requireStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	// Deleting the same id again still succeeds.
	resp = do(t, srv, "DELETE", "/api/todos/1", "")
	requireStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	if st.Len() != 0 {
		t.Errorf("store has %d todos, want 0", st.Len())
	}
}

func TestSortDropsOpenEntry(t *testing.T) {
	srv, st := newTestServer(t)
	st.Add("b")
	st.Add("A")
	st.Add("")

	resp := do(t, srv, "POST", "/api/todos/sort", `{"ascending":true}`)
	requireStatus(t, resp, http.StatusOK)

	var out todosResponse
	decodeJSON(t, resp, &out)
	if len(out.Todos) != 2 || out.Todos[0].Title != "A" || out.Todos[1].Title != "b" {
		t.Errorf("sorted = %+v, want [A b]", out.Todos)
	}
}

func TestSortDescending(t *testing.T) {
	srv, st := newTestServer(t)
	st.Add("b")
	st.Add("A")

	resp := do(t, srv, "POST", "/api/todos/sort", `{"ascending":false}`)
	requireStatus(t, resp, http.StatusOK)

	var out todosResponse
	decodeJSON(t, resp, &out)
	if len(out.Todos) != 2 || out.Todos[0].Title != "b" {
		t.Errorf("sorted = %+v, want [b A]", out.Todos)
	}
}

func TestSortDefaultsAscending(t *testing.T) {
	srv, st := newTestServer(t)
	st.Add("b")
	st.Add("A")

	resp := do(t, srv, "POST", "/api/todos/sort", "")
	requireStatus(t, resp, http.StatusOK)

	var out todosResponse
	decodeJSON(t, resp, &out)
	if len(out.Todos) != 2 || out.Todos[0].Title != "A" {
		t.Errorf("sorted = %+v, want ascending", out.Todos)
	}
}

// --- auth enforcement ---

func newSecuredServer(t *testing.T, key string) *httptest.Server {
	t.Helper()
	t.Setenv("TODOLIST_API_KEY", key)

	bus := events.NewBus()
	st, err := store.New(kv.NewMemory(), store.WithBus(bus))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	authSvc, err := auth.NewService(t.TempDir())
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}
	srv := httptest.NewServer(server.NewRouter(st, authSvc, bus, nil))
	t.Cleanup(func() {
		srv.Close()
		authSvc.Close()
	})
	return srv
}

func TestAPIRequiresKeyWhenConfigured(t *testing.T) {
	srv := newSecuredServer(t, "top-secret")

	resp := do(t, srv, "GET", "/api/todos", "")
	requireStatus(t, resp, http.StatusUnauthorized)

	var env errEnvelope
	decodeJSON(t, resp, &env)
	if env.Code != "UNAUTHORIZED" {
		t.Errorf("error code = %q, want UNAUTHORIZED", env.Code)
	}
}

func TestAPIAcceptsConfiguredKey(t *testing.T) {
	srv := newSecuredServer(t, "top-secret")

	req, err := http.NewRequest("GET", srv.URL+"/api/todos", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("api-key", "top-secret")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	requireStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

// --- SSE ---

// readSSEEvent scans lines until it finds the next data frame.
func readSSEEvent(t *testing.T, scanner *bufio.Scanner) string {
	t.Helper()
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			return strings.TrimPrefix(line, "data: ")
		}
	}
	t.Fatal("SSE stream ended without a data frame")
	return ""
}

func TestSubscribeSendsSnapshotFirst(t *testing.T) {
	srv, st := newTestServer(t)
	st.Add("already here")

	resp := do(t, srv, "GET", "/api/subscribe", "")
	requireStatus(t, resp, http.StatusOK)
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	var todos []model.Todo
	if err := json.Unmarshal([]byte(readSSEEvent(t, scanner)), &todos); err != nil {
		t.Fatalf("first event is not valid JSON: %v", err)
	}
	if len(todos) != 1 || todos[0].Title != "already here" {
		t.Errorf("first event = %+v, want the current snapshot", todos)
	}
}

func TestSubscribeStreamsMutations(t *testing.T) {
	srv, st := newTestServer(t)

	resp := do(t, srv, "GET", "/api/subscribe", "")
	requireStatus(t, resp, http.StatusOK)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	readSSEEvent(t, scanner) // initial empty snapshot

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := st.Add("pushed"); err != nil {
			t.Errorf("Add: %v", err)
		}
	}()

	var todos []model.Todo
	if err := json.Unmarshal([]byte(readSSEEvent(t, scanner)), &todos); err != nil {
		t.Fatalf("second event is not valid JSON: %v", err)
	}
	if len(todos) != 1 || todos[0].Title != "pushed" {
		t.Errorf("second event = %+v, want the mutation snapshot", todos)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Add never returned")
	}
}
