package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"sentinel-desk/config"
	"sentinel-desk/core/auth"
	"sentinel-desk/core/notify"
	"sentinel-desk/core/rbac"
	"sentinel-desk/core/requests"
	"sentinel-desk/core/store"
)

type stubSender struct {
	cards []*notify.Card
	fail  bool
}

func (s *stubSender) Send(ctx context.Context, url string, card *notify.Card) error {
	if s.fail {
		return fmt.Errorf("webhook unreachable")
	}
	s.cards = append(s.cards, card)
	return nil
}

type testEnv struct {
	handler http.Handler
	roles   store.RoleRecordsStore
	sender  *stubSender
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.AppConfig{
		DBPath:  filepath.Join(t.TempDir(), "api.db"),
		Version: "test",
		Teams:   config.TeamsConfig{WebhookURL: "https://example.test/webhook"},
	}
	db, err := store.NewDB(cfg, nil)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.ApplyMigrations(context.Background(), db, nil); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	policy, err := rbac.NewPolicy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	requestsStore := store.NewRequestsStore(db)
	rolesStore := store.NewRoleRecordsStore(db)
	sender := &stubSender{}
	notifier := notify.NewNotifier(cfg.Teams, sender, nil)
	svc := requests.NewService(cfg, requestsStore, notifier, nil)
	resolver := auth.NewResolver(rolesStore, policy, nil)
	srv := NewServer(cfg, ServerDeps{
		RequestsStore: requestsStore,
		RolesStore:    rolesStore,
		RequestsSvc:   svc,
		Resolver:      resolver,
		Notifier:      notifier,
	}, nil)
	return &testEnv{handler: srv.Handler(), roles: rolesStore, sender: sender}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func submissionBody(userID string) map[string]any {
	return map[string]any{
		"userId":   userID,
		"userInfo": map[string]any{"name": "Alice", "email": userID},
		"type":     "phishing-email",
		"reason":   "Suspicious invoice received",
		"formData": map[string]any{"severity": "high", "sender": "bad@actor.test"},
	}
}

func createRequest(t *testing.T, env *testEnv, userID string) string {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/requests/", submissionBody(userID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	req, _ := body["request"].(map[string]any)
	id, _ := req["id"].(string)
	if !strings.HasPrefix(id, "REQ-") {
		t.Fatalf("created id = %q", id)
	}
	return id
}

func seedRole(t *testing.T, env *testEnv, email, role string) {
	t.Helper()
	err := env.roles.Upsert(context.Background(), &store.RoleRecord{Email: email, Role: role})
	if err != nil {
		t.Fatalf("seed role: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := setupEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "healthy" {
		t.Fatalf("body = %v", body)
	}
	if body["version"] != "test" {
		t.Fatalf("version = %v", body["version"])
	}
}

func TestCreateRequestEndpoint(t *testing.T) {
	env := setupEnv(t)
	rec := env.do(t, http.MethodPost, "/api/requests/", submissionBody("alice@example.com"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["message"] != "Request created successfully" {
		t.Fatalf("message = %v", body["message"])
	}
	req, _ := body["request"].(map[string]any)
	if req["status"] != "open" || req["priority"] != "high" {
		t.Fatalf("request = %v", req)
	}
	if _, ok := req["comments"].([]any); !ok {
		t.Fatalf("comments must serialize as a JSON array, got %T", req["comments"])
	}
	if len(env.sender.cards) != 1 {
		t.Fatalf("expected one webhook card, got %d", len(env.sender.cards))
	}
}

func TestCreateRequestValidation(t *testing.T) {
	env := setupEnv(t)
	rec := env.do(t, http.MethodPost, "/api/requests/", map[string]any{"reason": "only a reason"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
	body := decodeBody(t, rec)
	msg, _ := body["error"].(string)
	if !strings.Contains(msg, "userInfo") || !strings.Contains(msg, "type") {
		t.Fatalf("error must name the missing fields: %q", msg)
	}

	rec = env.do(t, http.MethodPost, "/api/requests/", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty body: status %d", rec.Code)
	}
}

func TestListVisibilityByRole(t *testing.T) {
	env := setupEnv(t)
	createRequest(t, env, "alice@example.com")
	createRequest(t, env, "bob@example.com")
	seedRole(t, env, "staff@example.com", "it-support")

	rec := env.do(t, http.MethodGet, "/api/requests/?userEmail=alice@example.com", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["count"].(float64) != 1 {
		t.Fatalf("plain user must only see own requests: %v", body["count"])
	}

	rec = env.do(t, http.MethodGet, "/api/requests/?userEmail=staff@example.com", nil)
	body = decodeBody(t, rec)
	if body["count"].(float64) != 2 {
		t.Fatalf("it-support must see all requests: %v", body["count"])
	}

	rec = env.do(t, http.MethodGet, "/api/requests/", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing userEmail: status %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "userEmail is required" {
		t.Fatalf("error = %s", rec.Body.String())
	}
}

func TestUpdateStatusEndpoint(t *testing.T) {
	env := setupEnv(t)
	id := createRequest(t, env, "alice@example.com")

	rec := env.do(t, http.MethodPut, "/api/requests/"+id+"/status", map[string]any{
		"status": "in-progress",
		"notes":  "Looking into it",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	req, _ := body["request"].(map[string]any)
	if req["status"] != "in-progress" {
		t.Fatalf("request = %v", req)
	}
	comments, _ := req["comments"].([]any)
	if len(comments) != 1 {
		t.Fatalf("expected one audit comment, got %v", req["comments"])
	}
	comment, _ := comments[0].(map[string]any)
	msg, _ := comment["message"].(string)
	if !strings.Contains(msg, "in-progress") || !strings.Contains(msg, "Looking into it") {
		t.Fatalf("audit comment = %q", msg)
	}

	rec = env.do(t, http.MethodPut, "/api/requests/REQ-missing/status", map[string]any{"status": "closed"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing id: status %d", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/api/requests/"+id+"/status", map[string]any{"status": "paused"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad status: status %d", rec.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	env := setupEnv(t)
	id := createRequest(t, env, "alice@example.com")
	createRequest(t, env, "bob@example.com")
	rec := env.do(t, http.MethodPut, "/api/requests/"+id+"/status", map[string]any{"status": "resolved"})
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve: status %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/requests/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	stats, _ := decodeBody(t, rec)["statistics"].(map[string]any)
	if stats["total"].(float64) != 2 {
		t.Fatalf("total = %v", stats["total"])
	}
	byStatus, _ := stats["byStatus"].(map[string]any)
	if byStatus["resolved"].(float64) != 1 || byStatus["open"].(float64) != 1 {
		t.Fatalf("byStatus = %v", byStatus)
	}
	if stats["avgResolutionHours"] == nil {
		t.Fatalf("resolved request must produce an average")
	}

	again := env.do(t, http.MethodGet, "/api/requests/stats", nil)
	againStats, _ := decodeBody(t, again)["statistics"].(map[string]any)
	if againStats["total"].(float64) != 2 {
		t.Fatalf("stats endpoint must be read-only")
	}
}

func TestUserRoleEndpoint(t *testing.T) {
	env := setupEnv(t)
	seedRole(t, env, "boss@example.com", "admin")

	rec := env.do(t, http.MethodGet, "/api/auth/user-role?email=boss@example.com", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := decodeBody(t, rec)
	user, _ := body["user"].(map[string]any)
	if user["role"] != "admin" || user["isAdmin"] != true || user["isITTeam"] != true {
		t.Fatalf("user = %v", user)
	}
	roles, _ := body["roles"].([]any)
	if len(roles) != 3 {
		t.Fatalf("roles = %v", roles)
	}

	rec = env.do(t, http.MethodGet, "/api/auth/user-role?email=stranger@example.com", nil)
	body = decodeBody(t, rec)
	user, _ = body["user"].(map[string]any)
	if user["role"] != "user" || user["isITTeam"] != false {
		t.Fatalf("unknown email must default to user: %v", user)
	}

	rec = env.do(t, http.MethodGet, "/api/auth/user-role", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing email: status %d", rec.Code)
	}
}

func TestTestTeamsEndpoint(t *testing.T) {
	env := setupEnv(t)
	rec := env.do(t, http.MethodPost, "/test-teams", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	if len(env.sender.cards) != 1 {
		t.Fatalf("expected one test card, got %d", len(env.sender.cards))
	}

	env.sender.fail = true
	rec = env.do(t, http.MethodPost, "/test-teams", nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("failing sender: status %d", rec.Code)
	}
}
