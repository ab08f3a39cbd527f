package api

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/controlportero/portero-core/internal/audit"
	"github.com/controlportero/portero-core/internal/auth"
	"github.com/controlportero/portero-core/internal/camera"
	"github.com/controlportero/portero-core/internal/infrastructure/config"
	"github.com/controlportero/portero-core/internal/infrastructure/logging"
	"github.com/controlportero/portero-core/internal/notification"
	"github.com/controlportero/portero-core/internal/relay"
)

const testJWTSecret = "test-secret-for-api-tests"

// testEnv bundles the server under test with the collaborators the
// tests need direct access to.
type testEnv struct {
	server   *Server
	store    *notification.Store
	users    auth.UserRepository
	recorder *audit.Recorder

	admin    *auth.User
	operator *auth.User
}

// testDB creates a temporary SQLite database with the users and audit
// schemas applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "api-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migrationSQL := `
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'operator',
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;

		CREATE TABLE audit_logs (
			id TEXT PRIMARY KEY,
			level TEXT NOT NULL DEFAULT 'info',
			user_id TEXT,
			action TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
	`
	if _, err := db.Exec(migrationSQL); err != nil {
		t.Fatalf("applying test migrations: %v", err)
	}

	return db
}

// newTestEnv builds a fully wired server backed by temp files, with an
// admin and an operator account seeded. The relay gateway and camera
// repository are wired; MQTT and InfluxDB are left nil.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	db := testDB(t)

	store, err := notification.Open(filepath.Join(dir, "notifications.json"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ingestor, err := notification.NewService(store, filepath.Join(dir, "uploads"))
	if err != nil {
		t.Fatalf("creating ingestor: %v", err)
	}

	distributor := notification.NewDistributor(store, 50*time.Millisecond, 8)

	users := auth.NewUserRepository(db)
	auditRepo := audit.NewSQLiteRepository(db)
	recorder := audit.NewRecorder(auditRepo, time.Hour)

	cfg := &config.Config{
		API: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
		},
		Camera:   config.CameraConfig{StreamURL: "ws://stream.example:9999"},
		Security: config.SecurityConfig{JWT: config.JWTConfig{Secret: testJWTSecret, AccessTokenTTL: 60}},
	}

	srv, err := New(Deps{
		Config:      cfg,
		Logger:      logging.Default(),
		Store:       store,
		Ingestor:    ingestor,
		Distributor: distributor,
		Relay:       relay.NewGateway(0, 2*time.Second),
		Cameras:     camera.NewRepository(filepath.Join(dir, "cameras.json")),
		Users:       users,
		Recorder:    recorder,
		AuditRepo:   auditRepo,
		Version:     "test",
	})
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}

	env := &testEnv{
		server:   srv,
		store:    store,
		users:    users,
		recorder: recorder,
	}
	env.admin = env.seedUser(t, "admin", auth.RoleAdmin)
	env.operator = env.seedUser(t, "operator", auth.RoleOperator)
	return env
}

func (e *testEnv) seedUser(t *testing.T, username string, role auth.Role) *auth.User {
	t.Helper()

	hash, err := auth.HashPassword("test-password")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	user := &auth.User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := e.users.Create(context.Background(), user); err != nil {
		t.Fatalf("seeding user %s: %v", username, err)
	}
	return user
}

// tokenFor issues a valid access token for the given user.
func (e *testEnv) tokenFor(t *testing.T, user *auth.User) string {
	t.Helper()

	token, err := auth.GenerateAccessToken(user, testJWTSecret, 60)
	if err != nil {
		t.Fatalf("generating token: %v", err)
	}
	return token
}

// do routes a request through the full middleware chain and returns
// the recorded response.
func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.buildRouter().ServeHTTP(rec, req)
	return rec
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Fatal("expected error for empty deps")
	}

	if _, err := New(Deps{Config: &config.Config{}, Logger: logging.Default()}); err == nil {
		t.Fatal("expected error when notification collaborators are missing")
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("content type = %q, want application/json", got)
	}
}

func TestNotFound_ReturnsJSONError(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/no-such-path", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRequestID_IsAssigned(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestCORS_PreflightAllowed(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://frontend.example")
	rec := env.do(req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://frontend.example" {
		t.Error("expected origin to be allowed under wildcard config")
	}
}
