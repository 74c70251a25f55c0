package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/yeomin4242/guesswhat"
	"github.com/yeomin4242/guesswhat/auth"
	"github.com/yeomin4242/guesswhat/storage"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testOrigin = "http://supabase.test"

// fakeGateway resolves fixed tokens.
type fakeGateway map[string]auth.Identity

func (g fakeGateway) Lookup(ctx context.Context, token string) (*auth.Identity, error) {
	id, ok := g[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}

	return &id, nil
}

type testEnv struct {
	app     *App
	db      *gorm.DB
	store   *storage.Memory
	gateway fakeGateway
	handler http.Handler
}

func setupTestDB(t *testing.T) *gorm.DB {
	// Use in-memory SQLite for testing with silent logger to avoid test output pollution
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Every connection to :memory: is a new database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

func testConfig(t *testing.T) *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		t.Fatalf("Failed to build config: %v", err)
	}
	cfg.SupabaseURL = testOrigin
	cfg.StorageDriver = "memory"

	return &cfg
}

func setupTestEnv(t *testing.T, mutate ...func(*Config)) *testEnv {
	cfg := testConfig(t)
	for _, m := range mutate {
		m(cfg)
	}

	db := setupTestDB(t)
	store := storage.NewMemory(testOrigin, cfg.StorageBucket)
	gw := fakeGateway{}

	app, err := NewApp(cfg, db, store, gw)
	if err != nil {
		t.Fatalf("Failed to build app: %v", err)
	}

	return &testEnv{app: app, db: db, store: store, gateway: gw, handler: app.Routes()}
}

// addUser registers a user and a token that resolves to them.
func (e *testEnv) addUser(t *testing.T, email, token string) *User {
	user := &User{Email: email, Type: "GOOGLE", Role: "USER"}
	if err := createUser(context.Background(), e.db, user); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	e.gateway[token] = auth.Identity{ID: "sub-" + token, Email: email, Provider: "google"}

	return user
}

// upload puts a file in the store and returns its public URL.
func (e *testEnv) upload(t *testing.T, path string) string {
	url, err := e.store.Upload(context.Background(), path, strings.NewReader("img"), "image/png")
	if err != nil {
		t.Fatalf("Failed to upload %s: %v", path, err)
	}

	return url
}

func publicURL(path string) string {
	return guesswhat.PublicURL(testOrigin, guesswhat.Bucket, path)
}

func (e *testEnv) do(t *testing.T, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rdr = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)

	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rr.Body.String(), err)
	}
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	decodeBody(t, rr, &resp)
	return resp.Error
}

func TestHealthCheckHandler(t *testing.T) {
	twoHundreds := map[string]http.HandlerFunc{
		"/healthz": healthCheckHandler,
		"/":        rootHandler,
	}

	for route, handler := range twoHundreds {
		t.Run(route, func(t *testing.T) {
			req, err := http.NewRequest("GET", route, http.NoBody)
			if err != nil {
				t.Fatal(err)
			}

			rr := httptest.NewRecorder()
			handlerFunc := http.HandlerFunc(handler)
			handlerFunc.ServeHTTP(rr, req)

			// Check the status code is what we expect.
			if status := rr.Code; status != http.StatusOK {
				t.Errorf("handler returned wrong status code: got %v want %v",
					status, http.StatusOK)
			}
		})
	}
}

func TestRootListsEndpoints(t *testing.T) {
	rr := httptest.NewRecorder()
	rootHandler(rr, httptest.NewRequest("GET", "/", http.NoBody))

	if !strings.Contains(rr.Body.String(), "/api/game/create") {
		t.Errorf("expected index to list /api/game/create, got %s", rr.Body.String())
	}
}

func TestNotFound(t *testing.T) {
	env := setupTestEnv(t)

	rr := env.do(t, "GET", "/nope", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestAuthGuard(t *testing.T) {
	env := setupTestEnv(t)
	env.addUser(t, "owner@example.com", "good")
	env.gateway["stranger"] = auth.Identity{ID: "x", Email: "nobody@example.com"}

	tests := []struct {
		name   string
		token  string
		status int
		msg    string
	}{
		{"no token", "", http.StatusUnauthorized, noTokenMessage},
		{"bad token", "bad", http.StatusUnauthorized, invalidTokenMessage},
		{"unknown user", "stranger", http.StatusUnauthorized, invalidTokenMessage},
		{"valid", "good", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// A valid token reaches the handler, which rejects the missing id.
			rr := env.do(t, "GET", "/api/game/edit", tt.token, nil)
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
			if tt.msg != "" {
				if got := errorMessage(t, rr); got != tt.msg {
					t.Errorf("expected %q, got %q", tt.msg, got)
				}
			}
		})
	}
}

func TestAuthGuardCookie(t *testing.T) {
	env := setupTestEnv(t)
	env.addUser(t, "owner@example.com", "good")

	req := httptest.NewRequest("GET", "/api/game/edit?gameId=1", http.NoBody)
	req.AddCookie(&http.Cookie{Name: env.app.cfg.AuthCookie, Value: "good"})
	rr := httptest.NewRecorder()
	env.handler.ServeHTTP(rr, req)

	// Authenticated, but the game does not exist.
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestAuthGuardPublicPaths(t *testing.T) {
	env := setupTestEnv(t)

	rr := env.do(t, "GET", "/api/game", "", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("expected public list to pass without a token, got %d", rr.Code)
	}
}

func TestAuthGuardRewritesIdentityHeaders(t *testing.T) {
	env := setupTestEnv(t)
	user := env.addUser(t, "owner@example.com", "good")

	var gotID, gotEmail string
	var gotUser *User
	h := env.app.authGuard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get(userIDHeader)
		gotEmail = r.Header.Get(userEmailHeader)
		gotUser, _ = getUserFromContext(r)
	}))

	t.Run("public path drops spoofed headers", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/game", http.NoBody)
		req.Header.Set(userIDHeader, "999")
		req.Header.Set(userEmailHeader, "evil@example.com")
		h.ServeHTTP(httptest.NewRecorder(), req)

		if gotID != "" || gotEmail != "" {
			t.Errorf("expected identity headers to be stripped, got %q %q", gotID, gotEmail)
		}
		if gotUser != nil {
			t.Errorf("expected no user in context, got %+v", gotUser)
		}
	})

	t.Run("protected path uses the verified user", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/game/create", http.NoBody)
		req.Header.Set("Authorization", "Bearer good")
		req.Header.Set(userIDHeader, "999")
		h.ServeHTTP(httptest.NewRecorder(), req)

		if gotUser == nil || gotUser.ID != user.ID {
			t.Fatalf("expected user %d in context, got %+v", user.ID, gotUser)
		}
		if gotEmail != user.Email {
			t.Errorf("expected email header %q, got %q", user.Email, gotEmail)
		}
		if gotID == "999" {
			t.Error("expected spoofed id header to be replaced")
		}
	})
}

func TestRegisterHandler(t *testing.T) {
	env := setupTestEnv(t)
	env.gateway["new"] = auth.Identity{ID: "abc", Email: "new@example.com", Provider: "kakao"}

	rr := env.do(t, "POST", "/api/auth/oauth/register", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	rr = env.do(t, "POST", "/api/auth/oauth/register", "new", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created RegisterResponse
	decodeBody(t, rr, &created)
	if created.Message != "User registered successfully" || created.UserID == 0 {
		t.Errorf("unexpected response %+v", created)
	}

	user, err := getUserByEmail(context.Background(), env.db, "new@example.com")
	if err != nil {
		t.Fatalf("expected user to be stored, got %v", err)
	}
	if user.Type != "KAKAO" || user.Role != "USER" {
		t.Errorf("expected KAKAO/USER, got %s/%s", user.Type, user.Role)
	}

	rr = env.do(t, "POST", "/api/auth/oauth/register", "new", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for existing user, got %d", rr.Code)
	}
	var existing RegisterResponse
	decodeBody(t, rr, &existing)
	if existing.Message != "User already exists" {
		t.Errorf("expected existing message, got %q", existing.Message)
	}
}
