package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/singhkkrish/traceit/internal/db"
	"github.com/singhkkrish/traceit/internal/model"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T, opts Options) (*httptest.Server, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)
	if opts.JWTSecret == "" {
		opts.JWTSecret = testJWTSecret
	}
	server := httptest.NewServer(NewRouter(database, opts))
	t.Cleanup(server.Close)
	return server, database
}

// registerUser signs up a user through the API and returns its token and ID.
func registerUser(t *testing.T, server *httptest.Server, name, email, phone string) (string, string) {
	t.Helper()
	req, _ := authRequest("POST", server.URL+"/api/auth/register", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": "password123",
		"phone":    phone,
	})
	status, body := doJSON(t, req)
	if status != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d (%v)", email, status, body)
	}
	token, _ := body["token"].(string)
	user, _ := body["user"].(map[string]any)
	id, _ := user["id"].(string)
	if token == "" || id == "" {
		t.Fatalf("register %s: missing token or user id: %v", email, body)
	}
	return token, id
}

// authRequest builds a JSON request. The Authorization header is only set
// when token is non-empty.
func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// doJSON sends req and decodes the JSON response body.
func doJSON(t *testing.T, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("%s %s: decoding response: %v", req.Method, req.URL.Path, err)
	}
	return resp.StatusCode, body
}

func TestHealth(t *testing.T) {
	server, _ := setupTestServer(t, Options{})

	for _, path := range []string{"/", "/api"} {
		req, _ := authRequest("GET", server.URL+path, "", nil)
		status, body := doJSON(t, req)
		if status != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d", path, status)
		}
		if body["message"] != "TraceIt API is running..." {
			t.Errorf("GET %s: unexpected message %v", path, body["message"])
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	server, _ := setupTestServer(t, Options{})
	registerUser(t, server, "Ana", "ana@example.com", "")

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"missing password", map[string]string{"name": "Bo", "email": "bo@example.com"}, http.StatusBadRequest},
		{"invalid email", map[string]string{"name": "Bo", "email": "not-an-email", "password": "password123"}, http.StatusBadRequest},
		{"short password", map[string]string{"name": "Bo", "email": "bo@example.com", "password": "short"}, http.StatusBadRequest},
		{"duplicate email", map[string]string{"name": "Ana", "email": "ANA@example.com", "password": "password123"}, http.StatusConflict},
	}
	for _, tt := range tests {
		req, _ := authRequest("POST", server.URL+"/api/auth/register", "", tt.body)
		status, body := doJSON(t, req)
		if status != tt.status {
			t.Errorf("%s: expected %d, got %d (%v)", tt.name, tt.status, status, body)
		}
		if body["success"] != false {
			t.Errorf("%s: expected success false", tt.name)
		}
	}
}

func TestAuthFlow(t *testing.T) {
	server, _ := setupTestServer(t, Options{})
	registerUser(t, server, "Ana", "ana@example.com", "555-0100")

	// Wrong password.
	req, _ := authRequest("POST", server.URL+"/api/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "wrong-password",
	})
	if status, _ := doJSON(t, req); status != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", status)
	}

	// Login.
	req, _ = authRequest("POST", server.URL+"/api/auth/login", "", map[string]string{
		"email": "Ana@Example.com", "password": "password123",
	})
	status, body := doJSON(t, req)
	if status != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", status)
	}
	token := body["token"].(string)

	// Me.
	req, _ = authRequest("GET", server.URL+"/api/auth/me", token, nil)
	status, body = doJSON(t, req)
	if status != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", status)
	}
	user := body["user"].(map[string]any)
	if user["email"] != "ana@example.com" || user["phone"] != "555-0100" {
		t.Errorf("unexpected profile: %v", user)
	}
	if _, ok := user["passwordHash"]; ok {
		t.Error("profile must not expose the password hash")
	}

	// Update profile.
	req, _ = authRequest("PUT", server.URL+"/api/auth/me", token, map[string]string{"name": "Ana K."})
	status, body = doJSON(t, req)
	if status != http.StatusOK {
		t.Fatalf("update me: expected 200, got %d", status)
	}
	if body["user"].(map[string]any)["name"] != "Ana K." {
		t.Errorf("expected updated name, got %v", body["user"])
	}

	// Change password, then log in with the new one.
	req, _ = authRequest("PUT", server.URL+"/api/auth/password", token, map[string]string{
		"currentPassword": "password123", "newPassword": "new-password-1",
	})
	if status, _ := doJSON(t, req); status != http.StatusOK {
		t.Fatalf("change password: expected 200, got %d", status)
	}
	req, _ = authRequest("POST", server.URL+"/api/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "new-password-1",
	})
	if status, _ := doJSON(t, req); status != http.StatusOK {
		t.Errorf("login with new password: expected 200, got %d", status)
	}

	// Logout revokes the token.
	req, _ = authRequest("POST", server.URL+"/api/auth/logout", token, nil)
	if status, _ := doJSON(t, req); status != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", status)
	}
	req, _ = authRequest("GET", server.URL+"/api/auth/me", token, nil)
	status, body = doJSON(t, req)
	if status != http.StatusUnauthorized {
		t.Errorf("me after logout: expected 401, got %d", status)
	}
	if body["message"] != "Not authorized, token revoked" {
		t.Errorf("unexpected message %v", body["message"])
	}
}

func TestUnauthenticatedRequests(t *testing.T) {
	server, _ := setupTestServer(t, Options{})

	req, _ := authRequest("GET", server.URL+"/api/auth/me", "", nil)
	status, body := doJSON(t, req)
	if status != http.StatusUnauthorized || body["message"] != "Not authorized, no token" {
		t.Errorf("no token: got %d %v", status, body["message"])
	}

	req, _ = authRequest("POST", server.URL+"/api/items/report", "garbage", map[string]string{})
	status, body = doJSON(t, req)
	if status != http.StatusUnauthorized || body["message"] != "Not authorized, token failed" {
		t.Errorf("bad token: got %d %v", status, body["message"])
	}
}

func TestLostItemsAPIFlow(t *testing.T) {
	server, _ := setupTestServer(t, Options{})
	ana, anaID := registerUser(t, server, "Ana", "ana@example.com", "")
	bo, _ := registerUser(t, server, "Bo", "bo@example.com", "")

	// Missing fields.
	req, _ := authRequest("POST", server.URL+"/api/items/report", ana, map[string]string{"itemName": "Wallet"})
	status, body := doJSON(t, req)
	if status != http.StatusBadRequest || body["message"] != "Please provide all required fields" {
		t.Errorf("missing fields: got %d %v", status, body["message"])
	}

	// Unknown category.
	req, _ = authRequest("POST", server.URL+"/api/items/report", ana, map[string]string{
		"itemName": "Wallet", "category": "Pets", "locationLost": "Library", "dateLost": "2024-03-01",
	})
	if status, _ := doJSON(t, req); status != http.StatusBadRequest {
		t.Errorf("unknown category: expected 400, got %d", status)
	}

	// Report.
	req, _ = authRequest("POST", server.URL+"/api/items/report", ana, map[string]any{
		"itemName":     "Black Wallet",
		"category":     model.CategoryAccessories,
		"description":  "Leather, two cards inside",
		"locationLost": "Main Library",
		"dateLost":     "2024-03-01",
	})
	status, body = doJSON(t, req)
	if status != http.StatusCreated {
		t.Fatalf("report: expected 201, got %d (%v)", status, body)
	}
	item := body["item"].(map[string]any)
	id := item["id"].(string)
	if item["status"] != model.ItemStatusLost {
		t.Errorf("expected status lost, got %v", item["status"])
	}
	if item["reportedBy"].(map[string]any)["id"] != anaID {
		t.Errorf("unexpected reporter %v", item["reportedBy"])
	}

	// Public list and search.
	req, _ = authRequest("GET", server.URL+"/api/items/lost?q=wallet", "", nil)
	status, body = doJSON(t, req)
	if status != http.StatusOK || body["count"] != float64(1) {
		t.Errorf("search: got %d count %v", status, body["count"])
	}
	req, _ = authRequest("GET", server.URL+"/api/items/lost?category="+model.CategoryKeys, "", nil)
	if _, body := doJSON(t, req); body["count"] != float64(0) {
		t.Errorf("category filter: expected 0, got %v", body["count"])
	}

	// Public get.
	req, _ = authRequest("GET", server.URL+"/api/items/"+id, "", nil)
	if status, _ := doJSON(t, req); status != http.StatusOK {
		t.Errorf("get: expected 200, got %d", status)
	}

	// Someone else cannot update or delete.
	req, _ = authRequest("PUT", server.URL+"/api/items/"+id, bo, map[string]string{"itemName": "Mine now"})
	status, body = doJSON(t, req)
	if status != http.StatusForbidden || body["message"] != "Not authorized to update this item" {
		t.Errorf("foreign update: got %d %v", status, body["message"])
	}
	req, _ = authRequest("DELETE", server.URL+"/api/items/"+id, bo, nil)
	if status, _ := doJSON(t, req); status != http.StatusForbidden {
		t.Errorf("foreign delete: expected 403, got %d", status)
	}

	// Owner updates status.
	req, _ = authRequest("PUT", server.URL+"/api/items/"+id, ana, map[string]string{"status": model.ItemStatusFound})
	status, body = doJSON(t, req)
	if status != http.StatusOK {
		t.Fatalf("update: expected 200, got %d (%v)", status, body)
	}
	if body["item"].(map[string]any)["status"] != model.ItemStatusFound {
		t.Errorf("expected status found, got %v", body["item"])
	}

	// Found items drop out of the public lost list but stay in my reports.
	req, _ = authRequest("GET", server.URL+"/api/items/lost", "", nil)
	if _, body := doJSON(t, req); body["count"] != float64(0) {
		t.Errorf("lost list: expected 0, got %v", body["count"])
	}
	req, _ = authRequest("GET", server.URL+"/api/items/my-reports", ana, nil)
	if _, body := doJSON(t, req); body["count"] != float64(1) {
		t.Errorf("my reports: expected 1, got %v", body["count"])
	}

	// Delete.
	req, _ = authRequest("DELETE", server.URL+"/api/items/"+id, ana, nil)
	if status, _ := doJSON(t, req); status != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", status)
	}
	req, _ = authRequest("GET", server.URL+"/api/items/"+id, "", nil)
	status, body = doJSON(t, req)
	if status != http.StatusNotFound || body["message"] != "Item not found" {
		t.Errorf("get deleted: got %d %v", status, body["message"])
	}
}

func TestCORSPreflight(t *testing.T) {
	server, _ := setupTestServer(t, Options{CORSOrigins: []string{"http://localhost:3000"}})

	req, _ := http.NewRequest("OPTIONS", server.URL+"/api/items/report", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("unexpected allow origin %q", got)
	}
	if !strings.Contains(resp.Header.Get("Access-Control-Allow-Headers"), "Authorization") {
		t.Error("preflight must allow the Authorization header")
	}

	// Unlisted origins get no CORS headers.
	req, _ = http.NewRequest("GET", server.URL+"/api", nil)
	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow origin, got %q", got)
	}
}
