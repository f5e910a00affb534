package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/zaloga/internal/auth"
	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/issuance"
	"github.com/erazemk/zaloga/internal/metrics"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/report"
	"github.com/erazemk/zaloga/internal/store"
)

const testJWTSecret = "test-secret"

func newTestServer(t *testing.T) (*httptest.Server, *sqlx.DB) {
	t.Helper()
	database := db.NewTestDB(t)
	stock := issuance.New(database, nil, nil)
	server := httptest.NewServer(NewRouter(database, testJWTSecret, stock))
	t.Cleanup(server.Close)
	return server, database
}

func login(t *testing.T, server *httptest.Server, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp map[string]string
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp["token"] == "" {
		t.Fatal("empty token from login")
	}
	return loginResp["token"]
}

func createUser(t *testing.T, database *sqlx.DB, username, password, role string) *model.User {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user, err := store.CreateUser(context.Background(), database, username, string(hash), role)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

func setupTestServer(t *testing.T) (*httptest.Server, *sqlx.DB, string) {
	t.Helper()
	server, database := newTestServer(t)
	createUser(t, database, "admin", "password", model.RoleAdmin)
	return server, database, login(t, server, "admin", "password")
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader io.Reader = http.NoBody
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends an authenticated request, checks the status and decodes the JSON
// body into out when out is non-nil.
func do(t *testing.T, method, url, token string, body any, wantStatus int, out any) {
	t.Helper()
	req, err := authRequest(method, url, token, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected %d, got %d: %s", method, url, wantStatus, resp.StatusCode, data)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
}

func TestLoginEndpoint(t *testing.T) {
	server, _, _ := setupTestServer(t)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	body, _ = json.Marshal(map[string]string{"username": "admin"})
	resp, _ = http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing password, got %d", resp.StatusCode)
	}
	var verr validationResponse
	json.NewDecoder(resp.Body).Decode(&verr)
	resp.Body.Close()
	if verr.Fields["password"] == "" {
		t.Errorf("expected password field error, got %+v", verr)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	server, _, token := setupTestServer(t)

	do(t, "GET", server.URL+"/api/items", token, nil, http.StatusOK, nil)
	do(t, "POST", server.URL+"/api/auth/logout", token, nil, http.StatusOK, nil)
	do(t, "GET", server.URL+"/api/items", token, nil, http.StatusUnauthorized, nil)
}

func TestChangePassword(t *testing.T) {
	server, _, token := setupTestServer(t)

	do(t, "PUT", server.URL+"/api/auth/password", token, map[string]string{
		"current_password": "password", "new_password": "short",
	}, http.StatusBadRequest, nil)

	do(t, "PUT", server.URL+"/api/auth/password", token, map[string]string{
		"current_password": "nope-nope", "new_password": "long-enough",
	}, http.StatusUnauthorized, nil)

	do(t, "PUT", server.URL+"/api/auth/password", token, map[string]string{
		"current_password": "password", "new_password": "long-enough",
	}, http.StatusOK, nil)

	login(t, server, "admin", "long-enough")
}

func TestItemsAPIFlow(t *testing.T) {
	server, _, token := setupTestServer(t)

	var item model.Item
	do(t, "POST", server.URL+"/api/items", token, map[string]any{
		"name":            "Cement",
		"quantity":        100,
		"unit":            "bag",
		"cost_per_unit":   "2.50",
		"min_stock_level": 10,
		"date_added":      "2024-01-01",
	}, http.StatusCreated, &item)
	if item.ID == 0 || item.Quantity != 100 {
		t.Fatalf("unexpected item %+v", item)
	}
	if item.TotalCost.String() != "250" {
		t.Errorf("expected total cost 250, got %s", item.TotalCost)
	}

	do(t, "POST", server.URL+"/api/items", token, map[string]any{"name": "Sand"}, http.StatusCreated, nil)

	var found []model.Item
	do(t, "GET", server.URL+"/api/items?q=cem", token, nil, http.StatusOK, &found)
	if len(found) != 1 || found[0].Name != "Cement" {
		t.Errorf("expected search to find Cement only, got %+v", found)
	}

	var all []model.Item
	do(t, "GET", server.URL+"/api/items", token, nil, http.StatusOK, &all)
	if len(all) != 2 {
		t.Errorf("expected 2 items, got %d", len(all))
	}

	itemURL := server.URL + "/api/items/" + itoa(item.ID)

	var updated model.Item
	do(t, "PUT", itemURL, token, map[string]any{
		"name":          "Cement 25kg",
		"unit":          "bag",
		"cost_per_unit": "2.50",
		"quantity":      90,
	}, http.StatusOK, &updated)
	if updated.Name != "Cement 25kg" || updated.Quantity != 90 {
		t.Errorf("unexpected updated item %+v", updated)
	}

	var ledger []model.LedgerEntry
	do(t, "GET", itemURL+"/ledger", token, nil, http.StatusOK, &ledger)
	if len(ledger) != 2 || ledger[1].TransactionType != model.TransactionAdjust || ledger[1].Quantity != 10 {
		t.Errorf("unexpected ledger %+v", ledger)
	}

	var received model.Item
	do(t, "POST", itemURL+"/receive", token, map[string]any{"quantity": 15}, http.StatusOK, &received)
	if received.Quantity != 105 {
		t.Errorf("expected 105 after receive, got %d", received.Quantity)
	}

	do(t, "POST", itemURL+"/receive", token, map[string]any{"quantity": 0}, http.StatusBadRequest, nil)
	do(t, "PUT", itemURL, token, map[string]any{"name": ""}, http.StatusBadRequest, nil)
	do(t, "POST", server.URL+"/api/items", token, map[string]any{"name": "Dup", "id": item.ID}, http.StatusBadRequest, nil)

	do(t, "DELETE", itemURL, token, nil, http.StatusOK, nil)
	do(t, "GET", itemURL, token, nil, http.StatusNotFound, nil)
	do(t, "GET", itemURL+"/ledger", token, nil, http.StatusOK, &ledger)
	do(t, "GET", server.URL+"/api/items/abc", token, nil, http.StatusBadRequest, nil)
}

func TestIssuanceAPIFlow(t *testing.T) {
	server, _, token := setupTestServer(t)

	var item model.Item
	do(t, "POST", server.URL+"/api/items", token, map[string]any{
		"name": "Cement", "quantity": 100, "date_added": "2024-01-01",
	}, http.StatusCreated, &item)

	var record model.Issuance
	do(t, "POST", server.URL+"/api/issuances", token, map[string]any{
		"item_id":         item.ID,
		"quantity":        30,
		"department_name": "Construction",
		"date_issued":     "2024-01-10",
	}, http.StatusCreated, &record)
	if record.ItemName != "Cement" || record.QuantityIssued != 30 || record.DepartmentName != "Construction" {
		t.Errorf("unexpected record %+v", record)
	}
	if record.IssuedBy == nil {
		t.Error("expected issuer to be recorded")
	}

	var got model.Item
	do(t, "GET", server.URL+"/api/items/"+itoa(item.ID), token, nil, http.StatusOK, &got)
	if got.Quantity != 70 {
		t.Errorf("expected 70 after issue, got %d", got.Quantity)
	}

	var conflict stockErrorResponse
	do(t, "POST", server.URL+"/api/issuances", token, map[string]any{
		"item_id": item.ID, "quantity": 200, "department_name": "Construction",
	}, http.StatusConflict, &conflict)
	if conflict.Available == nil || *conflict.Available != 70 {
		t.Errorf("expected available 70, got %+v", conflict)
	}

	do(t, "POST", server.URL+"/api/issuances", token, map[string]any{
		"item_id": item.ID, "quantity": 0, "department_name": "Construction",
	}, http.StatusBadRequest, nil)
	do(t, "POST", server.URL+"/api/issuances", token, map[string]any{
		"item_id": item.ID, "quantity": 1, "department_name": "",
	}, http.StatusBadRequest, nil)
	do(t, "POST", server.URL+"/api/issuances", token, map[string]any{
		"item_id": item.ID, "quantity": 1, "department_name": "   ",
	}, http.StatusBadRequest, nil)
	do(t, "POST", server.URL+"/api/issuances", token, map[string]any{
		"item_id": 9999, "quantity": 1, "department_name": "Construction",
	}, http.StatusNotFound, nil)
	do(t, "POST", server.URL+"/api/issuances", token, map[string]any{
		"item_id": item.ID, "quantity": 1, "department_name": "Construction", "date_issued": "10/01/2024",
	}, http.StatusBadRequest, nil)

	var records []model.Issuance
	do(t, "GET", server.URL+"/api/issuances", token, nil, http.StatusOK, &records)
	if len(records) != 1 {
		t.Errorf("expected 1 issuance, got %d", len(records))
	}
	do(t, "GET", server.URL+"/api/issuances?item_id="+itoa(item.ID+1), token, nil, http.StatusOK, &records)
	if len(records) != 0 {
		t.Errorf("expected no issuances for other item, got %d", len(records))
	}
	do(t, "GET", server.URL+"/api/issuances?item_id=x", token, nil, http.StatusBadRequest, nil)

	var ledger []model.LedgerEntry
	do(t, "GET", server.URL+"/api/items/"+itoa(item.ID)+"/ledger", token, nil, http.StatusOK, &ledger)
	if len(ledger) != 2 || ledger[1].BalanceAfter != 70 {
		t.Errorf("unexpected ledger %+v", ledger)
	}
}

func TestIssuanceCommitFailure(t *testing.T) {
	server, database, token := setupTestServer(t)

	var item model.Item
	do(t, "POST", server.URL+"/api/items", token, map[string]any{"name": "Cement", "quantity": 10}, http.StatusCreated, &item)

	if _, err := database.Exec(`CREATE TRIGGER fail_ledger BEFORE INSERT ON ledger
		BEGIN SELECT RAISE(ABORT, 'ledger unavailable'); END`); err != nil {
		t.Fatalf("creating trigger: %v", err)
	}

	do(t, "POST", server.URL+"/api/issuances", token, map[string]any{
		"item_id": item.ID, "quantity": 5, "department_name": "Ops",
	}, http.StatusServiceUnavailable, nil)

	var got model.Item
	do(t, "GET", server.URL+"/api/items/"+itoa(item.ID), token, nil, http.StatusOK, &got)
	if got.Quantity != 10 {
		t.Errorf("expected quantity unchanged at 10, got %d", got.Quantity)
	}
}

func TestReorderReport(t *testing.T) {
	server, _, token := setupTestServer(t)

	do(t, "POST", server.URL+"/api/items", token, map[string]any{
		"name": "Filters", "quantity": 2, "min_stock_level": 5, "max_stock_level": 20,
	}, http.StatusCreated, nil)
	do(t, "POST", server.URL+"/api/items", token, map[string]any{
		"name": "Belts", "quantity": 1, "min_stock_level": 3, "reorder_quantity": 12,
	}, http.StatusCreated, nil)
	do(t, "POST", server.URL+"/api/items", token, map[string]any{
		"name": "Plenty", "quantity": 50, "min_stock_level": 5,
	}, http.StatusCreated, nil)

	var lines []reorderLine
	do(t, "GET", server.URL+"/api/reports/reorder", token, nil, http.StatusOK, &lines)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Name != "Belts" || lines[0].SuggestedOrder != 12 {
		t.Errorf("unexpected first line %+v", lines[0])
	}
	if lines[1].Name != "Filters" || lines[1].SuggestedOrder != 18 {
		t.Errorf("unexpected second line %+v", lines[1])
	}
}

func TestExports(t *testing.T) {
	server, _, token := setupTestServer(t)

	var item model.Item
	do(t, "POST", server.URL+"/api/items", token, map[string]any{"name": "Cement", "quantity": 10}, http.StatusCreated, &item)
	do(t, "POST", server.URL+"/api/issuances", token, map[string]any{
		"item_id": item.ID, "quantity": 3, "department_name": "Ops",
	}, http.StatusCreated, nil)

	for _, path := range []string{"/api/issuances/export", "/api/items/" + itoa(item.ID) + "/ledger/export"} {
		req, _ := authRequest("GET", server.URL+path, token, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != report.ContentType {
			t.Errorf("GET %s: unexpected content type %q", path, ct)
		}
		if !strings.Contains(resp.Header.Get("Content-Disposition"), ".xlsx") {
			t.Errorf("GET %s: expected xlsx attachment", path)
		}
		if !bytes.HasPrefix(data, []byte("PK")) {
			t.Errorf("GET %s: body is not a zip archive", path)
		}
	}

	do(t, "GET", server.URL+"/api/items/999/ledger/export", token, nil, http.StatusNotFound, nil)
}

func TestUnauthenticatedAccess(t *testing.T) {
	server, _ := newTestServer(t)

	resp, _ := http.Get(server.URL + "/api/items")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	do(t, "GET", server.URL+"/api/issuances", "garbage", nil, http.StatusUnauthorized, nil)
}

func TestRoleBasedAccess(t *testing.T) {
	server, database, adminToken := setupTestServer(t)

	user := createUser(t, database, "user1", "password1", model.RoleUser)
	userToken, _ := auth.GenerateToken(testJWTSecret, user.ID, "user1", model.RoleUser)

	// Regular users cannot maintain the catalog.
	do(t, "POST", server.URL+"/api/items", userToken, map[string]string{"name": "Test"}, http.StatusForbidden, nil)
	do(t, "GET", server.URL+"/api/users", userToken, nil, http.StatusForbidden, nil)

	// They can issue stock.
	var item model.Item
	do(t, "POST", server.URL+"/api/items", adminToken, map[string]any{"name": "Gloves", "quantity": 5}, http.StatusCreated, &item)
	do(t, "POST", server.URL+"/api/items/"+itoa(item.ID)+"/receive", userToken, map[string]any{"quantity": 1}, http.StatusForbidden, nil)

	var record model.Issuance
	do(t, "POST", server.URL+"/api/issuances", userToken, map[string]any{
		"item_id": item.ID, "quantity": 2, "department_name": "Cleaning",
	}, http.StatusCreated, &record)
	if record.IssuedBy == nil || *record.IssuedBy != user.ID {
		t.Errorf("expected issuer %d, got %v", user.ID, record.IssuedBy)
	}
}

func TestUserManagement(t *testing.T) {
	server, database, token := setupTestServer(t)
	admin, _ := store.GetUserByUsername(context.Background(), database, "admin")

	var created model.User
	do(t, "POST", server.URL+"/api/users", token, map[string]string{
		"username": "manager1", "password": "password1", "role": model.RoleManager,
	}, http.StatusCreated, &created)

	do(t, "POST", server.URL+"/api/users", token, map[string]string{
		"username": "manager1", "password": "password1", "role": model.RoleManager,
	}, http.StatusConflict, nil)
	do(t, "POST", server.URL+"/api/users", token, map[string]string{
		"username": "x", "password": "password1", "role": "owner",
	}, http.StatusBadRequest, nil)

	// The only admin cannot be demoted or deleted.
	do(t, "PUT", server.URL+"/api/users/"+itoa(admin.ID), token, map[string]string{"role": model.RoleUser}, http.StatusConflict, nil)
	do(t, "DELETE", server.URL+"/api/users/"+itoa(admin.ID), token, nil, http.StatusBadRequest, nil)

	var promoted model.User
	do(t, "PUT", server.URL+"/api/users/"+itoa(created.ID), token, map[string]string{"role": model.RoleAdmin}, http.StatusOK, &promoted)
	if promoted.Role != model.RoleAdmin {
		t.Errorf("expected admin role, got %q", promoted.Role)
	}

	do(t, "PUT", server.URL+"/api/users/"+itoa(created.ID)+"/password", token, map[string]string{"password": "another-pass"}, http.StatusOK, nil)
	login(t, server, "manager1", "another-pass")

	do(t, "DELETE", server.URL+"/api/users/"+itoa(created.ID), token, nil, http.StatusOK, nil)
	do(t, "GET", server.URL+"/api/users/"+itoa(created.ID), token, nil, http.StatusNotFound, nil)
	do(t, "DELETE", server.URL+"/api/users/999", token, nil, http.StatusNotFound, nil)
}

func TestLoggingMiddleware(t *testing.T) {
	m := metrics.New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping/{id}", func(w http.ResponseWriter, r *http.Request) {
		if RequestID(r.Context()) == "" {
			t.Error("expected request id in context")
		}
		w.WriteHeader(http.StatusTeapot)
	})
	handler := LoggingMiddleware(m)(mux)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/ping/1", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("expected 418, got %d", rec.Code)
	}
	if rec.Header().Get(HeaderRequestID) == "" {
		t.Error("expected generated request id header")
	}

	req := httptest.NewRequest("GET", "/ping/2", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Errorf("expected propagated request id, got %q", got)
	}

	metricsRec := httptest.NewRecorder()
	m.Handler().ServeHTTP(metricsRec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(metricsRec.Body.String(), `path="GET /ping/{id}",status="418"} 2`) {
		t.Errorf("expected route-labelled request counter, got:\n%s", metricsRec.Body.String())
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
