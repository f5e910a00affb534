package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/zaloga/internal/db"
	"github.com/erazemk/zaloga/internal/issuance"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/report"
	"github.com/erazemk/zaloga/internal/store"
)

const testJWTSecret = "test-secret"

func newTestSite(t *testing.T) (http.Handler, *issuance.Coordinator) {
	t.Helper()
	database := db.NewTestDB(t)
	stock := issuance.New(database, nil, nil)

	for _, u := range []struct{ name, role string }{
		{"admin", model.RoleAdmin},
		{"manager", model.RoleManager},
		{"clerk", model.RoleUser},
	} {
		hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
		if _, err := store.CreateUser(context.Background(), database, u.name, string(hash), u.role); err != nil {
			t.Fatalf("creating user %s: %v", u.name, err)
		}
	}

	h, err := NewRouter(database, testJWTSecret, stock)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return h, stock
}

func send(h http.Handler, method, path string, cookie *http.Cookie, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func loginCookie(t *testing.T, h http.Handler, username string) *http.Cookie {
	t.Helper()
	rec := send(h, "POST", "/login", nil, url.Values{"username": {username}, "password": {"password123"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login as %s: expected 303, got %d", username, rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("login did not set a token cookie")
	return nil
}

func registerItem(t *testing.T, stock *issuance.Coordinator, name string, quantity, minLevel int) *model.Item {
	t.Helper()
	item, err := stock.RegisterItem(context.Background(), model.Item{
		Name:          name,
		Quantity:      quantity,
		Unit:          "bag",
		MinStockLevel: minLevel,
	})
	if err != nil {
		t.Fatalf("RegisterItem: %v", err)
	}
	return item
}

func itemPath(id int64) string {
	return "/items/" + strconv.FormatInt(id, 10)
}

func TestLoginPage(t *testing.T) {
	h, _ := newTestSite(t)

	rec := send(h, "GET", "/login", nil, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Log in") {
		t.Fatalf("expected login page, got %d", rec.Code)
	}

	rec = send(h, "POST", "/login", nil, url.Values{"username": {"clerk"}, "password": {"wrong-password"}})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong password, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Wrong username or password.") {
		t.Error("expected error message on login page")
	}
}

func TestPagesRedirectWithoutCookie(t *testing.T) {
	h, _ := newTestSite(t)

	for _, path := range []string{"/", "/items", "/issuances", "/settings"} {
		rec := send(h, "GET", path, nil, nil)
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
			t.Errorf("GET %s: expected redirect to /login, got %d %q", path, rec.Code, rec.Header().Get("Location"))
		}
	}

	rec := send(h, "GET", "/items", &http.Cookie{Name: cookieName, Value: "garbage"}, nil)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected redirect for invalid token, got %d", rec.Code)
	}
}

func TestIssueThroughForm(t *testing.T) {
	h, stock := newTestSite(t)
	item := registerItem(t, stock, "Cement", 10, 0)
	cookie := loginCookie(t, h, "clerk")

	form := url.Values{
		"item_id":         {strconv.FormatInt(item.ID, 10)},
		"quantity":        {"6"},
		"department_name": {"Construction"},
		"date_issued":     {"2024-03-01"},
	}
	rec := send(h, "POST", "/issuances", cookie, form)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != itemPath(item.ID) {
		t.Fatalf("expected redirect to item page, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	got, err := stock.Item(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("Item: %v", err)
	}
	if got.Quantity != 4 {
		t.Errorf("expected quantity 4, got %d", got.Quantity)
	}

	rec = send(h, "POST", "/issuances", cookie, form)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for second issuance, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "6 requested, only 4 available") {
		t.Error("expected insufficient stock message")
	}

	form.Set("department_name", "   ")
	form.Set("quantity", "1")
	rec = send(h, "POST", "/issuances", cookie, form)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for blank department, got %d", rec.Code)
	}

	records, _ := stock.Issuances(context.Background(), item.ID)
	if len(records) != 1 {
		t.Errorf("expected 1 issuance record, got %d", len(records))
	}

	rec = send(h, "GET", "/issuances", cookie, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Construction") {
		t.Error("expected issuance listed on issuances page")
	}
}

func TestItemCatalogRequiresManager(t *testing.T) {
	h, stock := newTestSite(t)
	form := url.Values{"name": {"Nails"}, "quantity": {"5"}, "cost_per_unit": {"0.10"}}

	rec := send(h, "POST", "/items", loginCookie(t, h, "clerk"), form)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for user role, got %d", rec.Code)
	}

	cookie := loginCookie(t, h, "manager")
	rec = send(h, "POST", "/items", cookie, form)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 for manager, got %d", rec.Code)
	}

	items, _ := stock.Items(context.Background(), "nails")
	if len(items) != 1 || items[0].Quantity != 5 {
		t.Fatalf("expected one Nails item with quantity 5, got %+v", items)
	}
	if got := items[0].TotalCost.StringFixed(2); got != "0.50" {
		t.Errorf("expected total cost 0.50, got %s", got)
	}

	rec = send(h, "POST", "/items", cookie, url.Values{"name": {"Screws"}, "quantity": {"lots"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric quantity, got %d", rec.Code)
	}

	path := itemPath(items[0].ID)
	rec = send(h, "POST", path+"/receive", cookie, url.Values{"quantity": {"7"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 for receive, got %d", rec.Code)
	}
	rec = send(h, "POST", path, cookie, url.Values{"name": {"Nails 50mm"}, "quantity": {"10"}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 for update, got %d", rec.Code)
	}

	entries, _ := stock.Ledger(context.Background(), items[0].ID)
	if len(entries) != 3 {
		t.Fatalf("expected receive, receive and adjust entries, got %d", len(entries))
	}
	if last := entries[2]; last.TransactionType != model.TransactionAdjust || last.Quantity != 2 || last.BalanceAfter != 10 {
		t.Errorf("unexpected adjust entry: %+v", last)
	}
}

func TestItemDetailShowsLedger(t *testing.T) {
	h, stock := newTestSite(t)
	item := registerItem(t, stock, "Cement", 10, 0)
	cookie := loginCookie(t, h, "manager")

	rec := send(h, "GET", itemPath(item.ID), cookie, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Cement") || !strings.Contains(body, "Receive") {
		t.Error("expected item name and opening receive entry on page")
	}

	rec = send(h, "POST", itemPath(item.ID)+"/delete", cookie, nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303 for delete, got %d", rec.Code)
	}

	rec = send(h, "GET", itemPath(item.ID), cookie, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "was deleted") {
		t.Errorf("expected deleted item history page, got %d", rec.Code)
	}

	rec = send(h, "GET", "/items/999", cookie, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown item, got %d", rec.Code)
	}
}

func TestDashboardListsLowStock(t *testing.T) {
	h, stock := newTestSite(t)
	registerItem(t, stock, "Sand", 2, 5)
	registerItem(t, stock, "Gravel", 50, 5)

	rec := send(h, "GET", "/", loginCookie(t, h, "clerk"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Sand") {
		t.Error("expected Sand below minimum on dashboard")
	}
	if strings.Contains(body, "Gravel") {
		t.Error("Gravel is above minimum and should not be listed")
	}
}

func TestExports(t *testing.T) {
	h, stock := newTestSite(t)
	item := registerItem(t, stock, "Cement", 10, 0)
	cookie := loginCookie(t, h, "clerk")

	for _, path := range []string{"/issuances/export", itemPath(item.ID) + "/export"} {
		rec := send(h, "GET", path, cookie, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); ct != report.ContentType {
			t.Errorf("GET %s: unexpected content type %q", path, ct)
		}
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	h, _ := newTestSite(t)
	cookie := loginCookie(t, h, "clerk")

	rec := send(h, "POST", "/logout", cookie, nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}

	rec = send(h, "GET", "/", cookie, nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Errorf("expected revoked token to redirect to login, got %d", rec.Code)
	}
}

func TestChangePasswordPage(t *testing.T) {
	h, _ := newTestSite(t)
	cookie := loginCookie(t, h, "clerk")

	rec := send(h, "POST", "/settings", cookie, url.Values{"current_password": {"nope-nope"}, "new_password": {"another-password"}})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong current password, got %d", rec.Code)
	}

	rec = send(h, "POST", "/settings", cookie, url.Values{"current_password": {"password123"}, "new_password": {"short"}})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for short password, got %d", rec.Code)
	}

	rec = send(h, "POST", "/settings", cookie, url.Values{"current_password": {"password123"}, "new_password": {"another-password"}})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Password updated.") {
		t.Fatalf("expected password update, got %d", rec.Code)
	}

	rec = send(h, "POST", "/login", nil, url.Values{"username": {"clerk"}, "password": {"another-password"}})
	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected login with new password, got %d", rec.Code)
	}
}
