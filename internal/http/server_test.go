package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kassa/internal/charts"
	applog "kassa/internal/log"
	"kassa/internal/services"
	"kassa/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	reporter := services.NewReporter(store, time.UTC, 5000)
	registry := services.NewCategoryRegistry(store)
	ledger := services.NewExpenseLedger(store, reporter, nil, time.UTC, true)

	srv := NewServer(":0", applog.New(applog.ComponentHTTP, slog.LevelError), Deps{
		Registry: registry,
		Ledger:   ledger,
		Reporter: reporter,
		Charts:   charts.NewGenerator(),
		Ready:    store.Ping,
	})
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path string, form url.Values) (int, string) {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(data)
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	if status, body := do(t, ts, http.MethodGet, "/healthz", nil); status != http.StatusOK || body != "ok" {
		t.Errorf("/healthz = %d %q, want 200 ok", status, body)
	}
	if status, body := do(t, ts, http.MethodGet, "/readyz", nil); status != http.StatusOK || body != "ready" {
		t.Errorf("/readyz = %d %q, want 200 ready", status, body)
	}
}

func TestCategoryLifecycle(t *testing.T) {
	ts := newTestServer(t)

	status, body := do(t, ts, http.MethodPost, "/categories",
		url.Values{"user_id": {"1"}, "category": {"Transport 500"}})
	if status != http.StatusCreated {
		t.Fatalf("create = %d %q, want 201", status, body)
	}

	status, body = do(t, ts, http.MethodPost, "/categories",
		url.Values{"user_id": {"1"}, "category": {"transport"}})
	if status != http.StatusConflict {
		t.Errorf("duplicate = %d %q, want 409", status, body)
	}
	if body != "Category with this name already exists" {
		t.Errorf("duplicate body = %q", body)
	}

	status, body = do(t, ts, http.MethodGet, "/categories?user_id=1", nil)
	if status != http.StatusOK {
		t.Fatalf("list = %d, want 200", status)
	}
	if !strings.Contains(body, "* Transport (Monthly Limit: 500)") {
		t.Errorf("list body = %q, want transport with limit", body)
	}

	status, body = do(t, ts, http.MethodDelete, "/categories/transport?user_id=1", nil)
	if status != http.StatusOK {
		t.Errorf("delete = %d %q, want 200", status, body)
	}

	status, _ = do(t, ts, http.MethodDelete, "/categories/transport?user_id=1", nil)
	if status != http.StatusNotFound {
		t.Errorf("delete again = %d, want 404", status)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	ts := newTestServer(t)

	status, body := do(t, ts, http.MethodPost, "/expenses",
		url.Values{"user_id": {"1"}, "text": {"taxi -100\nrent -20000 M"}})
	if status != http.StatusCreated {
		t.Fatalf("add = %d %q, want 201", status, body)
	}

	status, body = do(t, ts, http.MethodGet, "/expenses?user_id=1&window=last", nil)
	if status != http.StatusOK {
		t.Fatalf("last = %d, want 200", status)
	}
	if !strings.HasPrefix(body, "Last 10 added expenses:") {
		t.Errorf("last body = %q, want heading", body)
	}
	if !strings.Contains(body, "Taxi | -100") || !strings.Contains(body, "Monthly | Rent | -20000") {
		t.Errorf("last body missing rows: %q", body)
	}

	status, body = do(t, ts, http.MethodGet, "/expenses?user_id=1&window=month", nil)
	if status != http.StatusOK {
		t.Fatalf("month = %d, want 200", status)
	}
	if !strings.HasPrefix(body, "This month's expenses: ") {
		t.Errorf("month body = %q, want report prefix", body)
	}

	status, body = do(t, ts, http.MethodDelete, "/expenses/last?user_id=1", nil)
	if status != http.StatusOK || body != "Last expense was successfully deleted" {
		t.Errorf("delete last = %d %q", status, body)
	}
}

func TestAddExpenseBadInput(t *testing.T) {
	ts := newTestServer(t)

	status, body := do(t, ts, http.MethodPost, "/expenses",
		url.Values{"user_id": {"1"}, "text": {"not parseable"}})
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("bad input = %d, want 422", status)
	}
	if !strings.Contains(body, "Could not understand") {
		t.Errorf("body = %q, want parse guidance", body)
	}
}

func TestMissingUserID(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/expenses", "/categories", "/budget"} {
		if status, _ := do(t, ts, http.MethodGet, path, nil); status != http.StatusBadRequest {
			t.Errorf("GET %s without user_id = %d, want 400", path, status)
		}
	}
}

func TestReportCacheInvalidation(t *testing.T) {
	ts := newTestServer(t)

	do(t, ts, http.MethodPost, "/expenses", url.Values{"user_id": {"1"}, "text": {"taxi -100"}})

	// Prime the cache.
	_, before := do(t, ts, http.MethodGet, "/expenses?user_id=1&window=last", nil)
	if !strings.Contains(before, "Taxi | -100") {
		t.Fatalf("before = %q", before)
	}

	do(t, ts, http.MethodPost, "/expenses", url.Values{"user_id": {"1"}, "text": {"food -55"}})

	_, after := do(t, ts, http.MethodGet, "/expenses?user_id=1&window=last", nil)
	if !strings.Contains(after, "Food | -55") {
		t.Errorf("cache not invalidated after mutation: %q", after)
	}
}

func TestBudgetEndpoints(t *testing.T) {
	ts := newTestServer(t)

	status, body := do(t, ts, http.MethodGet, "/budget?user_id=1", nil)
	if status != http.StatusOK || body != "Monthly budget: 5000" {
		t.Errorf("default budget = %d %q", status, body)
	}

	status, body = do(t, ts, http.MethodPost, "/budget",
		url.Values{"user_id": {"1"}, "amount": {"8000"}})
	if status != http.StatusOK || body != "Budget was set to 8000" {
		t.Errorf("set budget = %d %q", status, body)
	}

	if _, body := do(t, ts, http.MethodGet, "/budget?user_id=1", nil); body != "Monthly budget: 8000" {
		t.Errorf("budget after set = %q", body)
	}

	status, _ = do(t, ts, http.MethodPost, "/budget",
		url.Values{"user_id": {"1"}, "amount": {"-1"}})
	if status != http.StatusBadRequest {
		t.Errorf("negative budget = %d, want 400", status)
	}
}

func TestExpensesChart(t *testing.T) {
	ts := newTestServer(t)

	status, body := do(t, ts, http.MethodGet, "/expenses/chart?user_id=1", nil)
	if status != http.StatusOK || body != "There are no expenses yet" {
		t.Errorf("empty chart = %d %q", status, body)
	}

	do(t, ts, http.MethodPost, "/expenses", url.Values{"user_id": {"1"}, "text": {"taxi -100"}})

	resp, err := ts.Client().Get(ts.URL + "/expenses/chart?user_id=1&window=month")
	if err != nil {
		t.Fatalf("chart request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chart = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}

	status, _ = do(t, ts, http.MethodGet, "/expenses/chart?user_id=1&window=last", nil)
	if status != http.StatusBadRequest {
		t.Errorf("chart with last window = %d, want 400", status)
	}
}
