package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vaultledger/server/internal/auth"
	"github.com/vaultledger/server/internal/automation"
	"github.com/vaultledger/server/internal/ledger"
	"github.com/vaultledger/server/internal/notifier"
	"github.com/vaultledger/server/internal/projection"
	"github.com/vaultledger/server/internal/registry"
	"github.com/vaultledger/server/internal/render"
	"github.com/vaultledger/server/internal/store/memstore"
	"github.com/vaultledger/server/internal/token"
	"github.com/vaultledger/server/pkg/models"
)

type testServer struct {
	srv *httptest.Server
	mem *memstore.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mem := memstore.New()
	start := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	now := func() time.Time {
		start = start.Add(time.Second)
		return start
	}

	proj := projection.New(mem.Users())
	auto := automation.New(mem.Clients(), mem.Invoices(), proj, now)
	led := ledger.New(ledger.Options{
		Invoices:   mem.Invoices(),
		Settings:   mem.Settings(),
		Projection: proj,
		Automation: auto,
		Renderer:   render.NewPDF(),
		Queue:      notifier.Log{},
		Now:        now,
	})
	reg := registry.New(registry.Options{
		Clients:  mem.Clients(),
		Users:    mem.Users(),
		Invoices: mem.Invoices(),
		Settings: mem.Settings(),
		Ledger:   led,
		Queue:    notifier.Log{},
		Now:      now,
	})
	authSvc := auth.NewService(mem.Users(), mem.Clients())
	tokens := token.NewService("test-signing-key")

	h := New(reg, led, authSvc, tokens, proj, mem.Invoices(), mem.Settings())
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)

	// Seeded admin account.
	hash, err := auth.HashPassword("admin-pass")
	if err != nil {
		t.Fatal(err)
	}
	_, err = mem.Users().Insert(context.Background(), &models.User{
		Name: "Admin", Email: "admin@studio.io", Password: hash,
		Role: models.RoleAdmin, CreatedAt: start,
	})
	if err != nil {
		t.Fatal(err)
	}

	return &testServer{srv: srv, mem: mem}
}

func (ts *testServer) do(t *testing.T, method, path, bearer string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func (ts *testServer) login(t *testing.T, email, password, role string) string {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": email, "password": password, "role": role,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	var out loginResponse
	decode(t, resp, &out)
	return out.Token
}

func TestLoginAndAuthGate(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/dashboard/stats", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()

	resp = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "admin@studio.io", "password": "wrong", "role": "admin",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad password: status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()

	tok := ts.login(t, "admin@studio.io", "admin-pass", "admin")
	resp = ts.do(t, http.MethodGet, "/api/dashboard/stats", tok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("with token: status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestClientRoleCannotReachAdminRoutes(t *testing.T) {
	ts := newTestServer(t)
	adminTok := ts.login(t, "admin@studio.io", "admin-pass", "admin")

	resp := ts.do(t, http.MethodPost, "/api/clients", adminTok, map[string]string{
		"name": "Acme", "email": "owner@acme.io", "portalEmail": "portal@acme.io", "password": "client-pass",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create client: status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	clientTok := ts.login(t, "portal@acme.io", "client-pass", "client")
	resp = ts.do(t, http.MethodGet, "/api/clients", clientTok, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("client on admin route: status = %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestInvoiceLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	adminTok := ts.login(t, "admin@studio.io", "admin-pass", "admin")

	// Onboard a client so the portal user exists for summary fanout.
	resp := ts.do(t, http.MethodPost, "/api/clients", adminTok, map[string]string{
		"name": "Acme", "email": "owner@acme.io", "portalEmail": "portal@acme.io", "password": "client-pass",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create client: status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = ts.do(t, http.MethodPost, "/api/invoices", adminTok, map[string]any{
		"projectTitle": "Website",
		"clientEmail":  "portal@acme.io",
		"clientName":   "Acme",
		"currency":     "USD",
		"items":        []map[string]any{{"name": "Design", "qty": 1, "price": 500}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create invoice: status = %d", resp.StatusCode)
	}
	var created struct {
		Invoice  models.Invoice `json:"invoice"`
		Warnings []string       `json:"warnings"`
	}
	decode(t, resp, &created)
	if created.Invoice.AdminEmail != "admin@studio.io" {
		t.Errorf("issuer should default to the caller: %q", created.Invoice.AdminEmail)
	}
	if len(created.Warnings) != 0 {
		t.Errorf("warnings: %v", created.Warnings)
	}

	// Client sees it in their scoped listing.
	clientTok := ts.login(t, "portal@acme.io", "client-pass", "client")
	resp = ts.do(t, http.MethodGet, "/api/invoices", clientTok, nil)
	var listed []models.Invoice
	decode(t, resp, &listed)
	if len(listed) != 1 || listed[0].InvoiceID != created.Invoice.InvoiceID {
		t.Fatalf("client listing: %+v", listed)
	}

	// Client settles it.
	resp = ts.do(t, http.MethodPost, "/api/invoices/"+created.Invoice.InvoiceID+"/pay", clientTok, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pay: status = %d", resp.StatusCode)
	}
	var paid struct {
		Invoice models.Invoice `json:"invoice"`
	}
	decode(t, resp, &paid)
	if paid.Invoice.Status != models.InvoicePaid || paid.Invoice.RemainingDue != 0 {
		t.Errorf("paid invoice: %+v", paid.Invoice)
	}

	// Missing invoices map to 404.
	resp = ts.do(t, http.MethodGet, "/api/invoices/INV-999999", adminTok, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown invoice: status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()

	// Validation failures map to 400.
	resp = ts.do(t, http.MethodPost, "/api/invoices", adminTok, map[string]any{"clientEmail": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid create: status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestClientCannotPayOthersInvoice(t *testing.T) {
	ts := newTestServer(t)
	adminTok := ts.login(t, "admin@studio.io", "admin-pass", "admin")

	for _, c := range []map[string]string{
		{"name": "Acme", "email": "owner@acme.io", "portalEmail": "portal@acme.io", "password": "client-pass"},
		{"name": "Beta", "email": "owner@beta.io", "portalEmail": "portal@beta.io", "password": "client-pass"},
	} {
		resp := ts.do(t, http.MethodPost, "/api/clients", adminTok, c)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create client: status = %d", resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp := ts.do(t, http.MethodPost, "/api/invoices", adminTok, map[string]any{
		"clientEmail": "portal@acme.io", "clientName": "Acme",
		"items": []map[string]any{{"name": "Work", "qty": 1, "price": 100}},
	})
	var created struct {
		Invoice models.Invoice `json:"invoice"`
	}
	decode(t, resp, &created)

	betaTok := ts.login(t, "portal@beta.io", "client-pass", "client")
	resp = ts.do(t, http.MethodPost, "/api/invoices/"+created.Invoice.InvoiceID+"/pay", betaTok, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("cross-client pay: status = %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestDownloadInvoicePDF(t *testing.T) {
	ts := newTestServer(t)
	adminTok := ts.login(t, "admin@studio.io", "admin-pass", "admin")

	resp := ts.do(t, http.MethodPost, "/api/invoices", adminTok, map[string]any{
		"clientEmail": "nobody@acme.io", "clientName": "Acme",
		"items": []map[string]any{{"name": "Work", "qty": 1, "price": 100}},
	})
	var created struct {
		Invoice models.Invoice `json:"invoice"`
	}
	decode(t, resp, &created)

	resp = ts.do(t, http.MethodGet, "/api/invoices/"+created.Invoice.InvoiceID+"/pdf", adminTok, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download: status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %q", ct)
	}
	head := make([]byte, 4)
	resp.Body.Read(head)
	if string(head) != "%PDF" {
		t.Errorf("body does not start with %%PDF: %q", head)
	}
}

func TestSettingsRoundtrip(t *testing.T) {
	ts := newTestServer(t)
	adminTok := ts.login(t, "admin@studio.io", "admin-pass", "admin")

	resp := ts.do(t, http.MethodPut, "/api/settings", adminTok, map[string]string{
		"businessName": "VaultLedger Studio",
		"currency":     "USD",
		"paypalLink":   "https://paypal.me/studio",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update settings: status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = ts.do(t, http.MethodGet, "/api/settings", adminTok, nil)
	var cfg models.Settings
	decode(t, resp, &cfg)
	if cfg.BusinessName != "VaultLedger Studio" || cfg.PaypalLink != "https://paypal.me/studio" {
		t.Errorf("settings: %+v", cfg)
	}
}
