package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/cellar-backend/internal/access"
	"github.com/angelmondragon/cellar-backend/internal/audit"
	"github.com/angelmondragon/cellar-backend/internal/auth"
	"github.com/angelmondragon/cellar-backend/internal/catalog"
	"github.com/angelmondragon/cellar-backend/internal/ledger"
	"github.com/angelmondragon/cellar-backend/internal/reports"
	"github.com/angelmondragon/cellar-backend/internal/users"
	pkgAuth "github.com/angelmondragon/cellar-backend/pkg/auth"
	"github.com/angelmondragon/cellar-backend/pkg/auth/session"
	"github.com/angelmondragon/cellar-backend/pkg/config"
	"github.com/angelmondragon/cellar-backend/pkg/enums"
	"github.com/angelmondragon/cellar-backend/pkg/logger"
	"github.com/angelmondragon/cellar-backend/pkg/metrics"
	"github.com/angelmondragon/cellar-backend/pkg/pagination"
	"github.com/shopspring/decimal"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

// The stubs embed the service interfaces; routes under test only reach the overridden methods.
type stubLedger struct{ ledger.Service }

func (stubLedger) RegisterSale(ctx context.Context, actor access.Actor, input ledger.SaleInput) (*ledger.SaleConfirmation, error) {
	return &ledger.SaleConfirmation{SaleID: 1, ItemID: input.ItemID, Quantity: input.Quantity}, nil
}

func (stubLedger) ListSales(ctx context.Context, actor access.Actor, params ledger.SaleListParams) (pagination.Page[ledger.SaleView], error) {
	return pagination.Page[ledger.SaleView]{Items: []ledger.SaleView{}}, nil
}

type stubCatalog struct{ catalog.Service }

func (stubCatalog) Dashboard(ctx context.Context, actor access.Actor) (*catalog.Dashboard, error) {
	return &catalog.Dashboard{}, nil
}

func (stubCatalog) ListRegions(ctx context.Context, actor access.Actor) ([]catalog.RegionView, error) {
	return []catalog.RegionView{{ID: 1, Country: "Italy", Region: "Piedmont"}}, nil
}

type stubReports struct{ reports.Service }

func (stubReports) Revenue(ctx context.Context, actor access.Actor, params reports.RevenueParams) (*reports.RevenueReport, error) {
	return &reports.RevenueReport{Days: 30, Revenue: decimal.Zero}, nil
}

type stubAudit struct{ audit.Service }

type stubUsers struct{ users.Service }

func (stubUsers) List(ctx context.Context, actor access.Actor) ([]users.UserDTO, error) {
	return []users.UserDTO{}, nil
}

type stubAuth struct{ auth.Service }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	reg := prometheus.NewRegistry()
	metrics.NewLedgerMetrics(reg).Observe("sale", metrics.OutcomeSuccess, time.Millisecond)
	return NewRouter(Deps{
		Config:   cfg,
		Logger:   logg,
		DB:       stubPinger{},
		Sessions: stubSessionChecker{},
		Metrics:  reg,
		Auth:     stubAuth{},
		Ledger:   stubLedger{},
		Catalog:  stubCatalog{},
		Reports:  stubReports{},
		Audit:    stubAudit{},
		Users:    stubUsers{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   uuid.New(),
		Username: "tester",
		Role:     role,
		JTI:      session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func serve(t *testing.T, router http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestHealthAndMetricsArePublic(t *testing.T) {
	router := newTestRouter(testConfig())
	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		if resp := serve(t, router, http.MethodGet, path, "", ""); resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
	resp := serve(t, router, http.MethodGet, "/metrics", "", "")
	if !strings.Contains(resp.Body.String(), "cellar_ledger_operations_total") {
		t.Fatal("expected ledger metrics in exposition")
	}
}

func TestSalesRequireAuthentication(t *testing.T) {
	router := newTestRouter(testConfig())
	resp := serve(t, router, http.MethodPost, "/api/v1/sales", `{"item_id":1,"quantity":1}`, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestStaffCanSellButNotListSales(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	staff := buildToken(t, cfg, enums.RoleStaff)

	if resp := serve(t, router, http.MethodPost, "/api/v1/sales", `{"item_id":1,"quantity":1}`, staff); resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202 for staff sale got %d (%s)", resp.Code, resp.Body.String())
	}
	if resp := serve(t, router, http.MethodGet, "/api/v1/sales", "", staff); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff listing got %d", resp.Code)
	}
	if resp := serve(t, router, http.MethodGet, "/api/v1/sales", "", buildToken(t, cfg, enums.RoleManager)); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for manager listing got %d", resp.Code)
	}
}

func TestRefundAndRestockAreManagerRoutes(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	staff := buildToken(t, cfg, enums.RoleStaff)

	if resp := serve(t, router, http.MethodPost, "/api/v1/sales/1/refund", `{"refund_qty":1}`, staff); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff refund got %d", resp.Code)
	}
	if resp := serve(t, router, http.MethodPost, "/api/v1/items/1/restock", `{"quantity":1}`, staff); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff restock got %d", resp.Code)
	}
}

func TestFinanceReportsAreAdminOnly(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	cases := []struct {
		role enums.Role
		want int
	}{
		{enums.RoleStaff, http.StatusForbidden},
		{enums.RoleManager, http.StatusForbidden},
		{enums.RoleAdmin, http.StatusOK},
	}
	for _, tc := range cases {
		resp := serve(t, router, http.MethodGet, "/api/v1/reports/revenue", "", buildToken(t, cfg, tc.role))
		if resp.Code != tc.want {
			t.Fatalf("%s: expected %d got %d", tc.role, tc.want, resp.Code)
		}
	}
}

func TestCatalogRoutes(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	staff := buildToken(t, cfg, enums.RoleStaff)

	if resp := serve(t, router, http.MethodGet, "/api/v1/catalog/dashboard", "", staff); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for staff dashboard got %d", resp.Code)
	}
	if resp := serve(t, router, http.MethodGet, "/api/v1/catalog/regions", "", staff); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff regions got %d", resp.Code)
	}
	resp := serve(t, router, http.MethodGet, "/api/v1/catalog/regions", "", buildToken(t, cfg, enums.RoleManager))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), "Piedmont") {
		t.Fatalf("expected regions for manager, got %d %s", resp.Code, resp.Body.String())
	}
}

func TestUserAdministrationIsAdminOnly(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	if resp := serve(t, router, http.MethodGet, "/api/v1/users", "", buildToken(t, cfg, enums.RoleManager)); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for manager got %d", resp.Code)
	}
	if resp := serve(t, router, http.MethodGet, "/api/v1/users", "", buildToken(t, cfg, enums.RoleAdmin)); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d", resp.Code)
	}
}

func TestLogoutRequiresToken(t *testing.T) {
	router := newTestRouter(testConfig())
	if resp := serve(t, router, http.MethodPost, "/api/v1/auth/logout", "", ""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
