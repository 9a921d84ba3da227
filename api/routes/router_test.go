package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packfinderz-inventory/internal/registrar"
	"github.com/angelmondragon/packfinderz-inventory/internal/transfers"
	"github.com/angelmondragon/packfinderz-inventory/internal/units"
	"github.com/angelmondragon/packfinderz-inventory/internal/units/unitstest"
	"github.com/angelmondragon/packfinderz-inventory/pkg/auth"
	"github.com/angelmondragon/packfinderz-inventory/pkg/config"
	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	"github.com/angelmondragon/packfinderz-inventory/pkg/enums"
	"github.com/angelmondragon/packfinderz-inventory/pkg/logger"
)

const testEngineKey = "engine-key"

type stubPinger struct {
	err error
}

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type fakeCounters struct {
	mu     sync.Mutex
	data   map[string]string
	counts map[string]int64
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{data: map[string]string{}, counts: map[string]int64{}}
}

func (f *fakeCounters) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeCounters) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeCounters) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("idem:%s:%s", scope, id)
}

func (f *fakeCounters) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], nil
}

type stubResolver struct {
	result *units.LookupResult
}

func (s stubResolver) Lookup(ctx context.Context, code string, storeID *uuid.UUID) (*units.LookupResult, error) {
	if s.result == nil {
		return &units.LookupResult{Found: false}, nil
	}
	return s.result, nil
}

type countingRegistrar struct {
	mu    sync.Mutex
	calls int
}

func (c *countingRegistrar) Register(ctx context.Context, input units.RegisterInput) (*units.Unit, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return &units.Unit{ID: uuid.New(), TierID: input.TierID}, nil
}

func (c *countingRegistrar) RegisterBulk(ctx context.Context, inputs []units.RegisterInput) (*registrar.BulkResult, error) {
	return &registrar.BulkResult{}, nil
}

type stubTransferService struct {
	created *models.TransferPackage
}

func (s stubTransferService) CreateTransfer(ctx context.Context, input transfers.CreateTransferInput) (*models.TransferPackage, error) {
	return s.created, nil
}

func (stubTransferService) LookupTransfer(ctx context.Context, code string) (*models.TransferPackage, error) {
	return nil, nil
}

func (stubTransferService) ReceiveTransfer(ctx context.Context, input transfers.ReceiveTransferInput) (bool, error) {
	return true, nil
}

func (stubTransferService) CancelTransfer(ctx context.Context, input transfers.CancelTransferInput) (*models.TransferPackage, error) {
	return nil, errors.New("not implemented")
}

func (stubTransferService) ListIncoming(ctx context.Context, destinationID uuid.UUID) ([]models.TransferPackage, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:    config.AppConfig{Env: "test", Port: "0"},
		JWT:    config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60},
		Engine: config.EngineConfig{APIKey: testEngineKey},
	}
}

func testDeps(cfg *config.Config) Deps {
	return Deps{
		Config:    cfg,
		Logger:    logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard}),
		DB:        stubPinger{},
		Counters:  newFakeCounters(),
		Engine:    &unitstest.FakeOps{},
		Lookup:    stubResolver{},
		Registrar: &countingRegistrar{},
		Transfers: stubTransferService{},
	}
}

func buildToken(t *testing.T, cfg *config.Config, scopes ...auth.Scope) string {
	t.Helper()
	locationID := uuid.New()
	token, err := auth.MintOperatorToken(cfg.JWT, time.Now(), auth.OperatorTokenPayload{
		OperatorID: uuid.New(),
		LocationID: &locationID,
		Scopes:     scopes,
		JTI:        uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func serve(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestHealthLive(t *testing.T) {
	router := NewRouter(testDeps(testConfig()))

	resp := serve(router, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-PackFinderz-Env"); got != "test" {
		t.Fatalf("expected env header, got %q", got)
	}
}

func TestHealthReadyReportsDatabaseFailure(t *testing.T) {
	cfg := testConfig()
	deps := testDeps(cfg)
	if resp := serve(NewRouter(deps), httptest.NewRequest(http.MethodGet, "/health/ready", nil)); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	deps.DB = stubPinger{err: errors.New("connection refused")}
	resp := serve(NewRouter(deps), httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestActionsEndpointRequiresAPIKey(t *testing.T) {
	router := NewRouter(testDeps(testConfig()))

	req := httptest.NewRequest(http.MethodPost, units.ActionsPath, strings.NewReader(`{"action":"lookup","code":"abc"}`))
	resp := serve(router, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestActionsEndpointServesRemoteClient(t *testing.T) {
	cfg := testConfig()
	deps := testDeps(cfg)
	unitID := uuid.New()
	fake := &unitstest.FakeOps{
		LookupFn: func(ctx context.Context, input units.LookupInput) (*units.LookupResult, error) {
			return &units.LookupResult{Found: true, Unit: &units.Unit{ID: unitID, QRCode: input.Code}}, nil
		},
	}
	deps.Engine = fake
	server := httptest.NewServer(NewRouter(deps))
	defer server.Close()

	client, err := units.NewClient(server.URL, testEngineKey)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	result, err := client.Lookup(context.Background(), units.LookupInput{Code: "PKG-1"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !result.Found || result.Unit == nil || result.Unit.ID != unitID {
		t.Fatalf("unexpected lookup result %+v", result)
	}
	if result.Source != units.LookupSourceValidated {
		t.Fatalf("expected validated source got %q", result.Source)
	}
	if len(fake.LookupCalls) != 1 || fake.LookupCalls[0].Code != "PKG-1" {
		t.Fatalf("unexpected engine calls %+v", fake.LookupCalls)
	}
}

func TestActionsEndpointDisabledWithoutEngine(t *testing.T) {
	deps := testDeps(testConfig())
	deps.Engine = nil
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodPost, units.ActionsPath, strings.NewReader(`{"action":"lookup","code":"abc"}`))
	req.Header.Set(units.APIKeyHeader, testEngineKey)
	resp := serve(router, req)
	if resp.Code != http.StatusNotFound && resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected route to be absent, got %d", resp.Code)
	}
}

func TestInventoryGroupRejectsMissingJWT(t *testing.T) {
	router := NewRouter(testDeps(testConfig()))

	resp := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/inventory/units/PKG-1", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestLookupUnitFoundAndMissing(t *testing.T) {
	cfg := testConfig()
	deps := testDeps(cfg)
	token := buildToken(t, cfg, auth.ScopeUnitsRead)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory/units/PKG-404", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := serve(NewRouter(deps), req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
	var missing struct {
		Data units.LookupResult `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &missing); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if missing.Data.Found {
		t.Fatalf("expected found=false")
	}

	deps.Lookup = stubResolver{result: &units.LookupResult{Found: true, Source: units.LookupSourceDirect, Unit: &units.Unit{QRCode: "PKG-1"}}}
	req = httptest.NewRequest(http.MethodGet, "/api/v1/inventory/units/PKG-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = serve(NewRouter(deps), req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body %s", resp.Code, resp.Body.String())
	}
}

func TestTransfersRequireTransferScope(t *testing.T) {
	cfg := testConfig()
	deps := testDeps(cfg)
	deps.Transfers = stubTransferService{created: &models.TransferPackage{
		ID:             uuid.New(),
		TransferNumber: "TRF-20261015-0001",
		Status:         enums.TransferStatusInTransit,
		Items:          []models.TransferItem{{LineNumber: 1, ProductID: uuid.New(), Quantity: decimal.NewFromInt(4)}},
	}}
	router := NewRouter(deps)
	body := fmt.Sprintf(`{"source_location_id":%q,"destination_location_id":%q,"items":[{"product_id":%q,"quantity":"4"}]}`,
		uuid.NewString(), uuid.NewString(), uuid.NewString())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/transfers", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, auth.ScopeUnitsRead))
	req.Header.Set("Idempotency-Key", "t-1")
	if resp := serve(router, req); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/inventory/transfers", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, auth.ScopeTransfersWrite))
	req.Header.Set("Idempotency-Key", "t-2")
	resp := serve(router, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "TRF-20261015-0001") {
		t.Fatalf("expected transfer number in body %s", resp.Body.String())
	}
}

func TestRegisterUnitReplaysIdempotentRequest(t *testing.T) {
	cfg := testConfig()
	deps := testDeps(cfg)
	reg := &countingRegistrar{}
	deps.Registrar = reg
	router := NewRouter(deps)
	token := buildToken(t, cfg, auth.ScopeUnitsWrite)
	body := fmt.Sprintf(`{"product_id":%q,"tier_id":"case","quantity":"24"}`, uuid.NewString())

	var first string
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/units", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "reg-1")
		resp := serve(router, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d body %s", i, resp.Code, resp.Body.String())
		}
		if i == 0 {
			first = resp.Body.String()
		} else if resp.Body.String() != first {
			t.Fatalf("expected replayed body")
		}
	}
	if reg.calls != 1 {
		t.Fatalf("expected one registration, got %d", reg.calls)
	}
}

func TestRegisterUnitRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(testDeps(cfg))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/inventory/units", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, auth.ScopeUnitsWrite))
	if resp := serve(router, req); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
