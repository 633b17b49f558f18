package datasource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"riskmonitor/internal/models"
)

// ============================================================
// Snapshot Collector Tests
// ============================================================

// sourceServer эмулирует все три источника на одном адресе
func sourceServer(t *testing.T, broken map[string]bool) *httptest.Server {
	t.Helper()

	respond := func(w http.ResponseWriter, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if broken[r.URL.Path] {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		switch r.URL.Path {
		case "/health":
			respond(w, `{"status":"ok"}`)
		case "/v1/pools/pool-1":
			respond(w, `{
				"chain": "ethereum",
				"protocol": "uniswap-v3",
				"token_a": "WETH",
				"token_b": "USDC",
				"tvl_usd": "5000000",
				"tvl_24h_ago_usd": "6000000",
				"volume_24h_usd": "750000",
				"depth_usd": "400000",
				"top_holder_share": 0.35
			}`)
		case "/v1/positions/pos-1":
			respond(w, `{
				"pool_id": "pool-1",
				"protocol": "uniswap-v3",
				"chain": "ethereum",
				"amount_usd": "25000",
				"entry_price_ratio": 2000,
				"token_a": "WETH",
				"token_b": "USDC"
			}`)
		case "/v1/prices/WETH":
			respond(w, `{"price": 2400, "source_count": 3, "deviation_percent": 0.4, "timestamp": 1756000000000}`)
		case "/v1/prices/USDC":
			respond(w, `{"price": 1, "source_count": 4, "deviation_percent": 0.1, "timestamp": 1756000000000}`)
		case "/v1/prices/WETH/USDC/history":
			respond(w, `[
				{"timestamp": 1755800000000, "price": 2300},
				{"timestamp": 1755886400000, "price": 2350},
				{"timestamp": 1755972800000, "price": 2400}
			]`)
		case "/v1/protocols/uniswap-v3":
			respond(w, `{
				"name": "uniswap-v3",
				"audit_score": 0.9,
				"exploit_count": 0,
				"age_days": 1200,
				"governance_risk": 0.2,
				"admin_key_multisig": true
			}`)
		case "/v1/pools/pool-1/mev":
			respond(w, `{"sandwich_rate": 0.015, "frontrun_rate": 0.02, "oracle_deviation": 0.01}`)
		case "/v1/pools/pool-1/bridges":
			respond(w, `[
				{"name": "wormhole", "chain": "solana", "risk_score": 0.4, "liquidity_share": 0.2, "governance_lag": 0.1}
			]`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func newTestCollector(baseURL string) *Collector {
	client := NewHTTPClient(DefaultHTTPClientConfig())
	cfg := DefaultCollectorConfig()
	cfg.MaxRetries = 1
	cfg.RetryDelay = time.Millisecond

	return NewCollector(
		NewIndexerClient(baseURL, client),
		NewPriceFeedClient(baseURL, client),
		NewProtocolClient(baseURL, client),
		cfg,
		zap.NewNop(),
	)
}

func TestCollectPoolSnapshot(t *testing.T) {
	server := sourceServer(t, nil)
	collector := newTestCollector(server.URL)

	snap, err := collector.Collect(context.Background(), models.EntityPool, "pool-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.EntityType != models.EntityPool || snap.EntityID != "pool-1" {
		t.Errorf("unexpected identity: %s/%s", snap.EntityType, snap.EntityID)
	}
	if snap.Chain != "ethereum" {
		t.Errorf("expected chain ethereum, got %s", snap.Chain)
	}
	if snap.TVLUSD.String() != "5000000" {
		t.Errorf("expected TVL 5000000, got %s", snap.TVLUSD)
	}
	if got := snap.TVLDropRatio(); got < 0.166 || got > 0.167 {
		t.Errorf("expected TVL drop ratio ~0.1667, got %v", got)
	}
	if snap.TopHolderShare != 0.35 {
		t.Errorf("expected top holder share 0.35, got %v", snap.TopHolderShare)
	}
	if len(snap.PriceHistory) != 3 {
		t.Fatalf("expected 3 price points, got %d", len(snap.PriceHistory))
	}
	if snap.PriceHistory[2].Price != 2400 {
		t.Errorf("expected latest price 2400, got %v", snap.PriceHistory[2].Price)
	}
	if snap.CurrentPriceRatio != 2400 {
		t.Errorf("expected price ratio 2400, got %v", snap.CurrentPriceRatio)
	}
	if snap.Protocol == nil || snap.Protocol.AuditScore != 0.9 {
		t.Error("expected protocol section with audit score 0.9")
	}
	if snap.MEV == nil || snap.MEV.SandwichRate != 0.015 {
		t.Error("expected mev section with sandwich rate 0.015")
	}
	if len(snap.Bridges) != 1 || snap.Bridges[0].Name != "wormhole" {
		t.Error("expected one bridge named wormhole")
	}
	if snap.ObservedAt.IsZero() {
		t.Error("snapshot must carry an observation time")
	}
}

func TestCollectPositionSnapshot(t *testing.T) {
	server := sourceServer(t, nil)
	collector := newTestCollector(server.URL)

	snap, err := collector.Collect(context.Background(), models.EntityPosition, "pos-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snap.EntityType != models.EntityPosition || snap.EntityID != "pos-1" {
		t.Errorf("unexpected identity: %s/%s", snap.EntityType, snap.EntityID)
	}
	if snap.PositionValueUSD.String() != "25000" {
		t.Errorf("expected position value 25000, got %s", snap.PositionValueUSD)
	}
	if snap.EntryPriceRatio != 2000 {
		t.Errorf("expected entry ratio 2000, got %v", snap.EntryPriceRatio)
	}
	if snap.CurrentPriceRatio != 2400 {
		t.Errorf("expected current ratio 2400, got %v", snap.CurrentPriceRatio)
	}
	// Состояние пула дотянуто по pool_id позиции
	if snap.TVLUSD.String() != "5000000" {
		t.Errorf("expected pool TVL on position snapshot, got %s", snap.TVLUSD)
	}
	if snap.Protocol == nil {
		t.Error("expected protocol section on position snapshot")
	}
}

func TestCollectToleratesOptionalFailures(t *testing.T) {
	server := sourceServer(t, map[string]bool{
		"/v1/pools/pool-1/mev":     true,
		"/v1/pools/pool-1/bridges": true,
		"/v1/protocols/uniswap-v3": true,
	})
	collector := newTestCollector(server.URL)

	snap, err := collector.Collect(context.Background(), models.EntityPool, "pool-1")
	if err != nil {
		t.Fatalf("optional section failures must not fail collection: %v", err)
	}

	if snap.MEV != nil {
		t.Error("mev section must be nil when the source fails")
	}
	if snap.Bridges != nil {
		t.Error("bridges section must be nil when the source fails")
	}
	if snap.Protocol != nil {
		t.Error("protocol section must be nil when the source fails")
	}
	// Обязательная часть на месте
	if snap.TVLUSD.IsZero() {
		t.Error("pool liquidity state must survive optional failures")
	}
}

func TestCollectRequiredStateFailure(t *testing.T) {
	server := sourceServer(t, map[string]bool{"/v1/pools/pool-1": true})
	collector := newTestCollector(server.URL)

	if _, err := collector.Collect(context.Background(), models.EntityPool, "pool-1"); err == nil {
		t.Fatal("expected error when pool state is unavailable")
	}
}

func TestCollectUnsupportedEntityType(t *testing.T) {
	server := sourceServer(t, nil)
	collector := newTestCollector(server.URL)

	if _, err := collector.Collect(context.Background(), models.EntityPortfolio, "pf-1"); err == nil {
		t.Fatal("expected error for unsupported entity type")
	}
}

func TestSourceHealthChecks(t *testing.T) {
	server := sourceServer(t, nil)
	collector := newTestCollector(server.URL)

	checkers := collector.Checkers()
	if len(checkers) != 3 {
		t.Fatalf("expected 3 health checkers, got %d", len(checkers))
	}
	for _, checker := range checkers {
		if err := checker.Healthy(context.Background()); err != nil {
			t.Errorf("%s: unexpected health error: %v", checker.Name(), err)
		}
	}

	down := sourceServer(t, map[string]bool{"/health": true})
	bad := NewIndexerClient(down.URL, NewHTTPClient(DefaultHTTPClientConfig()))
	if err := bad.Healthy(context.Background()); err == nil {
		t.Error("expected health error from a failing source")
	}
}
