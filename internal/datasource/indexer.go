package datasource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
)

// indexer.go - клиент on-chain индексера
//
// Индексер отдает состояние пулов и позиций: TVL, глубину, объем,
// концентрацию держателей. Движки эти данные не запрашивают сами,
// их собирает коллектор.

// PoolState - состояние пула по данным индексера
type PoolState struct {
	Chain          string          `json:"chain"`
	Protocol       string          `json:"protocol"`
	TokenA         string          `json:"token_a"`
	TokenB         string          `json:"token_b"`
	TVLUSD         decimal.Decimal `json:"tvl_usd"`
	TVL24hAgoUSD   decimal.Decimal `json:"tvl_24h_ago_usd"`
	Volume24hUSD   decimal.Decimal `json:"volume_24h_usd"`
	DepthUSD       decimal.Decimal `json:"depth_usd"`
	TopHolderShare float64         `json:"top_holder_share"`
}

// PositionState - состояние позиции по данным индексера
type PositionState struct {
	PoolID          string          `json:"pool_id"`
	Protocol        string          `json:"protocol"`
	Chain           string          `json:"chain"`
	AmountUSD       decimal.Decimal `json:"amount_usd"`
	EntryPriceRatio float64         `json:"entry_price_ratio"`
	TokenA          string          `json:"token_a"`
	TokenB          string          `json:"token_b"`
}

type IndexerClient struct {
	baseURL string
	client  *http.Client
}

func NewIndexerClient(baseURL string, client *http.Client) *IndexerClient {
	return &IndexerClient{baseURL: baseURL, client: client}
}

// GetPoolState возвращает состояние пула
func (c *IndexerClient) GetPoolState(ctx context.Context, poolID string) (*PoolState, error) {
	var state PoolState
	endpoint := fmt.Sprintf("%s/v1/pools/%s", c.baseURL, url.PathEscape(poolID))
	if err := getJSON(ctx, c.client, endpoint, &state); err != nil {
		return nil, fmt.Errorf("indexer pool state: %w", err)
	}
	return &state, nil
}

// GetPositionState возвращает состояние позиции
func (c *IndexerClient) GetPositionState(ctx context.Context, positionID string) (*PositionState, error) {
	var state PositionState
	endpoint := fmt.Sprintf("%s/v1/positions/%s", c.baseURL, url.PathEscape(positionID))
	if err := getJSON(ctx, c.client, endpoint, &state); err != nil {
		return nil, fmt.Errorf("indexer position state: %w", err)
	}
	return &state, nil
}

// Name возвращает имя источника для health-проверок
func (c *IndexerClient) Name() string { return "indexer" }

// Healthy проверяет доступность индексера
func (c *IndexerClient) Healthy(ctx context.Context) error {
	var status struct {
		Status string `json:"status"`
	}
	if err := getJSON(ctx, c.client, c.baseURL+"/health", &status); err != nil {
		return err
	}
	if status.Status != "ok" {
		return fmt.Errorf("indexer status %q", status.Status)
	}
	return nil
}
