package datasource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"riskmonitor/internal/models"
)

// pricefeed.go - клиент прайс-фида
//
// Прайс-фид отдает текущие цены с валидационной уверенностью
// (число независимых источников, расхождение) и историю для
// расчета волатильности.

// PriceQuote - текущая цена с метаданными валидации
type PriceQuote struct {
	Price            float64 `json:"price"`
	SourceCount      int     `json:"source_count"`
	DeviationPercent float64 `json:"deviation_percent"`
	Timestamp        int64   `json:"timestamp"`
}

type PriceFeedClient struct {
	baseURL string
	client  *http.Client
}

func NewPriceFeedClient(baseURL string, client *http.Client) *PriceFeedClient {
	return &PriceFeedClient{baseURL: baseURL, client: client}
}

// GetQuote возвращает текущую цену токена
func (c *PriceFeedClient) GetQuote(ctx context.Context, token string) (*PriceQuote, error) {
	var quote PriceQuote
	endpoint := fmt.Sprintf("%s/v1/prices/%s", c.baseURL, url.PathEscape(token))
	if err := getJSON(ctx, c.client, endpoint, &quote); err != nil {
		return nil, fmt.Errorf("price feed quote: %w", err)
	}
	return &quote, nil
}

// GetRatio возвращает текущее соотношение цен пары
func (c *PriceFeedClient) GetRatio(ctx context.Context, tokenA, tokenB string) (float64, error) {
	quoteA, err := c.GetQuote(ctx, tokenA)
	if err != nil {
		return 0, err
	}
	quoteB, err := c.GetQuote(ctx, tokenB)
	if err != nil {
		return 0, err
	}
	if quoteB.Price <= 0 {
		return 0, fmt.Errorf("price feed: non-positive price for %s", tokenB)
	}
	return quoteA.Price / quoteB.Price, nil
}

// GetHistory возвращает дневную историю цен пары от старых к новым
func (c *PriceFeedClient) GetHistory(ctx context.Context, tokenA, tokenB string, days int) ([]models.PricePoint, error) {
	var raw []struct {
		Timestamp int64   `json:"timestamp"`
		Price     float64 `json:"price"`
	}
	endpoint := fmt.Sprintf("%s/v1/prices/%s/%s/history?days=%d",
		c.baseURL, url.PathEscape(tokenA), url.PathEscape(tokenB), days)
	if err := getJSON(ctx, c.client, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("price feed history: %w", err)
	}

	points := make([]models.PricePoint, 0, len(raw))
	for _, p := range raw {
		points = append(points, models.PricePoint{
			Timestamp: time.UnixMilli(p.Timestamp).UTC(),
			Price:     p.Price,
		})
	}
	return points, nil
}

// Name возвращает имя источника для health-проверок
func (c *PriceFeedClient) Name() string { return "price_feed" }

// Healthy проверяет доступность прайс-фида
func (c *PriceFeedClient) Healthy(ctx context.Context) error {
	var status struct {
		Status string `json:"status"`
	}
	if err := getJSON(ctx, c.client, c.baseURL+"/health", &status); err != nil {
		return err
	}
	if status.Status != "ok" {
		return fmt.Errorf("price feed status %q", status.Status)
	}
	return nil
}
