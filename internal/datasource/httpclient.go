// Package datasource собирает снимки сущностей из внешних
// коллабораторов: on-chain индексера, прайс-фида и реестра протоколов.
package datasource

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HTTPClientConfig - настройки HTTP клиента источников данных
type HTTPClientConfig struct {
	ConnectTimeout time.Duration // таймаут установки TCP соединения
	TotalTimeout   time.Duration // общий таймаут запроса

	// Connection pooling: источники опрашиваются на каждом тике
	// планировщика, соединения переиспользуются
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	TLSHandshakeTimeout time.Duration
}

// DefaultHTTPClientConfig возвращает конфигурацию по умолчанию
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		ConnectTimeout:      3 * time.Second,
		TotalTimeout:        5 * time.Second,
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
}

// NewHTTPClient создает клиент с пулом соединений
func NewHTTPClient(config HTTPClientConfig) *http.Client {
	dialer := &net.Dialer{Timeout: config.ConnectTimeout}

	return &http.Client{
		Timeout: config.TotalTimeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			MaxIdleConns:        config.MaxIdleConns,
			MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
			IdleConnTimeout:     config.IdleConnTimeout,
			TLSHandshakeTimeout: config.TLSHandshakeTimeout,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}
}

// getJSON выполняет GET и разбирает JSON ответа
func getJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
