package datasource

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"riskmonitor/internal/models"
)

// protocol.go - клиент агрегатора событий протоколов
//
// Отдает аудиты, историю эксплойтов, governance-события,
// MEV-активность и метаданные мостов.

type ProtocolClient struct {
	baseURL string
	client  *http.Client
}

func NewProtocolClient(baseURL string, client *http.Client) *ProtocolClient {
	return &ProtocolClient{baseURL: baseURL, client: client}
}

// GetProtocolInfo возвращает метаданные протокола
func (c *ProtocolClient) GetProtocolInfo(ctx context.Context, name string) (*models.ProtocolInfo, error) {
	var raw struct {
		Name             string  `json:"name"`
		AuditScore       float64 `json:"audit_score"`
		ExploitCount     int     `json:"exploit_count"`
		LastExploitAt    *int64  `json:"last_exploit_at"`
		AgeDays          int     `json:"age_days"`
		GovernanceRisk   float64 `json:"governance_risk"`
		AdminKeyMultisig bool    `json:"admin_key_multisig"`
	}
	endpoint := fmt.Sprintf("%s/v1/protocols/%s", c.baseURL, url.PathEscape(name))
	if err := getJSON(ctx, c.client, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("protocol registry: %w", err)
	}

	info := &models.ProtocolInfo{
		Name:             raw.Name,
		AuditScore:       raw.AuditScore,
		ExploitCount:     raw.ExploitCount,
		AgeDays:          raw.AgeDays,
		GovernanceRisk:   raw.GovernanceRisk,
		AdminKeyMultisig: raw.AdminKeyMultisig,
	}
	if raw.LastExploitAt != nil {
		at := time.UnixMilli(*raw.LastExploitAt).UTC()
		info.LastExploitAt = &at
	}
	return info, nil
}

// GetMEVActivity возвращает MEV-активность вокруг пула
func (c *ProtocolClient) GetMEVActivity(ctx context.Context, poolID string) (*models.MEVActivity, error) {
	var activity models.MEVActivity
	endpoint := fmt.Sprintf("%s/v1/pools/%s/mev", c.baseURL, url.PathEscape(poolID))
	if err := getJSON(ctx, c.client, endpoint, &activity); err != nil {
		return nil, fmt.Errorf("mev activity: %w", err)
	}
	return &activity, nil
}

// GetBridges возвращает мосты, через которые фрагментирована
// ликвидность пула
func (c *ProtocolClient) GetBridges(ctx context.Context, poolID string) ([]models.BridgeInfo, error) {
	var bridges []models.BridgeInfo
	endpoint := fmt.Sprintf("%s/v1/pools/%s/bridges", c.baseURL, url.PathEscape(poolID))
	if err := getJSON(ctx, c.client, endpoint, &bridges); err != nil {
		return nil, fmt.Errorf("bridge metadata: %w", err)
	}
	return bridges, nil
}

// Name возвращает имя источника для health-проверок
func (c *ProtocolClient) Name() string { return "protocol_registry" }

// Healthy проверяет доступность реестра протоколов
func (c *ProtocolClient) Healthy(ctx context.Context) error {
	var status struct {
		Status string `json:"status"`
	}
	if err := getJSON(ctx, c.client, c.baseURL+"/health", &status); err != nil {
		return err
	}
	if status.Status != "ok" {
		return fmt.Errorf("protocol registry status %q", status.Status)
	}
	return nil
}
