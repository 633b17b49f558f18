package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"riskmonitor/internal/models"
)

// ============ ConfigHandler Tests ============

func seedConfig(t *testing.T, mockSvc *MockConfigService, userAddress string) *models.RiskConfig {
	t.Helper()
	config, err := mockSvc.CreateFromTemplate(userAddress, models.ToleranceModerate)
	if err != nil {
		t.Fatalf("seed config: %v", err)
	}
	return config
}

func TestConfigHandler_CreateConfig(t *testing.T) {
	t.Run("creates valid profile and returns 201", func(t *testing.T) {
		mockSvc := NewMockConfigService()
		handler := NewConfigHandler(mockSvc)

		body := `{
			"user_address": "0xabc",
			"profile_name": "My Profile",
			"risk_tolerance_level": "custom",
			"weights": {"liquidity": 0.25, "volatility": 0.20, "protocol": 0.20, "mev": 0.20, "cross_chain": 0.15},
			"overall_risk_threshold": 0.65
		}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/configs", strings.NewReader(body))
		w := httptest.NewRecorder()

		handler.CreateConfig(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
		}

		var response struct {
			Data models.RiskConfig `json:"data"`
		}
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Data.ID == uuid.Nil {
			t.Error("created config must carry an id")
		}
	})

	t.Run("rejects weights not summing to 1.0 with CONFIG_ERROR", func(t *testing.T) {
		handler := NewConfigHandler(NewMockConfigService())

		body := `{
			"user_address": "0xabc",
			"profile_name": "Broken",
			"risk_tolerance_level": "custom",
			"weights": {"liquidity": 0.5, "volatility": 0.5, "protocol": 0.5, "mev": 0.1, "cross_chain": 0.1},
			"overall_risk_threshold": 0.65
		}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/configs", strings.NewReader(body))
		w := httptest.NewRecorder()

		handler.CreateConfig(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var response ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Error.Code != CodeConfig {
			t.Errorf("expected code %s, got %s", CodeConfig, response.Error.Code)
		}
	})

	t.Run("rejects unknown tolerance with CONFIG_ERROR", func(t *testing.T) {
		handler := NewConfigHandler(NewMockConfigService())

		body := `{
			"user_address": "0xabc",
			"profile_name": "Reckless",
			"risk_tolerance_level": "yolo",
			"weights": {"liquidity": 0.25, "volatility": 0.20, "protocol": 0.20, "mev": 0.20, "cross_chain": 0.15},
			"overall_risk_threshold": 0.65
		}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/configs", strings.NewReader(body))
		w := httptest.NewRecorder()

		handler.CreateConfig(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var response ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Error.Code != CodeConfig {
			t.Errorf("expected code %s, got %s", CodeConfig, response.Error.Code)
		}
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		handler := NewConfigHandler(NewMockConfigService())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/configs", strings.NewReader("{"))
		w := httptest.NewRecorder()

		handler.CreateConfig(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}

func TestConfigHandler_CreateFromTemplate(t *testing.T) {
	t.Run("creates profile from tolerance template", func(t *testing.T) {
		mockSvc := NewMockConfigService()
		handler := NewConfigHandler(mockSvc)

		body := `{"user_address":"0xabc","tolerance":"conservative"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/configs/template", strings.NewReader(body))
		w := httptest.NewRecorder()

		handler.CreateFromTemplate(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
		}

		var response struct {
			Data models.RiskConfig `json:"data"`
		}
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Data.ToleranceLevel != models.ToleranceConservative {
			t.Errorf("expected tolerance conservative, got %s", response.Data.ToleranceLevel)
		}
		if response.Data.Weights.Liquidity != 0.30 {
			t.Errorf("expected conservative liquidity weight 0.30, got %v", response.Data.Weights.Liquidity)
		}
		if response.Data.IsActive {
			t.Error("template config must not be active before explicit activation")
		}
	})

	t.Run("rejects unknown tolerance", func(t *testing.T) {
		handler := NewConfigHandler(NewMockConfigService())

		body := `{"user_address":"0xabc","tolerance":"fearless"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/configs/template", strings.NewReader(body))
		w := httptest.NewRecorder()

		handler.CreateFromTemplate(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var response ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Error.Code != CodeConfig {
			t.Errorf("expected code %s, got %s", CodeConfig, response.Error.Code)
		}
	})

	t.Run("requires user_address", func(t *testing.T) {
		handler := NewConfigHandler(NewMockConfigService())

		body := `{"tolerance":"moderate"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/configs/template", strings.NewReader(body))
		w := httptest.NewRecorder()

		handler.CreateFromTemplate(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}

func TestConfigHandler_GetConfigs(t *testing.T) {
	t.Run("returns user profiles", func(t *testing.T) {
		mockSvc := NewMockConfigService()
		seedConfig(t, mockSvc, "0xabc")
		seedConfig(t, mockSvc, "0xother")
		handler := NewConfigHandler(mockSvc)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/configs?user_address=0xabc", nil)
		w := httptest.NewRecorder()

		handler.GetConfigs(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var response struct {
			Data ConfigsResponse `json:"data"`
		}
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Data.Total != 1 {
			t.Errorf("expected 1 config, got %d", response.Data.Total)
		}
	})

	t.Run("requires user_address", func(t *testing.T) {
		handler := NewConfigHandler(NewMockConfigService())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/configs", nil)
		w := httptest.NewRecorder()

		handler.GetConfigs(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}

func TestConfigHandler_ActivateConfig(t *testing.T) {
	t.Run("activation deactivates previous profile", func(t *testing.T) {
		mockSvc := NewMockConfigService()
		first := seedConfig(t, mockSvc, "0xabc")
		second := seedConfig(t, mockSvc, "0xabc")

		if err := mockSvc.ActivateConfig(first.ID, "0xabc"); err != nil {
			t.Fatalf("activate first: %v", err)
		}

		handler := NewConfigHandler(mockSvc)
		body := `{"user_address":"0xabc"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/configs/"+second.ID.String()+"/activate", strings.NewReader(body))
		req = mux.SetURLVars(req, map[string]string{"id": second.ID.String()})
		w := httptest.NewRecorder()

		handler.ActivateConfig(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}
		if first.IsActive {
			t.Error("previous profile must be deactivated")
		}
		if !second.IsActive {
			t.Error("new profile must be active")
		}
	})

	t.Run("unknown profile reads as NOT_FOUND", func(t *testing.T) {
		handler := NewConfigHandler(NewMockConfigService())

		ghost := uuid.New()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/configs/"+ghost.String()+"/activate",
			strings.NewReader(`{"user_address":"0xabc"}`))
		req = mux.SetURLVars(req, map[string]string{"id": ghost.String()})
		w := httptest.NewRecorder()

		handler.ActivateConfig(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}
	})
}

func TestConfigHandler_GetActiveConfig(t *testing.T) {
	t.Run("returns active profile", func(t *testing.T) {
		mockSvc := NewMockConfigService()
		config := seedConfig(t, mockSvc, "0xabc")
		if err := mockSvc.ActivateConfig(config.ID, "0xabc"); err != nil {
			t.Fatalf("activate: %v", err)
		}
		handler := NewConfigHandler(mockSvc)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/configs/active?user_address=0xabc", nil)
		w := httptest.NewRecorder()

		handler.GetActiveConfig(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var response struct {
			Data models.RiskConfig `json:"data"`
		}
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Data.ID != config.ID {
			t.Error("active profile mismatch")
		}
	})

	t.Run("no active profile reads as NOT_FOUND", func(t *testing.T) {
		mockSvc := NewMockConfigService()
		seedConfig(t, mockSvc, "0xabc")
		handler := NewConfigHandler(mockSvc)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/configs/active?user_address=0xabc", nil)
		w := httptest.NewRecorder()

		handler.GetActiveConfig(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}
	})
}

func TestConfigHandler_DeleteConfig(t *testing.T) {
	mockSvc := NewMockConfigService()
	config := seedConfig(t, mockSvc, "0xabc")
	handler := NewConfigHandler(mockSvc)

	t.Run("foreign profile reads as NOT_FOUND", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/configs/"+config.ID.String()+"?user_address=0xmallory", nil)
		req = mux.SetURLVars(req, map[string]string{"id": config.ID.String()})
		w := httptest.NewRecorder()

		handler.DeleteConfig(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}
	})

	t.Run("owner deletes profile", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/configs/"+config.ID.String()+"?user_address=0xabc", nil)
		req = mux.SetURLVars(req, map[string]string{"id": config.ID.String()})
		w := httptest.NewRecorder()

		handler.DeleteConfig(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if len(mockSvc.configs) != 0 {
			t.Error("config must be removed")
		}
	})
}
