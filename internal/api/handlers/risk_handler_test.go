package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"riskmonitor/internal/explain"
	"riskmonitor/internal/models"
)

// ============ RiskHandler Tests ============

func poolAssessment() *models.RiskAssessment {
	return &models.RiskAssessment{
		ID:           uuid.New(),
		EntityType:   models.EntityPool,
		EntityID:     "pool-1",
		OverallScore: 0.64,
		Severity:     models.SeverityHigh,
		Confidence:   0.9,
		Factors: map[string]models.FactorScore{
			models.FactorLiquidity:  {Score: 0.8, Confidence: 0.9, Weight: 0.25},
			models.FactorVolatility: {Score: 0.5, Confidence: 0.9, Weight: 0.25},
			models.FactorProtocol:   {Score: 0.6, Confidence: 0.9, Weight: 0.20},
			models.FactorMEV:        {Score: 0.6, Confidence: 0.8, Weight: 0.15},
			models.FactorCrossChain: {Score: 0.7, Confidence: 0.8, Weight: 0.15},
		},
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
}

func riskRequest(t *testing.T, method, target string, body string, vars map[string]string) *http.Request {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	return mux.SetURLVars(req, vars)
}

func TestRiskHandler_GetAssessment(t *testing.T) {
	t.Run("returns active assessment in envelope", func(t *testing.T) {
		mockSvc := NewMockRiskService()
		mockSvc.AddAssessment(poolAssessment())
		handler := NewRiskHandler(mockSvc)

		req := riskRequest(t, http.MethodGet, "/api/v1/risk/pool/pool-1", "",
			map[string]string{"entity_type": "pool", "entity_id": "pool-1"})
		w := httptest.NewRecorder()

		handler.GetAssessment(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var response struct {
			Data      models.RiskAssessment `json:"data"`
			Timestamp time.Time             `json:"timestamp"`
			RequestID string                `json:"request_id"`
		}
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response.Data.OverallScore != 0.64 {
			t.Errorf("expected score 0.64, got %v", response.Data.OverallScore)
		}
		if response.Data.Severity != models.SeverityHigh {
			t.Errorf("expected severity high, got %s", response.Data.Severity)
		}
		if response.Timestamp.IsZero() {
			t.Error("envelope must carry a timestamp")
		}
	})

	t.Run("returns 404 NOT_FOUND for unknown entity", func(t *testing.T) {
		handler := NewRiskHandler(NewMockRiskService())

		req := riskRequest(t, http.MethodGet, "/api/v1/risk/pool/ghost", "",
			map[string]string{"entity_type": "pool", "entity_id": "ghost"})
		w := httptest.NewRecorder()

		handler.GetAssessment(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}

		var response ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Error.Code != CodeNotFound {
			t.Errorf("expected code %s, got %s", CodeNotFound, response.Error.Code)
		}
	})

	t.Run("returns 400 VALIDATION_ERROR for bad entity type", func(t *testing.T) {
		handler := NewRiskHandler(NewMockRiskService())

		req := riskRequest(t, http.MethodGet, "/api/v1/risk/galaxy/x", "",
			map[string]string{"entity_type": "galaxy", "entity_id": "x"})
		w := httptest.NewRecorder()

		handler.GetAssessment(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var response ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Error.Code != CodeValidation {
			t.Errorf("expected code %s, got %s", CodeValidation, response.Error.Code)
		}
	})

	t.Run("returns 500 INTERNAL_ERROR without details", func(t *testing.T) {
		mockSvc := NewMockRiskService()
		mockSvc.getErr = ErrMockDatabase
		handler := NewRiskHandler(mockSvc)

		req := riskRequest(t, http.MethodGet, "/api/v1/risk/pool/pool-1", "",
			map[string]string{"entity_type": "pool", "entity_id": "pool-1"})
		w := httptest.NewRecorder()

		handler.GetAssessment(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
		if strings.Contains(w.Body.String(), "mock database") {
			t.Error("internal error details must not leak to the client")
		}
	})
}

func TestRiskHandler_GetHistory(t *testing.T) {
	t.Run("returns empty history with pagination echo", func(t *testing.T) {
		handler := NewRiskHandler(NewMockRiskService())

		req := riskRequest(t, http.MethodGet, "/api/v1/risk/pool/pool-1/history?limit=10", "",
			map[string]string{"entity_type": "pool", "entity_id": "pool-1"})
		w := httptest.NewRecorder()

		handler.GetHistory(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var response struct {
			Data HistoryResponse `json:"data"`
		}
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Data.History == nil {
			t.Error("history must be an empty array, not null")
		}
		if response.Data.Limit != 10 {
			t.Errorf("expected limit 10 echoed, got %d", response.Data.Limit)
		}
	})

	t.Run("rejects malformed query parameters", func(t *testing.T) {
		handler := NewRiskHandler(NewMockRiskService())

		req := riskRequest(t, http.MethodGet, "/api/v1/risk/pool/pool-1/history?limit=abc", "",
			map[string]string{"entity_type": "pool", "entity_id": "pool-1"})
		w := httptest.NewRecorder()

		handler.GetHistory(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("rejects malformed time range", func(t *testing.T) {
		handler := NewRiskHandler(NewMockRiskService())

		req := riskRequest(t, http.MethodGet, "/api/v1/risk/pool/pool-1/history?from=yesterday", "",
			map[string]string{"entity_type": "pool", "entity_id": "pool-1"})
		w := httptest.NewRecorder()

		handler.GetHistory(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}

func TestRiskHandler_ExplainAssessment(t *testing.T) {
	t.Run("returns explanation for active assessment", func(t *testing.T) {
		mockSvc := NewMockRiskService()
		mockSvc.AddAssessment(poolAssessment())
		handler := NewRiskHandler(mockSvc)

		req := riskRequest(t, http.MethodGet, "/api/v1/risk/pool/pool-1/explanation", "",
			map[string]string{"entity_type": "pool", "entity_id": "pool-1"})
		w := httptest.NewRecorder()

		handler.ExplainAssessment(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var response struct {
			Data explain.Explanation `json:"data"`
		}
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(response.Data.RankedFactors) == 0 {
			t.Error("explanation must rank factors")
		}
		if response.Data.Summary == "" {
			t.Error("explanation must carry a summary")
		}
	})

	t.Run("returns 404 for never-assessed entity", func(t *testing.T) {
		handler := NewRiskHandler(NewMockRiskService())

		req := riskRequest(t, http.MethodGet, "/api/v1/risk/pool/ghost/explanation", "",
			map[string]string{"entity_type": "pool", "entity_id": "ghost"})
		w := httptest.NewRecorder()

		handler.ExplainAssessment(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}
	})
}

func TestRiskHandler_RequestAssessment(t *testing.T) {
	t.Run("queues assessment and tracks entity", func(t *testing.T) {
		mockSvc := NewMockRiskService()
		handler := NewRiskHandler(mockSvc)

		req := riskRequest(t, http.MethodPost, "/api/v1/risk/position/pos-1/monitor",
			`{"user_address":"0xabc"}`,
			map[string]string{"entity_type": "position", "entity_id": "pos-1"})
		w := httptest.NewRecorder()

		handler.RequestAssessment(w, req)

		if w.Code != http.StatusAccepted {
			t.Fatalf("expected status %d, got %d", http.StatusAccepted, w.Code)
		}
		if mockSvc.tracked["position|pos-1"] != "0xabc" {
			t.Error("entity must be tracked after monitor request")
		}
	})

	t.Run("requires user_address", func(t *testing.T) {
		handler := NewRiskHandler(NewMockRiskService())

		req := riskRequest(t, http.MethodPost, "/api/v1/risk/position/pos-1/monitor",
			`{}`,
			map[string]string{"entity_type": "position", "entity_id": "pos-1"})
		w := httptest.NewRecorder()

		handler.RequestAssessment(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		handler := NewRiskHandler(NewMockRiskService())

		req := riskRequest(t, http.MethodPost, "/api/v1/risk/position/pos-1/monitor",
			`{not-json`,
			map[string]string{"entity_type": "position", "entity_id": "pos-1"})
		w := httptest.NewRecorder()

		handler.RequestAssessment(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}

func TestRiskHandler_StopMonitoring(t *testing.T) {
	t.Run("removes own registration", func(t *testing.T) {
		mockSvc := NewMockRiskService()
		mockSvc.tracked["pool|pool-1"] = "0xabc"
		handler := NewRiskHandler(mockSvc)

		req := riskRequest(t, http.MethodDelete, "/api/v1/risk/pool/pool-1/monitor?user_address=0xabc", "",
			map[string]string{"entity_type": "pool", "entity_id": "pool-1"})
		w := httptest.NewRecorder()

		handler.StopMonitoring(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if _, ok := mockSvc.tracked["pool|pool-1"]; ok {
			t.Error("entity must be untracked")
		}
	})

	t.Run("requires user_address", func(t *testing.T) {
		mockSvc := NewMockRiskService()
		mockSvc.tracked["pool|pool-1"] = "0xabc"
		handler := NewRiskHandler(mockSvc)

		req := riskRequest(t, http.MethodDelete, "/api/v1/risk/pool/pool-1/monitor", "",
			map[string]string{"entity_type": "pool", "entity_id": "pool-1"})
		w := httptest.NewRecorder()

		handler.StopMonitoring(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
		if _, ok := mockSvc.tracked["pool|pool-1"]; !ok {
			t.Error("registration must survive a rejected request")
		}
	})

	t.Run("leaves other user registration intact", func(t *testing.T) {
		mockSvc := NewMockRiskService()
		mockSvc.tracked["pool|pool-1"] = "0xabc"
		handler := NewRiskHandler(mockSvc)

		req := riskRequest(t, http.MethodDelete, "/api/v1/risk/pool/pool-1/monitor?user_address=0xdef", "",
			map[string]string{"entity_type": "pool", "entity_id": "pool-1"})
		w := httptest.NewRecorder()

		handler.StopMonitoring(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if _, ok := mockSvc.tracked["pool|pool-1"]; !ok {
			t.Error("another user's registration must remain")
		}
	})
}
