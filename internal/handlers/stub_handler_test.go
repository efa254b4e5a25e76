package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/healthconnect/healthconnect-api/internal/handlers"
)

// The placeholder domains never touch the database, so they are tested
// against a bare handler with no collaborators.
func stubRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handlers.NewHandler(nil, zap.NewNop(), nil)
	r := gin.New()
	r.GET("/consultations", h.ListConsultations)
	r.POST("/consultations", h.CreateConsultation)
	r.POST("/consultations/:id/start", h.StartConsultation)
	r.GET("/emergency/facilities/nearby", h.GetNearbyFacilities)
	r.GET("/emergency/blood-banks", h.GetBloodBanks)
	r.POST("/emergency/assistance", h.RequestEmergencyAssistance)
	r.GET("/reports", h.ListReports)
	r.POST("/reports", h.CreateReport)
	return r
}

func stubRequest(t *testing.T, r *gin.Engine, method, path string) map[string]any {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Less(t, rec.Code, 300, "stub routes never fail")

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestStubDomainsReturnEmptyPayloads(t *testing.T) {
	r := stubRouter()

	body := stubRequest(t, r, http.MethodGet, "/consultations")
	assert.Equal(t, true, body["success"])
	assert.Empty(t, body["consultations"])
	assert.Equal(t, float64(0), body["count"])

	body = stubRequest(t, r, http.MethodGet, "/emergency/facilities/nearby")
	assert.Equal(t, true, body["success"])
	assert.Empty(t, body["facilities"])

	body = stubRequest(t, r, http.MethodGet, "/emergency/blood-banks")
	assert.Empty(t, body["bloodBanks"])

	body = stubRequest(t, r, http.MethodGet, "/reports")
	assert.Empty(t, body["reports"])
}

func TestStubCreatesReturnIdentifiers(t *testing.T) {
	r := stubRouter()

	body := stubRequest(t, r, http.MethodPost, "/consultations")
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["consultationId"])

	body = stubRequest(t, r, http.MethodPost, "/consultations/abc/start")
	assert.NotEmpty(t, body["sessionId"])

	body = stubRequest(t, r, http.MethodPost, "/emergency/assistance")
	assert.NotEmpty(t, body["requestId"])

	body = stubRequest(t, r, http.MethodPost, "/reports")
	assert.NotEmpty(t, body["reportId"])
}
