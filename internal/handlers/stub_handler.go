package handlers

// Consultations, emergency services, and reports are placeholder domains:
// the routes exist and respect authentication, but nothing is persisted.
// They return empty envelope-shaped payloads until the real services land.

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (h *Handler) ListConsultations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "count": 0, "consultations": []gin.H{}})
}

func (h *Handler) GetConsultation(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "consultation": gin.H{"id": c.Param("id")}})
}

func (h *Handler) CreateConsultation(c *gin.Context) {
	c.JSON(http.StatusCreated, gin.H{
		"success":        true,
		"message":        "Consultation created successfully",
		"consultationId": uuid.NewString(),
	})
}

func (h *Handler) UpdateConsultation(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Consultation updated successfully"})
}

func (h *Handler) StartConsultation(c *gin.Context) {
	// video infrastructure is out of scope; the session id is a placeholder
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Video consultation started",
		"sessionId": uuid.NewString(),
	})
}

func (h *Handler) EndConsultation(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Video consultation ended"})
}

func (h *Handler) GetNearbyFacilities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "count": 0, "facilities": []gin.H{}})
}

func (h *Handler) GetBloodBanks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "count": 0, "bloodBanks": []gin.H{}})
}

func (h *Handler) GetOxygenSuppliers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "count": 0, "oxygenSuppliers": []gin.H{}})
}

func (h *Handler) RequestEmergencyAssistance(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Emergency assistance request received",
		"requestId": uuid.NewString(),
	})
}

func (h *Handler) ListReports(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "count": 0, "reports": []gin.H{}})
}

func (h *Handler) GetReport(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "report": gin.H{"id": c.Param("id")}})
}

func (h *Handler) CreateReport(c *gin.Context) {
	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Report submitted successfully",
		"reportId": uuid.NewString(),
	})
}

func (h *Handler) UpdateReport(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Report updated successfully"})
}
