package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/healthconnect/healthconnect-api/internal/models"
	"github.com/healthconnect/healthconnect-api/internal/policy"
	"github.com/healthconnect/healthconnect-api/internal/schedule"
)

const dateLayout = "2006-01-02"

// GetAppointments lists appointments for the current user. Patients see
// their own bookings, doctors the ones they host, admins everything.
// Optional filters: status, startDate, endDate.
func (h *Handler) GetAppointments(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
		return
	}

	userID, err := primitive.ObjectIDFromHex(p.ID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid user ID in token"})
		return
	}

	filter := bson.M{}
	switch p.Role {
	case models.RolePatient:
		filter["patientId"] = userID
	case models.RoleDoctor:
		filter["doctorId"] = userID
	case models.RoleAdmin:
		// unrestricted
	}

	if status := c.Query("status"); status != "" {
		filter["status"] = status
	}
	if startDateStr := c.Query("startDate"); startDateStr != "" {
		if startDate, err := time.Parse(dateLayout, startDateStr); err == nil {
			filter["date"] = bson.M{"$gte": startDate}
		}
	}
	if endDateStr := c.Query("endDate"); endDateStr != "" {
		if endDate, err := time.Parse(dateLayout, endDateStr); err == nil {
			if f, ok := filter["date"].(bson.M); ok {
				f["$lte"] = endDate
			} else {
				filter["date"] = bson.M{"$lte": endDate}
			}
		}
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "startTime", Value: 1}})
	cursor, err := h.DB.Collection("appointments").Find(c.Request.Context(), filter, findOptions)
	if err != nil {
		h.Log.Error("appointments: find failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to retrieve appointments"})
		return
	}
	defer cursor.Close(c.Request.Context())

	var appointments []models.Appointment
	if err = cursor.All(c.Request.Context(), &appointments); err != nil {
		h.Log.Error("appointments: decode failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to decode appointments"})
		return
	}
	if appointments == nil {
		appointments = make([]models.Appointment, 0)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"count":        len(appointments),
		"appointments": appointments,
	})
}

// GetAppointment returns one appointment, visible only to its participants
// and admins.
func (h *Handler) GetAppointment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
		return
	}

	appointmentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid appointment ID"})
		return
	}

	var apt models.Appointment
	err = h.DB.Collection("appointments").FindOne(c.Request.Context(), bson.M{"_id": appointmentID}).Decode(&apt)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Appointment not found"})
		return
	}

	owners := policy.Owners{PatientID: apt.PatientID.Hex(), DoctorID: apt.DoctorID.Hex()}
	if !policy.CanAccess(p, owners, policy.ActionRead) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Not authorized to access this appointment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "appointment": apt})
}

type CreateAppointmentRequest struct {
	DoctorID  string `json:"doctorId" binding:"required"`
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"startTime" binding:"required"`
	EndTime   string `json:"endTime" binding:"required"`
	Type      string `json:"type"`
	Reason    string `json:"reason"`
}

// CreateAppointment books a slot with a doctor. The route is limited to
// patients and admins; the booking patient is always the caller.
func (h *Handler) CreateAppointment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
		return
	}

	var req CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	doctorID, err := primitive.ObjectIDFromHex(req.DoctorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid doctor ID"})
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid date format, use YYYY-MM-DD"})
		return
	}
	if _, err := time.Parse("15:04", req.StartTime); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid start time, use HH:MM"})
		return
	}
	if _, err := time.Parse("15:04", req.EndTime); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid end time, use HH:MM"})
		return
	}

	doctor, err := h.findUserByID(c.Request.Context(), doctorID)
	if err != nil || doctor.Role != models.RoleDoctor {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Doctor not found"})
		return
	}

	patientID, err := primitive.ObjectIDFromHex(p.ID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid user ID in token"})
		return
	}

	apt := models.Appointment{
		ID:        primitive.NewObjectID(),
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Type:      req.Type,
		Reason:    req.Reason,
		Status:    models.StatusScheduled,
		CreatedAt: time.Now().UTC(),
	}

	_, err = h.DB.Collection("appointments").InsertOne(c.Request.Context(), apt)
	if err != nil {
		// unique partial index on (doctorId, date, startTime) for scheduled
		// appointments: the slot was taken between availability and booking
		if mongo.IsDuplicateKeyError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "This time slot is no longer available"})
			return
		}
		h.Log.Error("appointments: insert failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create appointment"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"message":     "Appointment scheduled successfully",
		"appointment": apt,
	})
}

type UpdateAppointmentRequest struct {
	Date      *string `json:"date,omitempty"`
	StartTime *string `json:"startTime,omitempty"`
	EndTime   *string `json:"endTime,omitempty"`
	Type      *string `json:"type,omitempty"`
	Reason    *string `json:"reason,omitempty"`
	Status    *string `json:"status,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

// UpdateAppointment applies a partial update. Participants and admins only;
// a cancelled appointment stays cancelled.
func (h *Handler) UpdateAppointment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
		return
	}

	appointmentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid appointment ID"})
		return
	}

	var apt models.Appointment
	err = h.DB.Collection("appointments").FindOne(c.Request.Context(), bson.M{"_id": appointmentID}).Decode(&apt)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Appointment not found"})
		return
	}

	owners := policy.Owners{PatientID: apt.PatientID.Hex(), DoctorID: apt.DoctorID.Hex()}
	if !policy.CanAccess(p, owners, policy.ActionUpdate) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Not authorized to update this appointment"})
		return
	}

	var req UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	updateFields := bson.M{}
	if req.Date != nil {
		date, err := time.Parse(dateLayout, *req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid date format, use YYYY-MM-DD"})
			return
		}
		updateFields["date"] = date
	}
	if req.StartTime != nil {
		updateFields["startTime"] = *req.StartTime
	}
	if req.EndTime != nil {
		updateFields["endTime"] = *req.EndTime
	}
	if req.Type != nil {
		updateFields["type"] = *req.Type
	}
	if req.Reason != nil {
		updateFields["reason"] = *req.Reason
	}
	if req.Status != nil {
		switch *req.Status {
		case models.StatusScheduled, models.StatusCancelled, models.StatusCompleted:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid status"})
			return
		}
		// cancelled is terminal
		if apt.Status == models.StatusCancelled && *req.Status != models.StatusCancelled {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Cancelled appointments cannot be reopened"})
			return
		}
		updateFields["status"] = *req.Status
	}
	if req.Notes != nil {
		updateFields["notes"] = *req.Notes
	}

	if len(updateFields) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "No fields to update"})
		return
	}

	_, err = h.DB.Collection("appointments").UpdateOne(c.Request.Context(), bson.M{"_id": appointmentID}, bson.M{"$set": updateFields})
	if err != nil {
		h.Log.Error("appointments: update failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update appointment"})
		return
	}

	err = h.DB.Collection("appointments").FindOne(c.Request.Context(), bson.M{"_id": appointmentID}).Decode(&apt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to reload appointment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Appointment updated successfully",
		"appointment": apt,
	})
}

// CancelAppointment moves an appointment into its terminal state. The
// operation is idempotent: cancelling twice answers success both times.
func (h *Handler) CancelAppointment(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
		return
	}

	appointmentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid appointment ID"})
		return
	}

	var apt models.Appointment
	err = h.DB.Collection("appointments").FindOne(c.Request.Context(), bson.M{"_id": appointmentID}).Decode(&apt)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Appointment not found"})
		return
	}

	owners := policy.Owners{PatientID: apt.PatientID.Hex(), DoctorID: apt.DoctorID.Hex()}
	if !policy.CanAccess(p, owners, policy.ActionCancel) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Not authorized to cancel this appointment"})
		return
	}

	_, err = h.DB.Collection("appointments").UpdateOne(c.Request.Context(),
		bson.M{"_id": appointmentID},
		bson.M{"$set": bson.M{"status": models.StatusCancelled}})
	if err != nil {
		h.Log.Error("appointments: cancel failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to cancel appointment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Appointment cancelled successfully",
	})
}

// GetDoctorAvailability returns the free catalog slots for a doctor on a
// date. Cancelled bookings do not block slots.
func (h *Handler) GetDoctorAvailability(c *gin.Context) {
	doctorIDStr := c.Query("doctorId")
	dateStr := c.Query("date")
	if doctorIDStr == "" || dateStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Doctor ID and date are required"})
		return
	}

	doctorID, err := primitive.ObjectIDFromHex(doctorIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid doctor ID"})
		return
	}

	date, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid date format, use YYYY-MM-DD"})
		return
	}

	doctor, err := h.findUserByID(c.Request.Context(), doctorID)
	if err != nil || doctor.Role != models.RoleDoctor {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Doctor not found"})
		return
	}

	filter := bson.M{
		"doctorId": doctorID,
		"date":     date,
		"status":   bson.M{"$ne": models.StatusCancelled},
	}
	findOptions := options.Find().SetProjection(bson.M{"startTime": 1, "endTime": 1})
	cursor, err := h.DB.Collection("appointments").Find(c.Request.Context(), filter, findOptions)
	if err != nil {
		h.Log.Error("availability: find failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to retrieve appointments"})
		return
	}
	defer cursor.Close(c.Request.Context())

	var booked []schedule.TimeSlot
	if err = cursor.All(c.Request.Context(), &booked); err != nil {
		h.Log.Error("availability: decode failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to decode appointments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"availableSlots": schedule.AvailableSlots(schedule.Catalog(), booked),
	})
}
