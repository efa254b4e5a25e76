package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/healthconnect/healthconnect-api/internal/models"
	"github.com/healthconnect/healthconnect-api/internal/policy"
)

// GetMedicalRecords lists the records of a patient, newest first. Without a
// path parameter the caller's own records are returned; the
// /patient/:patientId form is role-gated to doctors and admins.
func (h *Handler) GetMedicalRecords(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
		return
	}

	patientIDStr := c.Param("patientId")
	if patientIDStr == "" {
		patientIDStr = p.ID
	}

	if p.Role == models.RolePatient && patientIDStr != p.ID {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Not authorized to access these medical records"})
		return
	}

	patientID, err := primitive.ObjectIDFromHex(patientIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid patient ID"})
		return
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := h.DB.Collection("medicalRecords").Find(c.Request.Context(), bson.M{"patientId": patientID}, findOptions)
	if err != nil {
		h.Log.Error("medical records: find failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to retrieve medical records"})
		return
	}
	defer cursor.Close(c.Request.Context())

	var records []models.MedicalRecord
	if err = cursor.All(c.Request.Context(), &records); err != nil {
		h.Log.Error("medical records: decode failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to decode medical records"})
		return
	}
	if records == nil {
		records = make([]models.MedicalRecord, 0)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"count":          len(records),
		"medicalRecords": records,
	})
}

// GetMedicalRecord returns one record, visible to the patient it belongs
// to, the authoring doctor, and admins.
func (h *Handler) GetMedicalRecord(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
		return
	}

	recordID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid record ID"})
		return
	}

	var record models.MedicalRecord
	err = h.DB.Collection("medicalRecords").FindOne(c.Request.Context(), bson.M{"_id": recordID}).Decode(&record)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Medical record not found"})
		return
	}

	owners := policy.Owners{PatientID: record.PatientID.Hex(), DoctorID: record.DoctorID.Hex()}
	if !policy.CanAccess(p, owners, policy.ActionRead) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Not authorized to access this medical record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "medicalRecord": record})
}

type CreateMedicalRecordRequest struct {
	PatientID   string   `json:"patientId" binding:"required"`
	RecordType  string   `json:"recordType" binding:"required"`
	Title       string   `json:"title" binding:"required"`
	Date        string   `json:"date"`
	Description string   `json:"description"`
	Attachments []string `json:"attachments"`
	IsPrivate   bool     `json:"isPrivate"`
}

// CreateMedicalRecord authors a record for a patient. Route is gated to
// doctors and admins; the author becomes the record's doctor.
func (h *Handler) CreateMedicalRecord(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
		return
	}

	if !policy.CanAccess(p, policy.Owners{}, policy.ActionCreateRecord) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Not authorized to create medical records"})
		return
	}

	var req CreateMedicalRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	patientID, err := primitive.ObjectIDFromHex(req.PatientID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid patient ID"})
		return
	}
	if _, err := h.findUserByID(c.Request.Context(), patientID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Patient not found"})
		return
	}

	doctorID, err := primitive.ObjectIDFromHex(p.ID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid user ID in token"})
		return
	}

	date := time.Now().UTC()
	if req.Date != "" {
		parsed, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid date format, use YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	record := models.MedicalRecord{
		ID:          primitive.NewObjectID(),
		PatientID:   patientID,
		DoctorID:    doctorID,
		RecordType:  req.RecordType,
		Title:       req.Title,
		Date:        date,
		Description: req.Description,
		Attachments: req.Attachments,
		IsPrivate:   req.IsPrivate,
		CreatedAt:   time.Now().UTC(),
	}

	if _, err := h.DB.Collection("medicalRecords").InsertOne(c.Request.Context(), record); err != nil {
		h.Log.Error("medical records: insert failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create medical record"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":       true,
		"message":       "Medical record created successfully",
		"medicalRecord": record,
	})
}

type UpdateMedicalRecordRequest struct {
	RecordType  *string   `json:"recordType,omitempty"`
	Title       *string   `json:"title,omitempty"`
	Date        *string   `json:"date,omitempty"`
	Description *string   `json:"description,omitempty"`
	Attachments *[]string `json:"attachments,omitempty"`
	IsPrivate   *bool     `json:"isPrivate,omitempty"`
}

// UpdateMedicalRecord applies a partial update. Only the authoring doctor
// and admins may write, so the policy check passes the doctor id alone.
func (h *Handler) UpdateMedicalRecord(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
		return
	}

	recordID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid record ID"})
		return
	}

	var record models.MedicalRecord
	err = h.DB.Collection("medicalRecords").FindOne(c.Request.Context(), bson.M{"_id": recordID}).Decode(&record)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Medical record not found"})
		return
	}

	if !policy.CanAccess(p, policy.Owners{DoctorID: record.DoctorID.Hex()}, policy.ActionUpdate) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Not authorized to update this medical record"})
		return
	}

	var req UpdateMedicalRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	updateFields := bson.M{}
	if req.RecordType != nil {
		updateFields["recordType"] = *req.RecordType
	}
	if req.Title != nil {
		updateFields["title"] = *req.Title
	}
	if req.Date != nil {
		date, err := time.Parse(dateLayout, *req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid date format, use YYYY-MM-DD"})
			return
		}
		updateFields["date"] = date
	}
	if req.Description != nil {
		updateFields["description"] = *req.Description
	}
	if req.Attachments != nil {
		updateFields["attachments"] = *req.Attachments
	}
	if req.IsPrivate != nil {
		updateFields["isPrivate"] = *req.IsPrivate
	}

	if len(updateFields) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "No fields to update"})
		return
	}

	_, err = h.DB.Collection("medicalRecords").UpdateOne(c.Request.Context(), bson.M{"_id": recordID}, bson.M{"$set": updateFields})
	if err != nil {
		h.Log.Error("medical records: update failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update medical record"})
		return
	}

	err = h.DB.Collection("medicalRecords").FindOne(c.Request.Context(), bson.M{"_id": recordID}).Decode(&record)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to reload medical record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"message":       "Medical record updated successfully",
		"medicalRecord": record,
	})
}

// DeleteMedicalRecord removes a record. Same write policy as update.
func (h *Handler) DeleteMedicalRecord(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authentication required"})
		return
	}

	recordID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid record ID"})
		return
	}

	var record models.MedicalRecord
	err = h.DB.Collection("medicalRecords").FindOne(c.Request.Context(), bson.M{"_id": recordID}).Decode(&record)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Medical record not found"})
		return
	}

	if !policy.CanAccess(p, policy.Owners{DoctorID: record.DoctorID.Hex()}, policy.ActionDelete) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Not authorized to delete this medical record"})
		return
	}

	if _, err := h.DB.Collection("medicalRecords").DeleteOne(c.Request.Context(), bson.M{"_id": recordID}); err != nil {
		h.Log.Error("medical records: delete failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to delete medical record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Medical record deleted successfully",
	})
}
