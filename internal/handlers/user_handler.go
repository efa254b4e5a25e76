package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/healthconnect/healthconnect-api/internal/models"
	"github.com/healthconnect/healthconnect-api/internal/utils"
)

// GetProfile returns the caller's own profile.
func (h *Handler) GetProfile(c *gin.Context) {
	h.GetCurrentUser(c)
}

type UpdateProfileRequest struct {
	FirstName      *string `json:"firstName,omitempty"`
	LastName       *string `json:"lastName,omitempty"`
	Specialization *string `json:"specialization,omitempty"`
}

// UpdateProfile lets a user change their own displayable fields. Email,
// role, and password have dedicated flows.
func (h *Handler) UpdateProfile(c *gin.Context) {
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

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	updateFields := bson.M{}
	if req.FirstName != nil {
		updateFields["firstName"] = *req.FirstName
	}
	if req.LastName != nil {
		updateFields["lastName"] = *req.LastName
	}
	if req.Specialization != nil {
		updateFields["specialization"] = *req.Specialization
	}
	if len(updateFields) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "No update fields provided"})
		return
	}

	result, err := h.DB.Collection("users").UpdateOne(c.Request.Context(), bson.M{"_id": userID}, bson.M{"$set": updateFields})
	if err != nil {
		h.Log.Error("users: profile update failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update user profile"})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User profile updated successfully",
	})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

// ChangePassword verifies the current password before storing a new hash.
func (h *Handler) ChangePassword(c *gin.Context) {
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

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	user, err := h.findUserByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "User not found"})
		return
	}

	if !utils.CheckPasswordHash(req.CurrentPassword, user.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Current password is incorrect"})
		return
	}

	hashedPassword, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to hash password"})
		return
	}

	_, err = h.DB.Collection("users").UpdateOne(c.Request.Context(), bson.M{"_id": userID}, bson.M{"$set": bson.M{"password": hashedPassword}})
	if err != nil {
		h.Log.Error("users: password update failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to change password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Password changed successfully",
	})
}

// ListDoctors returns every doctor account, for the booking flow.
func (h *Handler) ListDoctors(c *gin.Context) {
	findOptions := options.Find().SetSort(bson.D{{Key: "lastName", Value: 1}})
	cursor, err := h.DB.Collection("users").Find(c.Request.Context(), bson.M{"role": models.RoleDoctor}, findOptions)
	if err != nil {
		h.Log.Error("users: doctors find failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to retrieve doctors"})
		return
	}
	defer cursor.Close(c.Request.Context())

	var doctors []models.User
	if err = cursor.All(c.Request.Context(), &doctors); err != nil {
		h.Log.Error("users: doctors decode failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to decode doctors"})
		return
	}
	if doctors == nil {
		doctors = make([]models.User, 0)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(doctors),
		"doctors": doctors,
	})
}

// ListUsers returns every account; the route is admin-only.
func (h *Handler) ListUsers(c *gin.Context) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := h.DB.Collection("users").Find(c.Request.Context(), bson.M{}, findOptions)
	if err != nil {
		h.Log.Error("users: find failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to retrieve users"})
		return
	}
	defer cursor.Close(c.Request.Context())

	var users []models.User
	if err = cursor.All(c.Request.Context(), &users); err != nil {
		h.Log.Error("users: decode failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to decode users"})
		return
	}
	if users == nil {
		users = make([]models.User, 0)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(users),
		"users":   users,
	})
}
