package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/healthconnect/healthconnect-api/internal/handlers"
	"github.com/healthconnect/healthconnect-api/internal/middleware"
	"github.com/healthconnect/healthconnect-api/internal/models"
)

// setupRouter wires the real handlers against a live MongoDB. The suite
// skips when MONGO_URI is not set, so unit runs stay hermetic.
func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	_ = godotenv.Load("../../.env")
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		uri = os.Getenv("MONGODB_URI")
	}
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	t.Setenv("JWT_SECRET", "handler-test-secret")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { client.Disconnect(context.Background()) })

	db := client.Database("healthconnect_test")
	ensureTestIndexes(t, ctx, db)

	h := handlers.NewHandler(db, zap.NewNop(), nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/auth/register", h.RegisterUser)
	r.POST("/api/auth/login", h.Login)
	r.GET("/api/auth/me", middleware.AuthMiddleware(nil), h.GetCurrentUser)

	api := r.Group("/api", middleware.AuthMiddleware(nil))
	api.GET("/appointments", h.GetAppointments)
	api.GET("/appointments/availability", h.GetDoctorAvailability)
	api.GET("/appointments/:id", h.GetAppointment)
	api.POST("/appointments", middleware.RequireRoles(models.RolePatient, models.RoleAdmin), h.CreateAppointment)
	api.PUT("/appointments/:id", h.UpdateAppointment)
	api.PATCH("/appointments/:id/cancel", h.CancelAppointment)
	api.GET("/medical-records", h.GetMedicalRecords)
	api.GET("/medical-records/:id", h.GetMedicalRecord)
	api.POST("/medical-records", middleware.RequireRoles(models.RoleDoctor, models.RoleAdmin), h.CreateMedicalRecord)
	api.PUT("/medical-records/:id", middleware.RequireRoles(models.RoleDoctor, models.RoleAdmin), h.UpdateMedicalRecord)
	api.DELETE("/medical-records/:id", middleware.RequireRoles(models.RoleDoctor, models.RoleAdmin), h.DeleteMedicalRecord)
	api.PUT("/users/change-password", h.ChangePassword)
	api.GET("/users/doctors", h.ListDoctors)
	return r
}

func ensureTestIndexes(t *testing.T, ctx context.Context, db *mongo.Database) {
	t.Helper()
	_, err := db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	require.NoError(t, err)
	_, err = db.Collection("appointments").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "doctorId", Value: 1},
			{Key: "date", Value: 1},
			{Key: "startTime", Value: 1},
		},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"status": models.StatusScheduled}),
	})
	require.NoError(t, err)
}

func doJSON(r *gin.Engine, method, path, token string, payload any) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// registerUser creates an account with a unique email and returns its id
// and a valid token.
func registerUser(t *testing.T, r *gin.Engine, role string) (id, token string) {
	t.Helper()
	email := fmt.Sprintf("test-%s@example.com", uuid.NewString()[:8])
	rec := doJSON(r, http.MethodPost, "/api/auth/register", "", gin.H{
		"firstName": "Test",
		"lastName":  "User",
		"email":     email,
		"password":  "testpass123",
		"role":      role,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	user := body["user"].(map[string]any)
	return user["id"].(string), body["token"].(string)
}

func futureDate(daysAhead int) string {
	return time.Now().AddDate(0, 0, daysAhead).Format("2006-01-02")
}

// ----- auth -----

func TestRegisterAndLogin(t *testing.T) {
	r := setupRouter(t)

	email := fmt.Sprintf("test-%s@example.com", uuid.NewString()[:8])
	rec := doJSON(r, http.MethodPost, "/api/auth/register", "", gin.H{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     email,
		"password":  "testpass123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "patient", user["role"], "role defaults to patient")
	assert.Nil(t, user["password"], "password never leaves the API")

	// duplicate email
	rec = doJSON(r, http.MethodPost, "/api/auth/register", "", gin.H{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     email,
		"password":  "testpass123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// login
	rec = doJSON(r, http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": "testpass123"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["token"])

	// wrong password
	rec = doJSON(r, http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": "wrongpass123"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	r := setupRouter(t)

	tests := []struct {
		name    string
		payload gin.H
	}{
		{"missing email", gin.H{"firstName": "A", "lastName": "B", "password": "testpass123"}},
		{"bad email", gin.H{"firstName": "A", "lastName": "B", "email": "nope", "password": "testpass123"}},
		{"short password", gin.H{"firstName": "A", "lastName": "B", "email": "a@b.com", "password": "short"}},
		{"unknown role", gin.H{"firstName": "A", "lastName": "B", "email": "a@b.com", "password": "testpass123", "role": "root"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(r, http.MethodPost, "/api/auth/register", "", tt.payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestMe(t *testing.T) {
	r := setupRouter(t)
	id, token := registerUser(t, r, "patient")

	rec := doJSON(r, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	user := decode(t, rec)["user"].(map[string]any)
	assert.Equal(t, id, user["id"])

	rec = doJSON(r, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ----- appointments -----

func bookAppointment(t *testing.T, r *gin.Engine, token, doctorID, date, start, end string) map[string]any {
	t.Helper()
	rec := doJSON(r, http.MethodPost, "/api/appointments", token, gin.H{
		"doctorId":  doctorID,
		"date":      date,
		"startTime": start,
		"endTime":   end,
		"type":      "checkup",
		"reason":    "routine",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode(t, rec)["appointment"].(map[string]any)
}

func TestAppointmentLifecycle(t *testing.T) {
	r := setupRouter(t)
	_, patientToken := registerUser(t, r, "patient")
	doctorID, _ := registerUser(t, r, "doctor")
	date := futureDate(7)

	apt := bookAppointment(t, r, patientToken, doctorID, date, "09:00", "09:30")
	aptID := apt["id"].(string)
	assert.Equal(t, "scheduled", apt["status"])

	// availability excludes the booked slot
	rec := doJSON(r, http.MethodGet, "/api/appointments/availability?doctorId="+doctorID+"&date="+date, patientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	slots := decode(t, rec)["availableSlots"].([]any)
	require.Len(t, slots, 11)
	first := slots[0].(map[string]any)
	assert.Equal(t, "09:30", first["startTime"], "09:00 slot must be gone")

	// participant can read
	rec = doJSON(r, http.MethodGet, "/api/appointments/"+aptID, patientToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// a stranger cannot
	_, strangerToken := registerUser(t, r, "patient")
	rec = doJSON(r, http.MethodGet, "/api/appointments/"+aptID, strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// cancel, then cancel again: idempotent
	rec = doJSON(r, http.MethodPatch, "/api/appointments/"+aptID+"/cancel", patientToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(r, http.MethodPatch, "/api/appointments/"+aptID+"/cancel", patientToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodGet, "/api/appointments/"+aptID, patientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)["appointment"].(map[string]any)
	assert.Equal(t, "cancelled", got["status"])

	// cancelled booking frees its slot
	rec = doJSON(r, http.MethodGet, "/api/appointments/availability?doctorId="+doctorID+"&date="+date, patientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["availableSlots"].([]any), 12)
}

func TestAppointmentDoubleBooking(t *testing.T) {
	r := setupRouter(t)
	_, patientToken := registerUser(t, r, "patient")
	_, otherToken := registerUser(t, r, "patient")
	doctorID, _ := registerUser(t, r, "doctor")
	date := futureDate(8)

	bookAppointment(t, r, patientToken, doctorID, date, "10:00", "10:30")

	// same doctor, same slot: blocked by the unique index
	rec := doJSON(r, http.MethodPost, "/api/appointments", otherToken, gin.H{
		"doctorId":  doctorID,
		"date":      date,
		"startTime": "10:00",
		"endTime":   "10:30",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// a different slot works
	rec = doJSON(r, http.MethodPost, "/api/appointments", otherToken, gin.H{
		"doctorId":  doctorID,
		"date":      date,
		"startTime": "10:30",
		"endTime":   "11:00",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateAppointmentErrors(t *testing.T) {
	r := setupRouter(t)
	patientID, patientToken := registerUser(t, r, "patient")
	_, doctorToken := registerUser(t, r, "doctor")
	doctorID, _ := registerUser(t, r, "doctor")

	// doctors may not book
	rec := doJSON(r, http.MethodPost, "/api/appointments", doctorToken, gin.H{
		"doctorId": doctorID, "date": futureDate(9), "startTime": "09:00", "endTime": "09:30",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// referencing a non-doctor user is a 404
	rec = doJSON(r, http.MethodPost, "/api/appointments", patientToken, gin.H{
		"doctorId": patientID, "date": futureDate(9), "startTime": "09:00", "endTime": "09:30",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// malformed inputs
	rec = doJSON(r, http.MethodPost, "/api/appointments", patientToken, gin.H{
		"doctorId": doctorID, "date": "not-a-date", "startTime": "09:00", "endTime": "09:30",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doJSON(r, http.MethodPost, "/api/appointments", patientToken, gin.H{
		"doctorId": doctorID, "date": futureDate(9), "startTime": "9am", "endTime": "09:30",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAppointment(t *testing.T) {
	r := setupRouter(t)
	_, patientToken := registerUser(t, r, "patient")
	doctorID, doctorToken := registerUser(t, r, "doctor")
	apt := bookAppointment(t, r, patientToken, doctorID, futureDate(10), "11:00", "11:30")
	aptID := apt["id"].(string)

	// the hosting doctor may update
	rec := doJSON(r, http.MethodPut, "/api/appointments/"+aptID, doctorToken, gin.H{"notes": "bring referral letter"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode(t, rec)["appointment"].(map[string]any)
	assert.Equal(t, "bring referral letter", got["notes"])

	// empty update
	rec = doJSON(r, http.MethodPut, "/api/appointments/"+aptID, doctorToken, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// bad status value
	rec = doJSON(r, http.MethodPut, "/api/appointments/"+aptID, doctorToken, gin.H{"status": "postponed"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// cancelled is terminal
	doJSON(r, http.MethodPatch, "/api/appointments/"+aptID+"/cancel", doctorToken, nil)
	rec = doJSON(r, http.MethodPut, "/api/appointments/"+aptID, doctorToken, gin.H{"status": "scheduled"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAppointmentsIsRoleScoped(t *testing.T) {
	r := setupRouter(t)
	_, patientToken := registerUser(t, r, "patient")
	_, otherToken := registerUser(t, r, "patient")
	doctorID, doctorToken := registerUser(t, r, "doctor")

	bookAppointment(t, r, patientToken, doctorID, futureDate(11), "13:00", "13:30")

	rec := doJSON(r, http.MethodGet, "/api/appointments", patientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])

	rec = doJSON(r, http.MethodGet, "/api/appointments", doctorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])

	// an unrelated patient sees nothing
	rec = doJSON(r, http.MethodGet, "/api/appointments", otherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), decode(t, rec)["count"])
}

// ----- medical records -----

func TestMedicalRecordFlow(t *testing.T) {
	r := setupRouter(t)
	patientID, patientToken := registerUser(t, r, "patient")
	_, doctorToken := registerUser(t, r, "doctor")
	_, otherDoctorToken := registerUser(t, r, "doctor")

	// patients may not author records
	rec := doJSON(r, http.MethodPost, "/api/medical-records", patientToken, gin.H{
		"patientId": patientID, "recordType": "lab", "title": "Blood panel",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(r, http.MethodPost, "/api/medical-records", doctorToken, gin.H{
		"patientId":   patientID,
		"recordType":  "lab",
		"title":       "Blood panel",
		"description": "all values nominal",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	record := decode(t, rec)["medicalRecord"].(map[string]any)
	recordID := record["id"].(string)

	// the patient can read their record
	rec = doJSON(r, http.MethodGet, "/api/medical-records/"+recordID, patientToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// an unrelated doctor cannot
	rec = doJSON(r, http.MethodGet, "/api/medical-records/"+recordID, otherDoctorToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// only the authoring doctor updates
	rec = doJSON(r, http.MethodPut, "/api/medical-records/"+recordID, otherDoctorToken, gin.H{"title": "tampered"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = doJSON(r, http.MethodPut, "/api/medical-records/"+recordID, doctorToken, gin.H{"title": "Blood panel (amended)"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode(t, rec)["medicalRecord"].(map[string]any)
	assert.Equal(t, "Blood panel (amended)", got["title"])

	// list shows it for the patient
	rec = doJSON(r, http.MethodGet, "/api/medical-records", patientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])

	// delete by a stranger fails, by the author succeeds
	rec = doJSON(r, http.MethodDelete, "/api/medical-records/"+recordID, otherDoctorToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = doJSON(r, http.MethodDelete, "/api/medical-records/"+recordID, doctorToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(r, http.MethodGet, "/api/medical-records/"+recordID, patientToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ----- users -----

func TestChangePassword(t *testing.T) {
	r := setupRouter(t)
	_, token := registerUser(t, r, "patient")

	rec := doJSON(r, http.MethodPut, "/api/users/change-password", token, gin.H{
		"currentPassword": "wrongpass123",
		"newPassword":     "newpass12345",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(r, http.MethodPut, "/api/users/change-password", token, gin.H{
		"currentPassword": "testpass123",
		"newPassword":     "newpass12345",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListDoctors(t *testing.T) {
	r := setupRouter(t)
	doctorID, _ := registerUser(t, r, "doctor")
	_, patientToken := registerUser(t, r, "patient")

	rec := doJSON(r, http.MethodGet, "/api/users/doctors", patientToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	doctors := body["doctors"].([]any)
	found := false
	for _, d := range doctors {
		if d.(map[string]any)["id"] == doctorID {
			found = true
		}
		assert.Equal(t, "doctor", d.(map[string]any)["role"])
	}
	assert.True(t, found, "freshly registered doctor must appear in the list")
}
