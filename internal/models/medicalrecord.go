package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MedicalRecord is authored by a doctor (or an admin) for a patient.
// Attachments are opaque references resolved by the frontend.
type MedicalRecord struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PatientID   primitive.ObjectID `bson:"patientId" json:"patientId"`
	DoctorID    primitive.ObjectID `bson:"doctorId" json:"doctorId"`
	RecordType  string             `bson:"recordType" json:"recordType"`
	Title       string             `bson:"title" json:"title"`
	Date        time.Time          `bson:"date" json:"date"`
	Description string             `bson:"description" json:"description"`
	Attachments []string           `bson:"attachments,omitempty" json:"attachments,omitempty"`
	IsPrivate   bool               `bson:"isPrivate" json:"isPrivate"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
