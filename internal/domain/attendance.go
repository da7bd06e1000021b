package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AttendanceRecord is one gym check-in. There is at most one record per
// (UserID, Date); Date is the midnight label of the check-in day.
type AttendanceRecord struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      string             `bson:"userId" json:"userId"`
	Date        time.Time          `bson:"date" json:"date"`
	CheckInTime time.Time          `bson:"checkInTime" json:"checkInTime"`
	IsManual    bool               `bson:"isManual" json:"isManual"`                         // Entered by a trainer/admin
	RecordedBy  string             `bson:"recordedBy,omitempty" json:"recordedBy,omitempty"` // Staff user who entered a manual record
	Notes       string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
