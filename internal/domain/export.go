package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AttendanceExport stores metadata about a monthly attendance report.
// The CSV itself resides in S3.
type AttendanceExport struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Month       string             `bson:"month" json:"month"`       // YYYY-MM
	S3ObjectKey string             `bson:"s3ObjectKey" json:"-"`     // Internal use only
	FileName    string             `bson:"fileName" json:"fileName"` // Suggested download name
	RowCount    int                `bson:"rowCount" json:"rowCount"`
	Size        int64              `bson:"size" json:"size"` // Bytes
	RequestedBy string             `bson:"requestedBy" json:"requestedBy"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
