package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminRequest statuses. A request starts as pending and is moved to
// approved or rejected exactly once by an administrator decision.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// User account roles and statuses
const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	UserActive    = "active"
	UserSuspended = "suspended"
)

// AdminRequest represents one user's petition for admin privileges and
// the eventual decision made on it
type AdminRequest struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	User        primitive.ObjectID  `bson:"user" json:"user"`
	Reason      string              `bson:"reason" json:"reason"`
	Experience  string              `bson:"experience,omitempty" json:"experience,omitempty"`
	Status      string              `bson:"status" json:"status"`
	ProcessedBy *primitive.ObjectID `bson:"processedBy,omitempty" json:"processedBy,omitempty"`
	ProcessedAt *time.Time          `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
}

// User represents a user account. Accounts are created and deleted by the
// main application; this service only reads them and mutates role/status.
// Status stays empty on legacy accounts that predate the field and is
// intentionally not defaulted here.
type User struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Username     string             `bson:"username" json:"username"`
	FirstName    string             `bson:"firstName,omitempty" json:"firstName,omitempty"`
	LastName     string             `bson:"lastName,omitempty" json:"lastName,omitempty"`
	Email        string             `bson:"email" json:"email"`
	Role         string             `bson:"role" json:"role"`
	Status       string             `bson:"status,omitempty" json:"status,omitempty"`
	ExcelRecords []ExcelRecord      `bson:"excelRecords,omitempty" json:"excelRecords,omitempty"`
	ChartRecords []ChartRecord      `bson:"chartRecords,omitempty" json:"chartRecords,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
}

// ExcelRecord is the metadata of one uploaded spreadsheet, written by the
// upload pipeline in the main application
type ExcelRecord struct {
	Filename   string    `bson:"filename" json:"filename"`
	Filesize   int64     `bson:"filesize" json:"filesize"`
	UploadedAt time.Time `bson:"uploadedAt" json:"uploadedAt"`
	Rows       int64     `bson:"rows" json:"rows"`
	Columns    int64     `bson:"columns" json:"columns"`
}

// ChartRecord is the metadata of one chart a user generated from an
// uploaded spreadsheet
type ChartRecord struct {
	ChartType     string                 `bson:"chartType" json:"chartType"`
	CreatedAt     time.Time              `bson:"createdAt" json:"createdAt"`
	FromExcelFile string                 `bson:"fromExcelFile" json:"fromExcelFile"`
	ChartConfig   map[string]interface{} `bson:"chartConfig" json:"chartConfig"`
}
