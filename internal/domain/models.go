// Package domain defines the persistence models for users, contacts,
// revision requests, and revision results. These types are mapped with GORM
// and form the core data layer of the mail revision backend.
package domain

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Request status values. A request is created as StatusPending by the job
// orchestrator and transitioned only by the background worker.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// SubmissionPayload is the structured submission accepted by POST /jobs.
// It is validated once at the HTTP boundary and then stored verbatim
// (JSON-encoded) on the Request row for replay and audit.
//
// Field names follow the client wire format: Draft travels as "data" and
// Guide carries free-text revision guidance.
type SubmissionPayload struct {
	Email          string   `json:"email"`
	Recipient      string   `json:"recipient,omitempty"`
	Title          string   `json:"title,omitempty"`
	Draft          string   `json:"data,omitempty"`
	Guide          string   `json:"guide,omitempty"`
	Option         string   `json:"option,omitempty"`
	Language       string   `json:"language,omitempty"`
	FilterKeywords []string `json:"filter_keywords,omitempty"`
}

// User represents an account created through the OAuth callback. The
// exclusion keyword list is stored as a JSON-encoded array of strings.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email: unique login identity resolved from the OAuth provider.
//   - FilterKeywords: JSON array of keywords the revision engine must avoid.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID             string    `json:"id"    gorm:"type:char(36);primaryKey"`
	Email          string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	FilterKeywords string    `json:"-"     gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Keywords decodes the stored JSON keyword list. A missing or malformed
// column yields an empty slice rather than an error; the filter list is
// advisory and must never block processing.
func (u *User) Keywords() []string {
	if u.FilterKeywords == "" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(u.FilterKeywords), &out); err != nil {
		return []string{}
	}
	return out
}

// SetKeywords JSON-encodes the keyword list into the storage column.
func (u *User) SetKeywords(kw []string) {
	if kw == nil {
		kw = []string{}
	}
	b, _ := json.Marshal(kw)
	u.FilterKeywords = string(b)
}

// Contact represents one address-book entry owned by a user. Submitted
// recipients are matched against contacts by exact email to provide
// recipient context {name, group} to the revision engine.
type Contact struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_user_contacts"`
	Email     string         `json:"email"      gorm:"type:varchar(255);not null;index"`
	Name      string         `json:"name"       gorm:"type:varchar(255);not null"`
	Group     string         `json:"group"      gorm:"column:group_name;type:varchar(255)"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Contact.
func (Contact) TableName() string { return "contacts" }

// Request is the persisted record of one submitted revision job. Its ID is
// the externally visible job handle. The row is written exactly once at
// submission; only the status and failure reason columns are mutated
// afterwards, and only by the background worker.
//
// Fields:
//   - Payload: the original submission, JSON-encoded verbatim.
//   - RecipientID: contact resolved at submission time; nil when the
//     submitted recipient matched no contact (not an error).
//   - Status: pending → running → succeeded|failed.
//   - FailureReason: populated only for failed requests.
type Request struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	UserID         string    `json:"user_id"         gorm:"type:varchar(64);not null;index:idx_user_requests"`
	Payload        string    `json:"-"               gorm:"type:text;not null"`
	RecipientEmail string    `json:"recipient_email" gorm:"type:varchar(255)"`
	RecipientID    *string   `json:"recipient_id,omitempty" gorm:"type:char(36)"`
	Status         string    `json:"status"          gorm:"type:varchar(16);not null;default:'pending';index;check:status IN ('pending','running','succeeded','failed')"`
	FailureReason  string    `json:"failure_reason,omitempty" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for Request.
func (Request) TableName() string { return "requests" }

// Submission decodes the stored payload back into its structured form.
func (r *Request) Submission() (SubmissionPayload, error) {
	var p SubmissionPayload
	err := json.Unmarshal([]byte(r.Payload), &p)
	return p, err
}

// Result is the persisted output of a completed revision, linked to exactly
// one Request. The unique index on RequestID enforces first-write-wins when
// duplicate queue delivery causes two workers to race on the same request.
type Result struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	RequestID string    `json:"request_id" gorm:"type:char(36);not null;uniqueIndex:ux_result_request"`
	Title     string    `json:"title"      gorm:"type:text;not null"`
	Body      string    `json:"body"       gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`

	// Request is the originating submission. Results are cascade-deleted
	// if the request is removed.
	Request Request `json:"-" gorm:"foreignKey:RequestID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Result.
func (Result) TableName() string { return "results" }
