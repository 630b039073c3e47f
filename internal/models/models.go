package models

import "time"

// OccurrenceStatus is the verification state of a report.
type OccurrenceStatus string

const (
	StatusPending  OccurrenceStatus = "PENDING"
	StatusVerified OccurrenceStatus = "VERIFIED"
	StatusResolved OccurrenceStatus = "RESOLVED"
)

// ValidStatus reports whether s is one of the three known statuses.
func ValidStatus(s OccurrenceStatus) bool {
	return s == StatusPending || s == StatusVerified || s == StatusResolved
}

// SharePermission is the level attached to a grant. Stored and returned to
// clients but not consulted by access checks.
type SharePermission string

const (
	PermissionView  SharePermission = "VIEW"
	PermissionEdit  SharePermission = "EDIT"
	PermissionAdmin SharePermission = "ADMIN"
)

// ValidPermission reports whether p is one of the three known levels.
func ValidPermission(p SharePermission) bool {
	return p == PermissionView || p == PermissionEdit || p == PermissionAdmin
}

// User is a registered account. PasswordHash never crosses the API boundary.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	Avatar       *string   `json:"avatar,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile is the public view of a user.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Avatar    *string   `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile returns the public view of u.
func (u *User) Profile() *Profile {
	return &Profile{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// PublicUser is the identity slice embedded in share listings.
type PublicUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Occurrence is a geolocated report with optional sensor readings. UserID
// is the owner, set once at creation.
type Occurrence struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Latitude       float64          `json:"latitude"`
	Longitude      float64          `json:"longitude"`
	Address        *string          `json:"address,omitempty"`
	AccelerometerX *float64         `json:"accelerometer_x,omitempty"`
	AccelerometerY *float64         `json:"accelerometer_y,omitempty"`
	AccelerometerZ *float64         `json:"accelerometer_z,omitempty"`
	Temperature    *float64         `json:"temperature,omitempty"`
	Humidity       *float64         `json:"humidity,omitempty"`
	Pressure       *float64         `json:"pressure,omitempty"`
	Status         OccurrenceStatus `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// OccurrenceDetail is an occurrence enriched with its photos and grants.
type OccurrenceDetail struct {
	Occurrence
	Photos []*Photo            `json:"photos"`
	Shares []*SharedOccurrence `json:"shared_with"`
}

// OccurrenceStats is the status partition of all occurrences.
type OccurrenceStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Verified int `json:"verified"`
	Resolved int `json:"resolved"`
}

// Photo is a binary attachment bound to an occurrence. UserID is the
// uploader, always the occurrence owner.
type Photo struct {
	ID           string    `json:"id"`
	OccurrenceID string    `json:"occurrence_id"`
	UserID       string    `json:"user_id"`
	FileName     string    `json:"file_name"`
	FilePath     string    `json:"file_path"`
	FileSize     int64     `json:"file_size"`
	MimeType     string    `json:"mime_type"`
	CreatedAt    time.Time `json:"created_at"`
}

// SharedOccurrence grants SharedWithID access to an occurrence. At most one
// grant exists per (OccurrenceID, SharedWithID) pair.
type SharedOccurrence struct {
	ID           string          `json:"id"`
	OccurrenceID string          `json:"occurrence_id"`
	SharedByID   string          `json:"shared_by_id"`
	SharedWithID string          `json:"shared_with_id"`
	Permission   SharePermission `json:"permission"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ShareDetail is a grant enriched with its occurrence and the counterpart
// user's public identity. For shared-with-me listings the counterpart is
// the sharer; for shared-by-me it is the recipient.
type ShareDetail struct {
	SharedOccurrence
	Occurrence *Occurrence `json:"occurrence"`
	SharedBy   *PublicUser `json:"shared_by,omitempty"`
	SharedWith *PublicUser `json:"shared_with,omitempty"`
}
