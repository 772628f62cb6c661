package activity

import (
	"strings"
	"time"
)

// Type is the kind of auth event an activity record describes.
type Type string

const (
	TypeLogin      Type = "login"
	TypeSignup     Type = "signup"
	TypeLogout     Type = "logout"
	TypeRoleChange Type = "role_change"
)

func (t Type) Valid() bool {
	switch t {
	case TypeLogin, TypeSignup, TypeLogout, TypeRoleChange:
		return true
	}
	return false
}

// isoLayout matches the fixed-width UTC strings stored in createdAt, so that
// lexical order equals chronological order.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// Record is one append-only activity log entry.
type Record struct {
	ID           string                 `bson:"_id,omitempty" json:"id"`
	UserID       string                 `bson:"userId" json:"userId"`
	Email        string                 `bson:"email,omitempty" json:"email,omitempty"`
	ActivityType Type                   `bson:"activityType" json:"activityType"`
	Metadata     map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Timestamp    *time.Time             `bson:"timestamp,omitempty" json:"timestamp,omitempty"`
	CreatedAt    string                 `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// EffectiveTime prefers the structured timestamp and falls back to parsing
// createdAt. ok is false when neither resolves.
func (r Record) EffectiveTime() (time.Time, bool) {
	if r.Timestamp != nil && !r.Timestamp.IsZero() {
		return r.Timestamp.UTC(), true
	}
	s := strings.TrimSpace(r.CreatedAt)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range createdAtLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// ContactEmail returns the record email, falling back to metadata.email.
func (r Record) ContactEmail() string {
	if r.Email != "" {
		return r.Email
	}
	if v, ok := r.Metadata["email"].(string); ok {
		return v
	}
	return ""
}

// DayStats holds per-type counts for one calendar day.
type DayStats struct {
	Logins  int `json:"logins"`
	Signups int `json:"signups"`
	Logouts int `json:"logouts"`
}

// Stats aggregates activity over a date range. ByDate is keyed by UTC date
// (YYYY-MM-DD).
type Stats struct {
	TotalLogins  int                 `json:"totalLogins"`
	TotalSignups int                 `json:"totalSignups"`
	TotalLogouts int                 `json:"totalLogouts"`
	UniqueUsers  int                 `json:"uniqueUsers"`
	ByDate       map[string]DayStats `json:"byDate"`
}
