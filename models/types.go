package models

import (
	"fmt"
	"time"

	"github.com/danielhkuo/votertag/apperr"
)

// Role is one of a closed set of principal roles
type Role string

const (
	RoleSuperAdmin         Role = "super_admin"
	RoleCandidate          Role = "candidate"
	RoleCandidateAssistant Role = "candidate_assistant"
	RoleSuperUser          Role = "super_user"
	RolePDM                Role = "pdm"
)

// Roles lists every known role
var Roles = []Role{RoleSuperAdmin, RoleCandidate, RoleCandidateAssistant, RoleSuperUser, RolePDM}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// Tag is the sentiment tag on a voter. A nil *Tag means untagged.
type Tag string

const (
	TagYes    Tag = "Yes"
	TagUnsure Tag = "Unsure"
	TagNo     Tag = "No"
)

// TagUntagged is the filter value selecting voters with no tag
const TagUntagged = "untagged"

// ParseTag validates a tag value
func ParseTag(s string) (Tag, error) {
	switch Tag(s) {
	case TagYes, TagUnsure, TagNo:
		return Tag(s), nil
	}
	return "", fmt.Errorf("%w: tag must be one of Yes, Unsure, No", apperr.ErrValidation)
}

// TagString renders a nullable tag for storage and audit
func TagString(t *Tag) *string {
	if t == nil {
		return nil
	}
	s := string(*t)
	return &s
}

// SameTag reports whether two nullable tags are equal
func SameTag(a, b *Tag) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Gender codes as they appear on the electoral roll
const (
	GenderMale   = "L"
	GenderFemale = "P"
)

// Audit field names
const (
	FieldTag = "tag"
)

// Access log actions
const (
	ActionView      = "view"
	ActionViewStats = "view_stats"
	ActionExport    = "export"
)

func ValidAccessAction(a string) bool {
	switch a {
	case ActionView, ActionViewStats, ActionExport:
		return true
	}
	return false
}

// Domain types

type Principal struct {
	ID                 string     `json:"id"`
	Username           string     `json:"username"`
	FullName           string     `json:"full_name"`
	Email              string     `json:"email,omitempty"`
	Role               Role       `json:"role"`
	HomeArea           string     `json:"home_area,omitempty"`
	IsActive           bool       `json:"is_active"`
	MustChangePassword bool       `json:"must_change_password"`
	LastLogin          *time.Time `json:"last_login,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	PasswordHash       string     `json:"-"` // Never expose in JSON
}

// Summary is the public view returned at login
func (p Principal) Summary() PrincipalSummary {
	return PrincipalSummary{
		ID:       p.ID,
		Username: p.Username,
		FullName: p.FullName,
		Email:    p.Email,
		Role:     p.Role,
		HomeArea: p.HomeArea,
	}
}

type PrincipalSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email,omitempty"`
	Role     Role   `json:"role"`
	HomeArea string `json:"home_area,omitempty"`
}

type Voter struct {
	ID            int64     `json:"id"`
	Seq           int       `json:"seq"`
	IdentityNo    string    `json:"identity_no"`
	AltIdentityNo string    `json:"alt_identity_no,omitempty"`
	Name          string    `json:"name"`
	BirthYear     int       `json:"birth_year"`
	Gender        string    `json:"gender"`
	AreaCode      string    `json:"area_code"`
	Area          string    `json:"area"`
	DistrictCode  string    `json:"district_code"`
	District      string    `json:"district"`
	HomeArea      string    `json:"home_area"`
	Tag           *Tag      `json:"tag"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Age is the voter's age in the given calendar year
func (v Voter) Age(year int) int {
	return year - v.BirthYear
}

type AuditEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	VoterID   int64     `json:"voter_id"`
	Field     string    `json:"field"`
	OldValue  *string   `json:"old_value"`
	NewValue  *string   `json:"new_value"`
	IPHash    string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// AccessEntry records a read of voter data. VoterID is set when a single
// voter was read.
type AccessEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Action    string    `json:"action"`
	VoterID   *int64    `json:"voter_id,omitempty"`
	IPHash    string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Session struct {
	UserID    string     `json:"user_id"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Request types

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type UpdateTagRequest struct {
	Tag *Tag `json:"tag"`
}

type BatchTagItem struct {
	VoterID int64 `json:"voter_id"`
	Tag     *Tag  `json:"tag"`
}

type BatchUpdateTagRequest struct {
	Items []BatchTagItem `json:"items"`
}

type CreatePrincipalRequest struct {
	Username           string `json:"username"`
	FullName           string `json:"full_name"`
	Email              string `json:"email"`
	Role               Role   `json:"role"`
	HomeArea           string `json:"home_area"`
	Password           string `json:"password"`
	MustChangePassword bool   `json:"must_change_password"`
}

type SetActiveRequest struct {
	IsActive bool `json:"is_active"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// Response types

type LoginResponse struct {
	AccessToken        string           `json:"access_token"`
	TokenType          string           `json:"token_type"`
	IssuedAt           time.Time        `json:"issued_at"`
	ExpiresAt          time.Time        `json:"expires_at"`
	MustChangePassword bool             `json:"must_change_password"`
	User               PrincipalSummary `json:"user"`
}

type VoterPage struct {
	Data       []Voter `json:"data"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
}

type BatchItemResult struct {
	VoterID int64  `json:"voter_id"`
	Status  int    `json:"status"`
	Voter   *Voter `json:"voter,omitempty"`
	Error   string `json:"error,omitempty"`
}

type BatchUpdateTagResponse struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Results   []BatchItemResult `json:"results"`
}

type AuditPage struct {
	Data     []AuditEntry `json:"data"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
}

type AccessPage struct {
	Data     []AccessEntry `json:"data"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Analytics types

type Count struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type Stats struct {
	HomeArea     string           `json:"home_area"`
	Total        int              `json:"total"`
	Yes          Count            `json:"yes"`
	Unsure       Count            `json:"unsure"`
	No           Count            `json:"no"`
	Untagged     Count            `json:"untagged"`
	Gender       map[string]Count `json:"gender"`
	AgeBands     map[string]Count `json:"age_bands"`
	ProjectedYes int              `json:"projected_yes"`
	YesShare     float64          `json:"yes_share"`
}

type AreaCount struct {
	HomeArea string `json:"home_area"`
	Voters   int    `json:"voters"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
