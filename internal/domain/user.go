package domain

import "time"

// UserCategory represents the kind of account a profile belongs to
type UserCategory string

const (
	CategoryPlayer     UserCategory = "player"
	CategoryJunior     UserCategory = "junior"
	CategoryInstructor UserCategory = "instructor"
	CategoryCourse     UserCategory = "course"
)

// Profile represents a user profile document
type Profile struct {
	ID              string       `json:"id"`
	DisplayName     string       `json:"display_name"`
	AvatarURL       string       `json:"avatar_url,omitempty"`
	Category        UserCategory `json:"category"`
	City            string       `json:"city,omitempty"`
	Region          string       `json:"region,omitempty"`
	Country         string       `json:"country,omitempty"`
	HomeCourseIDs   []string     `json:"home_course_ids,omitempty"`
	MemberCourseIDs []string     `json:"member_course_ids,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// ProfileInfo is a lightweight profile projection used for caching and
// for labeling feed items with actor identity
type ProfileInfo struct {
	ID          string       `json:"id"`
	DisplayName string       `json:"display_name"`
	AvatarURL   string       `json:"avatar_url,omitempty"`
	Category    UserCategory `json:"category"`
}

// Info returns the cacheable projection of a profile
func (p *Profile) Info() ProfileInfo {
	return ProfileInfo{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
		Category:    p.Category,
	}
}

// UserContext holds the viewer's social, geographic and course graph.
// It is built once per feed request and immutable afterwards.
type UserContext struct {
	ViewerID           string
	Category           UserCategory
	PartnerIDs         []string
	PartnersPartnerIDs []string
	HomeCourseIDs      []string
	PlayedCourseIDs    []string
	City               string
	Region             string
	Country            string
}
