package domain

import "time"

// Post represents a post document authored by a user
type Post struct {
	ID              string    `json:"id"`
	AuthorID        string    `json:"author_id"`
	Caption         string    `json:"caption,omitempty"`
	ImageURLs       []string  `json:"image_urls,omitempty"`
	VideoURL        string    `json:"video_url,omitempty"`
	VideoThumbURL   string    `json:"video_thumb_url,omitempty"`
	TaggedCourseIDs []string  `json:"tagged_course_ids,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Score represents a round score document posted by a user.
// CourseName is denormalized onto the document at write time.
type Score struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	CourseID   string    `json:"course_id"`
	CourseName string    `json:"course_name"`
	Gross      int       `json:"gross"`
	Net        int       `json:"net"`
	Par        int       `json:"par"`
	CreatedAt  time.Time `json:"created_at"`
}

// CourseRecord represents the current best-net-score ("lowman") holder
// at a course. A course with no record yet has no document at all.
type CourseRecord struct {
	CourseID  string    `json:"course_id"`
	HolderID  string    `json:"holder_id"`
	NetScore  int       `json:"net_score"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Beats reports whether a submitted net score takes the record.
// A strictly lower net beats the holder; equal scores do not.
func (r *CourseRecord) Beats(net int) bool {
	return r == nil || net < r.NetScore
}

// PostSubmission represents a request to publish a post
type PostSubmission struct {
	AuthorID        string   `json:"author_id"`
	Caption         string   `json:"caption,omitempty"`
	ImageURLs       []string `json:"image_urls,omitempty"`
	VideoURL        string   `json:"video_url,omitempty"`
	VideoThumbURL   string   `json:"video_thumb_url,omitempty"`
	TaggedCourseIDs []string `json:"tagged_course_ids,omitempty"`
}

// ScoreSubmission represents a request to post a round score
type ScoreSubmission struct {
	AuthorID   string `json:"author_id"`
	CourseID   string `json:"course_id"`
	CourseName string `json:"course_name"`
	Gross      int    `json:"gross"`
	Net        int    `json:"net"`
	Par        int    `json:"par"`
}
