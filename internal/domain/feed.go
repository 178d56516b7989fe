package domain

import "time"

// ContentKind discriminates the two feed item variants
type ContentKind string

const (
	ContentPost  ContentKind = "post"
	ContentScore ContentKind = "score"
)

// FeedItem is a single ranked entry in a user's activity feed. Exactly
// one of Post or Score is set, according to Kind.
type FeedItem struct {
	Kind        ContentKind `json:"kind"`
	ID          string      `json:"id"`
	ActorID     string      `json:"actor_id"`
	ActorName   string      `json:"actor_name"`
	ActorAvatar string      `json:"actor_avatar,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	Relevance   int         `json:"relevance"`
	Reason      string      `json:"reason"`
	Post        *PostItem   `json:"post,omitempty"`
	Score       *ScoreItem  `json:"score,omitempty"`
}

// PostItem carries the post-variant payload of a feed item
type PostItem struct {
	Caption         string   `json:"caption,omitempty"`
	ImageURLs       []string `json:"image_urls,omitempty"`
	VideoURL        string   `json:"video_url,omitempty"`
	VideoThumbURL   string   `json:"video_thumb_url,omitempty"`
	TaggedCourseIDs []string `json:"tagged_course_ids,omitempty"`
}

// ScoreItem carries the score-variant payload of a feed item
type ScoreItem struct {
	CourseID        string `json:"course_id"`
	CourseName      string `json:"course_name"`
	Gross           int    `json:"gross"`
	Net             int    `json:"net"`
	Par             int    `json:"par"`
	NewCourseRecord bool   `json:"new_course_record"`
}

// ItemKey identifies a feed item for deduplication. Post and score ids
// live in separate id spaces, so the kind is part of the identity.
type ItemKey struct {
	Kind ContentKind
	ID   string
}

// Key returns the deduplication identity of the item
func (i *FeedItem) Key() ItemKey {
	return ItemKey{Kind: i.Kind, ID: i.ID}
}
