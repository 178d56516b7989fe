package store

import (
	"context"

	"github.com/ryyparr-art/swingthoughts-sub007/internal/domain"
)

// InQueryLimit is the maximum number of values accepted by a single
// "value in set" query. Callers with larger sets must batch with
// BatchIDs or accept querying only the first InQueryLimit ids.
const InQueryLimit = 10

// Store exposes the document-store operations the feed engine consumes:
// point reads by id, equality filters with recency ordering and limits,
// and capped value-in-set filters.
type Store interface {
	// GetProfile reads a profile document by id.
	// Returns domain.ErrProfileNotFound if it does not exist.
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)

	// ProfilesByIDs reads up to InQueryLimit profile documents by id.
	// Missing ids are silently omitted from the result.
	ProfilesByIDs(ctx context.Context, userIDs []string) ([]domain.Profile, error)

	// ProfilesInCity returns profiles sharing the exact city+region,
	// excluding excludeID, capped at limit.
	ProfilesInCity(ctx context.Context, city, region, excludeID string, limit int) ([]domain.Profile, error)

	// ProfilesInRegion returns profiles sharing the region but in a
	// different city, excluding excludeID, capped at limit.
	ProfilesInRegion(ctx context.Context, region, excludeCity, excludeID string, limit int) ([]domain.Profile, error)

	// ConfirmedPartnerIDs returns the ids on the far side of every
	// confirmed partnership edge touching userID.
	ConfirmedPartnerIDs(ctx context.Context, userID string) ([]string, error)

	// PostsByAuthor returns the author's most recent posts.
	PostsByAuthor(ctx context.Context, authorID string, limit int) ([]domain.Post, error)

	// ScoresByAuthor returns the author's most recent round scores.
	ScoresByAuthor(ctx context.Context, authorID string, limit int) ([]domain.Score, error)

	// PostsByAuthors returns the most recent posts authored by any of
	// up to InQueryLimit author ids, newest first.
	PostsByAuthors(ctx context.Context, authorIDs []string, limit int) ([]domain.Post, error)

	// ScoresByAuthors returns the most recent round scores authored by
	// any of up to InQueryLimit author ids, newest first.
	ScoresByAuthors(ctx context.Context, authorIDs []string, limit int) ([]domain.Score, error)

	// ScoresAtCourses returns the most recent round scores posted at any
	// of up to InQueryLimit courses, excluding excludeAuthorID's own.
	ScoresAtCourses(ctx context.Context, courseIDs []string, excludeAuthorID string, limit int) ([]domain.Score, error)

	// RecentPosts returns globally recent posts excluding one author.
	RecentPosts(ctx context.Context, excludeAuthorID string, limit int) ([]domain.Post, error)

	// RecentScores returns globally recent scores excluding one author.
	RecentScores(ctx context.Context, excludeAuthorID string, limit int) ([]domain.Score, error)

	// GetCourseRecord reads the record document for a course.
	// Returns domain.ErrNoCourseRecord when no record has been set.
	GetCourseRecord(ctx context.Context, courseID string) (*domain.CourseRecord, error)

	// InsertPost persists a new post document.
	InsertPost(ctx context.Context, post domain.Post) error

	// InsertScore persists a new round score document.
	InsertScore(ctx context.Context, score domain.Score) error

	// ClaimCourseRecord installs record as the course's holder unless a
	// strictly lower net score already holds it. Reports whether the
	// claim took effect.
	ClaimCourseRecord(ctx context.Context, record domain.CourseRecord) (bool, error)

	// BestScores computes the true lowest-net holder for every course
	// with at least one score, used by the record rebuild worker.
	BestScores(ctx context.Context) ([]domain.CourseRecord, error)

	// ReplaceCourseRecords overwrites record documents wholesale.
	ReplaceCourseRecords(ctx context.Context, records []domain.CourseRecord) error
}

// BatchIDs splits ids into chunks no larger than InQueryLimit
func BatchIDs(ids []string) [][]string {
	if len(ids) == 0 {
		return nil
	}
	batches := make([][]string, 0, (len(ids)+InQueryLimit-1)/InQueryLimit)
	for start := 0; start < len(ids); start += InQueryLimit {
		end := start + InQueryLimit
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}

// FirstN returns at most the first n ids. Retrievers that deliberately
// trade completeness for latency query only the first InQueryLimit ids
// of a larger set.
func FirstN(ids []string, n int) []string {
	if len(ids) <= n {
		return ids
	}
	return ids[:n]
}
