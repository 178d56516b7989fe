package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/ryyparr-art/swingthoughts-sub007/internal/domain"
)

// fetchActivity runs the posts and scores queries for a set of authors
// concurrently, each ordered by recency and capped at limit rows
func (s *Service) fetchActivity(ctx context.Context, authorIDs []string, limit int) ([]domain.Post, []domain.Score, error) {
	var (
		posts    []domain.Post
		scores   []domain.Score
		postErr  error
		scoreErr error
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		posts, postErr = s.store.PostsByAuthors(ctx, authorIDs, limit)
	}()
	go func() {
		defer wg.Done()
		scores, scoreErr = s.store.ScoresByAuthors(ctx, authorIDs, limit)
	}()
	wg.Wait()

	if postErr != nil {
		return nil, nil, fmt.Errorf("fetching posts: %w", postErr)
	}
	if scoreErr != nil {
		return nil, nil, fmt.Errorf("fetching scores: %w", scoreErr)
	}
	return posts, scores, nil
}

// resolveActors batch-resolves profile info for every distinct author
// in the given result sets
func (s *Service) resolveActors(ctx context.Context, posts []domain.Post, scores []domain.Score) (map[string]domain.ProfileInfo, error) {
	ids := make([]string, 0, len(posts)+len(scores))
	for _, p := range posts {
		ids = append(ids, p.AuthorID)
	}
	for _, sc := range scores {
		ids = append(ids, sc.AuthorID)
	}
	if len(ids) == 0 {
		return map[string]domain.ProfileInfo{}, nil
	}
	actors, err := s.profiles.Resolve(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving actors: %w", err)
	}
	return actors, nil
}

// resolveRecords batch-resolves course-record status for every distinct
// course touched by the given scores
func (s *Service) resolveRecords(ctx context.Context, scores []domain.Score) (map[string]*domain.CourseRecord, error) {
	if len(scores) == 0 {
		return map[string]*domain.CourseRecord{}, nil
	}
	ids := make([]string, 0, len(scores))
	for _, sc := range scores {
		ids = append(ids, sc.CourseID)
	}
	records, err := s.records.Resolve(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolving course records: %w", err)
	}
	return records, nil
}

// postItem builds the post-variant feed item
func postItem(p domain.Post, actor domain.ProfileInfo, relevance int, reason string) domain.FeedItem {
	return domain.FeedItem{
		Kind:        domain.ContentPost,
		ID:          p.ID,
		ActorID:     p.AuthorID,
		ActorName:   actor.DisplayName,
		ActorAvatar: actor.AvatarURL,
		CreatedAt:   p.CreatedAt,
		Relevance:   relevance,
		Reason:      reason,
		Post: &domain.PostItem{
			Caption:         p.Caption,
			ImageURLs:       p.ImageURLs,
			VideoURL:        p.VideoURL,
			VideoThumbURL:   p.VideoThumbURL,
			TaggedCourseIDs: p.TaggedCourseIDs,
		},
	}
}

// scoreItem builds the score-variant feed item
func scoreItem(sc domain.Score, actor domain.ProfileInfo, newRecord bool, relevance int, reason string) domain.FeedItem {
	return domain.FeedItem{
		Kind:        domain.ContentScore,
		ID:          sc.ID,
		ActorID:     sc.AuthorID,
		ActorName:   actor.DisplayName,
		ActorAvatar: actor.AvatarURL,
		CreatedAt:   sc.CreatedAt,
		Relevance:   relevance,
		Reason:      reason,
		Score: &domain.ScoreItem{
			CourseID:        sc.CourseID,
			CourseName:      sc.CourseName,
			Gross:           sc.Gross,
			Net:             sc.Net,
			Par:             sc.Par,
			NewCourseRecord: newRecord,
		},
	}
}
