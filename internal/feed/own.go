package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/ryyparr-art/swingthoughts-sub007/internal/domain"
)

// Tier 4: the viewer's own latest activity. The sample is deliberately
// tiny so the feed is not dominated by the viewer's own content.
const (
	ownFetchLimit = 2

	scoreOwnRecord = 70
	scoreOwnPost   = 65
	scoreOwnScore  = 62
)

// ownTier surfaces the viewer's own most recent posts and scores
func (s *Service) ownTier(ctx context.Context, uc *domain.UserContext) ([]domain.FeedItem, error) {
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
		posts, postErr = s.store.PostsByAuthor(ctx, uc.ViewerID, ownFetchLimit)
	}()
	go func() {
		defer wg.Done()
		scores, scoreErr = s.store.ScoresByAuthor(ctx, uc.ViewerID, ownFetchLimit)
	}()
	wg.Wait()

	if postErr != nil {
		return nil, fmt.Errorf("fetching own posts: %w", postErr)
	}
	if scoreErr != nil {
		return nil, fmt.Errorf("fetching own scores: %w", scoreErr)
	}

	actors, err := s.resolveActors(ctx, posts, scores)
	if err != nil {
		return nil, err
	}
	records, err := s.resolveRecords(ctx, scores)
	if err != nil {
		return nil, err
	}

	items := make([]domain.FeedItem, 0, len(posts)+len(scores))
	for _, p := range posts {
		items = append(items, postItem(p, actors[p.AuthorID], scoreOwnPost, "Your post"))
	}
	for _, sc := range scores {
		if records[sc.CourseID].Beats(sc.Net) {
			items = append(items, scoreItem(sc, actors[sc.AuthorID], true, scoreOwnRecord, "Your new record"))
		} else {
			items = append(items, scoreItem(sc, actors[sc.AuthorID], false, scoreOwnScore, "Your score"))
		}
	}
	return items, nil
}
