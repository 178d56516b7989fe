package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/ryyparr-art/swingthoughts-sub007/internal/domain"
)

// Tier 5: globally recent activity, run only when the primary tiers
// leave the feed too thin. Course records are deliberately not checked
// here: a global sample is high volume and almost never a record, so
// the extra point reads are not worth it.
const (
	// fallbackFloor is the combined primary-tier item count below
	// which the global tier runs
	fallbackFloor = 30

	// fallbackTarget is the feed size the global tier tops up towards
	fallbackTarget = 50

	// fallbackFetchCap bounds how many items one fallback pass fetches
	fallbackFetchCap = 20

	scoreGlobalPost  = 35
	scoreGlobalScore = 30
)

// globalTier tops the feed up with recent activity from anyone,
// excluding the viewer's own content
func (s *Service) globalTier(ctx context.Context, uc *domain.UserContext, currentCount int) ([]domain.FeedItem, error) {
	total := fallbackTarget - currentCount
	if total > fallbackFetchCap {
		total = fallbackFetchCap
	}
	if total <= 0 {
		return nil, nil
	}
	postLimit := total / 2
	scoreLimit := total - postLimit

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
		posts, postErr = s.store.RecentPosts(ctx, uc.ViewerID, postLimit)
	}()
	go func() {
		defer wg.Done()
		scores, scoreErr = s.store.RecentScores(ctx, uc.ViewerID, scoreLimit)
	}()
	wg.Wait()

	if postErr != nil {
		return nil, fmt.Errorf("fetching recent posts: %w", postErr)
	}
	if scoreErr != nil {
		return nil, fmt.Errorf("fetching recent scores: %w", scoreErr)
	}

	actors, err := s.resolveActors(ctx, posts, scores)
	if err != nil {
		return nil, err
	}

	items := make([]domain.FeedItem, 0, len(posts)+len(scores))
	for _, p := range posts {
		actor := actors[p.AuthorID]
		boost := s.boost(actor.Category, uc.Category)
		items = append(items, postItem(p, actor, scoreGlobalPost+boost, "Recent post"))
	}
	for _, sc := range scores {
		actor := actors[sc.AuthorID]
		boost := s.boost(actor.Category, uc.Category)
		items = append(items, scoreItem(sc, actor, false, scoreGlobalScore+boost, "Recent score"))
	}
	return items, nil
}
