package feed

import (
	"context"

	"github.com/ryyparr-art/swingthoughts-sub007/internal/domain"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/store"
)

// Tier 1: activity from confirmed partners, fixed highest weight.
const (
	partnerFetchLimit = 20

	scorePartnerPost   = 100
	scorePartnerRecord = 100
	scorePartnerScore  = 98
)

// partnerTier surfaces posts and round scores from the viewer's
// partners. Only the first InQueryLimit partner ids are queried, an
// accepted tradeoff favoring latency over completeness for very
// connected players.
func (s *Service) partnerTier(ctx context.Context, uc *domain.UserContext) ([]domain.FeedItem, error) {
	if len(uc.PartnerIDs) == 0 {
		return nil, nil
	}

	authors := store.FirstN(uc.PartnerIDs, store.InQueryLimit)
	posts, scores, err := s.fetchActivity(ctx, authors, partnerFetchLimit)
	if err != nil {
		return nil, err
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
		items = append(items, postItem(p, actors[p.AuthorID], scorePartnerPost, "Partner posted"))
	}
	for _, sc := range scores {
		if records[sc.CourseID].Beats(sc.Net) {
			items = append(items, scoreItem(sc, actors[sc.AuthorID], true, scorePartnerRecord, "Partner's new record"))
		} else {
			items = append(items, scoreItem(sc, actors[sc.AuthorID], false, scorePartnerScore, "Partner posted score"))
		}
	}
	return items, nil
}
