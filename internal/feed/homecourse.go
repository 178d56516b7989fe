package feed

import (
	"context"
	"fmt"

	"github.com/ryyparr-art/swingthoughts-sub007/internal/domain"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/store"
)

// Tier 3: round scores posted at the viewer's home courses. Posts are
// not course-scoped, so this tier emits score items only.
const (
	homeScoreLimit = 25

	scoreHomeRecord = 85
	scoreHomeScore  = 80
)

// homeCourseTier surfaces other players' recent scores at the courses
// the viewer declared as home or member courses
func (s *Service) homeCourseTier(ctx context.Context, uc *domain.UserContext) ([]domain.FeedItem, error) {
	if len(uc.HomeCourseIDs) == 0 {
		return nil, nil
	}

	courses := store.FirstN(uc.HomeCourseIDs, store.InQueryLimit)
	scores, err := s.store.ScoresAtCourses(ctx, courses, uc.ViewerID, homeScoreLimit)
	if err != nil {
		return nil, fmt.Errorf("fetching home-course scores: %w", err)
	}

	actors, err := s.resolveActors(ctx, nil, scores)
	if err != nil {
		return nil, err
	}
	records, err := s.resolveRecords(ctx, scores)
	if err != nil {
		return nil, err
	}

	items := make([]domain.FeedItem, 0, len(scores))
	for _, sc := range scores {
		actor := actors[sc.AuthorID]
		boost := s.boost(actor.Category, uc.Category)
		if records[sc.CourseID].Beats(sc.Net) {
			items = append(items, scoreItem(sc, actor, true, scoreHomeRecord+boost, "Record at your course"))
		} else {
			items = append(items, scoreItem(sc, actor, false, scoreHomeScore+boost, "Score at your course"))
		}
	}
	return items, nil
}
