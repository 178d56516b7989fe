package feed

import (
	"context"
	"fmt"

	"github.com/ryyparr-art/swingthoughts-sub007/internal/domain"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/store"
)

// Tier 2: activity from geographically nearby accounts, with a
// two-stage widening from same-city to same-region.
const (
	nearbyAccountCap  = 30
	nearbyCityLimit   = 15
	nearbyRegionLimit = 10

	// nearbyStageFloor is the same-city item count below which the
	// region-wide stage runs
	nearbyStageFloor = 15

	scoreNearbyCityPost   = 90
	scoreNearbyCityRecord = 95
	scoreNearbyCityScore  = 88

	scoreNearbyRegionPost   = 85
	scoreNearbyRegionRecord = 88
	scoreNearbyRegionScore  = 83
)

// nearbyTier surfaces activity from accounts near the viewer. Stage A
// covers the viewer's exact city; stage B widens to the rest of the
// region only when stage A comes up short.
func (s *Service) nearbyTier(ctx context.Context, uc *domain.UserContext) ([]domain.FeedItem, error) {
	if uc.City == "" && uc.Region == "" {
		return nil, nil
	}

	items, err := s.nearbyStage(ctx, uc, true)
	if err != nil {
		return nil, err
	}

	if len(items) < nearbyStageFloor {
		widened, err := s.nearbyStage(ctx, uc, false)
		if err != nil {
			// Keep the same-city results rather than losing the tier
			s.logger.Warn("nearby region stage degraded", "viewer_id", uc.ViewerID, "error", err)
			return items, nil
		}
		items = append(items, widened...)
	}
	return items, nil
}

// nearbyStage fetches nearby accounts and their recent activity for one
// geographic ring
func (s *Service) nearbyStage(ctx context.Context, uc *domain.UserContext, sameCity bool) ([]domain.FeedItem, error) {
	var (
		accounts []domain.Profile
		err      error
	)
	if sameCity {
		accounts, err = s.store.ProfilesInCity(ctx, uc.City, uc.Region, uc.ViewerID, nearbyAccountCap)
	} else {
		accounts, err = s.store.ProfilesInRegion(ctx, uc.Region, uc.City, uc.ViewerID, nearbyAccountCap)
	}
	if err != nil {
		return nil, fmt.Errorf("finding nearby accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, nil
	}

	// The account query already carries full profiles, so actor info
	// comes straight from it; warm the cache for other tiers as we go.
	actors := make(map[string]domain.ProfileInfo, len(accounts))
	ids := make([]string, 0, len(accounts))
	for _, account := range accounts {
		info := account.Info()
		actors[account.ID] = info
		ids = append(ids, account.ID)
		s.profiles.Put(ctx, info)
	}

	limit := nearbyCityLimit
	if !sameCity {
		limit = nearbyRegionLimit
	}
	posts, scores, err := s.fetchActivity(ctx, store.FirstN(ids, store.InQueryLimit), limit)
	if err != nil {
		return nil, err
	}
	records, err := s.resolveRecords(ctx, scores)
	if err != nil {
		return nil, err
	}

	postScore, recordScore, plainScore := scoreNearbyCityPost, scoreNearbyCityRecord, scoreNearbyCityScore
	postReason := fmt.Sprintf("Nearby in %s, %s", uc.City, uc.Region)
	if !sameCity {
		postScore, recordScore, plainScore = scoreNearbyRegionPost, scoreNearbyRegionRecord, scoreNearbyRegionScore
		postReason = fmt.Sprintf("Nearby in %s", uc.Region)
	}

	items := make([]domain.FeedItem, 0, len(posts)+len(scores))
	for _, p := range posts {
		actor := actors[p.AuthorID]
		boost := s.boost(actor.Category, uc.Category)
		items = append(items, postItem(p, actor, postScore+boost, postReason))
	}
	for _, sc := range scores {
		actor := actors[sc.AuthorID]
		boost := s.boost(actor.Category, uc.Category)
		if records[sc.CourseID].Beats(sc.Net) {
			items = append(items, scoreItem(sc, actor, true, recordScore+boost, "New record nearby"))
		} else {
			items = append(items, scoreItem(sc, actor, false, plainScore+boost, "Nearby score"))
		}
	}
	return items, nil
}
