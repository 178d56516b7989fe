package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ryyparr-art/swingthoughts-sub007/internal/domain"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/store"
)

const (
	// playedCourseSample caps the score-history sample used to derive
	// the viewer's played courses
	playedCourseSample = 20

	// secondDegreeFanout caps how many first-degree partners are
	// expanded when collecting partners-of-partners
	secondDegreeFanout = 10
)

// buildContext assembles the viewer's social, geographic and course
// graph. Fails only when the viewer profile itself is missing; partial
// graph failures degrade to empty sets so the feed can still render.
func (s *Service) buildContext(ctx context.Context, viewerID string) (*domain.UserContext, error) {
	profile, err := s.store.GetProfile(ctx, viewerID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return nil, domain.ErrViewerNotFound
		}
		return nil, fmt.Errorf("reading viewer profile: %w", err)
	}

	uc := &domain.UserContext{
		ViewerID:      viewerID,
		Category:      profile.Category,
		HomeCourseIDs: unionIDs(profile.HomeCourseIDs, profile.MemberCourseIDs),
		City:          profile.City,
		Region:        profile.Region,
		Country:       profile.Country,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		partnerIDs, err := s.store.ConfirmedPartnerIDs(ctx, viewerID)
		if err != nil {
			s.logger.Warn("partner lookup degraded", "viewer_id", viewerID, "error", err)
			return
		}
		uc.PartnerIDs = partnerIDs
	}()
	go func() {
		defer wg.Done()
		scores, err := s.store.ScoresByAuthor(ctx, viewerID, playedCourseSample)
		if err != nil {
			s.logger.Warn("played-course lookup degraded", "viewer_id", viewerID, "error", err)
			return
		}
		courseIDs := make([]string, 0, len(scores))
		for _, sc := range scores {
			courseIDs = append(courseIDs, sc.CourseID)
		}
		uc.PlayedCourseIDs = unionIDs(courseIDs, nil)
	}()
	wg.Wait()

	if len(uc.PartnerIDs) > 0 {
		uc.PartnersPartnerIDs = s.secondDegreePartners(ctx, viewerID, uc.PartnerIDs)
	}

	return uc, nil
}

// secondDegreePartners expands up to secondDegreeFanout first-degree
// partners in parallel and unions the far sides, excluding the viewer
// and every first-degree id
func (s *Service) secondDegreePartners(ctx context.Context, viewerID string, partnerIDs []string) []string {
	expand := store.FirstN(partnerIDs, secondDegreeFanout)

	results := make([][]string, len(expand))
	var wg sync.WaitGroup
	for i, partnerID := range expand {
		wg.Add(1)
		go func(i int, partnerID string) {
			defer wg.Done()
			ids, err := s.store.ConfirmedPartnerIDs(ctx, partnerID)
			if err != nil {
				s.logger.Warn("second-degree partner lookup degraded", "partner_id", partnerID, "error", err)
				return
			}
			results[i] = ids
		}(i, partnerID)
	}
	wg.Wait()

	exclude := make(map[string]struct{}, len(partnerIDs)+1)
	exclude[viewerID] = struct{}{}
	for _, id := range partnerIDs {
		exclude[id] = struct{}{}
	}

	seen := make(map[string]struct{})
	var secondDegree []string
	for _, ids := range results {
		for _, id := range ids {
			if _, skip := exclude[id]; skip {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			secondDegree = append(secondDegree, id)
		}
	}
	return secondDegree
}

// unionIDs merges two id lists preserving order, dropping duplicates
func unionIDs(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, id := range a {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range b {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
