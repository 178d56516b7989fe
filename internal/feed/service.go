package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ryyparr-art/swingthoughts-sub007/internal/cache"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/config"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/domain"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/store"
)

// Service assembles personalized activity feeds from tiered retrievers
type Service struct {
	store    store.Store
	profiles *cache.Profiles
	records  *cache.Records
	boost    BoostFunc
	config   *config.FeedConfig
	logger   *slog.Logger
}

// NewService creates a new feed service with the default boost policy
func NewService(
	st store.Store,
	profiles *cache.Profiles,
	records *cache.Records,
	cfg *config.FeedConfig,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:    st,
		profiles: profiles,
		records:  records,
		boost:    CategoryBoost,
		config:   cfg,
		logger:   logger,
	}
}

// SetBoostPolicy replaces the category boost policy
func (s *Service) SetBoostPolicy(boost BoostFunc) {
	s.boost = boost
}

// tierFunc is one retrieval strategy contributing candidate items
type tierFunc func(ctx context.Context, uc *domain.UserContext) ([]domain.FeedItem, error)

// GenerateFeed builds the ranked, deduplicated feed for a viewer.
// Returns domain.ErrViewerNotFound when the viewer profile is missing;
// any other downstream failure degrades to a shorter feed instead of
// an error. The four primary tiers run concurrently, each isolated so
// one failing tier never aborts its siblings; the global fallback runs
// afterwards only when their combined output is below fallbackFloor.
func (s *Service) GenerateFeed(ctx context.Context, viewerID string, maxItems int) ([]domain.FeedItem, error) {
	if maxItems <= 0 {
		maxItems = s.config.DefaultLimit
	}
	if maxItems > s.config.MaxLimit {
		maxItems = s.config.MaxLimit
	}

	if s.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}

	uc, err := s.buildContext(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	tiers := []struct {
		name string
		run  tierFunc
	}{
		{"partner", s.partnerTier},
		{"nearby", s.nearbyTier},
		{"home_course", s.homeCourseTier},
		{"own", s.ownTier},
	}

	results := make([][]domain.FeedItem, len(tiers))
	var wg sync.WaitGroup
	for i, tier := range tiers {
		wg.Add(1)
		go func(i int, name string, run tierFunc) {
			defer wg.Done()
			results[i] = s.runTier(ctx, name, uc, run)
		}(i, tier.name, tier.run)
	}
	wg.Wait()

	var combined []domain.FeedItem
	for _, items := range results {
		combined = append(combined, items...)
	}

	// The fallback is sequenced after the primary tiers because its
	// trigger depends on their combined count
	if len(combined) < fallbackFloor {
		count := len(combined)
		combined = append(combined, s.runTier(ctx, "global", uc, func(ctx context.Context, uc *domain.UserContext) ([]domain.FeedItem, error) {
			return s.globalTier(ctx, uc, count)
		})...)
	}

	return Rank(combined, maxItems), nil
}

// runTier executes one tier, converting any failure into an empty
// contribution so a partial feed still renders
func (s *Service) runTier(ctx context.Context, name string, uc *domain.UserContext, run tierFunc) []domain.FeedItem {
	items, err := run(ctx, uc)
	if err != nil {
		s.logger.Warn("feed tier degraded",
			"tier", name,
			"viewer_id", uc.ViewerID,
			"error", err,
		)
		return nil
	}
	return items
}
