package feed

import (
	"sort"

	"github.com/ryyparr-art/swingthoughts-sub007/internal/domain"
)

// Rank deduplicates the combined tier output, orders it by relevance
// then recency, and truncates to maxItems. The same underlying content
// surfaced by two tiers keeps the higher-scored instance; ties keep the
// first seen, since both represent the same document.
func Rank(items []domain.FeedItem, maxItems int) []domain.FeedItem {
	deduped := dedupe(items)

	sort.SliceStable(deduped, func(i, j int) bool {
		if deduped[i].Relevance != deduped[j].Relevance {
			return deduped[i].Relevance > deduped[j].Relevance
		}
		return deduped[i].CreatedAt.After(deduped[j].CreatedAt)
	})

	if maxItems > 0 && len(deduped) > maxItems {
		deduped = deduped[:maxItems]
	}
	return deduped
}

// dedupe folds items into first-seen order keyed by (kind, id)
func dedupe(items []domain.FeedItem) []domain.FeedItem {
	index := make(map[domain.ItemKey]int, len(items))
	out := make([]domain.FeedItem, 0, len(items))
	for _, item := range items {
		if at, seen := index[item.Key()]; seen {
			if item.Relevance > out[at].Relevance {
				out[at] = item
			}
			continue
		}
		index[item.Key()] = len(out)
		out = append(out, item)
	}
	return out
}
