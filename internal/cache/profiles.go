package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ryyparr-art/swingthoughts-sub007/internal/domain"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/store"
)

// ProfileReader is the subset of the store the profile cache loads from
type ProfileReader interface {
	ProfilesByIDs(ctx context.Context, userIDs []string) ([]domain.Profile, error)
}

// Profiles is a read-through cache mapping user ids to the lightweight
// profile projection used to label feed items.
type Profiles struct {
	reader  ProfileReader
	backend Backend
	logger  *slog.Logger
}

// NewProfiles creates a profile cache over the given backend
func NewProfiles(reader ProfileReader, backend Backend, logger *slog.Logger) *Profiles {
	return &Profiles{
		reader:  reader,
		backend: backend,
		logger:  logger,
	}
}

func profileKey(userID string) string {
	return fmt.Sprintf("profile:%s:info", userID)
}

// Resolve returns cached profile info for every distinct id, loading
// misses from the store in batches. Ids with no profile document are
// omitted from the result rather than treated as errors.
func (c *Profiles) Resolve(ctx context.Context, userIDs []string) (map[string]domain.ProfileInfo, error) {
	resolved := make(map[string]domain.ProfileInfo, len(userIDs))
	var misses []string

	for _, id := range userIDs {
		if _, seen := resolved[id]; seen {
			continue
		}
		value, ok, err := c.backend.Get(ctx, profileKey(id))
		if err != nil {
			return nil, fmt.Errorf("reading profile cache: %w", err)
		}
		if !ok {
			misses = appendUnique(misses, id)
			continue
		}
		var info domain.ProfileInfo
		if err := json.Unmarshal(value, &info); err != nil {
			// Treat a corrupt entry as a miss and reload it
			c.logger.Warn("dropping corrupt profile cache entry", "user_id", id, "error", err)
			misses = appendUnique(misses, id)
			continue
		}
		resolved[id] = info
	}

	for _, batch := range store.BatchIDs(misses) {
		profiles, err := c.reader.ProfilesByIDs(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("loading profiles: %w", err)
		}
		for _, p := range profiles {
			info := p.Info()
			resolved[p.ID] = info
			c.put(ctx, info)
		}
	}

	return resolved, nil
}

// Put inserts a profile projection directly, bypassing the loader
func (c *Profiles) Put(ctx context.Context, info domain.ProfileInfo) {
	c.put(ctx, info)
}

func (c *Profiles) put(ctx context.Context, info domain.ProfileInfo) {
	value, err := json.Marshal(info)
	if err != nil {
		c.logger.Warn("failed to marshal profile cache entry", "user_id", info.ID, "error", err)
		return
	}
	if err := c.backend.Set(ctx, profileKey(info.ID), value); err != nil {
		c.logger.Warn("failed to write profile cache entry", "user_id", info.ID, "error", err)
	}
}

// appendUnique appends id if not already present. Miss lists are small
// (bounded by per-tier actor counts) so a linear scan is fine.
func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
