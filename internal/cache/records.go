package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ryyparr-art/swingthoughts-sub007/internal/domain"
)

// RecordReader is the subset of the store the record cache loads from
type RecordReader interface {
	GetCourseRecord(ctx context.Context, courseID string) (*domain.CourseRecord, error)
}

// recordEntry is the marshaled cache value. An empty HolderID means the
// course has no record yet; caching the absence avoids re-reading the
// store for every score at an unrecorded course.
type recordEntry struct {
	HolderID string `json:"holder_id"`
	NetScore int    `json:"net_score"`
}

// Records is a read-through cache mapping course ids to the current
// best-net-score holder.
type Records struct {
	reader  RecordReader
	backend Backend
	logger  *slog.Logger
}

// NewRecords creates a course-record cache over the given backend
func NewRecords(reader RecordReader, backend Backend, logger *slog.Logger) *Records {
	return &Records{
		reader:  reader,
		backend: backend,
		logger:  logger,
	}
}

func recordKey(courseID string) string {
	return fmt.Sprintf("course:%s:record", courseID)
}

// Resolve returns the record holder for every distinct course id. A nil
// map value means the course has no record yet. Misses are loaded with
// point reads and cached, including the no-record case.
func (c *Records) Resolve(ctx context.Context, courseIDs []string) (map[string]*domain.CourseRecord, error) {
	resolved := make(map[string]*domain.CourseRecord, len(courseIDs))

	for _, id := range courseIDs {
		if _, seen := resolved[id]; seen {
			continue
		}

		value, ok, err := c.backend.Get(ctx, recordKey(id))
		if err != nil {
			return nil, fmt.Errorf("reading record cache: %w", err)
		}
		if ok {
			var entry recordEntry
			if err := json.Unmarshal(value, &entry); err == nil {
				if entry.HolderID == "" {
					resolved[id] = nil
				} else {
					resolved[id] = &domain.CourseRecord{
						CourseID: id,
						HolderID: entry.HolderID,
						NetScore: entry.NetScore,
					}
				}
				continue
			}
			c.logger.Warn("dropping corrupt record cache entry", "course_id", id, "error", err)
		}

		record, err := c.reader.GetCourseRecord(ctx, id)
		if err != nil {
			if !errors.Is(err, domain.ErrNoCourseRecord) {
				return nil, fmt.Errorf("loading course record: %w", err)
			}
			record = nil
		}
		resolved[id] = record
		c.putEntry(ctx, id, record)
	}

	return resolved, nil
}

// Put updates the cached holder for a course, used by the ingest write
// path so a freshly claimed record is visible without waiting for TTL
func (c *Records) Put(ctx context.Context, record domain.CourseRecord) {
	c.putEntry(ctx, record.CourseID, &record)
}

func (c *Records) putEntry(ctx context.Context, courseID string, record *domain.CourseRecord) {
	var entry recordEntry
	if record != nil {
		entry.HolderID = record.HolderID
		entry.NetScore = record.NetScore
	}
	value, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn("failed to marshal record cache entry", "course_id", courseID, "error", err)
		return
	}
	if err := c.backend.Set(ctx, recordKey(courseID), value); err != nil {
		c.logger.Warn("failed to write record cache entry", "course_id", courseID, "error", err)
	}
}
