package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/cache"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/domain"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/store"
)

// Service handles the write path for posts and round scores
type Service struct {
	store   store.Store
	records *cache.Records
	logger  *slog.Logger
}

// NewService creates a new ingest service
func NewService(st store.Store, records *cache.Records, logger *slog.Logger) *Service {
	return &Service{
		store:   st,
		records: records,
		logger:  logger,
	}
}

// SubmitPost persists a new post document
func (s *Service) SubmitPost(ctx context.Context, submission domain.PostSubmission) (*domain.Post, error) {
	if submission.AuthorID == "" {
		return nil, domain.ErrInvalidRequest
	}

	post := domain.Post{
		ID:              uuid.NewString(),
		AuthorID:        submission.AuthorID,
		Caption:         submission.Caption,
		ImageURLs:       submission.ImageURLs,
		VideoURL:        submission.VideoURL,
		VideoThumbURL:   submission.VideoThumbURL,
		TaggedCourseIDs: submission.TaggedCourseIDs,
		CreatedAt:       time.Now(),
	}
	if err := s.store.InsertPost(ctx, post); err != nil {
		return nil, fmt.Errorf("submitting post: %w", err)
	}
	return &post, nil
}

// SubmitScore persists a round score and claims the course record when
// the net score beats the current holder. Two players submitting record
// rounds at the same course in the same window can both observe a claim
// (the store applies them in arrival order); the rebuild worker
// converges the stored holder afterwards.
func (s *Service) SubmitScore(ctx context.Context, submission domain.ScoreSubmission) (*domain.Score, bool, error) {
	if submission.AuthorID == "" || submission.CourseID == "" {
		return nil, false, domain.ErrInvalidRequest
	}

	score := domain.Score{
		ID:         uuid.NewString(),
		AuthorID:   submission.AuthorID,
		CourseID:   submission.CourseID,
		CourseName: submission.CourseName,
		Gross:      submission.Gross,
		Net:        submission.Net,
		Par:        submission.Par,
		CreatedAt:  time.Now(),
	}
	if err := s.store.InsertScore(ctx, score); err != nil {
		return nil, false, fmt.Errorf("submitting score: %w", err)
	}

	record := domain.CourseRecord{
		CourseID:  score.CourseID,
		HolderID:  score.AuthorID,
		NetScore:  score.Net,
		UpdatedAt: score.CreatedAt,
	}
	claimed, err := s.store.ClaimCourseRecord(ctx, record)
	if err != nil {
		// The score itself is saved; a missed claim is repaired by the
		// rebuild worker, so don't fail the submission
		s.logger.Warn("course record claim failed",
			"course_id", score.CourseID,
			"author_id", score.AuthorID,
			"error", err,
		)
		return &score, false, nil
	}
	if claimed {
		s.records.Put(ctx, record)
		s.logger.Info("course record claimed",
			"course_id", score.CourseID,
			"holder_id", score.AuthorID,
			"net", score.Net,
		)
	}
	return &score, claimed, nil
}

// SubmitScoreBatch submits multiple round scores, continuing past
// individual failures
func (s *Service) SubmitScoreBatch(ctx context.Context, submissions []domain.ScoreSubmission) error {
	for _, submission := range submissions {
		if _, _, err := s.SubmitScore(ctx, submission); err != nil {
			s.logger.Error("failed to submit score in batch",
				"author_id", submission.AuthorID,
				"course_id", submission.CourseID,
				"error", err,
			)
			// Continue processing other scores
		}
	}
	return nil
}
