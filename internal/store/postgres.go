package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/config"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/domain"
)

// Postgres provides PostgreSQL-backed document storage
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ Store = (*Postgres)(nil)

// NewPostgres creates a new PostgreSQL store
func NewPostgres(cfg *config.PostgresConfig, logger *slog.Logger) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Postgres{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (s *Postgres) Close() {
	s.pool.Close()
}

// RunMigrations executes database migrations
func (s *Postgres) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			id VARCHAR(64) PRIMARY KEY,
			display_name VARCHAR(255) NOT NULL,
			avatar_url TEXT,
			category VARCHAR(20) NOT NULL DEFAULT 'player',
			city VARCHAR(128),
			region VARCHAR(128),
			country VARCHAR(128),
			home_course_ids TEXT[] NOT NULL DEFAULT '{}',
			member_course_ids TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS partnerships (
			id VARCHAR(64) PRIMARY KEY,
			requester_id VARCHAR(64) NOT NULL,
			recipient_id VARCHAR(64) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(requester_id, recipient_id)
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id VARCHAR(64) PRIMARY KEY,
			author_id VARCHAR(64) NOT NULL,
			caption TEXT,
			image_urls TEXT[] NOT NULL DEFAULT '{}',
			video_url TEXT,
			video_thumb_url TEXT,
			tagged_course_ids TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS scores (
			id VARCHAR(64) PRIMARY KEY,
			author_id VARCHAR(64) NOT NULL,
			course_id VARCHAR(64) NOT NULL,
			course_name VARCHAR(255) NOT NULL,
			gross INT NOT NULL,
			net INT NOT NULL,
			par INT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS course_records (
			course_id VARCHAR(64) PRIMARY KEY,
			holder_id VARCHAR(64) NOT NULL,
			net_score INT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_partnerships_requester ON partnerships(requester_id) WHERE status = 'confirmed'`,
		`CREATE INDEX IF NOT EXISTS idx_partnerships_recipient ON partnerships(recipient_id) WHERE status = 'confirmed'`,
		`CREATE INDEX IF NOT EXISTS idx_posts_author_created ON posts(author_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_author_created ON scores(author_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_course_created ON scores(course_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_course_net ON scores(course_id, net ASC)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_city_region ON profiles(city, region)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_region ON profiles(region)`,
	}

	for _, migration := range migrations {
		_, err := s.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	s.logger.Info("database migrations completed")
	return nil
}

const profileColumns = `id, display_name, COALESCE(avatar_url, ''), category, COALESCE(city, ''), COALESCE(region, ''), COALESCE(country, ''), home_course_ids, member_course_ids, created_at, updated_at`

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(
		&p.ID,
		&p.DisplayName,
		&p.AvatarURL,
		&p.Category,
		&p.City,
		&p.Region,
		&p.Country,
		&p.HomeCourseIDs,
		&p.MemberCourseIDs,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfile reads a profile document by id
func (s *Postgres) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	p, err := scanProfile(s.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	return p, nil
}

// collectProfiles drains rows into a profile slice
func collectProfiles(rows pgx.Rows) ([]domain.Profile, error) {
	defer rows.Close()
	var profiles []domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// ProfilesByIDs reads up to InQueryLimit profile documents by id
func (s *Postgres) ProfilesByIDs(ctx context.Context, userIDs []string) ([]domain.Profile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	if len(userIDs) > InQueryLimit {
		return nil, fmt.Errorf("profiles by ids: %d values exceeds in-query limit %d", len(userIDs), InQueryLimit)
	}
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = ANY($1)`
	rows, err := s.pool.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("getting profiles by ids: %w", err)
	}
	return collectProfiles(rows)
}

// ProfilesInCity returns profiles sharing the exact city+region
func (s *Postgres) ProfilesInCity(ctx context.Context, city, region, excludeID string, limit int) ([]domain.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE city = $1 AND region = $2 AND id <> $3
		LIMIT $4
	`
	rows, err := s.pool.Query(ctx, query, city, region, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("getting profiles in city: %w", err)
	}
	return collectProfiles(rows)
}

// ProfilesInRegion returns profiles in the region but a different city
func (s *Postgres) ProfilesInRegion(ctx context.Context, region, excludeCity, excludeID string, limit int) ([]domain.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE region = $1 AND city <> $2 AND id <> $3
		LIMIT $4
	`
	rows, err := s.pool.Query(ctx, query, region, excludeCity, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("getting profiles in region: %w", err)
	}
	return collectProfiles(rows)
}

// ConfirmedPartnerIDs returns the far side of every confirmed
// partnership edge touching userID
func (s *Postgres) ConfirmedPartnerIDs(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT CASE WHEN requester_id = $1 THEN recipient_id ELSE requester_id END
		FROM partnerships
		WHERE status = 'confirmed' AND (requester_id = $1 OR recipient_id = $1)
	`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("getting partner ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning partner id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const postColumns = `id, author_id, COALESCE(caption, ''), image_urls, COALESCE(video_url, ''), COALESCE(video_thumb_url, ''), tagged_course_ids, created_at`

// collectPosts drains rows into a post slice
func collectPosts(rows pgx.Rows) ([]domain.Post, error) {
	defer rows.Close()
	var posts []domain.Post
	for rows.Next() {
		var p domain.Post
		err := rows.Scan(
			&p.ID,
			&p.AuthorID,
			&p.Caption,
			&p.ImageURLs,
			&p.VideoURL,
			&p.VideoThumbURL,
			&p.TaggedCourseIDs,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

const scoreColumns = `id, author_id, course_id, course_name, gross, net, par, created_at`

// collectScores drains rows into a score slice
func collectScores(rows pgx.Rows) ([]domain.Score, error) {
	defer rows.Close()
	var scores []domain.Score
	for rows.Next() {
		var sc domain.Score
		err := rows.Scan(
			&sc.ID,
			&sc.AuthorID,
			&sc.CourseID,
			&sc.CourseName,
			&sc.Gross,
			&sc.Net,
			&sc.Par,
			&sc.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning score: %w", err)
		}
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

// PostsByAuthor returns the author's most recent posts
func (s *Postgres) PostsByAuthor(ctx context.Context, authorID string, limit int) ([]domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE author_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := s.pool.Query(ctx, query, authorID, limit)
	if err != nil {
		return nil, fmt.Errorf("getting posts by author: %w", err)
	}
	return collectPosts(rows)
}

// ScoresByAuthor returns the author's most recent round scores
func (s *Postgres) ScoresByAuthor(ctx context.Context, authorID string, limit int) ([]domain.Score, error) {
	query := `SELECT ` + scoreColumns + ` FROM scores WHERE author_id = $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := s.pool.Query(ctx, query, authorID, limit)
	if err != nil {
		return nil, fmt.Errorf("getting scores by author: %w", err)
	}
	return collectScores(rows)
}

// PostsByAuthors returns recent posts by up to InQueryLimit authors
func (s *Postgres) PostsByAuthors(ctx context.Context, authorIDs []string, limit int) ([]domain.Post, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}
	if len(authorIDs) > InQueryLimit {
		return nil, fmt.Errorf("posts by authors: %d values exceeds in-query limit %d", len(authorIDs), InQueryLimit)
	}
	query := `SELECT ` + postColumns + ` FROM posts WHERE author_id = ANY($1) ORDER BY created_at DESC LIMIT $2`
	rows, err := s.pool.Query(ctx, query, authorIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("getting posts by authors: %w", err)
	}
	return collectPosts(rows)
}

// ScoresByAuthors returns recent scores by up to InQueryLimit authors
func (s *Postgres) ScoresByAuthors(ctx context.Context, authorIDs []string, limit int) ([]domain.Score, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}
	if len(authorIDs) > InQueryLimit {
		return nil, fmt.Errorf("scores by authors: %d values exceeds in-query limit %d", len(authorIDs), InQueryLimit)
	}
	query := `SELECT ` + scoreColumns + ` FROM scores WHERE author_id = ANY($1) ORDER BY created_at DESC LIMIT $2`
	rows, err := s.pool.Query(ctx, query, authorIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("getting scores by authors: %w", err)
	}
	return collectScores(rows)
}

// ScoresAtCourses returns recent scores at up to InQueryLimit courses
func (s *Postgres) ScoresAtCourses(ctx context.Context, courseIDs []string, excludeAuthorID string, limit int) ([]domain.Score, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	if len(courseIDs) > InQueryLimit {
		return nil, fmt.Errorf("scores at courses: %d values exceeds in-query limit %d", len(courseIDs), InQueryLimit)
	}
	query := `
		SELECT ` + scoreColumns + `
		FROM scores
		WHERE course_id = ANY($1) AND author_id <> $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := s.pool.Query(ctx, query, courseIDs, excludeAuthorID, limit)
	if err != nil {
		return nil, fmt.Errorf("getting scores at courses: %w", err)
	}
	return collectScores(rows)
}

// RecentPosts returns globally recent posts excluding one author
func (s *Postgres) RecentPosts(ctx context.Context, excludeAuthorID string, limit int) ([]domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE author_id <> $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := s.pool.Query(ctx, query, excludeAuthorID, limit)
	if err != nil {
		return nil, fmt.Errorf("getting recent posts: %w", err)
	}
	return collectPosts(rows)
}

// RecentScores returns globally recent scores excluding one author
func (s *Postgres) RecentScores(ctx context.Context, excludeAuthorID string, limit int) ([]domain.Score, error) {
	query := `SELECT ` + scoreColumns + ` FROM scores WHERE author_id <> $1 ORDER BY created_at DESC LIMIT $2`
	rows, err := s.pool.Query(ctx, query, excludeAuthorID, limit)
	if err != nil {
		return nil, fmt.Errorf("getting recent scores: %w", err)
	}
	return collectScores(rows)
}

// GetCourseRecord reads the record document for a course
func (s *Postgres) GetCourseRecord(ctx context.Context, courseID string) (*domain.CourseRecord, error) {
	query := `SELECT course_id, holder_id, net_score, updated_at FROM course_records WHERE course_id = $1`
	var r domain.CourseRecord
	err := s.pool.QueryRow(ctx, query, courseID).Scan(&r.CourseID, &r.HolderID, &r.NetScore, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoCourseRecord
		}
		return nil, fmt.Errorf("getting course record: %w", err)
	}
	return &r, nil
}

// InsertPost persists a new post document
func (s *Postgres) InsertPost(ctx context.Context, post domain.Post) error {
	query := `
		INSERT INTO posts (id, author_id, caption, image_urls, video_url, video_thumb_url, tagged_course_ids, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.pool.Exec(ctx, query,
		post.ID,
		post.AuthorID,
		post.Caption,
		post.ImageURLs,
		post.VideoURL,
		post.VideoThumbURL,
		post.TaggedCourseIDs,
		post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting post: %w", err)
	}
	return nil
}

// InsertScore persists a new round score document
func (s *Postgres) InsertScore(ctx context.Context, score domain.Score) error {
	query := `
		INSERT INTO scores (id, author_id, course_id, course_name, gross, net, par, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.pool.Exec(ctx, query,
		score.ID,
		score.AuthorID,
		score.CourseID,
		score.CourseName,
		score.Gross,
		score.Net,
		score.Par,
		score.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting score: %w", err)
	}
	return nil
}

// ClaimCourseRecord installs the record unless a strictly lower net
// score already holds the course
func (s *Postgres) ClaimCourseRecord(ctx context.Context, record domain.CourseRecord) (bool, error) {
	query := `
		INSERT INTO course_records (course_id, holder_id, net_score, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (course_id)
		DO UPDATE SET holder_id = $2, net_score = $3, updated_at = $4
		WHERE course_records.net_score > EXCLUDED.net_score
		RETURNING course_id
	`
	var claimed string
	err := s.pool.QueryRow(ctx, query, record.CourseID, record.HolderID, record.NetScore, record.UpdatedAt).Scan(&claimed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("claiming course record: %w", err)
	}
	return true, nil
}

// BestScores computes the lowest-net holder per course
func (s *Postgres) BestScores(ctx context.Context) ([]domain.CourseRecord, error) {
	query := `
		SELECT DISTINCT ON (course_id) course_id, author_id, net, created_at
		FROM scores
		ORDER BY course_id, net ASC, created_at ASC
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("computing best scores: %w", err)
	}
	defer rows.Close()

	var records []domain.CourseRecord
	for rows.Next() {
		var r domain.CourseRecord
		if err := rows.Scan(&r.CourseID, &r.HolderID, &r.NetScore, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning best score: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ReplaceCourseRecords overwrites record documents wholesale
func (s *Postgres) ReplaceCourseRecords(ctx context.Context, records []domain.CourseRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO course_records (course_id, holder_id, net_score, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (course_id)
		DO UPDATE SET holder_id = $2, net_score = $3, updated_at = $4
	`
	now := time.Now()

	for _, r := range records {
		batch.Queue(query, r.CourseID, r.HolderID, r.NetScore, now)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("replacing course records: %w", err)
		}
	}
	return nil
}
