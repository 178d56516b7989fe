package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryyparr-art/swingthoughts-sub007/internal/cache"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/config"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/domain"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/store"
)

// fakeStore is an in-memory store.Store used across the feed tests.
// Per-method errors can be injected with failOn, and calls tracks how
// many times each method ran.
type fakeStore struct {
	mu             sync.Mutex
	profiles       map[string]domain.Profile
	partners       map[string][]string
	postsByAuthor  map[string][]domain.Post
	scoresByAuthor map[string][]domain.Score
	cityAccounts   []domain.Profile
	regionAccounts []domain.Profile
	courseScores   map[string][]domain.Score
	globalPosts    []domain.Post
	globalScores   []domain.Score
	records        map[string]domain.CourseRecord
	fail           map[string]error
	calls          map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles:       make(map[string]domain.Profile),
		partners:       make(map[string][]string),
		postsByAuthor:  make(map[string][]domain.Post),
		scoresByAuthor: make(map[string][]domain.Score),
		courseScores:   make(map[string][]domain.Score),
		records:        make(map[string]domain.CourseRecord),
		fail:           make(map[string]error),
		calls:          make(map[string]int),
	}
}

func (f *fakeStore) failOn(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method] = err
}

func (f *fakeStore) called(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// enter records the call and returns any injected error
func (f *fakeStore) enter(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	return f.fail[method]
}

func capPosts(posts []domain.Post, limit int) []domain.Post {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts
}

func capScores(scores []domain.Score, limit int) []domain.Score {
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].CreatedAt.After(scores[j].CreatedAt)
	})
	if limit > 0 && len(scores) > limit {
		scores = scores[:limit]
	}
	return scores
}

func (f *fakeStore) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	if err := f.enter("GetProfile"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return &p, nil
}

func (f *fakeStore) ProfilesByIDs(_ context.Context, userIDs []string) ([]domain.Profile, error) {
	if err := f.enter("ProfilesByIDs"); err != nil {
		return nil, err
	}
	if len(userIDs) > store.InQueryLimit {
		return nil, errors.New("in-set query exceeds limit")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Profile
	for _, id := range userIDs {
		if p, ok := f.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) ProfilesInCity(_ context.Context, _, _, excludeID string, limit int) ([]domain.Profile, error) {
	if err := f.enter("ProfilesInCity"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Profile
	for _, p := range f.cityAccounts {
		if p.ID == excludeID {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) ProfilesInRegion(_ context.Context, _, _, excludeID string, limit int) ([]domain.Profile, error) {
	if err := f.enter("ProfilesInRegion"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Profile
	for _, p := range f.regionAccounts {
		if p.ID == excludeID {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) ConfirmedPartnerIDs(_ context.Context, userID string) ([]string, error) {
	if err := f.enter("ConfirmedPartnerIDs"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.partners[userID], nil
}

func (f *fakeStore) PostsByAuthor(_ context.Context, authorID string, limit int) ([]domain.Post, error) {
	if err := f.enter("PostsByAuthor"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return capPosts(append([]domain.Post(nil), f.postsByAuthor[authorID]...), limit), nil
}

func (f *fakeStore) ScoresByAuthor(_ context.Context, authorID string, limit int) ([]domain.Score, error) {
	if err := f.enter("ScoresByAuthor"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return capScores(append([]domain.Score(nil), f.scoresByAuthor[authorID]...), limit), nil
}

func (f *fakeStore) PostsByAuthors(_ context.Context, authorIDs []string, limit int) ([]domain.Post, error) {
	if err := f.enter("PostsByAuthors"); err != nil {
		return nil, err
	}
	if len(authorIDs) > store.InQueryLimit {
		return nil, errors.New("in-set query exceeds limit")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Post
	for _, id := range authorIDs {
		out = append(out, f.postsByAuthor[id]...)
	}
	return capPosts(out, limit), nil
}

func (f *fakeStore) ScoresByAuthors(_ context.Context, authorIDs []string, limit int) ([]domain.Score, error) {
	if err := f.enter("ScoresByAuthors"); err != nil {
		return nil, err
	}
	if len(authorIDs) > store.InQueryLimit {
		return nil, errors.New("in-set query exceeds limit")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Score
	for _, id := range authorIDs {
		out = append(out, f.scoresByAuthor[id]...)
	}
	return capScores(out, limit), nil
}

func (f *fakeStore) ScoresAtCourses(_ context.Context, courseIDs []string, excludeAuthorID string, limit int) ([]domain.Score, error) {
	if err := f.enter("ScoresAtCourses"); err != nil {
		return nil, err
	}
	if len(courseIDs) > store.InQueryLimit {
		return nil, errors.New("in-set query exceeds limit")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Score
	for _, id := range courseIDs {
		for _, sc := range f.courseScores[id] {
			if sc.AuthorID == excludeAuthorID {
				continue
			}
			out = append(out, sc)
		}
	}
	return capScores(out, limit), nil
}

func (f *fakeStore) RecentPosts(_ context.Context, excludeAuthorID string, limit int) ([]domain.Post, error) {
	if err := f.enter("RecentPosts"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Post
	for _, p := range f.globalPosts {
		if p.AuthorID == excludeAuthorID {
			continue
		}
		out = append(out, p)
	}
	return capPosts(out, limit), nil
}

func (f *fakeStore) RecentScores(_ context.Context, excludeAuthorID string, limit int) ([]domain.Score, error) {
	if err := f.enter("RecentScores"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Score
	for _, sc := range f.globalScores {
		if sc.AuthorID == excludeAuthorID {
			continue
		}
		out = append(out, sc)
	}
	return capScores(out, limit), nil
}

func (f *fakeStore) GetCourseRecord(_ context.Context, courseID string) (*domain.CourseRecord, error) {
	if err := f.enter("GetCourseRecord"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[courseID]
	if !ok {
		return nil, domain.ErrNoCourseRecord
	}
	return &r, nil
}

func (f *fakeStore) InsertPost(_ context.Context, post domain.Post) error {
	if err := f.enter("InsertPost"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postsByAuthor[post.AuthorID] = append(f.postsByAuthor[post.AuthorID], post)
	return nil
}

func (f *fakeStore) InsertScore(_ context.Context, score domain.Score) error {
	if err := f.enter("InsertScore"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scoresByAuthor[score.AuthorID] = append(f.scoresByAuthor[score.AuthorID], score)
	f.courseScores[score.CourseID] = append(f.courseScores[score.CourseID], score)
	return nil
}

func (f *fakeStore) ClaimCourseRecord(_ context.Context, record domain.CourseRecord) (bool, error) {
	if err := f.enter("ClaimCourseRecord"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.records[record.CourseID]
	if ok && current.NetScore <= record.NetScore {
		return false, nil
	}
	f.records[record.CourseID] = record
	return true, nil
}

func (f *fakeStore) BestScores(_ context.Context) ([]domain.CourseRecord, error) {
	if err := f.enter("BestScores"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	best := make(map[string]domain.CourseRecord)
	for courseID, scores := range f.courseScores {
		for _, sc := range scores {
			current, ok := best[courseID]
			if !ok || sc.Net < current.NetScore {
				best[courseID] = domain.CourseRecord{
					CourseID:  courseID,
					HolderID:  sc.AuthorID,
					NetScore:  sc.Net,
					UpdatedAt: sc.CreatedAt,
				}
			}
		}
	}
	out := make([]domain.CourseRecord, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeStore) ReplaceCourseRecords(_ context.Context, records []domain.CourseRecord) error {
	if err := f.enter("ReplaceCourseRecords"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = make(map[string]domain.CourseRecord, len(records))
	for _, r := range records {
		f.records[r.CourseID] = r
	}
	return nil
}

var _ store.Store = (*fakeStore)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(st *fakeStore, cfg *config.FeedConfig) *Service {
	logger := testLogger()
	backend := cache.NewMemory(time.Minute, 1000)
	profiles := cache.NewProfiles(st, backend, logger)
	records := cache.NewRecords(st, backend, logger)
	return NewService(st, profiles, records, cfg, logger)
}

func defaultFeedConfig() *config.FeedConfig {
	return &config.FeedConfig{DefaultLimit: 50, MaxLimit: 100}
}

var testBase = time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return testBase.Add(time.Duration(minutes) * time.Minute)
}

func player(id, city, region string) domain.Profile {
	return domain.Profile{
		ID:          id,
		DisplayName: "Player " + id,
		Category:    domain.CategoryPlayer,
		City:        city,
		Region:      region,
	}
}

func post(id, authorID string, minutes int) domain.Post {
	return domain.Post{ID: id, AuthorID: authorID, Caption: "caption " + id, CreatedAt: at(minutes)}
}

func roundScore(id, authorID, courseID string, net, minutes int) domain.Score {
	return domain.Score{
		ID:         id,
		AuthorID:   authorID,
		CourseID:   courseID,
		CourseName: "Course " + courseID,
		Gross:      net + 10,
		Net:        net,
		Par:        72,
		CreatedAt:  at(minutes),
	}
}

func findItem(t *testing.T, items []domain.FeedItem, kind domain.ContentKind, id string) domain.FeedItem {
	t.Helper()
	for _, item := range items {
		if item.Kind == kind && item.ID == id {
			return item
		}
	}
	t.Fatalf("item %s/%s not in feed", kind, id)
	return domain.FeedItem{}
}

func TestGenerateFeedViewerNotFound(t *testing.T) {
	svc := newTestService(newFakeStore(), defaultFeedConfig())

	_, err := svc.GenerateFeed(context.Background(), "ghost", 50)
	assert.ErrorIs(t, err, domain.ErrViewerNotFound)
}

func TestGenerateFeedPartnerNewRecord(t *testing.T) {
	st := newFakeStore()
	st.profiles["viewer"] = player("viewer", "", "")
	st.profiles["p1"] = player("p1", "", "")
	st.partners["viewer"] = []string{"p1"}
	// No record exists at c1, so the partner's round takes it
	st.scoresByAuthor["p1"] = []domain.Score{roundScore("s1", "p1", "c1", 68, 10)}
	svc := newTestService(st, defaultFeedConfig())

	items, err := svc.GenerateFeed(context.Background(), "viewer", 50)
	require.NoError(t, err)

	item := findItem(t, items, domain.ContentScore, "s1")
	assert.Equal(t, 100, item.Relevance)
	assert.Equal(t, "Partner's new record", item.Reason)
	require.NotNil(t, item.Score)
	assert.True(t, item.Score.NewCourseRecord)
	assert.Equal(t, "Player p1", item.ActorName)
}

func TestGenerateFeedPartnerOrdinaryScore(t *testing.T) {
	st := newFakeStore()
	st.profiles["viewer"] = player("viewer", "", "")
	st.profiles["p1"] = player("p1", "", "")
	st.partners["viewer"] = []string{"p1"}
	st.records["c1"] = domain.CourseRecord{CourseID: "c1", HolderID: "other", NetScore: 65}
	st.scoresByAuthor["p1"] = []domain.Score{roundScore("s1", "p1", "c1", 68, 10)}
	svc := newTestService(st, defaultFeedConfig())

	items, err := svc.GenerateFeed(context.Background(), "viewer", 50)
	require.NoError(t, err)

	item := findItem(t, items, domain.ContentScore, "s1")
	assert.Equal(t, 98, item.Relevance)
	assert.Equal(t, "Partner posted score", item.Reason)
	require.NotNil(t, item.Score)
	assert.False(t, item.Score.NewCourseRecord)
}

func TestGenerateFeedJuniorBoost(t *testing.T) {
	st := newFakeStore()
	viewer := player("viewer", "Austin", "TX")
	viewer.Category = domain.CategoryJunior
	st.profiles["viewer"] = viewer

	instructor := player("coach", "Austin", "TX")
	instructor.Category = domain.CategoryInstructor
	st.profiles["coach"] = instructor
	st.cityAccounts = []domain.Profile{instructor}
	st.postsByAuthor["coach"] = []domain.Post{post("post1", "coach", 5)}
	svc := newTestService(st, defaultFeedConfig())

	items, err := svc.GenerateFeed(context.Background(), "viewer", 50)
	require.NoError(t, err)

	item := findItem(t, items, domain.ContentPost, "post1")
	assert.Equal(t, 97, item.Relevance, "same-city post base 90 plus instructor boost 7")
	assert.Equal(t, "Nearby in Austin, TX", item.Reason)
}

func TestGenerateFeedNoBoostForAdultViewer(t *testing.T) {
	st := newFakeStore()
	st.profiles["viewer"] = player("viewer", "Austin", "TX")

	instructor := player("coach", "Austin", "TX")
	instructor.Category = domain.CategoryInstructor
	st.profiles["coach"] = instructor
	st.cityAccounts = []domain.Profile{instructor}
	st.postsByAuthor["coach"] = []domain.Post{post("post1", "coach", 5)}
	svc := newTestService(st, defaultFeedConfig())

	items, err := svc.GenerateFeed(context.Background(), "viewer", 50)
	require.NoError(t, err)

	item := findItem(t, items, domain.ContentPost, "post1")
	assert.Equal(t, 90, item.Relevance)
}

func TestGenerateFeedDedupKeepsHigherTier(t *testing.T) {
	st := newFakeStore()
	viewer := player("viewer", "", "")
	viewer.HomeCourseIDs = []string{"c1"}
	st.profiles["viewer"] = viewer
	st.profiles["p1"] = player("p1", "", "")
	st.partners["viewer"] = []string{"p1"}
	st.records["c1"] = domain.CourseRecord{CourseID: "c1", HolderID: "other", NetScore: 60}

	// The same round surfaces through the partner tier and the
	// home-course tier
	shared := roundScore("s1", "p1", "c1", 70, 10)
	st.scoresByAuthor["p1"] = []domain.Score{shared}
	st.courseScores["c1"] = []domain.Score{shared}
	svc := newTestService(st, defaultFeedConfig())

	items, err := svc.GenerateFeed(context.Background(), "viewer", 50)
	require.NoError(t, err)

	var matches int
	for _, item := range items {
		if item.Kind == domain.ContentScore && item.ID == "s1" {
			matches++
			assert.Equal(t, 98, item.Relevance)
			assert.Equal(t, "Partner posted score", item.Reason)
		}
	}
	assert.Equal(t, 1, matches)
}

func TestGenerateFeedGlobalFallback(t *testing.T) {
	st := newFakeStore()
	st.profiles["viewer"] = player("viewer", "", "")
	st.profiles["stranger"] = player("stranger", "", "")
	st.globalPosts = []domain.Post{post("gp1", "stranger", 5)}
	st.globalScores = []domain.Score{roundScore("gs1", "stranger", "c9", 80, 6)}
	svc := newTestService(st, defaultFeedConfig())

	items, err := svc.GenerateFeed(context.Background(), "viewer", 50)
	require.NoError(t, err)

	p := findItem(t, items, domain.ContentPost, "gp1")
	assert.Equal(t, 35, p.Relevance)
	assert.Equal(t, "Recent post", p.Reason)

	sc := findItem(t, items, domain.ContentScore, "gs1")
	assert.Equal(t, 30, sc.Relevance)
	assert.Equal(t, "Recent score", sc.Reason)
	require.NotNil(t, sc.Score)
	assert.False(t, sc.Score.NewCourseRecord)
}

func TestGenerateFeedGlobalSkippedWhenFull(t *testing.T) {
	st := newFakeStore()
	st.profiles["viewer"] = player("viewer", "Austin", "TX")

	// Ten same-city accounts posting enough to fill both the city
	// stage and the fallback floor: 15 posts plus 15 scores
	for i := 0; i < 10; i++ {
		id := string(rune('a' + i))
		neighbor := player(id, "Austin", "TX")
		st.profiles[id] = neighbor
		st.cityAccounts = append(st.cityAccounts, neighbor)
		st.postsByAuthor[id] = []domain.Post{
			post("post-"+id+"-1", id, i),
			post("post-"+id+"-2", id, 100+i),
		}
		st.scoresByAuthor[id] = []domain.Score{
			roundScore("score-"+id+"-1", id, "c1", 75, 200+i),
			roundScore("score-"+id+"-2", id, "c1", 74, 300+i),
		}
	}
	st.globalPosts = []domain.Post{post("global-marker", "a", 999)}
	svc := newTestService(st, defaultFeedConfig())

	items, err := svc.GenerateFeed(context.Background(), "viewer", 50)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(items), 30)
	for _, item := range items {
		assert.NotEqual(t, "global-marker", item.ID)
	}
	assert.Zero(t, st.called("RecentPosts"))
	assert.Zero(t, st.called("RecentScores"))
	assert.Zero(t, st.called("ProfilesInRegion"), "region stage skipped when the city stage fills")
}

func TestGenerateFeedTierFailureIsolated(t *testing.T) {
	st := newFakeStore()
	viewer := player("viewer", "", "")
	viewer.HomeCourseIDs = []string{"c1"}
	st.profiles["viewer"] = viewer
	st.profiles["p1"] = player("p1", "", "")
	st.partners["viewer"] = []string{"p1"}
	st.postsByAuthor["p1"] = []domain.Post{post("post1", "p1", 5)}
	st.failOn("ScoresAtCourses", errors.New("index building"))
	svc := newTestService(st, defaultFeedConfig())

	items, err := svc.GenerateFeed(context.Background(), "viewer", 50)
	require.NoError(t, err)

	item := findItem(t, items, domain.ContentPost, "post1")
	assert.Equal(t, 100, item.Relevance)
}

func TestGenerateFeedLimitClamping(t *testing.T) {
	st := newFakeStore()
	st.profiles["viewer"] = player("viewer", "", "")
	st.profiles["stranger"] = player("stranger", "", "")
	for i := 0; i < 6; i++ {
		st.globalPosts = append(st.globalPosts, post("gp"+string(rune('0'+i)), "stranger", i))
	}
	svc := newTestService(st, &config.FeedConfig{DefaultLimit: 2, MaxLimit: 3})

	items, err := svc.GenerateFeed(context.Background(), "viewer", 0)
	require.NoError(t, err)
	assert.Len(t, items, 2, "non-positive maxItems falls back to the default limit")

	items, err = svc.GenerateFeed(context.Background(), "viewer", 10)
	require.NoError(t, err)
	assert.Len(t, items, 3, "maxItems is capped at the configured maximum")
}

func TestGenerateFeedNoPartnersSkipsPartnerQueries(t *testing.T) {
	st := newFakeStore()
	st.profiles["viewer"] = player("viewer", "", "")
	svc := newTestService(st, defaultFeedConfig())

	_, err := svc.GenerateFeed(context.Background(), "viewer", 50)
	require.NoError(t, err)

	// Only the own tier queries activity when the viewer has no
	// partners and no location
	assert.Equal(t, 0, st.called("PostsByAuthors"))
	assert.Equal(t, 0, st.called("ScoresByAuthors"))
}

func TestGenerateFeedOrderedByRelevanceThenRecency(t *testing.T) {
	st := newFakeStore()
	st.profiles["viewer"] = player("viewer", "", "")
	st.profiles["p1"] = player("p1", "", "")
	st.partners["viewer"] = []string{"p1"}
	st.records["c1"] = domain.CourseRecord{CourseID: "c1", HolderID: "other", NetScore: 60}
	st.postsByAuthor["p1"] = []domain.Post{post("post-old", "p1", 1), post("post-new", "p1", 20)}
	st.scoresByAuthor["p1"] = []domain.Score{roundScore("s1", "p1", "c1", 70, 10)}
	svc := newTestService(st, defaultFeedConfig())

	items, err := svc.GenerateFeed(context.Background(), "viewer", 50)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "post-new", items[0].ID)
	assert.Equal(t, "post-old", items[1].ID)
	assert.Equal(t, "s1", items[2].ID)
}
