package briefings

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jimdaga/tophive/internal/catalog"
	"github.com/jimdaga/tophive/internal/companies"
	"github.com/jimdaga/tophive/internal/content"
	"github.com/jimdaga/tophive/internal/models"
	"github.com/jimdaga/tophive/internal/streams"
	"github.com/jimdaga/tophive/internal/webhook"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var errInjected = errors.New("injected failure")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.AuthIdentity{}, &models.BriefingRequest{}, &models.Briefing{}))
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string) uint {
	t.Helper()
	user := models.User{Email: email, Name: email}
	require.NoError(t, db.Create(&user).Error)
	return user.ID
}

type testEnv struct {
	db     *gorm.DB
	store  *Store
	svc    *Service
	events *recordingPublisher
	tasks  *recordingTasks
	userID uint
}

func newTestEnv(t *testing.T, wrap func(Repository) Repository) *testEnv {
	t.Helper()
	db := newTestDB(t)
	store := NewStore(db)

	cat, err := catalog.Load("")
	require.NoError(t, err)

	var repo Repository = store
	if wrap != nil {
		repo = wrap(store)
	}

	env := &testEnv{
		db:     db,
		store:  store,
		events: &recordingPublisher{},
		tasks:  &recordingTasks{},
		userID: createUser(t, db, "rep@example.com"),
	}
	env.svc = NewService(Deps{
		Store:     repo,
		Generator: webhook.NewFixture(0),
		Directory: companies.NewFixtureSource(""),
		Catalog:   cat,
		Events:    env.events,
		Tasks:     env.tasks,
	})
	return env
}

func snowflakeInput() CreateInput {
	return CreateInput{
		Company:     content.Company{ID: "1", Name: "Snowflake"},
		MeetingType: content.MeetingIntroCall,
	}
}

func fixtureGenerator() webhook.Generator {
	return webhook.NewFixture(0)
}

// faultyRepo fails selected operations
type faultyRepo struct {
	Repository
	failCreateRequest  bool
	failInsertBriefing int // number of upcoming inserts to fail
	failFind           bool
	insertCalls        int
}

func (r *faultyRepo) CreateRequest(ctx context.Context, req *models.BriefingRequest) error {
	if r.failCreateRequest {
		return errInjected
	}
	return r.Repository.CreateRequest(ctx, req)
}

func (r *faultyRepo) InsertBriefing(ctx context.Context, b *models.Briefing) (string, error) {
	r.insertCalls++
	if r.failInsertBriefing > 0 {
		r.failInsertBriefing--
		return "", errInjected
	}
	return r.Repository.InsertBriefing(ctx, b)
}

func (r *faultyRepo) FindBriefing(ctx context.Context, id string) (content.Record, uint, error) {
	if r.failFind {
		return content.Record{}, 0, errInjected
	}
	return r.Repository.FindBriefing(ctx, id)
}

// countingGenerator wraps a generator and counts calls
type countingGenerator struct {
	next  webhook.Generator
	err   error
	calls int
}

func (g *countingGenerator) Generate(ctx context.Context, in webhook.GenerateInput) (*content.Briefing, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.next.Generate(ctx, in)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []streams.BriefingEvent
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, ev streams.BriefingEvent) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return "1-0", nil
}

func (p *recordingPublisher) statuses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.events {
		out = append(out, ev.Status)
	}
	return out
}

type recordingTasks struct {
	requestIDs []string
	err        error
}

func (q *recordingTasks) EnqueueGenerateBriefing(ctx context.Context, requestID string) error {
	if q.err != nil {
		return q.err
	}
	q.requestIDs = append(q.requestIDs, requestID)
	return nil
}
