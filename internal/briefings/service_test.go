package briefings

import (
	"context"
	"testing"
	"time"

	"github.com/jimdaga/tophive/internal/content"
	"github.com/jimdaga/tophive/internal/models"
	"github.com/jimdaga/tophive/internal/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSnowflakeIntroCall(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	result, err := env.svc.Create(ctx, env.userID, snowflakeInput())
	require.NoError(t, err)
	require.NotEmpty(t, result.BriefingID)
	assert.Equal(t, content.StatusCompleted, result.Status)

	var req models.BriefingRequest
	require.NoError(t, env.db.First(&req, "id = ?", result.RequestID).Error)
	assert.Equal(t, models.StatusCompleted, req.Status)

	b, err := env.svc.Get(ctx, env.userID, result.BriefingID)
	require.NoError(t, err)
	assert.Equal(t, "Intro Call with Snowflake", b.Title)
	assert.Equal(t, result.BriefingID, b.ID)
	assert.Equal(t, result.RequestID, b.RequestID)
	assert.Equal(t, content.Company{ID: "1", Name: "Snowflake"}, b.Company)
	assert.Equal(t, content.MeetingIntroCall, b.MeetingType)
	assert.NotEmpty(t, b.Summary)
	assert.NotEmpty(t, b.KeyContacts)
	assert.Empty(t, b.FocusAreas)
	assert.NotNil(t, b.FocusAreas)
	assert.Equal(t, content.StatusCompleted, b.Status)

	assert.Equal(t, []string{models.StatusGenerating, models.StatusCompleted}, env.events.statuses())
}

func TestCreateStoresContactAndFocusAreas(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	in := snowflakeInput()
	in.Company.Logo = "https://logo.clearbit.com/snowflake.com"
	in.Company.Industry = "Cloud Data Platform"
	in.ContactID = "1"
	in.FocusAreas = []string{"competitor-moves", "Financial Health", "competitor-moves"}

	result, err := env.svc.Create(ctx, env.userID, in)
	require.NoError(t, err)

	b, err := env.svc.Get(ctx, env.userID, result.BriefingID)
	require.NoError(t, err)
	assert.Equal(t, in.Company, b.Company)
	assert.Equal(t, "1", b.PrimaryContactID)
	assert.Equal(t, []string{"Competitor Moves", "Financial Health"}, b.FocusAreas)
}

func TestGetRoundTripsGeneratedContent(t *testing.T) {
	fixture := webhook.NewFixture(0)
	var generated *content.Briefing
	env := newTestEnv(t, nil)
	env.svc.generator = generatorFunc(func(ctx context.Context, in webhook.GenerateInput) (*content.Briefing, error) {
		b, err := fixture.Generate(ctx, in)
		generated = b
		return b, err
	})

	result, err := env.svc.Create(context.Background(), env.userID, snowflakeInput())
	require.NoError(t, err)

	b, err := env.svc.Get(context.Background(), env.userID, result.BriefingID)
	require.NoError(t, err)

	assert.Equal(t, generated.Summary, b.Summary)
	assert.Equal(t, generated.CompanyOverview, b.CompanyOverview)
	assert.Equal(t, generated.KeyContacts, b.KeyContacts)
	assert.Equal(t, generated.Insights, b.Insights)
	assert.Equal(t, generated.SalesHypotheses, b.SalesHypotheses)
	assert.Equal(t, generated.CompetitorAnalysis, b.CompetitorAnalysis)
	assert.Equal(t, generated.TalkingPoints, b.TalkingPoints)
}

type generatorFunc func(ctx context.Context, in webhook.GenerateInput) (*content.Briefing, error)

func (f generatorFunc) Generate(ctx context.Context, in webhook.GenerateInput) (*content.Briefing, error) {
	return f(ctx, in)
}

func TestGetFallsBackToFixture(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	t.Run("directory company", func(t *testing.T) {
		b, err := env.svc.Get(ctx, env.userID, "1")
		require.NoError(t, err)
		assert.Equal(t, "1", b.ID)
		assert.Equal(t, "Snowflake", b.Company.Name)
		assert.Equal(t, "Intro Call with Snowflake", b.Title)
		assert.Equal(t, content.StatusCompleted, b.Status)
		assert.NotEmpty(t, b.Summary)
	})

	t.Run("unknown id", func(t *testing.T) {
		b, err := env.svc.Get(ctx, env.userID, "no-such-briefing")
		require.NoError(t, err)
		assert.Equal(t, "no-such-briefing", b.ID)
		assert.Equal(t, "no-such-briefing", b.Company.Name)
		assert.Equal(t, content.StatusCompleted, b.Status)
	})
}

func TestGetNotFoundWhenFallbackFails(t *testing.T) {
	env := newTestEnv(t, nil)
	env.svc.fallback = &countingGenerator{err: errInjected}

	_, err := env.svc.Get(context.Background(), env.userID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetStorageError(t *testing.T) {
	env := newTestEnv(t, func(r Repository) Repository {
		return &faultyRepo{Repository: r, failFind: true}
	})

	_, err := env.svc.Get(context.Background(), env.userID, "any")
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.ErrorIs(t, err, errInjected)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestUpdateNotesChangesOnlyNotes(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	result, err := env.svc.Create(ctx, env.userID, snowflakeInput())
	require.NoError(t, err)

	before, err := env.svc.Get(ctx, env.userID, result.BriefingID)
	require.NoError(t, err)
	assert.Equal(t, "", before.Notes)

	require.NoError(t, env.svc.UpdateNotes(ctx, env.userID, result.BriefingID, "Ask about the Q3 renewal"))

	after, err := env.svc.Get(ctx, env.userID, result.BriefingID)
	require.NoError(t, err)
	assert.Equal(t, "Ask about the Q3 renewal", after.Notes)

	after.Notes = before.Notes
	assert.Equal(t, before, after)
}

func TestUpdateNotesMissingBriefing(t *testing.T) {
	env := newTestEnv(t, nil)
	err := env.svc.UpdateNotes(context.Background(), env.userID, "missing", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRequestFailureSkipsGeneration(t *testing.T) {
	var repo *faultyRepo
	env := newTestEnv(t, func(r Repository) Repository {
		repo = &faultyRepo{Repository: r, failCreateRequest: true}
		return repo
	})
	gen := &countingGenerator{next: webhook.NewFixture(0)}
	env.svc.generator = gen

	result, err := env.svc.Create(context.Background(), env.userID, snowflakeInput())
	assert.Nil(t, result)

	var creationErr *RequestCreationFailedError
	require.ErrorAs(t, err, &creationErr)
	assert.Zero(t, gen.calls)
	assert.Zero(t, repo.insertCalls)
	assert.Empty(t, env.events.statuses())
}

func TestBriefingInsertFailureIsRetryable(t *testing.T) {
	var repo *faultyRepo
	env := newTestEnv(t, func(r Repository) Repository {
		repo = &faultyRepo{Repository: r, failInsertBriefing: 1}
		return repo
	})
	ctx := context.Background()

	result, err := env.svc.Create(ctx, env.userID, snowflakeInput())
	var genErr *GenerationFailedError
	require.ErrorAs(t, err, &genErr)
	require.NotNil(t, result)
	assert.Equal(t, result.RequestID, genErr.RequestID)

	// The request is left behind in generating state
	status, err := env.svc.RequestStatus(ctx, env.userID, genErr.RequestID)
	require.NoError(t, err)
	assert.Equal(t, content.StatusGenerating, status.Status)
	assert.Empty(t, status.BriefingID)

	retried, err := env.svc.Retry(ctx, env.userID, genErr.RequestID)
	require.NoError(t, err)
	assert.Equal(t, genErr.RequestID, retried.RequestID)
	require.NotEmpty(t, retried.BriefingID)

	// Retrying a completed request returns the same briefing
	again, err := env.svc.Retry(ctx, env.userID, genErr.RequestID)
	require.NoError(t, err)
	assert.Equal(t, retried.BriefingID, again.BriefingID)

	var requests, briefings int64
	env.db.Model(&models.BriefingRequest{}).Count(&requests)
	env.db.Model(&models.Briefing{}).Count(&briefings)
	assert.Equal(t, int64(1), requests)
	assert.Equal(t, int64(1), briefings)

	status, err = env.svc.RequestStatus(ctx, env.userID, genErr.RequestID)
	require.NoError(t, err)
	assert.Equal(t, content.StatusCompleted, status.Status)
	assert.Equal(t, retried.BriefingID, status.BriefingID)
}

func TestGenerationFailureKeepsRequestGenerating(t *testing.T) {
	env := newTestEnv(t, nil)
	env.svc.generator = &countingGenerator{err: errInjected}

	_, err := env.svc.Create(context.Background(), env.userID, snowflakeInput())
	var genErr *GenerationFailedError
	require.ErrorAs(t, err, &genErr)
	assert.ErrorIs(t, err, errInjected)

	var req models.BriefingRequest
	require.NoError(t, env.db.First(&req, "id = ?", genErr.RequestID).Error)
	assert.Equal(t, models.StatusGenerating, req.Status)
}

func TestInsertBriefingIsIdempotentPerRequest(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	req := &models.BriefingRequest{UserID: env.userID, CompanyID: "1", CompanyName: "Snowflake", MeetingType: "Intro Call"}
	require.NoError(t, env.store.CreateRequest(ctx, req))

	generated, err := webhook.NewFixture(0).Generate(ctx, webhook.GenerateInput{Company: content.Company{ID: "1", Name: "Snowflake"}, MeetingType: content.MeetingIntroCall})
	require.NoError(t, err)

	first, err := env.store.InsertBriefing(ctx, fromBriefing(req.ID, *generated))
	require.NoError(t, err)
	second, err := env.store.InsertBriefing(ctx, fromBriefing(req.ID, *generated))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRetryRejectsOtherUsersRequests(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.svc.generator = &countingGenerator{err: errInjected}

	_, err := env.svc.Create(ctx, env.userID, snowflakeInput())
	var genErr *GenerationFailedError
	require.ErrorAs(t, err, &genErr)

	other := createUser(t, env.db, "other@example.com")
	_, err = env.svc.Retry(ctx, other, genErr.RequestID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.svc.RequestStatus(ctx, other, genErr.RequestID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	cases := map[string]func(*CreateInput){
		"unknown meeting type": func(in *CreateInput) { in.MeetingType = "Lunch" },
		"missing company name": func(in *CreateInput) { in.Company.Name = "" },
		"missing company id":   func(in *CreateInput) { in.Company.ID = "" },
		"unknown contact":      func(in *CreateInput) { in.ContactID = "99" },
		"unknown focus area":   func(in *CreateInput) { in.FocusAreas = []string{"gossip"} },
		"blank focus area":     func(in *CreateInput) { in.FocusAreas = []string{""} },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := snowflakeInput()
			mutate(&in)
			_, err := env.svc.Create(ctx, env.userID, in)
			var validationErr *ValidationError
			assert.ErrorAs(t, err, &validationErr)
		})
	}

	var requests int64
	env.db.Model(&models.BriefingRequest{}).Count(&requests)
	assert.Zero(t, requests)
}

func TestEnqueueAndComplete(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	result, err := env.svc.Enqueue(ctx, env.userID, snowflakeInput())
	require.NoError(t, err)
	assert.Equal(t, content.StatusGenerating, result.Status)
	assert.Equal(t, []string{result.RequestID}, env.tasks.requestIDs)

	briefingID, err := env.svc.Complete(ctx, result.RequestID)
	require.NoError(t, err)

	// A duplicate delivery of the task is harmless
	again, err := env.svc.Complete(ctx, result.RequestID)
	require.NoError(t, err)
	assert.Equal(t, briefingID, again)

	status, err := env.svc.RequestStatus(ctx, env.userID, result.RequestID)
	require.NoError(t, err)
	assert.Equal(t, content.StatusCompleted, status.Status)
	assert.Equal(t, briefingID, status.BriefingID)
}

func TestEnqueueFailureIsRetryable(t *testing.T) {
	env := newTestEnv(t, nil)
	env.tasks.err = errInjected

	result, err := env.svc.Enqueue(context.Background(), env.userID, snowflakeInput())
	var genErr *GenerationFailedError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, result.RequestID, genErr.RequestID)

	retried, err := env.svc.Retry(context.Background(), env.userID, genErr.RequestID)
	require.NoError(t, err)
	assert.NotEmpty(t, retried.BriefingID)
}

func TestCompleteMissingRequest(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.svc.Complete(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompleteWithDocument(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.svc.generator = &countingGenerator{err: errInjected}

	_, err := env.svc.Create(ctx, env.userID, snowflakeInput())
	var genErr *GenerationFailedError
	require.ErrorAs(t, err, &genErr)

	_, err = env.svc.CompleteWithDocument(ctx, genErr.RequestID, []byte(`{"title":""}`))
	assert.ErrorIs(t, err, ErrMalformedRecord)

	doc := []byte(`{
		"title": "Renewal prep",
		"summary": ["one", 2],
		"companyOverview": {"description": "Data cloud"},
		"talkingPoints": ["ask about usage"]
	}`)
	briefingID, err := env.svc.CompleteWithDocument(ctx, genErr.RequestID, doc)
	require.NoError(t, err)

	b, err := env.svc.Get(ctx, env.userID, briefingID)
	require.NoError(t, err)
	assert.Equal(t, "Renewal prep", b.Title)
	assert.Equal(t, []string{"one"}, b.Summary)
	assert.Equal(t, "Snowflake", b.Company.Name)
	assert.Equal(t, []string{"ask about usage"}, b.TalkingPoints)
	assert.Empty(t, b.KeyContacts)
}

func TestFail(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	result, err := env.svc.Enqueue(ctx, env.userID, snowflakeInput())
	require.NoError(t, err)

	require.NoError(t, env.svc.Fail(ctx, result.RequestID, "pipeline timeout"))
	status, err := env.svc.RequestStatus(ctx, env.userID, result.RequestID)
	require.NoError(t, err)
	assert.Equal(t, content.StatusFailed, status.Status)
	assert.Equal(t, []string{models.StatusGenerating, models.StatusFailed}, env.events.statuses())

	assert.ErrorIs(t, env.svc.Fail(ctx, "missing", "x"), ErrNotFound)
}

func TestListRecent(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	for _, name := range []string{"Snowflake", "Tesla"} {
		in := snowflakeInput()
		in.Company.Name = name
		_, err := env.svc.Create(ctx, env.userID, in)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}

	other := createUser(t, env.db, "other@example.com")
	_, err := env.svc.Create(ctx, other, snowflakeInput())
	require.NoError(t, err)

	list, err := env.svc.ListRecent(ctx, env.userID, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Intro Call with Tesla", list[0].Title)
	assert.Equal(t, "Intro Call with Snowflake", list[1].Title)

	list, err = env.svc.ListRecent(ctx, env.userID, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStaleRequests(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.svc.generator = &countingGenerator{err: errInjected}

	_, err := env.svc.Create(ctx, env.userID, snowflakeInput())
	require.Error(t, err)

	n, err := env.svc.StaleRequests(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.db.Model(&models.BriefingRequest{}).Where("1 = 1").Update("created_at", time.Now().Add(-2*time.Hour))
	n, err = env.svc.StaleRequests(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestOtherUsersBriefingIsNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	result, err := env.svc.Create(ctx, env.userID, snowflakeInput())
	require.NoError(t, err)
	require.NoError(t, env.svc.UpdateNotes(ctx, env.userID, result.BriefingID, "private"))

	other := createUser(t, env.db, "other@example.com")
	_, err = env.svc.Get(ctx, other, result.BriefingID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, env.svc.UpdateNotes(ctx, other, result.BriefingID, "overwritten"), ErrNotFound)

	b, err := env.svc.Get(ctx, env.userID, result.BriefingID)
	require.NoError(t, err)
	assert.Equal(t, "private", b.Notes)
}

func TestFailLeavesCompletedRequest(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	result, err := env.svc.Create(ctx, env.userID, snowflakeInput())
	require.NoError(t, err)

	require.NoError(t, env.svc.Fail(ctx, result.RequestID, "late pipeline failure"))

	status, err := env.svc.RequestStatus(ctx, env.userID, result.RequestID)
	require.NoError(t, err)
	assert.Equal(t, content.StatusCompleted, status.Status)
	assert.Equal(t, result.BriefingID, status.BriefingID)
	assert.NotContains(t, env.events.statuses(), models.StatusFailed)
}

func TestCompleteWithDocumentFinishesRequestWithBriefing(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	result, err := env.svc.Create(ctx, env.userID, snowflakeInput())
	require.NoError(t, err)
	// Briefing stored but the status write was lost
	require.NoError(t, env.db.Model(&models.BriefingRequest{}).
		Where("id = ?", result.RequestID).
		Update("status", models.StatusGenerating).Error)

	doc := []byte(`{"title": "Other", "summary": [], "companyOverview": {}}`)
	briefingID, err := env.svc.CompleteWithDocument(ctx, result.RequestID, doc)
	require.NoError(t, err)
	assert.Equal(t, result.BriefingID, briefingID)

	status, err := env.svc.RequestStatus(ctx, env.userID, result.RequestID)
	require.NoError(t, err)
	assert.Equal(t, content.StatusCompleted, status.Status)

	b, err := env.svc.Get(ctx, env.userID, briefingID)
	require.NoError(t, err)
	assert.Equal(t, "Intro Call with Snowflake", b.Title)
}
