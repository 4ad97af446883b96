// Package briefings loads, creates and edits sales briefings.
package briefings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jimdaga/tophive/internal/catalog"
	"github.com/jimdaga/tophive/internal/content"
	"github.com/jimdaga/tophive/internal/metrics"
	"github.com/jimdaga/tophive/internal/models"
	"github.com/jimdaga/tophive/internal/streams"
	"github.com/jimdaga/tophive/internal/webhook"
	"gorm.io/datatypes"
)

// Directory resolves company ids for briefings that have no stored record
type Directory interface {
	ByID(id string) (content.Company, bool)
}

// EventPublisher announces request lifecycle changes
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev streams.BriefingEvent) (string, error)
}

// TaskEnqueuer schedules background completion of a request
type TaskEnqueuer interface {
	EnqueueGenerateBriefing(ctx context.Context, requestID string) error
}

// Deps wires a Service. Events and Tasks are optional.
type Deps struct {
	Store     Repository
	Generator webhook.Generator
	Fallback  webhook.Generator
	Directory Directory
	Catalog   *catalog.Registry
	Events    EventPublisher
	Tasks     TaskEnqueuer
}

// Service implements briefing operations on top of a Repository
type Service struct {
	store     Repository
	generator webhook.Generator
	fallback  webhook.Generator
	directory Directory
	catalog   *catalog.Registry
	events    EventPublisher
	tasks     TaskEnqueuer
	validate  *validator.Validate
}

// CreateInput is a user's briefing request
type CreateInput struct {
	Company     content.Company     `json:"company"`
	MeetingType content.MeetingType `json:"meetingType" validate:"meetingtype"`
	ContactID   string              `json:"contactId" validate:"omitempty,max=64"`
	FocusAreas  []string            `json:"focusAreas" validate:"max=10,dive,required"`
}

// CreateResult identifies what Create or Enqueue produced
type CreateResult struct {
	RequestID  string         `json:"requestId"`
	BriefingID string         `json:"briefingId,omitempty"`
	Status     content.Status `json:"status"`
}

// RequestStatus is the polling view of a request
type RequestStatus struct {
	RequestID  string         `json:"requestId"`
	Status     content.Status `json:"status"`
	BriefingID string         `json:"briefingId,omitempty"`
}

// NewService creates a Service
func NewService(deps Deps) *Service {
	v := validator.New()
	v.RegisterValidation("meetingtype", func(fl validator.FieldLevel) bool {
		return content.MeetingType(fl.Field().String()).Valid()
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		c := sl.Current().Interface().(content.Company)
		if c.ID == "" {
			sl.ReportError(c.ID, "ID", "id", "required", "")
		}
		if c.Name == "" {
			sl.ReportError(c.Name, "Name", "name", "required", "")
		}
	}, content.Company{})

	fallback := deps.Fallback
	if fallback == nil {
		fallback = webhook.NewFixture(0)
	}
	cat := deps.Catalog
	if cat == nil {
		cat = catalog.NewRegistry(&catalog.Manifest{})
	}

	return &Service{
		store:     deps.Store,
		generator: deps.Generator,
		fallback:  fallback,
		directory: deps.Directory,
		catalog:   cat,
		events:    deps.Events,
		tasks:     deps.Tasks,
		validate:  v,
	}
}

// Get returns userID's briefing with id. When no briefing is stored under
// id a fixture briefing for the matching directory company is returned
// instead, so callers always receive a fully populated value unless both
// paths fail. Another user's briefing is ErrNotFound. Malformed stored
// fields take their defaults.
func (s *Service) Get(ctx context.Context, userID uint, id string) (content.Briefing, error) {
	rec, owner, err := s.store.FindBriefing(ctx, id)
	if err == nil {
		if owner != userID {
			metrics.BriefingLoads.WithLabelValues("not_found").Inc()
			return content.Briefing{}, ErrNotFound
		}
		metrics.BriefingLoads.WithLabelValues("ok").Inc()
		return content.Normalize(rec), nil
	}
	if !errors.Is(err, ErrNotFound) {
		metrics.BriefingLoads.WithLabelValues("error").Inc()
		return content.Briefing{}, &StorageError{Op: "load briefing", Err: err}
	}

	b, err := s.fallbackBriefing(ctx, id)
	if err != nil {
		slog.Warn("Fallback briefing failed", "briefing_id", id, "error", err)
		metrics.BriefingLoads.WithLabelValues("not_found").Inc()
		return content.Briefing{}, ErrNotFound
	}

	metrics.BriefingLoads.WithLabelValues("fallback").Inc()
	return b, nil
}

func (s *Service) fallbackBriefing(ctx context.Context, id string) (content.Briefing, error) {
	if id == "" {
		return content.Briefing{}, fmt.Errorf("empty briefing id")
	}

	company := content.Company{ID: id, Name: id}
	if s.directory != nil {
		if c, ok := s.directory.ByID(id); ok {
			company = c
		}
	}

	generated, err := s.fallback.Generate(ctx, webhook.GenerateInput{
		Company:     company,
		MeetingType: content.MeetingIntroCall,
	})
	if err != nil {
		return content.Briefing{}, err
	}

	// Pass through the normalizer so the fallback has the same shape as a
	// stored briefing
	b := content.Normalize(content.FromBriefing(*generated))
	b.ID = id
	b.Status = content.StatusCompleted
	return b, nil
}

// UpdateNotes replaces the notes of one of userID's briefings and nothing else
func (s *Service) UpdateNotes(ctx context.Context, userID uint, id, notes string) error {
	err := s.store.UpdateNotes(ctx, userID, id, notes)
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return &StorageError{Op: "update notes", Err: err}
	}
	return nil
}

// ListRecent returns up to limit of the user's briefings, newest first
func (s *Service) ListRecent(ctx context.Context, userID uint, limit int) ([]content.Briefing, error) {
	if limit <= 0 {
		limit = 10
	}

	records, err := s.store.ListBriefings(ctx, userID, limit)
	if err != nil {
		return nil, &StorageError{Op: "list briefings", Err: err}
	}

	out := make([]content.Briefing, 0, len(records))
	for _, rec := range records {
		out = append(out, content.Normalize(rec))
	}
	return out, nil
}

// Create records a request, generates its briefing and stores it. If the
// request cannot be written nothing else happens. If generation or the
// briefing write fails the request is left generating and a
// *GenerationFailedError carrying its id is returned; Retry completes it.
func (s *Service) Create(ctx context.Context, userID uint, in CreateInput) (*CreateResult, error) {
	req, err := s.openRequest(ctx, userID, in)
	if err != nil {
		return nil, err
	}

	briefingID, err := s.complete(ctx, req)
	if err != nil {
		metrics.BriefingRequests.WithLabelValues("generation_failed").Inc()
		return &CreateResult{RequestID: req.ID, Status: content.StatusGenerating},
			&GenerationFailedError{RequestID: req.ID, Err: err}
	}

	metrics.BriefingRequests.WithLabelValues("completed").Inc()
	return &CreateResult{RequestID: req.ID, BriefingID: briefingID, Status: content.StatusCompleted}, nil
}

// Enqueue records a request and hands generation to the background worker
func (s *Service) Enqueue(ctx context.Context, userID uint, in CreateInput) (*CreateResult, error) {
	if s.tasks == nil {
		return nil, fmt.Errorf("background generation is not configured")
	}

	req, err := s.openRequest(ctx, userID, in)
	if err != nil {
		return nil, err
	}

	result := &CreateResult{RequestID: req.ID, Status: content.StatusGenerating}
	if err := s.tasks.EnqueueGenerateBriefing(ctx, req.ID); err != nil {
		metrics.BriefingRequests.WithLabelValues("generation_failed").Inc()
		return result, &GenerationFailedError{RequestID: req.ID, Err: fmt.Errorf("failed to enqueue generation: %w", err)}
	}

	metrics.BriefingRequests.WithLabelValues("enqueued").Inc()
	return result, nil
}

// Retry completes a request of userID that was left without a briefing.
// A request that already has its briefing returns that briefing's id.
func (s *Service) Retry(ctx context.Context, userID uint, requestID string) (*CreateResult, error) {
	req, err := s.ownedRequest(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}

	briefingID, err := s.complete(ctx, req)
	if err != nil {
		metrics.BriefingRequests.WithLabelValues("generation_failed").Inc()
		return &CreateResult{RequestID: req.ID, Status: content.StatusGenerating},
			&GenerationFailedError{RequestID: req.ID, Err: err}
	}

	metrics.BriefingRequests.WithLabelValues("retried").Inc()
	return &CreateResult{RequestID: req.ID, BriefingID: briefingID, Status: content.StatusCompleted}, nil
}

// Complete generates and stores the briefing of an existing request. It is
// the background worker's entry point and is safe to call repeatedly.
func (s *Service) Complete(ctx context.Context, requestID string) (string, error) {
	req, err := s.store.FindRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}
		return "", &StorageError{Op: "load request", Err: err}
	}
	return s.complete(ctx, req)
}

// CompleteWithDocument stores a briefing document produced outside the
// service for an existing request. A document that fails validation is
// ErrMalformedRecord.
func (s *Service) CompleteWithDocument(ctx context.Context, requestID string, document []byte) (string, error) {
	if err := content.ValidateDocument(document); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	req, err := s.store.FindRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrNotFound
		}
		return "", &StorageError{Op: "load request", Err: err}
	}
	if req.Briefing != nil {
		return s.complete(ctx, req)
	}

	return s.persist(ctx, req, content.NormalizeDocument(document))
}

// Fail marks a generating request as failed. A request that already
// completed or failed is left as it is.
func (s *Service) Fail(ctx context.Context, requestID, reason string) error {
	failed, err := s.store.FailRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return &StorageError{Op: "fail request", Err: err}
	}
	if !failed {
		slog.Info("Ignoring failure for finished request", "request_id", requestID, "reason", reason)
		return nil
	}

	s.publish(ctx, streams.BriefingEvent{RequestID: requestID, Status: models.StatusFailed, Error: reason})
	return nil
}

// StaleRequests counts requests that have been generating for longer than
// age. They are only reported; Retry or a pipeline result completes them.
func (s *Service) StaleRequests(ctx context.Context, age time.Duration) (int64, error) {
	n, err := s.store.CountStaleRequests(ctx, time.Now().Add(-age))
	if err != nil {
		return 0, &StorageError{Op: "count stale requests", Err: err}
	}
	metrics.StaleRequests.Set(float64(n))
	return n, nil
}

// RequestStatus reports the state of one of userID's requests
func (s *Service) RequestStatus(ctx context.Context, userID uint, requestID string) (*RequestStatus, error) {
	req, err := s.ownedRequest(ctx, userID, requestID)
	if err != nil {
		return nil, err
	}

	status := &RequestStatus{RequestID: req.ID, Status: content.Status(req.Status)}
	if req.Briefing != nil {
		status.BriefingID = req.Briefing.ID
	}
	return status, nil
}

func (s *Service) ownedRequest(ctx context.Context, userID uint, requestID string) (*models.BriefingRequest, error) {
	req, err := s.store.FindRequest(ctx, requestID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "load request", Err: err}
	}
	// Other users' requests are indistinguishable from missing ones
	if req.UserID != userID {
		return nil, ErrNotFound
	}
	return req, nil
}

// openRequest validates in and writes the request row
func (s *Service) openRequest(ctx context.Context, userID uint, in CreateInput) (*models.BriefingRequest, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, &ValidationError{Err: err}
	}

	if in.ContactID != "" {
		if _, ok := s.catalog.Contact(in.ContactID); !ok {
			return nil, &ValidationError{Err: fmt.Errorf("unknown contact: %q", in.ContactID)}
		}
	}
	focusAreas, err := s.catalog.ResolveFocusAreas(in.FocusAreas)
	if err != nil {
		return nil, &ValidationError{Err: err}
	}

	profile, err := json.Marshal(in.Company)
	if err != nil {
		return nil, &ValidationError{Err: err}
	}

	req := &models.BriefingRequest{
		UserID:         userID,
		CompanyID:      in.Company.ID,
		CompanyName:    in.Company.Name,
		CompanyProfile: datatypes.JSON(profile),
		MeetingType:    string(in.MeetingType),
		FocusAreas:     datatypes.JSONSlice[string](focusAreas),
		Status:         models.StatusGenerating,
	}
	if in.Company.Logo != "" {
		logo := in.Company.Logo
		req.CompanyLogo = &logo
	}
	if in.ContactID != "" {
		contactID := in.ContactID
		req.ContactID = &contactID
	}

	if err := s.store.CreateRequest(ctx, req); err != nil {
		metrics.BriefingRequests.WithLabelValues("request_failed").Inc()
		slog.Error("Failed to create briefing request", "user_id", userID, "error", err)
		return nil, &RequestCreationFailedError{Err: err}
	}

	slog.Info("Briefing request created", "request_id", req.ID, "user_id", userID, "company", req.CompanyName)
	s.publish(ctx, streams.BriefingEvent{RequestID: req.ID, UserID: userID, Status: models.StatusGenerating})
	return req, nil
}

// complete runs generation for req unless it already has a briefing
func (s *Service) complete(ctx context.Context, req *models.BriefingRequest) (string, error) {
	if req.Briefing != nil {
		if req.Status != models.StatusCompleted {
			if err := s.store.SetRequestStatus(ctx, req.ID, models.StatusCompleted); err != nil {
				return "", fmt.Errorf("failed to mark request completed: %w", err)
			}
		}
		return req.Briefing.ID, nil
	}

	in := s.generateInput(req)

	start := time.Now()
	generated, err := s.generator.Generate(ctx, in)
	metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		slog.Error("Briefing generation failed", "request_id", req.ID, "error", err)
		return "", fmt.Errorf("generation failed: %w", err)
	}

	return s.persist(ctx, req, *generated)
}

// persist writes b as the briefing of req and marks req completed
func (s *Service) persist(ctx context.Context, req *models.BriefingRequest, b content.Briefing) (string, error) {
	row := fromBriefing(req.ID, b)
	briefingID, err := s.store.InsertBriefing(ctx, row)
	if err != nil {
		slog.Error("Failed to store briefing", "request_id", req.ID, "error", err)
		return "", fmt.Errorf("failed to store briefing: %w", err)
	}

	if err := s.store.SetRequestStatus(ctx, req.ID, models.StatusCompleted); err != nil {
		slog.Error("Failed to mark request completed", "request_id", req.ID, "error", err)
		return "", fmt.Errorf("failed to mark request completed: %w", err)
	}

	slog.Info("Briefing stored", "request_id", req.ID, "briefing_id", briefingID)
	s.publish(ctx, streams.BriefingEvent{
		RequestID:  req.ID,
		BriefingID: briefingID,
		UserID:     req.UserID,
		Status:     models.StatusCompleted,
	})
	return briefingID, nil
}

// generateInput rebuilds the generator input from the stored request
func (s *Service) generateInput(req *models.BriefingRequest) webhook.GenerateInput {
	var company content.Company
	if len(req.CompanyProfile) > 0 {
		if err := json.Unmarshal(req.CompanyProfile, &company); err != nil {
			slog.Warn("Unreadable company profile", "request_id", req.ID, "error", err)
		}
	}
	company.ID = req.CompanyID
	company.Name = req.CompanyName
	if req.CompanyLogo != nil {
		company.Logo = *req.CompanyLogo
	}

	in := webhook.GenerateInput{
		Company:     company,
		MeetingType: content.MeetingType(req.MeetingType),
		FocusAreas:  append([]string{}, req.FocusAreas...),
	}
	if req.ContactID != nil {
		if entry, ok := s.catalog.Contact(*req.ContactID); ok {
			in.Contact = &content.Contact{
				ID:      entry.ID,
				Name:    entry.Name,
				Title:   entry.Title,
				Company: company.Name,
			}
		}
	}
	return in
}

// publish is best effort; a missing or failing publisher never fails a request
func (s *Service) publish(ctx context.Context, ev streams.BriefingEvent) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishEvent(ctx, ev); err != nil {
		slog.Warn("Failed to publish briefing event", "request_id", ev.RequestID, "status", ev.Status, "error", err)
	}
}
