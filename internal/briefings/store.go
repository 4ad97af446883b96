package briefings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jimdaga/tophive/internal/content"
	"github.com/jimdaga/tophive/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the persistence used by Service
type Repository interface {
	// FindBriefing returns the briefing and the id of the user who owns it
	FindBriefing(ctx context.Context, id string) (content.Record, uint, error)
	ListBriefings(ctx context.Context, userID uint, limit int) ([]content.Record, error)
	// UpdateNotes only touches briefings owned by userID
	UpdateNotes(ctx context.Context, userID uint, id, notes string) error

	CreateRequest(ctx context.Context, req *models.BriefingRequest) error
	FindRequest(ctx context.Context, requestID string) (*models.BriefingRequest, error)
	SetRequestStatus(ctx context.Context, requestID, status string) error
	// FailRequest moves a generating request to failed. It reports false
	// when the request exists but had already left generating.
	FailRequest(ctx context.Context, requestID string) (bool, error)

	// CountStaleRequests counts requests still generating that were created
	// before cutoff
	CountStaleRequests(ctx context.Context, cutoff time.Time) (int64, error)

	// InsertBriefing stores b unless a briefing already exists for its
	// request, and returns the id of the briefing stored for that request.
	InsertBriefing(ctx context.Context, b *models.Briefing) (string, error)
}

// Store implements Repository with GORM
type Store struct {
	db *gorm.DB
}

// NewStore creates a GORM-backed repository
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// validID reports whether id can name a row. Ids are UUID columns and
// postgres rejects other input instead of matching nothing.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// FindBriefing loads a briefing joined with its request. Returns ErrNotFound
// if there is no such briefing.
func (s *Store) FindBriefing(ctx context.Context, id string) (content.Record, uint, error) {
	if !validID(id) {
		return content.Record{}, 0, ErrNotFound
	}

	var b models.Briefing
	err := s.db.WithContext(ctx).Preload("Request").Where("id = ?", id).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return content.Record{}, 0, ErrNotFound
	}
	if err != nil {
		return content.Record{}, 0, err
	}

	return toRecord(b), b.Request.UserID, nil
}

// ListBriefings returns the user's briefings, newest first
func (s *Store) ListBriefings(ctx context.Context, userID uint, limit int) ([]content.Record, error) {
	var rows []models.Briefing
	err := s.db.WithContext(ctx).
		Preload("Request").
		Joins("JOIN briefing_requests ON briefing_requests.id = briefings.request_id").
		Where("briefing_requests.user_id = ?", userID).
		Order("briefings.created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]content.Record, 0, len(rows))
	for _, b := range rows {
		records = append(records, toRecord(b))
	}
	return records, nil
}

// UpdateNotes writes only the notes column
func (s *Store) UpdateNotes(ctx context.Context, userID uint, id, notes string) error {
	if !validID(id) {
		return ErrNotFound
	}

	owned := s.db.Model(&models.BriefingRequest{}).Select("id").Where("user_id = ?", userID)
	result := s.db.WithContext(ctx).
		Model(&models.Briefing{}).
		Where("id = ? AND request_id IN (?)", id, owned).
		UpdateColumn("notes", notes)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateRequest inserts a new request row
func (s *Store) CreateRequest(ctx context.Context, req *models.BriefingRequest) error {
	return s.db.WithContext(ctx).Omit("User", "Briefing").Create(req).Error
}

// FindRequest loads a request with its briefing, if one exists
func (s *Store) FindRequest(ctx context.Context, requestID string) (*models.BriefingRequest, error) {
	if !validID(requestID) {
		return nil, ErrNotFound
	}

	var req models.BriefingRequest
	err := s.db.WithContext(ctx).Preload("Briefing").Where("id = ?", requestID).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// SetRequestStatus updates the lifecycle status of a request
func (s *Store) SetRequestStatus(ctx context.Context, requestID, status string) error {
	if !validID(requestID) {
		return ErrNotFound
	}

	result := s.db.WithContext(ctx).
		Model(&models.BriefingRequest{}).
		Where("id = ?", requestID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FailRequest implements Repository
func (s *Store) FailRequest(ctx context.Context, requestID string) (bool, error) {
	if !validID(requestID) {
		return false, ErrNotFound
	}

	db := s.db.WithContext(ctx)
	result := db.Model(&models.BriefingRequest{}).
		Where("id = ? AND status = ?", requestID, models.StatusGenerating).
		Update("status", models.StatusFailed)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var n int64
	if err := db.Model(&models.BriefingRequest{}).Where("id = ?", requestID).Count(&n).Error; err != nil {
		return false, err
	}
	if n == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

// CountStaleRequests implements Repository
func (s *Store) CountStaleRequests(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.BriefingRequest{}).
		Where("status = ? AND created_at < ?", models.StatusGenerating, cutoff).
		Count(&n).Error
	return n, err
}

// InsertBriefing implements Repository. The unique index on request_id
// makes concurrent or repeated inserts for one request collapse to one row.
func (s *Store) InsertBriefing(ctx context.Context, b *models.Briefing) (string, error) {
	db := s.db.WithContext(ctx)

	result := db.Omit("Request").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "request_id"}},
			DoNothing: true,
		}).
		Create(b)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 1 {
		return b.ID, nil
	}

	var existing models.Briefing
	if err := db.Select("id").Where("request_id = ?", b.RequestID).First(&existing).Error; err != nil {
		return "", fmt.Errorf("failed to load existing briefing: %w", err)
	}
	return existing.ID, nil
}

func toRecord(b models.Briefing) content.Record {
	rec := content.Record{
		ID:                 b.ID,
		RequestID:          b.RequestID,
		Title:              b.Title,
		Summary:            json.RawMessage(b.Summary),
		CompanyOverview:    json.RawMessage(b.CompanyOverview),
		KeyContacts:        json.RawMessage(b.KeyContacts),
		Insights:           json.RawMessage(b.Insights),
		SalesHypotheses:    json.RawMessage(b.SalesHypotheses),
		CompetitorAnalysis: json.RawMessage(b.CompetitorAnalysis),
		TalkingPoints:      json.RawMessage(b.TalkingPoints),
		Notes:              b.Notes,
		Status:             b.Status,
		CreatedAt:          b.CreatedAt,
	}

	req := b.Request
	rec.CompanyID = req.CompanyID
	rec.CompanyName = req.CompanyName
	if req.CompanyLogo != nil {
		rec.CompanyLogo = *req.CompanyLogo
	}
	rec.CompanyProfile = json.RawMessage(req.CompanyProfile)
	rec.MeetingType = req.MeetingType
	if req.ContactID != nil {
		rec.ContactID = *req.ContactID
	}
	if req.FocusAreas != nil {
		if data, err := json.Marshal([]string(req.FocusAreas)); err == nil {
			rec.FocusAreas = data
		}
	}

	return rec
}

// fromBriefing converts generated content into a briefing row for requestID
func fromBriefing(requestID string, b content.Briefing) *models.Briefing {
	rec := content.FromBriefing(b)
	row := &models.Briefing{
		RequestID:       requestID,
		Title:           rec.Title,
		Summary:         []byte(rec.Summary),
		CompanyOverview: []byte(rec.CompanyOverview),
		KeyContacts:     []byte(rec.KeyContacts),
		Insights:        []byte(rec.Insights),
		SalesHypotheses: []byte(rec.SalesHypotheses),
		TalkingPoints:   []byte(rec.TalkingPoints),
		Notes:           rec.Notes,
		Status:          models.StatusCompleted,
	}
	if rec.CompetitorAnalysis != nil {
		row.CompetitorAnalysis = []byte(rec.CompetitorAnalysis)
	}
	return row
}
