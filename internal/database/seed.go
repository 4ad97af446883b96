package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jimdaga/tophive/internal/content"
	"github.com/jimdaga/tophive/internal/models"
	"github.com/jimdaga/tophive/internal/webhook"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Development account created by SeedDevData
const (
	DevUserEmail    = "dev@tophive.local"
	DevUserPassword = "tophive-dev"
)

// SeedDevData populates the database with a development user and one
// completed briefing. Idempotent: skips if the user already exists.
func SeedDevData(ctx context.Context, db *gorm.DB, company content.Company) error {
	var existing models.User
	err := db.WithContext(ctx).Where("email = ?", DevUserEmail).First(&existing).Error
	if err == nil {
		slog.Info("Seed data already exists, skipping")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check seed user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DevUserPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	generated, err := webhook.NewFixture(0).Generate(ctx, webhook.GenerateInput{
		Company:     company,
		MeetingType: content.MeetingIntroCall,
		FocusAreas:  []string{"Competitor Moves", "Financial Health"},
	})
	if err != nil {
		return fmt.Errorf("failed to generate seed briefing: %w", err)
	}
	rec := content.FromBriefing(*generated)

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user := models.User{
			Email:        DevUserEmail,
			Name:         "Dev User",
			PasswordHash: string(hash),
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		logo := company.Logo
		request := models.BriefingRequest{
			UserID:         user.ID,
			CompanyID:      company.ID,
			CompanyName:    company.Name,
			CompanyLogo:    &logo,
			CompanyProfile: datatypes.JSON(rec.CompanyProfile),
			MeetingType:    rec.MeetingType,
			FocusAreas:     datatypes.JSONSlice[string](generated.FocusAreas),
			Status:         models.StatusCompleted,
		}
		if err := tx.Create(&request).Error; err != nil {
			return err
		}

		briefing := models.Briefing{
			RequestID:          request.ID,
			Title:              rec.Title,
			Summary:            datatypes.JSON(rec.Summary),
			CompanyOverview:    datatypes.JSON(rec.CompanyOverview),
			KeyContacts:        datatypes.JSON(rec.KeyContacts),
			Insights:           datatypes.JSON(rec.Insights),
			SalesHypotheses:    datatypes.JSON(rec.SalesHypotheses),
			CompetitorAnalysis: datatypes.JSON(rec.CompetitorAnalysis),
			TalkingPoints:      datatypes.JSON(rec.TalkingPoints),
			Status:             models.StatusCompleted,
		}
		if err := tx.Create(&briefing).Error; err != nil {
			return err
		}

		slog.Info("Seeded development data", "email", DevUserEmail, "briefing_id", briefing.ID)
		return nil
	})
}
