package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
)

// ApplicationStore persists hostel applications.
type ApplicationStore interface {
	CreateApplication(ctx context.Context, app *model.Application) error
	GetApplication(ctx context.Context, orgID, id string) (*model.Application, error)
	// FindActiveApplication returns a non-rejected application of the student
	// for the same hostel and year, or nil.
	FindActiveApplication(ctx context.Context, orgID, studentID, hostelID, year string) (*model.Application, error)
	ListApplications(ctx context.Context, filter ApplicationFilter) ([]model.Application, error)
	// UpdateApplication saves app if its stored version still equals
	// app.Version, then bumps the version.
	UpdateApplication(ctx context.Context, app *model.Application) error
}

func (s *gormStore) CreateApplication(ctx context.Context, app *model.Application) error {
	if app.Version == 0 {
		app.Version = 1
	}
	if err := s.db.WithContext(ctx).Create(app).Error; err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

func (s *gormStore) GetApplication(ctx context.Context, orgID, id string) (*model.Application, error) {
	var app model.Application
	err := s.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&app).Error
	if err != nil {
		return nil, notFound(err, "application", id)
	}
	return &app, nil
}

func (s *gormStore) FindActiveApplication(ctx context.Context, orgID, studentID, hostelID, year string) (*model.Application, error) {
	var apps []model.Application
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND student_id = ? AND hostel_id = ? AND academic_year = ?", orgID, studentID, hostelID, year).
		Where("status <> ?", string(model.ApplicationRejected)).
		Limit(1).
		Find(&apps).Error
	if err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return nil, nil
	}
	return &apps[0], nil
}

func (s *gormStore) ListApplications(ctx context.Context, filter ApplicationFilter) ([]model.Application, error) {
	q := s.db.WithContext(ctx).Where("organization_id = ?", filter.OrganizationID)
	if filter.HostelID != "" {
		q = q.Where("hostel_id = ?", filter.HostelID)
	}
	if filter.StudentID != "" {
		q = q.Where("student_id = ?", filter.StudentID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	var apps []model.Application
	err := q.Order("applied_at ASC, id ASC").Find(&apps).Error
	return apps, err
}

func (s *gormStore) UpdateApplication(ctx context.Context, app *model.Application) error {
	expected := app.Version
	result := s.db.WithContext(ctx).
		Model(&model.Application{}).
		Where("id = ? AND version = ?", app.ID, expected).
		Updates(map[string]interface{}{
			"status":      string(app.Status),
			"remarks":     app.Remarks,
			"verified_by": app.VerifiedBy,
			"verified_at": app.VerifiedAt,
			"decided_by":  app.DecidedBy,
			"decided_at":  app.DecidedAt,
			"version":     gorm.Expr("version + 1"),
			"updated_at":  app.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update application %s: %w", app.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.Conflict("application", app.ID, "application modified concurrently")
	}
	app.Version = expected + 1
	return nil
}
