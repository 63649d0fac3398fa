package engine

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/notification"
	"hostel-allocation-backend/internal/store"
)

// ApplicationSpec describes a new application. StudentID defaults to the
// acting user.
type ApplicationSpec struct {
	StudentID         string `json:"student_id"`
	HostelID          string `json:"hostel_id"`
	PreferredRoomType string `json:"preferred_room_type"`
	AcademicYear      string `json:"academic_year"`
	Remarks           string `json:"remarks"`
}

// StatusChange is the result of an application transition. WaitlistEntry
// is set when the transition placed the application on a waitlist.
type StatusChange struct {
	Application   *model.Application   `json:"application"`
	WaitlistEntry *model.WaitlistEntry `json:"waitlist_entry,omitempty"`
}

// applicationTransitions lists the targets staff may move an application
// to. Accepted and rejected are terminal here.
var applicationTransitions = map[model.ApplicationStatus][]model.ApplicationStatus{
	model.ApplicationSubmitted:  {model.ApplicationVerified, model.ApplicationRejected},
	model.ApplicationVerified:   {model.ApplicationAccepted, model.ApplicationRejected, model.ApplicationWaitlisted},
	model.ApplicationWaitlisted: {model.ApplicationAccepted, model.ApplicationRejected},
}

func canTransition(from, to model.ApplicationStatus) bool {
	for _, t := range applicationTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// SubmitApplication records a student's request for a bed.
func (e *Engine) SubmitApplication(ctx context.Context, scope Scope, spec ApplicationSpec) (*model.Application, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	if spec.StudentID == "" {
		spec.StudentID = scope.ActorID
	}
	spec.AcademicYear = strings.TrimSpace(spec.AcademicYear)
	if spec.HostelID == "" {
		return nil, apperr.Validation("application", "hostel id is required")
	}
	if spec.AcademicYear == "" {
		return nil, apperr.Validation("application", "academic year is required")
	}

	hostel, err := e.store.GetHostel(ctx, scope.OrganizationID, spec.HostelID)
	if err != nil {
		return nil, err
	}
	if !hostel.Active {
		return nil, apperr.Precondition("hostel", hostel.ID, "inactive", "active", "hostel is not accepting applications")
	}

	existing, err := e.store.FindActiveApplication(ctx, scope.OrganizationID, spec.StudentID, hostel.ID, spec.AcademicYear)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("application", existing.ID, "student already has an application for this hostel and year")
	}

	now := e.clock()
	app := &model.Application{
		OrganizationID:    scope.OrganizationID,
		StudentID:         spec.StudentID,
		HostelID:          hostel.ID,
		PreferredRoomType: spec.PreferredRoomType,
		AcademicYear:      spec.AcademicYear,
		Status:            model.ApplicationSubmitted,
		Remarks:           spec.Remarks,
		AppliedAt:         now,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := e.store.CreateApplication(ctx, app); err != nil {
		return nil, err
	}

	e.logger.Info("application submitted",
		zap.String("application", app.ID),
		zap.String("student", app.StudentID),
		zap.String("hostel", app.HostelID))
	return app, nil
}

// GetApplication returns an application of the caller's organization.
func (e *Engine) GetApplication(ctx context.Context, scope Scope, id string) (*model.Application, error) {
	return e.store.GetApplication(ctx, scope.OrganizationID, id)
}

// ListApplications returns applications ordered by submission time.
func (e *Engine) ListApplications(ctx context.Context, scope Scope, hostelID string, status model.ApplicationStatus) ([]model.Application, error) {
	if scope.OrganizationID == "" {
		return nil, apperr.Validation("scope", "organization id is required")
	}
	return e.store.ListApplications(ctx, store.ApplicationFilter{
		OrganizationID: scope.OrganizationID,
		HostelID:       hostelID,
		Status:         status,
	})
}

// UpdateApplicationStatus moves an application through the review state
// machine. Moving to waitlisted also opens a waitlist entry in the
// application's hostel; priority overrides the default score.
func (e *Engine) UpdateApplicationStatus(ctx context.Context, scope Scope, id string, target model.ApplicationStatus, remarks string, priority *int) (*StatusChange, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	app, err := e.store.GetApplication(ctx, scope.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(app.Status, target) {
		return nil, apperr.InvalidTransition("application", app.ID, string(app.Status), string(target))
	}

	now := e.clock()
	from := app.Status
	app.Status = target
	app.UpdatedAt = now
	if remarks != "" {
		app.Remarks = remarks
	}
	switch target {
	case model.ApplicationVerified:
		app.VerifiedBy, app.VerifiedAt = strPtr(scope.ActorID), timePtr(now)
	case model.ApplicationAccepted, model.ApplicationRejected:
		app.DecidedBy, app.DecidedAt = strPtr(scope.ActorID), timePtr(now)
	}

	change := &StatusChange{Application: app}
	err = e.store.InTx(ctx, func(tx store.Store) error {
		if err := tx.UpdateApplication(ctx, app); err != nil {
			return err
		}
		switch target {
		case model.ApplicationWaitlisted:
			entry, err := e.openWaitlistEntry(ctx, tx, app, app.HostelID, e.priority(priority), now)
			if err != nil {
				return err
			}
			change.WaitlistEntry = entry
		case model.ApplicationRejected:
			if _, err := tx.CloseOpenWaitlistEntries(ctx, app.ID, model.RemovalRejected, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("application status changed",
		zap.String("application", app.ID),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.String("actor", scope.ActorID))
	e.notifyApplication(ctx, app)
	return change, nil
}

// ReopenApplication puts an accepted application without a live offer
// back on the waitlist. It is the only way out of accepted.
func (e *Engine) ReopenApplication(ctx context.Context, scope Scope, id string, priority *int) (*StatusChange, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	app, err := e.store.GetApplication(ctx, scope.OrganizationID, id)
	if err != nil {
		return nil, err
	}
	if app.Status != model.ApplicationAccepted {
		return nil, apperr.InvalidTransition("application", app.ID, string(app.Status), string(model.ApplicationAccepted))
	}
	open, err := e.store.FindOpenAllocationForApplication(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, apperr.Precondition("application", app.ID, string(open.Status), "no open allocation", "application still holds allocation "+open.ID)
	}

	now := e.clock()
	app.Status = model.ApplicationWaitlisted
	app.UpdatedAt = now

	change := &StatusChange{Application: app}
	err = e.store.InTx(ctx, func(tx store.Store) error {
		if err := tx.UpdateApplication(ctx, app); err != nil {
			return err
		}
		entry, err := e.openWaitlistEntry(ctx, tx, app, app.HostelID, e.priority(priority), now)
		if err != nil {
			return err
		}
		change.WaitlistEntry = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("application reopened",
		zap.String("application", app.ID),
		zap.String("entry", change.WaitlistEntry.ID),
		zap.String("actor", scope.ActorID))
	e.notifyApplication(ctx, app)
	return change, nil
}

func (e *Engine) notifyApplication(ctx context.Context, app *model.Application) {
	e.notify(ctx, app.StudentID, notification.Event{
		Type:           notification.EventApplicationStatusChanged,
		OrganizationID: app.OrganizationID,
		EntityID:       app.ID,
		Status:         string(app.Status),
		Message:        "Your hostel application is now " + string(app.Status),
		Data:           map[string]string{"hostel_id": app.HostelID},
	})
}
