package engine

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/parse"
	"hostel-allocation-backend/internal/store"
)

// HostelSpec describes a hostel to create.
type HostelSpec struct {
	Name             string           `json:"name"`
	Type             model.HostelType `json:"type"`
	DeclaredCapacity int              `json:"declared_capacity"`
}

// RoomSpec describes a room to create. Either Code or RoomNumber must be
// set; a code such as "A3#2-15" fills block, floor and room number.
type RoomSpec struct {
	Code       string        `json:"code"`
	Block      string        `json:"block"`
	Floor      int           `json:"floor"`
	RoomNumber string        `json:"room_number"`
	RoomType   string        `json:"room_type"`
	Capacity   int           `json:"capacity"`
	BedType    model.BedType `json:"bed_type"`
	BedLabels  []string      `json:"bed_labels"`
}

const defaultRoomType = "standard"

// CreateHostel registers a new active hostel in the caller's organization.
func (e *Engine) CreateHostel(ctx context.Context, scope Scope, spec HostelSpec) (*model.Hostel, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, apperr.Validation("hostel", "name is required")
	}
	if spec.DeclaredCapacity < 0 {
		return nil, apperr.Validation("hostel", "declared capacity must not be negative")
	}
	switch spec.Type {
	case "":
		spec.Type = model.HostelTypeMixed
	case model.HostelTypeMale, model.HostelTypeFemale, model.HostelTypeMixed:
	default:
		return nil, apperr.Validation("hostel", "unknown hostel type "+string(spec.Type))
	}

	now := e.clock()
	hostel := &model.Hostel{
		OrganizationID:   scope.OrganizationID,
		Name:             name,
		Type:             spec.Type,
		DeclaredCapacity: spec.DeclaredCapacity,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := e.store.CreateHostel(ctx, hostel); err != nil {
		return nil, err
	}
	e.logger.Info("hostel created", zap.String("hostel", hostel.ID), zap.String("org", scope.OrganizationID))
	return hostel, nil
}

// GetHostel returns a hostel of the caller's organization.
func (e *Engine) GetHostel(ctx context.Context, scope Scope, id string) (*model.Hostel, error) {
	return e.store.GetHostel(ctx, scope.OrganizationID, id)
}

// ListHostels returns the organization's hostels ordered by name.
func (e *Engine) ListHostels(ctx context.Context, scope Scope) ([]model.Hostel, error) {
	if scope.OrganizationID == "" {
		return nil, apperr.Validation("scope", "organization id is required")
	}
	return e.store.ListHostels(ctx, scope.OrganizationID)
}

// CreateRoom creates a room and exactly Capacity available beds in one
// transaction.
func (e *Engine) CreateRoom(ctx context.Context, scope Scope, hostelID string, spec RoomSpec) (*model.Room, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	if spec.Capacity <= 0 {
		return nil, apperr.Validation("room", "capacity must be positive")
	}

	if spec.Code != "" {
		code, err := parse.ParseRoomCode(spec.Code, spec.Floor)
		if err != nil {
			return nil, &apperr.Error{Kind: apperr.KindValidation, Entity: "room", Message: "invalid room code", Err: err}
		}
		spec.Block, spec.Floor, spec.RoomNumber = code.Block, code.Floor, code.Number
	}
	spec.RoomNumber = strings.TrimSpace(spec.RoomNumber)
	if spec.RoomNumber == "" {
		return nil, apperr.Validation("room", "room number or code is required")
	}
	if spec.Floor < 0 {
		return nil, apperr.Validation("room", "floor must not be negative")
	}
	if spec.RoomType == "" {
		spec.RoomType = defaultRoomType
	}
	switch spec.BedType {
	case "":
		spec.BedType = model.BedTypeNormal
	case model.BedTypeNormal, model.BedTypeSpecial:
	default:
		return nil, apperr.Validation("room", "unknown bed type "+string(spec.BedType))
	}

	labels := spec.BedLabels
	if len(labels) == 0 {
		labels = parse.BedLabels(spec.RoomNumber, spec.Capacity)
	}
	if len(labels) != spec.Capacity {
		return nil, apperr.Validation("room", "bed label count must equal capacity")
	}
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if strings.TrimSpace(l) == "" {
			return nil, apperr.Validation("room", "bed label must not be empty")
		}
		if _, dup := seen[l]; dup {
			return nil, apperr.Validation("room", "duplicate bed label "+l)
		}
		seen[l] = struct{}{}
	}

	hostel, err := e.store.GetHostel(ctx, scope.OrganizationID, hostelID)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	room := &model.Room{
		HostelID:   hostel.ID,
		Block:      spec.Block,
		Floor:      spec.Floor,
		RoomNumber: spec.RoomNumber,
		RoomType:   spec.RoomType,
		Capacity:   spec.Capacity,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = e.store.InTx(ctx, func(tx store.Store) error {
		if err := tx.CreateRoom(ctx, room); err != nil {
			return err
		}
		beds := make([]model.Bed, len(labels))
		for i, label := range labels {
			beds[i] = model.Bed{
				RoomID:    room.ID,
				HostelID:  hostel.ID,
				Label:     label,
				Type:      spec.BedType,
				Status:    model.BedAvailable,
				Version:   1,
				CreatedAt: now,
				UpdatedAt: now,
			}
		}
		if err := tx.CreateBeds(ctx, beds); err != nil {
			return err
		}
		room.Beds = beds
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("room created",
		zap.String("hostel", hostel.ID),
		zap.String("room", room.ID),
		zap.String("number", room.RoomNumber),
		zap.Int("beds", len(room.Beds)))
	return room, nil
}

// GetAvailableBeds lists available beds ordered by floor, room number and
// label. Both filters are optional.
func (e *Engine) GetAvailableBeds(ctx context.Context, scope Scope, hostelID, roomType string) ([]store.AvailableBed, error) {
	if scope.OrganizationID == "" {
		return nil, apperr.Validation("scope", "organization id is required")
	}
	if hostelID != "" {
		if _, err := e.store.GetHostel(ctx, scope.OrganizationID, hostelID); err != nil {
			return nil, err
		}
	}
	return e.store.ListAvailableBeds(ctx, store.BedFilter{
		OrganizationID: scope.OrganizationID,
		HostelID:       hostelID,
		RoomType:       roomType,
	})
}

// SetBedStatus is the staff entry point for bed status. Only entering and
// leaving maintenance is allowed; reserved and occupied are owned by the
// allocation protocol.
func (e *Engine) SetBedStatus(ctx context.Context, scope Scope, bedID string, target model.BedStatus) (*model.Bed, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	bed, err := e.scopedBed(ctx, scope, bedID)
	if err != nil {
		return nil, err
	}

	var from model.BedStatus
	var note string
	switch target {
	case model.BedMaintenance:
		switch bed.Status {
		case model.BedMaintenance:
			return bed, nil
		case model.BedReserved, model.BedOccupied:
			return nil, &apperr.Error{
				Kind:     apperr.KindConflict,
				Entity:   "bed",
				ID:       bed.ID,
				Current:  string(bed.Status),
				Expected: string(model.BedAvailable),
				Message:  "bed is held by an allocation",
			}
		}
		from, note = model.BedAvailable, "entered maintenance"
	case model.BedAvailable:
		switch bed.Status {
		case model.BedAvailable:
			return bed, nil
		case model.BedMaintenance:
		default:
			return nil, apperr.InvalidTransition("bed", bed.ID, string(bed.Status), string(model.BedMaintenance))
		}
		from, note = model.BedMaintenance, "left maintenance"
	case model.BedReserved, model.BedOccupied:
		return nil, &apperr.Error{
			Kind:    apperr.KindInvalidTransition,
			Entity:  "bed",
			ID:      bed.ID,
			Current: string(bed.Status),
			Message: "status is managed by allocations",
		}
	default:
		return nil, apperr.Validation("bed", "unknown bed status "+string(target))
	}

	now := e.clock()
	err = e.store.InTx(ctx, func(tx store.Store) error {
		if err := tx.SetBedStatus(ctx, bed.ID, []model.BedStatus{from}, target, now); err != nil {
			return err
		}
		return tx.AppendBedHistory(ctx, &model.BedHistoryRecord{
			BedID:       bed.ID,
			Action:      model.BedActionMaintenance,
			StartDate:   now,
			Notes:       note,
			PerformedBy: scope.ActorID,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("bed status changed",
		zap.String("bed", bed.ID),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
		zap.String("actor", scope.ActorID))
	bed.Status = target
	bed.Version++
	bed.UpdatedAt = now
	return bed, nil
}

// scopedBed loads a bed and checks that its hostel belongs to the caller's
// organization. Foreign beds are reported as not found.
func (e *Engine) scopedBed(ctx context.Context, scope Scope, bedID string) (*model.Bed, error) {
	bed, err := e.store.GetBed(ctx, bedID)
	if err != nil {
		return nil, err
	}
	if _, err := e.store.GetHostel(ctx, scope.OrganizationID, bed.HostelID); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.NotFound("bed", bedID)
		}
		return nil, err
	}
	return bed, nil
}
