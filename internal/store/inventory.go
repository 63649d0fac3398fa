package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
)

// InventoryStore persists the hostel → room → bed hierarchy.
type InventoryStore interface {
	CreateHostel(ctx context.Context, hostel *model.Hostel) error
	GetHostel(ctx context.Context, orgID, id string) (*model.Hostel, error)
	ListHostels(ctx context.Context, orgID string) ([]model.Hostel, error)
	CreateRoom(ctx context.Context, room *model.Room) error
	CreateBeds(ctx context.Context, beds []model.Bed) error
	GetBed(ctx context.Context, id string) (*model.Bed, error)
	ListAvailableBeds(ctx context.Context, filter BedFilter) ([]AvailableBed, error)
	// SetBedStatus moves a bed to status `to` only if its current status is
	// one of `from`.
	SetBedStatus(ctx context.Context, id string, from []model.BedStatus, to model.BedStatus, at time.Time) error
}

func (s *gormStore) CreateHostel(ctx context.Context, hostel *model.Hostel) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(hostel).Error; err != nil {
		return fmt.Errorf("failed to create hostel: %w", err)
	}
	return nil
}

func (s *gormStore) GetHostel(ctx context.Context, orgID, id string) (*model.Hostel, error) {
	var hostel model.Hostel
	err := s.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&hostel).Error
	if err != nil {
		return nil, notFound(err, "hostel", id)
	}
	return &hostel, nil
}

func (s *gormStore) ListHostels(ctx context.Context, orgID string) ([]model.Hostel, error) {
	var hostels []model.Hostel
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("name ASC, id ASC").
		Find(&hostels).Error
	return hostels, err
}

func (s *gormStore) CreateRoom(ctx context.Context, room *model.Room) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(room).Error
	if isUniqueViolation(err) {
		return apperr.Conflict("room", room.RoomNumber, "room number already exists in hostel")
	}
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}
	return nil
}

func (s *gormStore) CreateBeds(ctx context.Context, beds []model.Bed) error {
	if len(beds) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&beds).Error; err != nil {
		return fmt.Errorf("failed to create beds: %w", err)
	}
	return nil
}

func (s *gormStore) GetBed(ctx context.Context, id string) (*model.Bed, error) {
	var bed model.Bed
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&bed).Error; err != nil {
		return nil, notFound(err, "bed", id)
	}
	return &bed, nil
}

func (s *gormStore) ListAvailableBeds(ctx context.Context, filter BedFilter) ([]AvailableBed, error) {
	q := s.db.WithContext(ctx).
		Model(&model.Bed{}).
		Select("beds.*, rooms.floor AS floor, rooms.room_number AS room_number, rooms.room_type AS room_type").
		Joins("JOIN rooms ON rooms.id = beds.room_id").
		Joins("JOIN hostels ON hostels.id = beds.hostel_id").
		Where("beds.status = ?", string(model.BedAvailable)).
		Where("rooms.active = ? AND hostels.active = ?", true, true).
		Where("hostels.organization_id = ?", filter.OrganizationID)

	if filter.HostelID != "" {
		q = q.Where("beds.hostel_id = ?", filter.HostelID)
	}
	if filter.RoomType != "" {
		q = q.Where("rooms.room_type = ?", filter.RoomType)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var beds []AvailableBed
	// room_number is compared as text.
	err := q.Order("rooms.floor ASC, rooms.room_number ASC, beds.label ASC").Scan(&beds).Error
	return beds, err
}

func (s *gormStore) SetBedStatus(ctx context.Context, id string, from []model.BedStatus, to model.BedStatus, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&model.Bed{}).
		Where("id = ? AND status IN ?", id, bedStatusStrings(from)).
		Updates(map[string]interface{}{
			"status":     string(to),
			"version":    gorm.Expr("version + 1"),
			"updated_at": at,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update bed %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return &apperr.Error{
			Kind:     apperr.KindConflict,
			Entity:   "bed",
			ID:       id,
			Expected: fmt.Sprint(from),
			Message:  "bed status changed concurrently",
		}
	}
	return nil
}

func bedStatusStrings(statuses []model.BedStatus) []string {
	out := make([]string, len(statuses))
	for i, st := range statuses {
		out[i] = string(st)
	}
	return out
}
