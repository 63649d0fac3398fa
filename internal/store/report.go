package store

import (
	"context"

	"hostel-allocation-backend/internal/model"
)

// ReportStore aggregates bed counts for reporting.
type ReportStore interface {
	// OccupancyByHostel counts beds per hostel and status. An empty hostelID
	// covers every hostel of the organization.
	OccupancyByHostel(ctx context.Context, orgID, hostelID string) ([]OccupancyRow, error)
}

func (s *gormStore) OccupancyByHostel(ctx context.Context, orgID, hostelID string) ([]OccupancyRow, error) {
	q := s.db.WithContext(ctx).
		Model(&model.Hostel{}).
		Select("hostels.id AS hostel_id, hostels.name AS hostel_name, beds.status AS status, COUNT(beds.id) AS count").
		Joins("LEFT JOIN beds ON beds.hostel_id = hostels.id").
		Where("hostels.organization_id = ?", orgID)
	if hostelID != "" {
		q = q.Where("hostels.id = ?", hostelID)
	}

	var rows []OccupancyRow
	err := q.Group("hostels.id, hostels.name, beds.status").
		Order("hostels.name ASC, hostels.id ASC").
		Scan(&rows).Error
	return rows, err
}
