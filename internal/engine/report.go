package engine

import (
	"context"
	"math"

	"hostel-allocation-backend/internal/model"
)

// OccupancyReport summarizes the beds of one hostel. All figures are
// derived from bed status at query time.
type OccupancyReport struct {
	HostelID         string  `json:"hostel_id"`
	HostelName       string  `json:"hostel_name"`
	TotalBeds        int64   `json:"total_beds"`
	OccupiedBeds     int64   `json:"occupied_beds"`
	AvailableBeds    int64   `json:"available_beds"`
	ReservedBeds     int64   `json:"reserved_beds"`
	MaintenanceBeds  int64   `json:"maintenance_beds"`
	OccupancyPercent float64 `json:"occupancy_percent"`
}

// GetOccupancyReport returns one summary per hostel, or only hostelID's
// when it is set.
func (e *Engine) GetOccupancyReport(ctx context.Context, scope Scope, hostelID string) ([]OccupancyReport, error) {
	if hostelID != "" {
		if _, err := e.store.GetHostel(ctx, scope.OrganizationID, hostelID); err != nil {
			return nil, err
		}
	}
	rows, err := e.store.OccupancyByHostel(ctx, scope.OrganizationID, hostelID)
	if err != nil {
		return nil, err
	}

	reports := make([]OccupancyReport, 0)
	index := make(map[string]int)
	for _, row := range rows {
		i, ok := index[row.HostelID]
		if !ok {
			i = len(reports)
			index[row.HostelID] = i
			reports = append(reports, OccupancyReport{HostelID: row.HostelID, HostelName: row.HostelName})
		}
		if row.Status == nil {
			continue
		}
		r := &reports[i]
		r.TotalBeds += row.Count
		switch model.BedStatus(*row.Status) {
		case model.BedOccupied:
			r.OccupiedBeds += row.Count
		case model.BedAvailable:
			r.AvailableBeds += row.Count
		case model.BedReserved:
			r.ReservedBeds += row.Count
		case model.BedMaintenance:
			r.MaintenanceBeds += row.Count
		}
	}
	for i := range reports {
		if reports[i].TotalBeds > 0 {
			pct := float64(reports[i].OccupiedBeds) / float64(reports[i].TotalBeds) * 100
			reports[i].OccupancyPercent = math.Round(pct*100) / 100
		}
	}
	return reports, nil
}
