package processors

import (
	"github.com/paolobietolini/atac-realtime/feeds"
	"github.com/paolobietolini/atac-realtime/records"
)

// FlattenVehiclePositions emits one record per entity.
func FlattenVehiclePositions(snapshot *feeds.Snapshot) []records.VehiclePositionRecord {
	out := make([]records.VehiclePositionRecord, 0, len(snapshot.Entities))
	for _, entity := range snapshot.Entities {
		vp, ok := entity.(*feeds.VehiclePosition)
		if !ok {
			continue
		}
		record := records.VehiclePositionRecord{
			FeedTimestamp:    int64(snapshot.Timestamp),
			EntityID:         vp.ID,
			StopID:           vp.StopID,
			CurrentStatus:    vp.CurrentStatus,
			VehicleTimestamp: int64FromUint64(vp.Timestamp),
		}
		if trip := vp.Trip; trip != nil {
			record.TripID = trip.TripID
			record.RouteID = trip.RouteID
			record.DirectionID = int32FromUint32(trip.DirectionID)
			record.StartDate = trip.StartDate
		}
		if vehicle := vp.Vehicle; vehicle != nil {
			record.VehicleID = vehicle.ID
			record.VehicleLabel = vehicle.Label
		}
		if pos := vp.Position; pos != nil {
			record.Latitude = float64Ptr(&pos.Latitude)
			record.Longitude = float64Ptr(&pos.Longitude)
			record.Bearing = float64Ptr(pos.Bearing)
			record.Speed = float64Ptr(pos.Speed)
		}
		out = append(out, record)
	}
	return out
}
