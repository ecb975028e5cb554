package processors

import (
	"github.com/paolobietolini/atac-realtime/feeds"
	"github.com/paolobietolini/atac-realtime/records"
)

// FlattenTripUpdates emits one record per stop-time-update, repeating the
// trip and vehicle fields of the owning entity.
func FlattenTripUpdates(snapshot *feeds.Snapshot) []records.TripUpdateRecord {
	var out []records.TripUpdateRecord
	for _, entity := range snapshot.Entities {
		tu, ok := entity.(*feeds.TripUpdate)
		if !ok {
			continue
		}
		base := records.TripUpdateRecord{
			FeedTimestamp: int64(snapshot.Timestamp),
			EntityID:      tu.ID,
		}
		if trip := tu.Trip; trip != nil {
			base.TripID = trip.TripID
			base.RouteID = trip.RouteID
			base.StartDate = trip.StartDate
		}
		if tu.Vehicle != nil {
			base.VehicleID = tu.Vehicle.ID
		}

		for _, stu := range tu.StopTimeUpdates {
			record := base
			record.StopSequence = int32FromUint32(stu.StopSequence)
			record.StopID = stu.StopID
			record.ScheduleRelationship = stu.ScheduleRelationship
			if arr := stu.Arrival; arr != nil {
				record.ArrivalDelay = arr.Delay
				record.ArrivalTime = arr.Time
			}
			if dep := stu.Departure; dep != nil {
				record.DepartureDelay = dep.Delay
				record.DepartureTime = dep.Time
			}
			out = append(out, record)
		}
	}
	if out == nil {
		out = []records.TripUpdateRecord{}
	}
	return out
}
