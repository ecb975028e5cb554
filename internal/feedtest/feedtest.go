// Package feedtest builds GTFS-Realtime fixtures for tests.
package feedtest

import (
	"testing"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

func Message(timestamp uint64, entities ...*gtfs.FeedEntity) *gtfs.FeedMessage {
	return &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(timestamp),
		},
		Entity: entities,
	}
}

func Marshal(t testing.TB, msg *gtfs.FeedMessage) []byte {
	t.Helper()
	data, err := proto.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal feed message: %v", err)
	}
	return data
}

// VehicleEntity has trip, vehicle and position sub-structures.
func VehicleEntity(id, vehicleID, routeID string, lat, lon float32) *gtfs.FeedEntity {
	return &gtfs.FeedEntity{
		Id: proto.String(id),
		Vehicle: &gtfs.VehiclePosition{
			Trip: &gtfs.TripDescriptor{
				TripId:      proto.String("trip-" + id),
				RouteId:     proto.String(routeID),
				DirectionId: proto.Uint32(0),
				StartDate:   proto.String("20231114"),
			},
			Vehicle: &gtfs.VehicleDescriptor{
				Id:    proto.String(vehicleID),
				Label: proto.String("label-" + vehicleID),
			},
			Position: &gtfs.Position{
				Latitude:  proto.Float32(lat),
				Longitude: proto.Float32(lon),
				Bearing:   proto.Float32(90),
				Speed:     proto.Float32(0),
			},
			StopId:        proto.String("stop-" + id),
			CurrentStatus: gtfs.VehiclePosition_STOPPED_AT.Enum(),
			Timestamp:     proto.Uint64(1699999990),
		},
	}
}

// BareVehicleEntity carries only a vehicle descriptor.
func BareVehicleEntity(id, vehicleID string) *gtfs.FeedEntity {
	return &gtfs.FeedEntity{
		Id: proto.String(id),
		Vehicle: &gtfs.VehiclePosition{
			Vehicle: &gtfs.VehicleDescriptor{Id: proto.String(vehicleID)},
		},
	}
}

// TripUpdateEntity has one stop-time-update per delay, with stop sequences
// starting at 1.
func TripUpdateEntity(id, tripID, routeID, vehicleID string, delays ...int32) *gtfs.FeedEntity {
	updates := make([]*gtfs.TripUpdate_StopTimeUpdate, 0, len(delays))
	for i, delay := range delays {
		updates = append(updates, &gtfs.TripUpdate_StopTimeUpdate{
			StopSequence: proto.Uint32(uint32(i + 1)),
			StopId:       proto.String(tripID + "-stop"),
			Arrival: &gtfs.TripUpdate_StopTimeEvent{
				Delay: proto.Int32(delay),
				Time:  proto.Int64(1700000000 + int64(i)*60),
			},
			ScheduleRelationship: gtfs.TripUpdate_StopTimeUpdate_SCHEDULED.Enum(),
		})
	}
	return &gtfs.FeedEntity{
		Id: proto.String(id),
		TripUpdate: &gtfs.TripUpdate{
			Trip: &gtfs.TripDescriptor{
				TripId:    proto.String(tripID),
				RouteId:   proto.String(routeID),
				StartDate: proto.String("20231114"),
			},
			Vehicle:        &gtfs.VehicleDescriptor{Id: proto.String(vehicleID)},
			StopTimeUpdate: updates,
		},
	}
}

func AlertEntity(id, header, description string, informed ...*gtfs.EntitySelector) *gtfs.FeedEntity {
	return &gtfs.FeedEntity{
		Id: proto.String(id),
		Alert: &gtfs.Alert{
			InformedEntity:  informed,
			Cause:           gtfs.Alert_STRIKE.Enum(),
			Effect:          gtfs.Alert_REDUCED_SERVICE.Enum(),
			HeaderText:      Text(header, "it"),
			DescriptionText: Text(description, "it"),
		},
	}
}

func Text(text, language string) *gtfs.TranslatedString {
	return &gtfs.TranslatedString{
		Translation: []*gtfs.TranslatedString_Translation{
			{Text: proto.String(text), Language: proto.String(language)},
		},
	}
}

func RouteSelector(routeID string) *gtfs.EntitySelector {
	return &gtfs.EntitySelector{RouteId: proto.String(routeID)}
}

func StopSelector(stopID string) *gtfs.EntitySelector {
	return &gtfs.EntitySelector{StopId: proto.String(stopID)}
}
