// Package records defines the flat rows stored in partition files. Optional
// columns are pointers: nil is written as NULL, never as zero.
package records

type VehiclePositionRecord struct {
	FeedTimestamp    int64    `parquet:"feed_timestamp"`
	EntityID         string   `parquet:"entity_id"`
	TripID           *string  `parquet:"trip_id,optional"`
	RouteID          *string  `parquet:"route_id,optional"`
	DirectionID      *int32   `parquet:"direction_id,optional"`
	StartDate        *string  `parquet:"start_date,optional"`
	VehicleID        *string  `parquet:"vehicle_id,optional"`
	VehicleLabel     *string  `parquet:"vehicle_label,optional"`
	Latitude         *float64 `parquet:"latitude,optional"`
	Longitude        *float64 `parquet:"longitude,optional"`
	Bearing          *float64 `parquet:"bearing,optional"`
	Speed            *float64 `parquet:"speed,optional"`
	StopID           *string  `parquet:"stop_id,optional"`
	CurrentStatus    *int32   `parquet:"current_status,optional"`
	VehicleTimestamp *int64   `parquet:"vehicle_timestamp,optional"`
}

type TripUpdateRecord struct {
	FeedTimestamp        int64   `parquet:"feed_timestamp"`
	EntityID             string  `parquet:"entity_id"`
	TripID               *string `parquet:"trip_id,optional"`
	RouteID              *string `parquet:"route_id,optional"`
	StartDate            *string `parquet:"start_date,optional"`
	VehicleID            *string `parquet:"vehicle_id,optional"`
	StopSequence         *int32  `parquet:"stop_sequence,optional"`
	StopID               *string `parquet:"stop_id,optional"`
	ArrivalDelay         *int32  `parquet:"arrival_delay,optional"`
	ArrivalTime          *int64  `parquet:"arrival_time,optional"`
	DepartureDelay       *int32  `parquet:"departure_delay,optional"`
	DepartureTime        *int64  `parquet:"departure_time,optional"`
	ScheduleRelationship *int32  `parquet:"schedule_relationship,optional"`
}

type AlertRecord struct {
	FeedTimestamp   int64   `parquet:"feed_timestamp"`
	EntityID        string  `parquet:"entity_id"`
	Cause           *int32  `parquet:"cause,optional"`
	Effect          *int32  `parquet:"effect,optional"`
	HeaderText      *string `parquet:"header_text,optional"`
	DescriptionText *string `parquet:"description_text,optional"`
	RouteID         *string `parquet:"route_id,optional"`
	StopID          *string `parquet:"stop_id,optional"`
}

// Record is the set of row types a partition can hold.
type Record interface {
	VehiclePositionRecord | TripUpdateRecord | AlertRecord
}
