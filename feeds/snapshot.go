// Package feeds decodes GTFS-Realtime messages into typed snapshots with
// explicit field presence.
package feeds

import (
	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/paolobietolini/atac-realtime/config"
)

// Snapshot is one decoded poll result.
type Snapshot struct {
	Kind      config.FeedKind
	Header    *gtfs.FeedHeader
	Timestamp uint64
	Entities  []Entity
}

// Entity is implemented by VehiclePosition, TripUpdate and Alert only.
type Entity interface {
	EntityID() string
	Kind() config.FeedKind
	isEntity()
}

type TripDescriptor struct {
	TripID      *string
	RouteID     *string
	DirectionID *uint32
	StartDate   *string
}

type VehicleDescriptor struct {
	ID    *string
	Label *string
}

type Position struct {
	Latitude  float32
	Longitude float32
	Bearing   *float32
	Speed     *float32
}

type VehiclePosition struct {
	ID            string
	Trip          *TripDescriptor
	Vehicle       *VehicleDescriptor
	Position      *Position
	StopID        *string
	CurrentStatus *int32
	Timestamp     *uint64
}

func (v *VehiclePosition) EntityID() string      { return v.ID }
func (v *VehiclePosition) Kind() config.FeedKind { return config.FeedKindVehiclePositions }
func (v *VehiclePosition) isEntity()             {}

type StopTimeEvent struct {
	Delay *int32
	Time  *int64
}

type StopTimeUpdate struct {
	StopSequence         *uint32
	StopID               *string
	Arrival              *StopTimeEvent
	Departure            *StopTimeEvent
	ScheduleRelationship *int32
}

type TripUpdate struct {
	ID              string
	Trip            *TripDescriptor
	Vehicle         *VehicleDescriptor
	StopTimeUpdates []StopTimeUpdate
}

func (t *TripUpdate) EntityID() string      { return t.ID }
func (t *TripUpdate) Kind() config.FeedKind { return config.FeedKindTripUpdates }
func (t *TripUpdate) isEntity()             {}

type Translation struct {
	Text     string
	Language *string
}

type InformedEntity struct {
	AgencyID *string
	RouteID  *string
	TripID   *string
	StopID   *string
}

type Alert struct {
	ID              string
	Cause           *int32
	Effect          *int32
	HeaderText      []Translation
	DescriptionText []Translation
	InformedEntity  []InformedEntity
}

func (a *Alert) EntityID() string      { return a.ID }
func (a *Alert) Kind() config.FeedKind { return config.FeedKindAlerts }
func (a *Alert) isEntity()             {}
