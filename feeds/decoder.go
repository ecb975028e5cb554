package feeds

import (
	"errors"
	"fmt"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/paolobietolini/atac-realtime/config"
	"google.golang.org/protobuf/proto"
)

// DecodeError reports bytes that are not a well-formed FeedMessage.
type DecodeError struct {
	Kind config.FeedKind
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s feed: %v", e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

var (
	ErrUnknownFeedKind = errors.New("unknown feed kind")
	ErrMissingHeader   = errors.New("feed message has no header")
)

// Decode parses a serialized FeedMessage and converts every entity into the
// variant for kind, in feed order.
func Decode(data []byte, kind config.FeedKind) (*Snapshot, error) {
	msg := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(data, msg); err != nil {
		return nil, &DecodeError{Kind: kind, Err: err}
	}
	return FromFeedMessage(msg, kind)
}

// FromFeedMessage converts an already parsed message.
func FromFeedMessage(msg *gtfs.FeedMessage, kind config.FeedKind) (*Snapshot, error) {
	if msg.GetHeader() == nil {
		return nil, &DecodeError{Kind: kind, Err: ErrMissingHeader}
	}
	var convert func(*gtfs.FeedEntity) Entity
	switch kind {
	case config.FeedKindVehiclePositions:
		convert = vehiclePosition
	case config.FeedKindTripUpdates:
		convert = tripUpdate
	case config.FeedKindAlerts:
		convert = alert
	default:
		return nil, &DecodeError{Kind: kind, Err: ErrUnknownFeedKind}
	}

	entities := make([]Entity, 0, len(msg.GetEntity()))
	for _, entity := range msg.GetEntity() {
		entities = append(entities, convert(entity))
	}
	return &Snapshot{
		Kind:      kind,
		Header:    msg.GetHeader(),
		Timestamp: msg.GetHeader().GetTimestamp(),
		Entities:  entities,
	}, nil
}

func vehiclePosition(entity *gtfs.FeedEntity) Entity {
	out := &VehiclePosition{ID: entity.GetId()}
	vp := entity.GetVehicle()
	if vp == nil {
		return out
	}
	out.Trip = tripDescriptor(vp.GetTrip())
	out.Vehicle = vehicleDescriptor(vp.GetVehicle())
	if pos := vp.GetPosition(); pos != nil {
		out.Position = &Position{
			Latitude:  pos.GetLatitude(),
			Longitude: pos.GetLongitude(),
			Bearing:   pos.Bearing,
			Speed:     pos.Speed,
		}
	}
	out.StopID = vp.StopId
	if vp.CurrentStatus != nil {
		out.CurrentStatus = proto.Int32(int32(vp.GetCurrentStatus()))
	}
	out.Timestamp = vp.Timestamp
	return out
}

func tripUpdate(entity *gtfs.FeedEntity) Entity {
	out := &TripUpdate{ID: entity.GetId()}
	tu := entity.GetTripUpdate()
	if tu == nil {
		return out
	}
	out.Trip = tripDescriptor(tu.GetTrip())
	out.Vehicle = vehicleDescriptor(tu.GetVehicle())
	out.StopTimeUpdates = make([]StopTimeUpdate, 0, len(tu.GetStopTimeUpdate()))
	for _, stu := range tu.GetStopTimeUpdate() {
		update := StopTimeUpdate{
			StopSequence: stu.StopSequence,
			StopID:       stu.StopId,
			Arrival:      stopTimeEvent(stu.GetArrival()),
			Departure:    stopTimeEvent(stu.GetDeparture()),
		}
		if stu.ScheduleRelationship != nil {
			update.ScheduleRelationship = proto.Int32(int32(stu.GetScheduleRelationship()))
		}
		out.StopTimeUpdates = append(out.StopTimeUpdates, update)
	}
	return out
}

func alert(entity *gtfs.FeedEntity) Entity {
	out := &Alert{ID: entity.GetId()}
	a := entity.GetAlert()
	if a == nil {
		return out
	}
	if a.Cause != nil {
		out.Cause = proto.Int32(int32(a.GetCause()))
	}
	if a.Effect != nil {
		out.Effect = proto.Int32(int32(a.GetEffect()))
	}
	out.HeaderText = translations(a.GetHeaderText())
	out.DescriptionText = translations(a.GetDescriptionText())
	for _, selector := range a.GetInformedEntity() {
		informed := InformedEntity{
			AgencyID: selector.AgencyId,
			RouteID:  selector.RouteId,
			StopID:   selector.StopId,
		}
		if selector.GetTrip() != nil {
			informed.TripID = selector.GetTrip().TripId
		}
		out.InformedEntity = append(out.InformedEntity, informed)
	}
	return out
}

func tripDescriptor(trip *gtfs.TripDescriptor) *TripDescriptor {
	if trip == nil {
		return nil
	}
	return &TripDescriptor{
		TripID:      trip.TripId,
		RouteID:     trip.RouteId,
		DirectionID: trip.DirectionId,
		StartDate:   trip.StartDate,
	}
}

func vehicleDescriptor(vehicle *gtfs.VehicleDescriptor) *VehicleDescriptor {
	if vehicle == nil {
		return nil
	}
	return &VehicleDescriptor{ID: vehicle.Id, Label: vehicle.Label}
}

func stopTimeEvent(event *gtfs.TripUpdate_StopTimeEvent) *StopTimeEvent {
	if event == nil {
		return nil
	}
	return &StopTimeEvent{Delay: event.Delay, Time: event.Time}
}

func translations(text *gtfs.TranslatedString) []Translation {
	if text == nil {
		return nil
	}
	out := make([]Translation, 0, len(text.GetTranslation()))
	for _, t := range text.GetTranslation() {
		out = append(out, Translation{Text: t.GetText(), Language: t.Language})
	}
	return out
}
