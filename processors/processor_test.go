package processors

import (
	"math/rand"
	"testing"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/paolobietolini/atac-realtime/config"
	"github.com/paolobietolini/atac-realtime/feeds"
	"github.com/paolobietolini/atac-realtime/internal/feedtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

func decode(t *testing.T, msg *gtfs.FeedMessage, kind config.FeedKind) *feeds.Snapshot {
	t.Helper()
	snapshot, err := feeds.Decode(feedtest.Marshal(t, msg), kind)
	require.NoError(t, err)
	return snapshot
}

func TestFlattenVehiclePositionsMissingPosition(t *testing.T) {
	snapshot := decode(t, feedtest.Message(1700000000,
		feedtest.VehicleEntity("e1", "v1", "64", 41.9, 12.5),
		feedtest.BareVehicleEntity("e2", "v2"),
	), config.FeedKindVehiclePositions)

	rows := FlattenVehiclePositions(snapshot)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, int64(1700000000), first.FeedTimestamp)
	assert.Equal(t, "e1", first.EntityID)
	require.NotNil(t, first.Latitude)
	assert.InDelta(t, 41.9, *first.Latitude, 1e-5)
	require.NotNil(t, first.Speed)
	assert.Zero(t, *first.Speed)
	require.NotNil(t, first.DirectionID)
	assert.Equal(t, int32(0), *first.DirectionID)
	assert.Equal(t, "64", *first.RouteID)
	assert.Equal(t, "label-v1", *first.VehicleLabel)
	assert.Equal(t, int64(1699999990), *first.VehicleTimestamp)
	assert.Equal(t, int32(gtfs.VehiclePosition_STOPPED_AT), *first.CurrentStatus)

	second := rows[1]
	assert.Equal(t, int64(1700000000), second.FeedTimestamp)
	assert.Equal(t, "e2", second.EntityID)
	assert.Nil(t, second.Latitude)
	assert.Nil(t, second.Longitude)
	assert.Nil(t, second.Bearing)
	assert.Nil(t, second.Speed)
	assert.Nil(t, second.TripID)
	assert.Nil(t, second.RouteID)
	assert.Nil(t, second.DirectionID)
	assert.Nil(t, second.StartDate)
	assert.Nil(t, second.CurrentStatus)
	require.NotNil(t, second.VehicleID)
	assert.Equal(t, "v2", *second.VehicleID)
	assert.Nil(t, second.VehicleLabel)
}

func TestFlattenTripUpdatesKeepsZeroDelay(t *testing.T) {
	snapshot := decode(t, feedtest.Message(1700000000,
		feedtest.TripUpdateEntity("e1", "t1", "64", "v1", 30, -10, 0),
	), config.FeedKindTripUpdates)

	rows := FlattenTripUpdates(snapshot)
	require.Len(t, rows, 3)

	delays := make([]int32, 0, len(rows))
	for i, row := range rows {
		require.NotNil(t, row.ArrivalDelay, "row %d", i)
		delays = append(delays, *row.ArrivalDelay)
		assert.Equal(t, "e1", row.EntityID)
		assert.Equal(t, "t1", *row.TripID)
		assert.Equal(t, "64", *row.RouteID)
		assert.Equal(t, "v1", *row.VehicleID)
		assert.Equal(t, "20231114", *row.StartDate)
		assert.Equal(t, int32(i+1), *row.StopSequence)
		assert.Nil(t, row.DepartureDelay)
		assert.Nil(t, row.DepartureTime)
	}
	assert.Equal(t, []int32{30, -10, 0}, delays)
}

func TestFlattenTripUpdatesRecordCount(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 25; run++ {
		var entities []*gtfs.FeedEntity
		want := 0
		count := rng.Intn(20)
		for i := 0; i < count; i++ {
			n := rng.Intn(6)
			delays := make([]int32, n)
			for j := range delays {
				delays[j] = int32(rng.Intn(600) - 300)
			}
			want += n
			id := string(rune('a'+i%26)) + string(rune('0'+run%10))
			entities = append(entities, feedtest.TripUpdateEntity(id, "t-"+id, "r", "v-"+id, delays...))
		}
		snapshot := decode(t, feedtest.Message(1700000000, entities...), config.FeedKindTripUpdates)

		rows := FlattenTripUpdates(snapshot)
		require.Len(t, rows, want)

		// entity-level fields repeat on every row of their entity
		for _, row := range rows {
			assert.Equal(t, "t-"+row.EntityID, *row.TripID)
			assert.Equal(t, "v-"+row.EntityID, *row.VehicleID)
		}
	}
}

func TestFlattenTripUpdatesEmptyEntity(t *testing.T) {
	snapshot := decode(t, feedtest.Message(1700000000,
		feedtest.TripUpdateEntity("e1", "t1", "64", "v1"),
	), config.FeedKindTripUpdates)

	rows := FlattenTripUpdates(snapshot)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestFlattenTripUpdatesMissingTrip(t *testing.T) {
	snapshot := &feeds.Snapshot{
		Kind:      config.FeedKindTripUpdates,
		Timestamp: 1700000000,
		Entities: []feeds.Entity{
			&feeds.TripUpdate{
				ID: "e1",
				StopTimeUpdates: []feeds.StopTimeUpdate{
					{StopID: proto.String("s1"), Departure: &feeds.StopTimeEvent{Delay: proto.Int32(0)}},
				},
			},
		},
	}

	rows := FlattenTripUpdates(snapshot)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].TripID)
	assert.Nil(t, rows[0].VehicleID)
	assert.Nil(t, rows[0].StopSequence)
	assert.Nil(t, rows[0].ArrivalDelay)
	require.NotNil(t, rows[0].DepartureDelay)
	assert.Equal(t, int32(0), *rows[0].DepartureDelay)
}

func TestFlattenAlerts(t *testing.T) {
	msg := feedtest.Message(1700000000,
		feedtest.AlertEntity("a1", "Sciopero", "Sciopero generale",
			feedtest.StopSelector("s70"),
			feedtest.RouteSelector("64"),
			feedtest.RouteSelector("70"),
		),
		feedtest.AlertEntity("a2", "Deviazione", "Linea deviata"),
	)
	msg.Entity[1].Alert.HeaderText.Translation = append(
		[]*gtfs.TranslatedString_Translation{{Text: proto.String("Detour"), Language: proto.String("en")}},
		msg.Entity[1].Alert.HeaderText.Translation...,
	)
	snapshot := decode(t, msg, config.FeedKindAlerts)

	rows := FlattenAlerts(snapshot, "it")
	require.Len(t, rows, 2)

	assert.Equal(t, "a1", rows[0].EntityID)
	assert.Equal(t, int32(gtfs.Alert_STRIKE), *rows[0].Cause)
	assert.Equal(t, int32(gtfs.Alert_REDUCED_SERVICE), *rows[0].Effect)
	assert.Equal(t, "Sciopero", *rows[0].HeaderText)
	assert.Equal(t, "Sciopero generale", *rows[0].DescriptionText)
	assert.Equal(t, "64", *rows[0].RouteID)
	assert.Equal(t, "s70", *rows[0].StopID)

	assert.Equal(t, "Deviazione", *rows[1].HeaderText, "language match wins over first translation")
	assert.Nil(t, rows[1].RouteID)
	assert.Nil(t, rows[1].StopID)

	english := FlattenAlerts(snapshot, "en")
	assert.Equal(t, "Detour", *english[1].HeaderText)
	fallback := FlattenAlerts(snapshot, "fr")
	assert.Equal(t, "Detour", *fallback[1].HeaderText, "falls back to first translation")
}

func TestFlattenAlertsWithoutPayload(t *testing.T) {
	snapshot := &feeds.Snapshot{
		Kind:      config.FeedKindAlerts,
		Timestamp: 1700000000,
		Entities:  []feeds.Entity{&feeds.Alert{ID: "a1"}},
	}
	rows := FlattenAlerts(snapshot, "it")
	require.Len(t, rows, 1)
	assert.Equal(t, "a1", rows[0].EntityID)
	assert.Nil(t, rows[0].Cause)
	assert.Nil(t, rows[0].HeaderText)
}

func TestFlattenRoundTripEntityCount(t *testing.T) {
	vpMsg := feedtest.Message(1700000000,
		feedtest.VehicleEntity("e1", "v1", "64", 41.9, 12.5),
		feedtest.BareVehicleEntity("e2", "v2"),
		feedtest.VehicleEntity("e3", "v3", "70", 41.8, 12.4),
	)
	vpRows := FlattenVehiclePositions(decode(t, vpMsg, config.FeedKindVehiclePositions))
	vpGroups := map[string]int{}
	for _, row := range vpRows {
		vpGroups[row.EntityID]++
	}
	assert.Len(t, vpGroups, len(vpMsg.Entity))

	alertMsg := feedtest.Message(1700000000,
		feedtest.AlertEntity("a1", "h1", "d1", feedtest.RouteSelector("64"), feedtest.RouteSelector("70")),
		feedtest.AlertEntity("a2", "h2", "d2"),
	)
	alertRows := FlattenAlerts(decode(t, alertMsg, config.FeedKindAlerts), "it")
	alertGroups := map[string]int{}
	for _, row := range alertRows {
		alertGroups[row.EntityID]++
	}
	assert.Len(t, alertGroups, len(alertMsg.Entity))
	assert.Len(t, alertRows, len(alertMsg.Entity))
}

func TestFlattenSkipsForeignVariants(t *testing.T) {
	snapshot := &feeds.Snapshot{
		Kind:      config.FeedKindVehiclePositions,
		Timestamp: 1,
		Entities:  []feeds.Entity{&feeds.Alert{ID: "a1"}, &feeds.VehiclePosition{ID: "e1"}},
	}
	rows := FlattenVehiclePositions(snapshot)
	require.Len(t, rows, 1)
	assert.Equal(t, "e1", rows[0].EntityID)
}
