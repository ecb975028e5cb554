package config

// Feed

type FeedKind string

const (
	FeedKindVehiclePositions FeedKind = "vehicle_positions"
	FeedKindTripUpdates      FeedKind = "trip_updates"
	FeedKindAlerts           FeedKind = "alerts"
)

// FeedKinds lists every supported kind in processing order.
var FeedKinds = []FeedKind{
	FeedKindVehiclePositions,
	FeedKindTripUpdates,
	FeedKindAlerts,
}

func (k FeedKind) Valid() bool {
	return k.order() < len(FeedKinds)
}

func (k FeedKind) order() int {
	for i, kind := range FeedKinds {
		if kind == k {
			return i
		}
	}
	return len(FeedKinds)
}

type FeedYaml struct {
	URL           string `yaml:"url"`
	SkipUnchanged bool   `yaml:"skip_unchanged"`
}

type FeedConfig struct {
	Kind FeedKind
	URL  string
	// SkipUnchanged drops a snapshot whose header timestamp equals the last
	// one written for this feed.
	SkipUnchanged bool
}
