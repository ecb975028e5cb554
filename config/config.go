package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPollInterval    = 60 * time.Second
	DefaultFetchTimeout    = 30 * time.Second
	DefaultOutputDirectory = "./raw"
	DefaultAlertLanguage   = "it"
)

type ConfigYaml struct {
	PollInterval        time.Duration         `yaml:"poll_interval" validate:"gte=0"`
	PollIntervalSeconds int                   `yaml:"poll_interval_seconds" validate:"gte=0"`
	FetchTimeout        time.Duration         `yaml:"fetch_timeout" validate:"gte=0"`
	FetchTimeoutSeconds int                   `yaml:"fetch_timeout_seconds" validate:"gte=0"`
	OutputDirectory     string                `yaml:"output_directory"`
	AlertLanguage       string                `yaml:"alert_language"`
	Feeds               map[FeedKind]FeedYaml `yaml:"feeds" validate:"omitempty,dive,keys,oneof=vehicle_positions trip_updates alerts,endkeys"`
	FeedURLs            map[FeedKind]string   `yaml:"feed_urls" validate:"omitempty,dive,keys,oneof=vehicle_positions trip_updates alerts,endkeys"`
	Storage             StorageConfig         `yaml:"storage"`
	StateStore          StateStoreConfig      `yaml:"state_store"`
	Notifier            NotifierConfig        `yaml:"notifier"`
	Journal             *JournalConfig        `yaml:"journal"`
	EventServer         *EventServerConfig    `yaml:"event_server"`
}

type Config struct {
	PollInterval    time.Duration
	FetchTimeout    time.Duration
	OutputDirectory string
	AlertLanguage   string
	// Feeds is ordered by FeedKinds.
	Feeds       []FeedConfig
	Storage     StorageConfig
	StateStore  StateStoreConfig
	Notifier    NotifierConfig
	Journal     *JournalConfig
	EventServer *EventServerConfig
}

func ReadConfig(path string) (*Config, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(yamlFile)
}

func ParseConfig(data []byte) (*Config, error) {
	var cfg ConfigYaml
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg.Materialize()
}

// Materialize resolves aliases and defaults into a Config.
func (c ConfigYaml) Materialize() (*Config, error) {
	out := &Config{
		PollInterval:    c.PollInterval,
		FetchTimeout:    c.FetchTimeout,
		OutputDirectory: c.OutputDirectory,
		AlertLanguage:   c.AlertLanguage,
		Storage:         c.Storage,
		StateStore:      c.StateStore,
		Notifier:        c.Notifier,
		Journal:         c.Journal,
		EventServer:     c.EventServer,
	}
	if out.PollInterval == 0 && c.PollIntervalSeconds > 0 {
		out.PollInterval = time.Duration(c.PollIntervalSeconds) * time.Second
	}
	if out.PollInterval == 0 {
		out.PollInterval = DefaultPollInterval
	}
	if out.FetchTimeout == 0 && c.FetchTimeoutSeconds > 0 {
		out.FetchTimeout = time.Duration(c.FetchTimeoutSeconds) * time.Second
	}
	if out.FetchTimeout == 0 {
		out.FetchTimeout = DefaultFetchTimeout
	}
	if out.OutputDirectory == "" {
		out.OutputDirectory = DefaultOutputDirectory
	}
	if out.AlertLanguage == "" {
		out.AlertLanguage = DefaultAlertLanguage
	}

	// feed_urls is the short form of feeds; entries in feeds win
	feeds := make(map[FeedKind]FeedYaml, len(c.Feeds)+len(c.FeedURLs))
	for kind, url := range c.FeedURLs {
		feeds[kind] = FeedYaml{URL: url}
	}
	for kind, feed := range c.Feeds {
		feeds[kind] = feed
	}
	if len(feeds) == 0 {
		return nil, fmt.Errorf("at least one feed is required")
	}
	for kind, feed := range feeds {
		if feed.URL == "" {
			return nil, fmt.Errorf("feed %s: url is required", kind)
		}
		out.Feeds = append(out.Feeds, FeedConfig{
			Kind:          kind,
			URL:           feed.URL,
			SkipUnchanged: feed.SkipUnchanged,
		})
	}
	sort.Slice(out.Feeds, func(i, j int) bool {
		return out.Feeds[i].Kind.order() < out.Feeds[j].Kind.order()
	})

	if err := out.Storage.materialize(); err != nil {
		return nil, err
	}
	if err := out.StateStore.materialize(); err != nil {
		return nil, err
	}
	if err := out.Notifier.materialize(); err != nil {
		return nil, err
	}
	if out.Journal != nil && out.Journal.PostgresURL == "" {
		return nil, fmt.Errorf("journal: postgres_url is required")
	}
	if out.EventServer != nil {
		out.EventServer.materialize()
	}
	return out, nil
}
