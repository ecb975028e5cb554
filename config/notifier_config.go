package config

import "fmt"

type NotifierType string

const (
	NotifierTypeNone  NotifierType = "none"
	NotifierTypeLog   NotifierType = "log"
	NotifierTypeRedis NotifierType = "redis"
	NotifierTypeNATS  NotifierType = "nats"
)

type RedisNotifierConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type NATSNotifierConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type NotifierConfig struct {
	Type  NotifierType        `yaml:"type" validate:"omitempty,oneof=none log redis nats"`
	Redis RedisNotifierConfig `yaml:"redis"`
	NATS  NATSNotifierConfig  `yaml:"nats"`
}

func (n *NotifierConfig) materialize() error {
	switch n.Type {
	case "":
		n.Type = NotifierTypeNone
	case NotifierTypeRedis:
		if n.Redis.Addr == "" {
			return fmt.Errorf("notifier: redis.addr is required")
		}
		if n.Redis.Channel == "" {
			n.Redis.Channel = "atac:partitions"
		}
	case NotifierTypeNATS:
		if n.NATS.URL == "" {
			return fmt.Errorf("notifier: nats.url is required")
		}
		if n.NATS.Subject == "" {
			n.NATS.Subject = "atac.partitions"
		}
	}
	return nil
}

type JournalConfig struct {
	PostgresURL string `yaml:"postgres_url"`
}

type EventServerConfig struct {
	Port string `yaml:"port"`
	Path string `yaml:"path"`
}

func (e *EventServerConfig) materialize() {
	if e.Port == "" {
		e.Port = "8080"
	}
	if e.Path == "" {
		e.Path = "/events"
	}
}
