package config

import (
	"fmt"
	"time"
)

// StateStore

type StateStoreType string

const (
	InMemoryStateStoreType StateStoreType = "in_memory"
	RedisStateStoreType    StateStoreType = "redis"
)

type InMemoryStateStoreConfig struct {
	Expiry time.Duration `yaml:"expiry"`
}

type RedisStateStoreConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Expiry   time.Duration `yaml:"expiry"`
}

type StateStoreConfig struct {
	Type     StateStoreType           `yaml:"type" validate:"omitempty,oneof=in_memory redis"`
	InMemory InMemoryStateStoreConfig `yaml:"in_memory"`
	Redis    RedisStateStoreConfig    `yaml:"redis"`
}

func (s *StateStoreConfig) materialize() error {
	if s.Type == "" {
		s.Type = InMemoryStateStoreType
	}
	if s.Type == RedisStateStoreType && s.Redis.Addr == "" {
		return fmt.Errorf("state_store: redis.addr is required for redis state store")
	}
	return nil
}
