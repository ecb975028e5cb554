package config

import "fmt"

type StorageType string

const (
	StorageTypeFileSystem StorageType = "file_system"
	StorageTypeBucket     StorageType = "bucket"
)

type BucketStorageConfig struct {
	// URL is an optional S3-compatible endpoint, e.g. a MinIO instance.
	URL             string `yaml:"url"`
	BucketName      string `yaml:"bucket_name"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type StorageConfig struct {
	Type   StorageType         `yaml:"type" validate:"omitempty,oneof=file_system bucket"`
	Bucket BucketStorageConfig `yaml:"bucket"`
}

func (s *StorageConfig) materialize() error {
	if s.Type == "" {
		s.Type = StorageTypeFileSystem
	}
	if s.Type == StorageTypeBucket && s.Bucket.BucketName == "" {
		return fmt.Errorf("storage: bucket.bucket_name is required for bucket storage")
	}
	return nil
}
