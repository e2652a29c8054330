package storage

import "fmt"

// Config holds all configuration for the Storage.
//
// Config is geared towards "bucket" style storage, where you have a
// specific root (the Bucket).
type Config struct {
	Bucket string `default:"standalone" envconfig:"STORAGE_BUCKET" json:"bucket"`
	Root   string `envconfig:"STORAGE_ROOT" json:"root"`
}

// NewConfig returns a new Config with the given bucket and root.
func NewConfig(bucket, root string) Config {
	return Config{
		Bucket: bucket,
		Root:   root,
	}
}

func (c Config) String() string {
	return fmt.Sprintf("{Bucket:%v Root:%v}", c.Bucket, c.Root)
}
