package mongo

import "time"

// Config holds MongoDB connection settings
type Config struct {
	// URI is the MongoDB connection string (e.g., mongodb://localhost:27017)
	URI        string
	Database   string
	Collection string

	// Pool settings
	MinPoolSize uint64
	MaxPoolSize uint64

	ConnectTimeout time.Duration
}

// DefaultConfig returns sensible defaults for MongoDB configuration
func DefaultConfig() Config {
	return Config{
		URI:            "mongodb://localhost:27017",
		Database:       "tileworld",
		Collection:     "profiles",
		MinPoolSize:    2,
		MaxPoolSize:    20,
		ConnectTimeout: 10 * time.Second,
	}
}
