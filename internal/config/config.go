package config

import (
	"time"

	"github.com/OFFIS-RIT/companynet/internal/util"
)

// Config is the process configuration read from the environment.
type Config struct {
	Debug bool

	MeiliURL           string
	MeiliKey           string
	CompanyIndex       string
	MeiliTimeout       time.Duration
	MeiliMaxRetries    int
	MeiliRatePerSecond float64

	SeedLimit int
	MaxDepth  int
	OutputDir string

	// Optional backends. Empty values disable the matching sink.
	DatabaseURL string
	DBChunkSize int
	S3Bucket    string

	Port         string
	MasterAPIKey string
}

// Load reads Config from the environment, applying defaults for unset or
// malformed values.
func Load() Config {
	return Config{
		Debug: util.GetEnvBool("DEBUG", false),

		MeiliURL:           util.GetEnvString("MEILI_URL", "http://localhost:7700"),
		MeiliKey:           util.GetEnv("MEILI_KEY"),
		CompanyIndex:       util.GetEnvString("MEILI_COMPANY_INDEX", "companies"),
		MeiliTimeout:       util.GetEnvSeconds("MEILI_TIMEOUT_SECONDS", 30*time.Second),
		MeiliMaxRetries:    util.GetEnvInt("MEILI_MAX_RETRIES", 1),
		MeiliRatePerSecond: util.GetEnvNumeric("MEILI_RATE_PER_SECOND", 10),

		SeedLimit: util.GetEnvInt("SEED_LIMIT", 10),
		MaxDepth:  util.GetEnvInt("MAX_DEPTH", 1),
		OutputDir: util.GetEnvString("OUTPUT_DIR", "."),

		DatabaseURL: util.GetEnv("DATABASE_URL"),
		DBChunkSize: util.GetEnvInt("DB_CHUNK_SIZE", 1000),
		S3Bucket:    util.GetEnv("AWS_BUCKET"),

		Port:         util.GetEnvString("PORT", "8080"),
		MasterAPIKey: util.GetEnv("MASTER_API_KEY"),
	}
}

// PersistsToDatabase reports whether a Postgres sink is configured.
func (c Config) PersistsToDatabase() bool {
	return c.DatabaseURL != ""
}

// PersistsToS3 reports whether an S3 sink is configured.
func (c Config) PersistsToS3() bool {
	return c.S3Bucket != ""
}
