package config

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/georgemblack/snapgram/pkg/util"
	"github.com/kelseyhightower/envconfig"
)

// Config is read from SNAPGRAM_ prefixed environment variables, e.g. SNAPGRAM_ENDPOINT.
type Config struct {
	// Platform
	Endpoint          string `envconfig:"ENDPOINT" default:"https://cloud.appwrite.io/v1"`
	ProjectID         string `envconfig:"PROJECT_ID" required:"true"`
	DatabaseID        string `envconfig:"DATABASE_ID" required:"true"`
	UserCollectionID  string `envconfig:"USER_COLLECTION_ID" required:"true"`
	PostCollectionID  string `envconfig:"POST_COLLECTION_ID" required:"true"`
	SavesCollectionID string `envconfig:"SAVES_COLLECTION_ID" required:"true"`
	StorageID         string `envconfig:"STORAGE_ID" required:"true"`

	// APIKey authenticates shared reads. When empty it is read from Secrets Manager
	// under APIKeySecret, if that is set.
	APIKey       string        `envconfig:"API_KEY" json:"-"`
	APIKeySecret string        `envconfig:"API_KEY_SECRET"`
	AWSRegion    string        `envconfig:"AWS_REGION" default:"us-east-2"`
	Timeout      time.Duration `envconfig:"TIMEOUT" default:"10s"`
	MaxRetries   uint64        `envconfig:"MAX_RETRIES" default:"3"`

	// Cache
	ValkeyAddress    string `envconfig:"VALKEY_ADDRESS" default:"127.0.0.1:6379"`
	ValkeyTLSEnabled bool   `envconfig:"VALKEY_TLS_ENABLED" default:"false"`

	// Server
	ServerPort      string        `envconfig:"SERVER_PORT" default:"8080"`
	SessionTTL      time.Duration `envconfig:"SESSION_TTL" default:"168h"`
	CacheRetention  time.Duration `envconfig:"CACHE_RETENTION" default:"5m"`
	JanitorInterval time.Duration `envconfig:"JANITOR_INTERVAL" default:"1m"`
	SecureCookies   bool          `envconfig:"SECURE_COOKIES" default:"true"`

	// Realtime
	RealtimeWorkers int `envconfig:"REALTIME_WORKERS" default:"1"`
}

const prefix = "SNAPGRAM"

func New() (Config, error) {
	var result Config
	if err := envconfig.Process(prefix, &result); err != nil {
		return Config{}, util.WrapErr("failed to process environment variables", err)
	}
	result.Endpoint = strings.TrimSuffix(result.Endpoint, "/")

	// Marshal to JSON and print if debug is enabled
	data, err := json.Marshal(result)
	if err != nil {
		slog.Warn(util.WrapErr("failed to marshal config", err).Error())
	}
	slog.Debug("generated config", "config", string(data))

	return result, nil
}
