package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	Jobs       JobsConfig
	JWT        JWTConfig
	Zitadel    ZitadelConfig
	Gateway    GatewayConfig
	RateLimit  RateLimitConfig
	AzuraCast  AzuraCastConfig
	Mixcloud   MixcloudConfig
	SoundCloud SoundCloudConfig
	Parser     ParserConfig
	Mirror     MirrorConfig
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JobsConfig locates the filesystem areas the pipeline owns: per-job working
// directories and the durable archive tree.
type JobsConfig struct {
	WorkDir     string
	ArchiveDir  string
	Concurrency int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type ZitadelConfig struct {
	Domain   string
	ClientID string
	Issuer   string
}

type GatewayConfig struct {
	Enabled bool
}

type RateLimitConfig struct {
	IntakePerHour int
	StartPerHour  int
	StatusPerMin  int
}

type AzuraCastConfig struct {
	BaseURL    string
	APIKey     string
	StationID  string
	PlaylistID string
}

type MixcloudConfig struct {
	BaseURL     string
	AccessToken string
}

type SoundCloudConfig struct {
	BaseURL            string
	AccessToken        string
	PlaceholderArtwork string
}

// ParserConfig points at the external multi-format tracklist parser service.
type ParserConfig struct {
	ServiceURL string
	Timeout    int // seconds
}

// MirrorConfig configures the S3-compatible bucket archive records are
// mirrored to. Optional; archival is purely local when unset.
type MirrorConfig struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("AZURACAST_API_KEY")
	readSecret("MIXCLOUD_ACCESS_TOKEN")
	readSecret("SOUNDCLOUD_ACCESS_TOKEN")
	readSecret("MIRROR_ACCESS_KEY_ID")
	readSecret("MIRROR_SECRET_ACCESS_KEY")
	readSecret("ZITADEL_CLIENT_ID")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.api_domain", "API_DOMAIN")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jobs.work_dir", "JOBS_WORK_DIR")
	_ = viper.BindEnv("jobs.archive_dir", "JOBS_ARCHIVE_DIR")
	_ = viper.BindEnv("jobs.concurrency", "JOBS_CONCURRENCY")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("zitadel.domain", "ZITADEL_DOMAIN")
	_ = viper.BindEnv("zitadel.client_id", "ZITADEL_CLIENT_ID")
	_ = viper.BindEnv("zitadel.issuer", "ZITADEL_ISSUER")
	_ = viper.BindEnv("gateway.enabled", "GATEWAY_ENABLED")
	_ = viper.BindEnv("azuracast.base_url", "AZURACAST_BASE_URL")
	_ = viper.BindEnv("azuracast.api_key", "AZURACAST_API_KEY")
	_ = viper.BindEnv("azuracast.station_id", "AZURACAST_STATION_ID")
	_ = viper.BindEnv("azuracast.playlist_id", "AZURACAST_PLAYLIST_ID")
	_ = viper.BindEnv("mixcloud.base_url", "MIXCLOUD_BASE_URL")
	_ = viper.BindEnv("mixcloud.access_token", "MIXCLOUD_ACCESS_TOKEN")
	_ = viper.BindEnv("soundcloud.base_url", "SOUNDCLOUD_BASE_URL")
	_ = viper.BindEnv("soundcloud.access_token", "SOUNDCLOUD_ACCESS_TOKEN")
	_ = viper.BindEnv("soundcloud.placeholder_artwork", "SOUNDCLOUD_PLACEHOLDER_ARTWORK")
	_ = viper.BindEnv("parser.service_url", "PARSER_SERVICE_URL")
	_ = viper.BindEnv("parser.timeout", "PARSER_TIMEOUT")
	_ = viper.BindEnv("mirror.account_id", "MIRROR_ACCOUNT_ID")
	_ = viper.BindEnv("mirror.access_key_id", "MIRROR_ACCESS_KEY_ID")
	_ = viper.BindEnv("mirror.secret_access_key", "MIRROR_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("mirror.bucket_name", "MIRROR_BUCKET_NAME")
	_ = viper.BindEnv("mirror.public_url", "MIRROR_PUBLIC_URL")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jobs.work_dir", "./data/jobs")
	viper.SetDefault("jobs.archive_dir", "./data/archive")
	viper.SetDefault("jobs.concurrency", 10)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.intake_per_hour", 20)
	viper.SetDefault("ratelimit.start_per_hour", 30)
	viper.SetDefault("ratelimit.status_per_min", 120)
	viper.SetDefault("gateway.enabled", false)

	// Destination defaults
	viper.SetDefault("azuracast.base_url", "")
	viper.SetDefault("azuracast.station_id", "1")
	viper.SetDefault("azuracast.playlist_id", "1")
	viper.SetDefault("mixcloud.base_url", "https://api.mixcloud.com")
	viper.SetDefault("soundcloud.base_url", "https://api.soundcloud.com")
	viper.SetDefault("soundcloud.placeholder_artwork", "./assets/placeholder_artwork.png")

	// Parser service defaults
	viper.SetDefault("parser.service_url", "")
	viper.SetDefault("parser.timeout", 30)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			LogLevel:  viper.GetString("server.log_level"),
			ApiDomain: viper.GetString("server.api_domain"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Jobs: JobsConfig{
			WorkDir:     viper.GetString("jobs.work_dir"),
			ArchiveDir:  viper.GetString("jobs.archive_dir"),
			Concurrency: viper.GetInt("jobs.concurrency"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		Zitadel: ZitadelConfig{
			Domain:   viper.GetString("zitadel.domain"),
			ClientID: viper.GetString("zitadel.client_id"),
			Issuer:   viper.GetString("zitadel.issuer"),
		},
		Gateway: GatewayConfig{
			Enabled: viper.GetBool("gateway.enabled"),
		},
		RateLimit: RateLimitConfig{
			IntakePerHour: viper.GetInt("ratelimit.intake_per_hour"),
			StartPerHour:  viper.GetInt("ratelimit.start_per_hour"),
			StatusPerMin:  viper.GetInt("ratelimit.status_per_min"),
		},
		AzuraCast: AzuraCastConfig{
			BaseURL:    viper.GetString("azuracast.base_url"),
			APIKey:     viper.GetString("azuracast.api_key"),
			StationID:  viper.GetString("azuracast.station_id"),
			PlaylistID: viper.GetString("azuracast.playlist_id"),
		},
		Mixcloud: MixcloudConfig{
			BaseURL:     viper.GetString("mixcloud.base_url"),
			AccessToken: viper.GetString("mixcloud.access_token"),
		},
		SoundCloud: SoundCloudConfig{
			BaseURL:            viper.GetString("soundcloud.base_url"),
			AccessToken:        viper.GetString("soundcloud.access_token"),
			PlaceholderArtwork: viper.GetString("soundcloud.placeholder_artwork"),
		},
		Parser: ParserConfig{
			ServiceURL: viper.GetString("parser.service_url"),
			Timeout:    viper.GetInt("parser.timeout"),
		},
		Mirror: MirrorConfig{
			AccountID:       viper.GetString("mirror.account_id"),
			AccessKeyID:     viper.GetString("mirror.access_key_id"),
			SecretAccessKey: viper.GetString("mirror.secret_access_key"),
			BucketName:      viper.GetString("mirror.bucket_name"),
			PublicURL:       viper.GetString("mirror.public_url"),
		},
	}

	return cfg, nil
}
