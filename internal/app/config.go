package app

import (
	"strings"
	"time"

	"github.com/leafmark/leafmark-backend/internal/platform/envutil"
	"github.com/leafmark/leafmark-backend/internal/platform/logger"
)

type Config struct {
	Port         string
	JWTSecretKey string

	MongoURI      string
	MongoDatabase string

	AllowedOrigins []string

	TranslateCacheTTL time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:              envutil.String("PORT", "4000"),
		JWTSecretKey:      envutil.String("JWT_SECRET_KEY", ""),
		MongoURI:          envutil.String("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:     envutil.String("MONGODB_DB", "leafmark"),
		TranslateCacheTTL: envutil.Seconds("TRANSLATE_CACHE_TTL", 24*time.Hour),
	}
	if origins := envutil.String("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}
	log.Info("Configuration loaded", "port", cfg.Port, "database", cfg.MongoDatabase)
	return cfg
}
