package config

import "os"

// Config is assembled from environment variables; main loads .env first so
// local development works without exporting anything.
type Config struct {
	Port          string
	MongoURI      string
	MongoDatabase string
	JWTSecret     string
	RedisAddr     string
	RedisPassword string
	FrontendURL   string
	Env           string
	LogLevel      string
}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "5000"),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "healthconnect"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:3000"),
		Env:           getEnv("APP_ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
