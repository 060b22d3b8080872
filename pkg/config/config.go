package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds every runtime setting. It is assembled once in main and
// passed by reference to the components that need it.
type Config struct {
	Port            string
	Env             string
	JWTSecret       string
	PostgresConnStr string
	MongoURI        string
	MongoDBName     string
}

// Load reads configuration from the environment, falling back to a .env
// file when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, assuming environment variables are set.")
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		JWTSecret:       getEnv("JWT_SECRET", "supersecretjwtkey"),
		PostgresConnStr: getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:        getEnv("MONGO_URI", ""),
		MongoDBName:     getEnv("MONGO_DB_NAME", "driftwood"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
