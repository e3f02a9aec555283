package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL string
	TokenDB    string
	LogLevel   string
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8000"),
		TokenDB:    getEnv("TOKEN_DB", "bizchat_console.db"),
		LogLevel:   getEnv("LOG_LEVEL", "INFO"),
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
