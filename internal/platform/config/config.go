package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	JWTKey  []byte
	JWTExp  time.Duration

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Judge0BaseURL string
	Judge0APIKey  string
	Judge0APIHost string

	// Wall-clock budget for one remote execution call, including queue time
	// on the backend side.
	ExecutionTimeout time.Duration

	// Number of hidden test cases evaluated at once within a single
	// submission. 1 keeps the load on the rate-limited backend bounded.
	CaseConcurrency int

	LeaderboardCacheTTL time.Duration
	DefaultScoreWeight  int
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:             getEnv("API_PORT", "8080"),
		JWTKey:              []byte(getEnv("JWT_SECRET", "defaultsecret")),
		JWTExp:              time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 72)) * time.Hour,
		DBHost:              getEnv("DB_HOST", "localhost"),
		DBPort:              getEnv("DB_PORT", "5432"),
		DBUser:              getEnv("DB_USER", "user"),
		DBPassword:          getEnv("DB_PASSWORD", "password"),
		DBName:              getEnv("DB_NAME", "codearena_db"),
		DBSslMode:           getEnv("DB_SSLMODE", "disable"),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             getEnvAsInt("REDIS_DB", 0),
		Judge0BaseURL:       getEnv("JUDGE0_BASE_URL", "https://judge0-ce.p.rapidapi.com"),
		Judge0APIKey:        getEnv("JUDGE0_RAPIDAPI_KEY", ""),
		Judge0APIHost:       getEnv("JUDGE0_RAPIDAPI_HOST", ""),
		ExecutionTimeout:    time.Duration(getEnvAsInt("EXECUTION_TIMEOUT_SECONDS", 30)) * time.Second,
		CaseConcurrency:     getEnvAsInt("CASE_CONCURRENCY", 1),
		LeaderboardCacheTTL: time.Duration(getEnvAsInt("LEADERBOARD_CACHE_TTL_SECONDS", 15)) * time.Second,
		DefaultScoreWeight:  getEnvAsInt("DEFAULT_SCORE_WEIGHT", 50),
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
