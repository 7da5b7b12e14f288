package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
)

// Config aggregates everything the server reads from the environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Robot    RobotConfig
	Admin    AdminConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type AppConfig struct {
	Migrations bool
	Dev        bool
}

// RobotConfig identifies the vehicle on the local network.
type RobotConfig struct {
	IP  string
	MAC string
}

// AdminConfig seeds the initial administrator account. Password empty
// skips the seed.
type AdminConfig struct {
	Username string
	Email    string
	Password string
}

// Load reads the configuration from the environment with defaults.
// Precedence: explicit env var > .env file (loaded by the caller) > default.
func Load() Config {
	return Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 10),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 30),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 120),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "roverpanel"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		App: AppConfig{
			Migrations: getEnvBool("RUN_MIGRATIONS", true),
			Dev:        getEnvBool("DEV", false),
		},
		Robot: RobotConfig{
			IP:  getEnv("ROBOT_IP", "192.168.1.100"),
			MAC: getEnv("ROBOT_MAC", "00:00:00:00:00:00"),
		},
		Admin: AdminConfig{
			Username: getEnv("ADMIN_USERNAME", "admin"),
			Email:    getEnv("ADMIN_EMAIL", "admin@example.com"),
			Password: os.Getenv("ADMIN_PASSWORD"),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid integer for %s: %s", key, v)
			return def
		}
		return n
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid boolean for %s: %s", key, v)
			return def
		}
		return b
	}
	return def
}
