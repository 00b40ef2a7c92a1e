package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Worker   WorkerConfig   `yaml:"worker"`
	Geo      GeoConfig      `yaml:"geo"`
}

type HTTPConfig struct {
	Address    string `yaml:"address"`
	SwaggerDir string `yaml:"swagger_dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type BookingConfig struct {
	FilterCacheTTLSeconds int `yaml:"filter_cache_ttl_seconds"`
	RideLockTTLSeconds    int `yaml:"ride_lock_ttl_seconds"`
}

type WorkerConfig struct {
	ExpirationSweepMinutes int `yaml:"expiration_sweep_minutes"`
}

type GeoConfig struct {
	NominatimURL string `yaml:"nominatim_url"`
	OSRMURL      string `yaml:"osrm_url"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
