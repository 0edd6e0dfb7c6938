package config

import (
	"errors"
	"fmt"
	"os"

	"splashpark/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig       `yaml:"app"`
	Database DatabaseConfig  `yaml:"database"`
	Redis    RedisConfig     `yaml:"redis"`
	Backup   BackupConfig    `yaml:"backup"`
	Logging  LoggingConfig   `yaml:"logging"`
	API      APIConfig       `yaml:"api"`
	Admin    AdminConfig     `yaml:"admin"`
	Booking  BookingConfig   `yaml:"booking"`
	Notify   NotifyConfig    `yaml:"notify"`
	Payment  PaymentConfig   `yaml:"payment"`
	Coupons  []models.Coupon `yaml:"coupons"`
	AddOns   []models.AddOn  `yaml:"add_ons"`
	Zones    []models.Zone   `yaml:"zones"`
	Exports  ExportConfig    `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Port              int                `yaml:"port"`
	MetricsEnabled    bool               `yaml:"metrics_enabled"`
	MetricsPort       int                `yaml:"metrics_port"`
	RateLimit         APIRateLimitConfig `yaml:"rate_limit"`
	ReadHeaderTimeout int                `yaml:"read_header_timeout_seconds"`
	WriteTimeout      int                `yaml:"write_timeout_seconds"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type AdminConfig struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	TokenSecret  string `yaml:"token_secret"`
	SessionHours int    `yaml:"session_hours"`
}

type BookingConfig struct {
	MaxBookingDays   int     `yaml:"max_booking_days"`
	DefaultDuration  float64 `yaml:"default_duration_hours"`
	SlotCacheTTLSecs int     `yaml:"slot_cache_ttl_seconds"`
}

type NotifyConfig struct {
	MaxRetries          int    `yaml:"max_retries"`
	InitialDelayMs      int    `yaml:"initial_delay_ms"`
	DispatchTimeoutSecs int    `yaml:"dispatch_timeout_seconds"`
	WebhookURL          string `yaml:"webhook_url"`
}

type PaymentConfig struct {
	VerifyTimeoutSecs int `yaml:"verify_timeout_seconds"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// Загружаем .env файл если существует
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Admin.Username == "" || c.Admin.Password == "" {
		return errors.New("admin credentials are required")
	}

	if c.Admin.TokenSecret == "" {
		return errors.New("admin token secret is required")
	}

	if err := ValidateZones(c.Zones); err != nil {
		return err
	}

	return ValidateCoupons(c.Coupons)
}

func ValidateZones(zones []models.Zone) error {
	zoneIDs := make(map[int64]bool)
	for _, zone := range zones {
		if zone.ID == 0 {
			return fmt.Errorf("zone '%s' has invalid ID 0", zone.Name)
		}
		if zoneIDs[zone.ID] {
			return fmt.Errorf("duplicate zone ID found: %d", zone.ID)
		}
		zoneIDs[zone.ID] = true

		if zone.CloseHour <= zone.OpenHour {
			return fmt.Errorf("zone '%s' has empty operating hours", zone.Name)
		}
	}
	return nil
}

func ValidateCoupons(coupons []models.Coupon) error {
	codes := make(map[string]bool)
	for _, coupon := range coupons {
		if coupon.Code == "" {
			return errors.New("coupon with empty code")
		}
		if codes[coupon.Code] {
			return fmt.Errorf("duplicate coupon code found: %s", coupon.Code)
		}
		codes[coupon.Code] = true

		switch coupon.Type {
		case models.CouponTypePercentage:
			if coupon.Discount < 0 || coupon.Discount > 100 {
				return fmt.Errorf("coupon %s discount out of range: %v", coupon.Code, coupon.Discount)
			}
		case models.CouponTypeFree:
		default:
			return fmt.Errorf("coupon %s has unknown type: %s", coupon.Code, coupon.Type)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.API.MetricsEnabled && c.API.MetricsPort == 0 {
		c.API.MetricsPort = 9090
	}
	if c.API.ReadHeaderTimeout == 0 {
		c.API.ReadHeaderTimeout = 5
	}
	if c.API.WriteTimeout == 0 {
		c.API.WriteTimeout = 15
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = float64(models.RateLimitRequests) / float64(models.RateLimitWindow)
	}

	if c.Admin.SessionHours == 0 {
		c.Admin.SessionHours = models.AdminSessionHours
	}

	if c.Booking.MaxBookingDays == 0 {
		c.Booking.MaxBookingDays = models.MaxBookingDays
	}
	if c.Booking.DefaultDuration == 0 {
		c.Booking.DefaultDuration = models.DefaultSlotDurationHours
	}
	if c.Booking.SlotCacheTTLSecs == 0 {
		c.Booking.SlotCacheTTLSecs = models.DefaultRedisTTL
	}

	if c.Notify.MaxRetries == 0 {
		c.Notify.MaxRetries = 5
	}
	if c.Notify.DispatchTimeoutSecs == 0 {
		c.Notify.DispatchTimeoutSecs = 10
	}

	if c.Payment.VerifyTimeoutSecs == 0 {
		c.Payment.VerifyTimeoutSecs = 10
	}

	for i := range c.Zones {
		if c.Zones[i].Capacity == 0 {
			c.Zones[i].Capacity = 1
		}
		if c.Zones[i].DefaultDuration == 0 {
			c.Zones[i].DefaultDuration = c.Booking.DefaultDuration
		}
	}
}
