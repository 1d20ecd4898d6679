package config

import (
	"errors"
	"fmt"
	"os"

	"ostello/internal/models"

	"github.com/joho/godotenv"
	yamlv2 "gopkg.in/yaml.v2"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Hold       HoldConfig       `yaml:"hold"`
	Booking    BookingConfig    `yaml:"booking"`
	Inventory  InventoryConfig  `yaml:"inventory"`
	Exports    ExportConfig     `yaml:"exports"`
}

// HoldConfig tunes the exclusive-claim lifecycle. All durations come in as
// plain numbers so operators don't fight Go duration syntax in YAML.
type HoldConfig struct {
	TTLSeconds            int    `yaml:"ttl_seconds"`
	HeartbeatSeconds      int    `yaml:"heartbeat_seconds"`
	PaymentTimeoutMinutes int    `yaml:"payment_timeout_minutes"`
	SweepSchedule         string `yaml:"sweep_schedule"`
}

type BookingConfig struct {
	MaxAdvanceDays int `yaml:"max_advance_days"`
	CartTTLSeconds int `yaml:"cart_ttl_seconds"`
}

// InventoryConfig points at the separate inventory file. Rooms and guest
// rules live apart from the runtime config so the hostel layout can be
// versioned on its own.
type InventoryConfig struct {
	Path string `yaml:"path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
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

type MonitoringConfig struct {
	PrometheusEnabled bool   `yaml:"prometheus_enabled"`
	PrometheusPort    int    `yaml:"prometheus_port"`
	HealthCheckPort   int    `yaml:"health_check_port"`
	LogLevel          string `yaml:"log_level"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// Inventory is the property description: rooms with their beds, guest type
// rules and the positional privacy surcharge tiers.
type Inventory struct {
	Rooms        []models.Room          `yaml:"rooms"`
	GuestRules   []models.GuestTypeRule `yaml:"guest_rules"`
	PrivacyTiers []float64              `yaml:"privacy_tiers"`
}

func Load(configPath string) (*Config, error) {
	// Загружаем .env файл если существует
	err := godotenv.Load(".env")
	if err != nil && !os.IsNotExist(err) {
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

// LoadInventory reads and validates the property description file.
func LoadInventory(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var inv Inventory
	if err := yamlv2.Unmarshal(data, &inv); err != nil {
		return nil, err
	}

	if err := ValidateInventory(&inv); err != nil {
		return nil, fmt.Errorf("inventory validation failed: %w", err)
	}

	return &inv, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Inventory.Path == "" {
		return errors.New("inventory path is required")
	}

	if c.Hold.TTLSeconds < 0 || c.Hold.PaymentTimeoutMinutes < 0 {
		return errors.New("hold timeouts must not be negative")
	}

	return nil
}

// ValidateInventory rejects layouts the calculator could misprice: duplicate
// bed IDs across the whole property, duplicate guest rule labels, discounts
// outside 0..100 and privacy tiers that are not positive.
func ValidateInventory(inv *Inventory) error {
	if len(inv.Rooms) == 0 {
		return errors.New("inventory has no rooms")
	}

	roomIDs := make(map[int64]bool)
	bedIDs := make(map[int64]bool)
	for _, room := range inv.Rooms {
		if room.ID == 0 {
			return fmt.Errorf("room '%s' has invalid ID 0", room.Name)
		}
		if roomIDs[room.ID] {
			return fmt.Errorf("duplicate room ID found: %d", room.ID)
		}
		roomIDs[room.ID] = true

		if len(room.Beds) == 0 {
			return fmt.Errorf("room '%s' has no beds", room.Name)
		}
		for _, bed := range room.Beds {
			if bed.ID == 0 {
				return fmt.Errorf("bed '%s' in room '%s' has invalid ID 0", bed.Name, room.Name)
			}
			if bedIDs[bed.ID] {
				return fmt.Errorf("duplicate bed ID found: %d", bed.ID)
			}
			bedIDs[bed.ID] = true

			if bed.PriceBB < 0 || bed.PriceHB < 0 {
				return fmt.Errorf("bed '%s' has negative price", bed.Name)
			}
		}
	}

	labels := make(map[string]bool)
	for _, rule := range inv.GuestRules {
		if rule.Label == "" {
			return errors.New("guest rule with empty label")
		}
		if labels[rule.Label] {
			return fmt.Errorf("duplicate guest rule label: %s", rule.Label)
		}
		labels[rule.Label] = true

		if rule.DiscountPercent < 0 || rule.DiscountPercent > 100 {
			return fmt.Errorf("guest rule '%s' discount %.1f out of range 0..100", rule.Label, rule.DiscountPercent)
		}
		if rule.CityTax && rule.CityTaxAmount < 0 {
			return fmt.Errorf("guest rule '%s' has negative city tax", rule.Label)
		}
	}

	for i, tier := range inv.PrivacyTiers {
		if tier < 0 {
			return fmt.Errorf("privacy tier %d is negative", i)
		}
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	// auth enabled by default when API is enabled
	if !c.API.Auth.Enabled {
		c.API.Auth.Enabled = true
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	if c.Hold.TTLSeconds == 0 {
		c.Hold.TTLSeconds = models.DefaultHoldTTL
	}
	if c.Hold.HeartbeatSeconds == 0 {
		c.Hold.HeartbeatSeconds = models.DefaultHeartbeatInterval
	}
	if c.Hold.PaymentTimeoutMinutes == 0 {
		c.Hold.PaymentTimeoutMinutes = models.DefaultPaymentTimeoutMinutes
	}
	if c.Hold.SweepSchedule == "" {
		c.Hold.SweepSchedule = models.DefaultSweepSchedule
	}

	if c.Booking.MaxAdvanceDays == 0 {
		c.Booking.MaxAdvanceDays = models.DefaultMaxAdvanceDays
	}
	if c.Booking.CartTTLSeconds == 0 {
		c.Booking.CartTTLSeconds = models.DefaultCartTTL
	}
}
