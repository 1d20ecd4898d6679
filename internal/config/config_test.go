package config

import (
	"os"
	"path/filepath"
	"testing"

	"ostello/internal/models"
)

func TestLoadConfig(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
database:
  path: "test.db"
inventory:
  path: "inventory.yaml"
hold:
  ttl_seconds: 300
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Database.Path != "test.db" {
		t.Errorf("expected database path test.db, got %s", cfg.Database.Path)
	}
	if cfg.Hold.TTLSeconds != 300 {
		t.Errorf("expected hold ttl 300, got %d", cfg.Hold.TTLSeconds)
	}
	// untouched fields get defaults
	if cfg.Hold.PaymentTimeoutMinutes != models.DefaultPaymentTimeoutMinutes {
		t.Errorf("expected default payment timeout, got %d", cfg.Hold.PaymentTimeoutMinutes)
	}
}

func TestLoadInventory(t *testing.T) {
	tmpDir := t.TempDir()
	invPath := filepath.Join(tmpDir, "inventory.yaml")

	yamlContent := `
rooms:
  - id: 1
    name: "Camera 1"
    sort_order: 1
    beds:
      - id: 11
        name: "Letto 1"
        price_bb: 50
        price_hb: 65
guest_rules:
  - id: 1
    label: "Adulti"
    discount_percent: 0
    city_tax: true
    city_tax_amount: 2.5
privacy_tiers: [20, 15, 10]
`
	if err := os.WriteFile(invPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp inventory: %v", err)
	}

	inv, err := LoadInventory(invPath)
	if err != nil {
		t.Fatalf("failed to load inventory: %v", err)
	}

	if len(inv.Rooms) != 1 || inv.Rooms[0].Beds[0].PriceHB != 65 {
		t.Errorf("unexpected rooms: %+v", inv.Rooms)
	}
	if len(inv.PrivacyTiers) != 3 || inv.PrivacyTiers[0] != 20 {
		t.Errorf("unexpected privacy tiers: %v", inv.PrivacyTiers)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Database:  DatabaseConfig{Path: "path"},
				Inventory: InventoryConfig{Path: "inv.yaml"},
			},
			wantErr: false,
		},
		{
			name: "missing database path",
			cfg: Config{
				Inventory: InventoryConfig{Path: "inv.yaml"},
			},
			wantErr: true,
		},
		{
			name: "missing inventory path",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
			},
			wantErr: true,
		},
		{
			name: "negative hold ttl",
			cfg: Config{
				Database:  DatabaseConfig{Path: "path"},
				Inventory: InventoryConfig{Path: "inv.yaml"},
				Hold:      HoldConfig{TTLSeconds: -1},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.API.HTTP.Port != 8080 {
		t.Errorf("expected default HTTP port 8080, got %d", cfg.API.HTTP.Port)
	}
	if cfg.Hold.TTLSeconds != models.DefaultHoldTTL {
		t.Errorf("expected default hold ttl %d, got %d", models.DefaultHoldTTL, cfg.Hold.TTLSeconds)
	}
	if cfg.Hold.SweepSchedule != models.DefaultSweepSchedule {
		t.Errorf("expected default sweep schedule %s, got %s", models.DefaultSweepSchedule, cfg.Hold.SweepSchedule)
	}
	if cfg.Booking.MaxAdvanceDays != models.DefaultMaxAdvanceDays {
		t.Errorf("expected default advance days %d, got %d", models.DefaultMaxAdvanceDays, cfg.Booking.MaxAdvanceDays)
	}
}

func TestValidateInventory(t *testing.T) {
	validRoom := models.Room{
		ID:   1,
		Name: "Camera 1",
		Beds: []models.Bed{{ID: 11, Name: "Letto 1", PriceBB: 50, PriceHB: 65}},
	}

	tests := []struct {
		name    string
		inv     Inventory
		wantErr bool
	}{
		{
			name: "valid inventory",
			inv: Inventory{
				Rooms:      []models.Room{validRoom},
				GuestRules: []models.GuestTypeRule{{ID: 1, Label: "Adulti"}},
			},
			wantErr: false,
		},
		{
			name:    "no rooms",
			inv:     Inventory{},
			wantErr: true,
		},
		{
			name: "duplicate bed id across rooms",
			inv: Inventory{
				Rooms: []models.Room{
					validRoom,
					{ID: 2, Name: "Camera 2", Beds: []models.Bed{{ID: 11, Name: "Letto X"}}},
				},
			},
			wantErr: true,
		},
		{
			name: "duplicate guest rule label",
			inv: Inventory{
				Rooms: []models.Room{validRoom},
				GuestRules: []models.GuestTypeRule{
					{ID: 1, Label: "Adulti"},
					{ID: 2, Label: "Adulti"},
				},
			},
			wantErr: true,
		},
		{
			name: "discount over 100",
			inv: Inventory{
				Rooms:      []models.Room{validRoom},
				GuestRules: []models.GuestTypeRule{{ID: 1, Label: "Bambini", DiscountPercent: 120}},
			},
			wantErr: true,
		},
		{
			name: "negative privacy tier",
			inv: Inventory{
				Rooms:        []models.Room{validRoom},
				PrivacyTiers: []float64{20, -5},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInventory(&tt.inv)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateInventory() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
