package config

import (
	"os"
	"path/filepath"
	"testing"

	"splashpark/internal/models"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
app:
  name: "splashpark"
  environment: "test"
database:
  path: "test.db"
admin:
  username: "manager"
  password: "secret"
  token_secret: "jwt-secret"
zones:
  - id: 1
    name: "Splash Zone A"
    base_rate_per_hour: 40
    open_hour: 10
    close_hour: 18
coupons:
  - code: "CANADADAY"
    type: "percentage"
    discount: 50
    min_duration_hours: 2
    valid_until: "2025-06-01"
add_ons:
  - code: "towel"
    name: "Towel rental"
    fee: 3
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	// Mock .env file
	if err := os.WriteFile(".env", []byte(""), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	defer os.Remove(".env")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Admin.Username != "manager" {
		t.Errorf("expected admin username manager, got %s", cfg.Admin.Username)
	}
	if len(cfg.Zones) != 1 || cfg.Zones[0].ID != 1 {
		t.Errorf("expected 1 zone with ID 1")
	}
	if len(cfg.Coupons) != 1 || cfg.Coupons[0].Code != "CANADADAY" {
		t.Errorf("expected CANADADAY coupon")
	}
	if cfg.Zones[0].Capacity != 1 {
		t.Errorf("expected default zone capacity 1, got %d", cfg.Zones[0].Capacity)
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	t.Setenv("TEST_ADMIN_PASSWORD", "from-env")

	yamlContent := `
database:
  path: "test.db"
admin:
  username: "manager"
  password: "${TEST_ADMIN_PASSWORD}"
  token_secret: "jwt-secret"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Admin.Password != "from-env" {
		t.Errorf("expected password from env, got %s", cfg.Admin.Password)
	}
}

func TestValidateConfig(t *testing.T) {
	validAdmin := AdminConfig{Username: "manager", Password: "secret", TokenSecret: "jwt"}

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Admin:    validAdmin,
			},
			wantErr: false,
		},
		{
			name: "missing database path",
			cfg: Config{
				Admin: validAdmin,
			},
			wantErr: true,
		},
		{
			name: "missing admin credentials",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Admin:    AdminConfig{TokenSecret: "jwt"},
			},
			wantErr: true,
		},
		{
			name: "missing token secret",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Admin:    AdminConfig{Username: "manager", Password: "secret"},
			},
			wantErr: true,
		},
		{
			name: "duplicate zone id",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Admin:    validAdmin,
				Zones: []models.Zone{
					{ID: 1, Name: "A", OpenHour: 10, CloseHour: 18},
					{ID: 1, Name: "B", OpenHour: 10, CloseHour: 18},
				},
			},
			wantErr: true,
		},
		{
			name: "empty operating hours",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Admin:    validAdmin,
				Zones:    []models.Zone{{ID: 1, Name: "A", OpenHour: 18, CloseHour: 10}},
			},
			wantErr: true,
		},
		{
			name: "unknown coupon type",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Admin:    validAdmin,
				Coupons:  []models.Coupon{{Code: "X", Type: "bogus"}},
			},
			wantErr: true,
		},
		{
			name: "percentage out of range",
			cfg: Config{
				Database: DatabaseConfig{Path: "path"},
				Admin:    validAdmin,
				Coupons:  []models.Coupon{{Code: "X", Type: models.CouponTypePercentage, Discount: 150}},
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

	if cfg.API.Port != 8080 {
		t.Errorf("expected default API port 8080, got %d", cfg.API.Port)
	}
	if cfg.Admin.SessionHours != models.AdminSessionHours {
		t.Errorf("expected default session hours %d, got %d", models.AdminSessionHours, cfg.Admin.SessionHours)
	}
	if cfg.Booking.MaxBookingDays != models.MaxBookingDays {
		t.Errorf("expected default max booking days %d, got %d", models.MaxBookingDays, cfg.Booking.MaxBookingDays)
	}
	if cfg.Booking.DefaultDuration != models.DefaultSlotDurationHours {
		t.Errorf("expected default slot duration %v, got %v", models.DefaultSlotDurationHours, cfg.Booking.DefaultDuration)
	}
	if cfg.Notify.MaxRetries != 5 {
		t.Errorf("expected default notify retries 5, got %d", cfg.Notify.MaxRetries)
	}
}

func TestValidateCoupons(t *testing.T) {
	tests := []struct {
		name    string
		coupons []models.Coupon
		wantErr bool
	}{
		{
			name: "valid coupons",
			coupons: []models.Coupon{
				{Code: "TEN", Type: models.CouponTypePercentage, Discount: 10},
				{Code: "FREEPASS", Type: models.CouponTypeFree},
			},
			wantErr: false,
		},
		{
			name: "duplicate code",
			coupons: []models.Coupon{
				{Code: "TEN", Type: models.CouponTypePercentage, Discount: 10},
				{Code: "TEN", Type: models.CouponTypeFree},
			},
			wantErr: true,
		},
		{
			name:    "empty code",
			coupons: []models.Coupon{{Type: models.CouponTypeFree}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoupons(tt.coupons)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCoupons() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
