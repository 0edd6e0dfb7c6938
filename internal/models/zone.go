package models

import "time"

type Zone struct {
	ID              int64     `yaml:"id"`
	Name            string    `yaml:"name"`
	Description     string    `yaml:"description"`
	BaseRatePerHour float64   `yaml:"base_rate_per_hour"`
	OpenHour        int       `yaml:"open_hour"`
	CloseHour       int       `yaml:"close_hour"`
	DefaultDuration float64   `yaml:"default_duration_hours"`
	Capacity        int64     `yaml:"capacity"`
	SortOrder       int64     `yaml:"sort_order" json:"sort_order"`
	IsActive        bool      `yaml:"is_active" json:"is_active"`
	CreatedAt       time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt       time.Time `yaml:"updated_at" json:"updated_at"`
}

// SlotLabels returns the hourly start labels within operating hours.
func (z *Zone) SlotLabels() []string {
	if z.CloseHour <= z.OpenHour {
		return nil
	}
	labels := make([]string, 0, z.CloseHour-z.OpenHour)
	for h := z.OpenHour; h < z.CloseHour; h++ {
		labels = append(labels, MinuteLabel(h*60))
	}
	return labels
}
