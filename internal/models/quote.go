package models

// Quote is the cost breakdown produced by the price calculator.
type Quote struct {
	Subtotal   float64 `json:"subtotal"`
	AddOnTotal float64 `json:"add_on_total"`
	Discount   float64 `json:"discount"`
	Total      float64 `json:"total"`
}

// AddOn is a flat-fee extra attached to a booking.
type AddOn struct {
	Code string  `yaml:"code"`
	Name string  `yaml:"name"`
	Fee  float64 `yaml:"fee"`
}

// Availability describes free start labels for a zone on a date.
type Availability struct {
	ZoneID    int64    `json:"zone_id"`
	ZoneName  string   `json:"zone_name"`
	Date      string   `json:"date"`
	FreeSlots []string `json:"free_slots"`
}
