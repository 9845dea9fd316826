package entity

// Location is a configured point for which a prediction is produced every run.
// Locations are loaded once at startup and never mutated; the name is the identity.
type Location struct {
	Name      string  `json:"name" mapstructure:"name" validate:"required"`
	Latitude  float64 `json:"lat" mapstructure:"lat" validate:"latitude"`
	Longitude float64 `json:"lon" mapstructure:"lon" validate:"longitude"`
}
