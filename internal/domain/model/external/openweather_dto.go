package external

import "weather-inference/pkg/util/numberutils"

// Observation is the OpenWeather current-weather payload. Numeric members are
// kept lenient because the upstream is untrusted and may omit or mistype them.
type Observation struct {
	Dt         numberutils.Lenient `json:"dt"`
	Main       ObservationMain     `json:"main"`
	Clouds     ObservationClouds   `json:"clouds"`
	Visibility numberutils.Lenient `json:"visibility"`
	Wind       ObservationWind     `json:"wind"`
	Rain       *ObservationRain    `json:"rain,omitempty"`
	Weather    []ObservationLabel  `json:"weather,omitempty"`
	Name       string              `json:"name,omitempty"`
}

// ObservationMain holds the thermodynamic readings.
type ObservationMain struct {
	Temp      numberutils.Lenient `json:"temp"`
	FeelsLike numberutils.Lenient `json:"feels_like"`
	Pressure  numberutils.Lenient `json:"pressure"`
	Humidity  numberutils.Lenient `json:"humidity"`
}

// ObservationClouds holds cloud cover in percent.
type ObservationClouds struct {
	All numberutils.Lenient `json:"all"`
}

// ObservationWind holds the wind vector.
type ObservationWind struct {
	Speed numberutils.Lenient `json:"speed"`
	Deg   numberutils.Lenient `json:"deg"`
}

// ObservationRain is only present when it rained recently.
type ObservationRain struct {
	OneHour numberutils.Lenient `json:"1h"`
}

// ObservationLabel is the upstream's own condition, kept for logging only.
type ObservationLabel struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

// APIErrorResponse is the OpenWeather error body.
type APIErrorResponse struct {
	Cod     any    `json:"cod"`
	Message string `json:"message"`
}
