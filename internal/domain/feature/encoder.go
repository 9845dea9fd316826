// Package feature turns a raw weather observation into the ordered numeric
// vector the classifiers were trained on.
package feature

import (
	"math"
	"time"

	"weather-inference/internal/domain/entity"
	"weather-inference/internal/domain/model/external"
	"weather-inference/pkg/util/numberutils"
)

// Size is the number of features in a Vector.
const Size = 17

// names is the column order the models were trained with. Changing it makes
// the models silently mispredict.
var names = [Size]string{
	"temp", "feels_like", "pressure", "humidity", "clouds",
	"visibility", "wind_speed", "wind_deg", "rain_1h",
	"hour", "month", "weekday", "is_weekend",
	"hour_sin", "hour_cos", "month_sin", "month_cos",
}

// Index of each feature inside a Vector.
const (
	Temp = iota
	FeelsLike
	Pressure
	Humidity
	Clouds
	Visibility
	WindSpeed
	WindDeg
	Rain1h
	Hour
	Month
	Weekday
	IsWeekend
	HourSin
	HourCos
	MonthSin
	MonthCos
)

// Vector is the fixed-order feature vector. Values that could not be coerced are NaN.
type Vector [Size]float64

// Names returns the feature names in vector order.
func Names() []string {
	out := make([]string, Size)
	copy(out, names[:])
	return out
}

// Map pairs every feature name with its value, for logging.
func (v Vector) Map() map[string]float64 {
	out := make(map[string]float64, Size)
	for i, name := range names {
		out[name] = v[i]
	}
	return out
}

// Encode derives the feature vector from one observation. It only fails when
// the observation is nil or its timestamp is missing or not numeric; any other
// field that cannot be read as a number becomes NaN.
func Encode(raw *external.Observation) (Vector, error) {
	var v Vector
	if raw == nil {
		return v, &entity.MalformedObservationError{Field: "observation", Reason: "is nil"}
	}

	ts, err := timestamp(raw.Dt)
	if err != nil {
		return v, err
	}

	v[Temp] = raw.Main.Temp.Float64()
	v[FeelsLike] = raw.Main.FeelsLike.Float64()
	v[Pressure] = raw.Main.Pressure.Float64()
	v[Humidity] = raw.Main.Humidity.Float64()
	v[Clouds] = raw.Clouds.All.Float64()
	v[Visibility] = raw.Visibility.Float64OrDefault(0)
	v[WindSpeed] = raw.Wind.Speed.Float64()
	v[WindDeg] = raw.Wind.Deg.Float64()
	v[Rain1h] = 0
	if raw.Rain != nil {
		v[Rain1h] = raw.Rain.OneHour.Float64OrDefault(0)
	}

	hour := ts.Hour()
	month := int(ts.Month())
	weekday := isoWeekday(ts.Weekday())

	v[Hour] = float64(hour)
	v[Month] = float64(month)
	v[Weekday] = float64(weekday)
	if weekday >= 5 {
		v[IsWeekend] = 1
	}

	v[HourSin], v[HourCos] = cyclical(hour, 24)
	v[MonthSin], v[MonthCos] = cyclical(month, 12)

	return v, nil
}

// timestamp reads dt as Unix seconds in UTC
func timestamp(dt numberutils.Lenient) (time.Time, error) {
	if !dt.IsSet() {
		return time.Time{}, &entity.MalformedObservationError{Field: "dt", Reason: "is missing"}
	}
	seconds, ok := numberutils.FloatToInt64(dt.Float64())
	if !ok {
		return time.Time{}, &entity.MalformedObservationError{Field: "dt", Reason: "is not a unix timestamp"}
	}
	return time.Unix(seconds, 0).UTC(), nil
}

// isoWeekday maps Sunday=0 to Monday=0..Sunday=6
func isoWeekday(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func cyclical(value, period int) (float64, float64) {
	angle := 2 * math.Pi * float64(value) / float64(period)
	return math.Sin(angle), math.Cos(angle)
}
