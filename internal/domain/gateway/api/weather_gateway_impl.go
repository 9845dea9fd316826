package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"
	"strconv"

	"weather-inference/internal/domain/entity"
	"weather-inference/internal/domain/model/external"
	"weather-inference/pkg/http"
)

// weatherGatewayImpl implements the WeatherGateway interface against OpenWeather
type weatherGatewayImpl struct {
	httpClient *http.Client
	apiKey     string
	units      string
}

// NewWeatherGateway creates a new instance of WeatherGateway with HTTP client
func NewWeatherGateway(baseUrl, apiKey, units string, clientOptions http.ClientOptions) WeatherGateway {
	if units == "" {
		units = "metric"
	}
	return &weatherGatewayImpl{
		httpClient: http.NewHttpClient(baseUrl, clientOptions),
		apiKey:     apiKey,
		units:      units,
	}
}

// Fetch gets the current weather through GET /data/2.5/weather
func (w *weatherGatewayImpl) Fetch(ctx context.Context, location entity.Location) (*external.Observation, error) {
	successResp, _, status, err := w.httpClient.Request().
		WithContext(ctx).
		WithMethod(http.GET).
		WithPath("/data/2.5/weather").
		WithQueryParams(map[string]string{
			"lat":   strconv.FormatFloat(location.Latitude, 'f', -1, 64),
			"lon":   strconv.FormatFloat(location.Longitude, 'f', -1, 64),
			"appid": w.apiKey,
			"units": w.units,
		}).
		WithSuccessResp(&[]byte{}).
		Execute()

	if err != nil {
		var statusErr *http.StatusError
		if errors.As(err, &statusErr) {
			return nil, &entity.UpstreamFetchError{StatusCode: statusErr.StatusCode, Body: statusErr.Body, Err: err}
		}
		return nil, &entity.UpstreamFetchError{StatusCode: status, Err: err}
	}

	var body []byte
	if raw, ok := successResp.(*[]byte); ok && raw != nil {
		body = *raw
	}
	if status != nethttp.StatusOK {
		return nil, &entity.UpstreamFetchError{StatusCode: status, Body: string(body), Err: fmt.Errorf("unexpected status %d", status)}
	}
	if len(body) == 0 {
		return nil, &entity.UpstreamFetchError{StatusCode: status, Err: errors.New("empty response")}
	}

	observation := &external.Observation{}
	if err := json.Unmarshal(body, observation); err != nil {
		return nil, &entity.UpstreamFetchError{StatusCode: status, Body: string(body), Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return observation, nil
}
