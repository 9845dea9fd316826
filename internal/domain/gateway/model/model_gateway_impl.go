package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"weather-inference/internal/domain/entity"
	"weather-inference/internal/domain/feature"
	"weather-inference/internal/domain/model/external"
	"weather-inference/pkg/http"
	"weather-inference/pkg/util/numberutils"
)

// servingGatewayImpl resolves model URIs to MLflow scoring servers
type servingGatewayImpl struct {
	defaultClient *http.Client
	clients       map[string]*http.Client
}

// NewModelGateway creates a Gateway. Every model URI is served from
// defaultBaseUrl unless endpoints maps it to its own scoring server.
func NewModelGateway(defaultBaseUrl string, endpoints map[string]string, clientOptions http.ClientOptions) Gateway {
	gateway := &servingGatewayImpl{
		clients: make(map[string]*http.Client, len(endpoints)),
	}
	if defaultBaseUrl != "" {
		gateway.defaultClient = http.NewHttpClient(defaultBaseUrl, clientOptions)
	}
	for uri, baseUrl := range endpoints {
		gateway.clients[uri] = http.NewHttpClient(baseUrl, clientOptions)
	}
	return gateway
}

// Load checks the scoring server is up through GET /ping
func (s *servingGatewayImpl) Load(ctx context.Context, uri string) (Predictor, error) {
	client, ok := s.clients[uri]
	if !ok {
		client = s.defaultClient
	}
	if client == nil {
		return nil, &entity.ModelLoadError{ModelURI: uri, Err: errors.New("no scoring server configured")}
	}

	_, _, _, err := client.Request().
		WithContext(ctx).
		WithMethod(http.GET).
		WithPath("/ping").
		Execute()
	if err != nil {
		return nil, &entity.ModelLoadError{ModelURI: uri, Err: err}
	}

	return &servingPredictor{uri: uri, httpClient: client}, nil
}

type servingPredictor struct {
	uri        string
	httpClient *http.Client
}

func (p *servingPredictor) URI() string {
	return p.uri
}

// Predict posts a one row dataframe_split to /invocations
func (p *servingPredictor) Predict(ctx context.Context, vector feature.Vector) (int, error) {
	var body []byte
	_, errResp, _, err := p.httpClient.Request().
		WithContext(ctx).
		WithMethod(http.POST).
		WithPath("/invocations").
		WithBody(NewInvocationRequest(vector)).
		WithSuccessResp(&body).
		WithErrorResp(&external.MLflowErrorResponse{}).
		Execute()

	if err != nil {
		if errResp != nil {
			if errorResponse := errResp.(*external.MLflowErrorResponse); errorResponse.Message != "" {
				return 0, fmt.Errorf("predict %s: %s: %w", p.uri, errorResponse.Message, err)
			}
		}
		return 0, fmt.Errorf("predict %s: %w", p.uri, err)
	}

	return ParsePrediction(body)
}

// NewInvocationRequest encodes vector in the pandas split orientation
func NewInvocationRequest(vector feature.Vector) external.InvocationRequest {
	row := make([]*float64, feature.Size)
	for i, value := range vector {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			continue
		}
		v := value
		row[i] = &v
	}
	return external.InvocationRequest{
		DataframeSplit: external.DataframeSplit{
			Columns: feature.Names(),
			Data:    [][]*float64{row},
		},
	}
}

// ParsePrediction reads the first code from {"predictions": [...]} or a bare array.
// Float codes are truncated; anything that is not a JSON number is an error.
func ParsePrediction(body []byte) (int, error) {
	trimmed := bytes.TrimSpace(body)

	var predictions []json.RawMessage
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope struct {
			Predictions []json.RawMessage `json:"predictions"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return 0, fmt.Errorf("decode prediction: %w", err)
		}
		predictions = envelope.Predictions
	} else if err := json.Unmarshal(trimmed, &predictions); err != nil {
		return 0, fmt.Errorf("decode prediction: %w", err)
	}

	if len(predictions) == 0 {
		return 0, errors.New("model returned no prediction")
	}

	var value float64
	if err := json.Unmarshal(predictions[0], &value); err != nil {
		return 0, fmt.Errorf("prediction %s is not numeric", string(predictions[0]))
	}
	code, ok := numberutils.FloatToInt64(value)
	if !ok {
		return 0, fmt.Errorf("prediction %v is out of range", value)
	}
	return int(code), nil
}
