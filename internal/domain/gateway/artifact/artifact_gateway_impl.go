package artifact

import (
	"context"
	"errors"
	"fmt"

	"weather-inference/internal/domain/model/external"
	"weather-inference/pkg/http"
)

// mlflowArtifactGateway reads artifacts from an MLflow tracking server
type mlflowArtifactGateway struct {
	httpClient *http.Client
}

// NewArtifactGateway creates a Gateway backed by the tracking server at baseUrl
func NewArtifactGateway(baseUrl string, clientOptions http.ClientOptions) Gateway {
	return &mlflowArtifactGateway{
		httpClient: http.NewHttpClient(baseUrl, clientOptions),
	}
}

// Download fetches GET /get-artifact?path=<name>&run_uuid=<runID>
func (m *mlflowArtifactGateway) Download(ctx context.Context, runID, name string) ([]byte, error) {
	if runID == "" || name == "" {
		return nil, errors.New("run id and artifact name are required")
	}

	var body []byte
	_, errResp, status, err := m.httpClient.Request().
		WithContext(ctx).
		WithMethod(http.GET).
		WithPath("/get-artifact").
		WithQueryParams(map[string]string{
			"path":     name,
			"run_uuid": runID,
		}).
		WithSuccessResp(&body).
		WithErrorResp(&external.MLflowErrorResponse{}).
		Execute()

	if err == nil {
		if status == 404 || len(body) == 0 {
			return nil, fmt.Errorf("artifact %s not found for run %s", name, runID)
		}
		return body, nil
	}

	if errResp != nil {
		errorResponse := errResp.(*external.MLflowErrorResponse)
		if errorResponse.Message != "" {
			return nil, fmt.Errorf("artifact %s: %s: %w", name, errorResponse.Message, err)
		}
	}

	return nil, fmt.Errorf("artifact %s: %w", name, err)
}
