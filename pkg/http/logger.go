package http

import (
	"go.uber.org/zap"

	"weather-inference/pkg/log"
)

// HTTPLogger receives the lifecycle events of every request sent by a Client.
type HTTPLogger interface {
	// LogRequest is called before each attempt is sent
	LogRequest(method, url string)

	// LogResponseSuccess is called after a 2xx response
	LogResponseSuccess(method, url string, httpStatus int)

	// LogResponseError is called after a non 2xx response or a transport failure
	LogResponseError(method, url string, httpStatus int, err error)

	// LogRequestRetry is called when backoff exists and a retry attempt is about to be made
	LogRequestRetry(method, url string, httpStatus int, latency int64, err error, retryCount, maxRetries int)
}

type zapHTTPLogger struct{}

// NewZapHTTPLogger logs through the application logger. Query strings are
// not logged since they may carry API keys.
func NewZapHTTPLogger() HTTPLogger {
	return zapHTTPLogger{}
}

func (zapHTTPLogger) LogRequest(method, url string) {
	log.Debug("http request", zap.String("method", method), zap.String("url", redact(url)))
}

func (zapHTTPLogger) LogResponseSuccess(method, url string, httpStatus int) {
	log.Debug("http response",
		zap.String("method", method),
		zap.String("url", redact(url)),
		zap.Int("status", httpStatus))
}

func (zapHTTPLogger) LogResponseError(method, url string, httpStatus int, err error) {
	log.Warn("http request failed",
		zap.String("method", method),
		zap.String("url", redact(url)),
		zap.Int("status", httpStatus),
		zap.Error(err))
}

func (zapHTTPLogger) LogRequestRetry(method, url string, httpStatus int, latency int64, err error, retryCount, maxRetries int) {
	log.Warn("http request retry",
		zap.String("method", method),
		zap.String("url", redact(url)),
		zap.Int("status", httpStatus),
		zap.Int64("latency_ms", latency),
		zap.Int("retry", retryCount),
		zap.Int("max_retries", maxRetries),
		zap.Error(err))
}

func redact(url string) string {
	for i := 0; i < len(url); i++ {
		if url[i] == '?' {
			return url[:i]
		}
	}
	return url
}
