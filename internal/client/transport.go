package client

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// getRetrier retries GET requests and sends everything else once. Commands,
// writes and creates are not safe to repeat.
type getRetrier struct {
	retry http.RoundTripper
	plain http.RoundTripper
}

func (t getRetrier) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodGet {
		return t.retry.RoundTrip(req)
	}
	return t.plain.RoundTrip(req)
}

func newTransport(maxRetries int, waitMin, waitMax time.Duration, logger *zap.Logger) http.RoundTripper {
	plain := http.DefaultTransport.(*http.Transport).Clone()

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Transport: plain}
	rc.RetryMax = maxRetries
	rc.RetryWaitMin = waitMin
	rc.RetryWaitMax = waitMax
	rc.Logger = retryLogger{logger.Sugar()}
	// Hand the last response back instead of a generic "giving up" error so
	// callers see the server's status and message.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return getRetrier{
		retry: &retryablehttp.RoundTripper{Client: rc},
		plain: plain,
	}
}

// retryLogger adapts zap to retryablehttp.LeveledLogger.
type retryLogger struct {
	s *zap.SugaredLogger
}

func (l retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

func (l retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}

// Info is logged at debug level; retryablehttp logs every request at info.
func (l retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}
