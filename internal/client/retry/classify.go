package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// StatusCoder is implemented by errors carrying an HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// BodyCarrier is implemented by errors that kept the raw response body, used to
// spot edge/gateway error pages served in place of the JSON envelope.
type BodyCarrier interface {
	RawBody() string
}

// gatewayMarkers appear in error pages produced by CDNs and function gateways
// rather than by the backend itself.
var gatewayMarkers = []string{
	"<!doctype html",
	"<html",
	"cloudflare",
	"cf-ray",
	"bad gateway",
	"gateway timeout",
	"service unavailable",
	"worker_limit",
	"function invocation failed",
	"boot_error",
	"upstream connect error",
}

// IsRetryable is the default classifier. Transport failures, 5xx, 408, 429
// and gateway error pages are retryable; other statuses and cancellation are
// not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		switch code := sc.HTTPStatus(); {
		case code >= 500:
			return true
		case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
			return true
		case code >= 400:
			var bc BodyCarrier
			return errors.As(err, &bc) && isGatewayPage(bc.RawBody())
		}
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "network error") || isGatewayPage(msg)
}

func isGatewayPage(body string) bool {
	body = strings.ToLower(body)
	for _, m := range gatewayMarkers {
		if strings.Contains(body, m) {
			return true
		}
	}
	return false
}
