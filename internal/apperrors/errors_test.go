package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusPerKind(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{NewAuthMissing(), http.StatusUnauthorized},
		{NewAuthUnknown(), http.StatusUnauthorized},
		{NewChannelDisabled("ch_1"), http.StatusForbidden},
		{NewInvalidRequest("model", "missing"), http.StatusBadRequest},
		{NewUpstreamTimeout(errors.New("deadline")), http.StatusGatewayTimeout},
		{NewUpstreamNetwork(errors.New("dial failed")), http.StatusGatewayTimeout},
		{NewTranslationUnsupported("response_format"), http.StatusUnprocessableEntity},
		{NewInternal(errors.New("boom")), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := c.err.HTTPStatus(); got != c.want {
			t.Errorf("%s.HTTPStatus() = %d, want %d", c.err.Kind, got, c.want)
		}
	}
}

func TestUpstreamErrorPassesThroughKnownStatus(t *testing.T) {
	e := NewUpstreamError(429, "rate limited")
	if got := e.HTTPStatus(); got != 429 {
		t.Errorf("HTTPStatus() = %d, want 429", got)
	}
}

func TestUpstreamErrorFallsBackToBadGatewayForUnknownStatus(t *testing.T) {
	e := NewUpstreamError(0, "connection reset")
	if got := e.HTTPStatus(); got != http.StatusBadGateway {
		t.Errorf("HTTPStatus() = %d, want 502", got)
	}
}

func TestAsUnwrapsWrappedError(t *testing.T) {
	inner := NewUpstreamTimeout(errors.New("deadline"))
	wrapped := fmt.Errorf("dispatch failed: %w", inner)

	got, ok := As(wrapped)
	if !ok {
		t.Fatal("As() = false, want true for a wrapped *Error")
	}
	if got.Kind != UpstreamTimeout {
		t.Errorf("As() Kind = %s, want upstream_timeout", got.Kind)
	}
}

func TestAsReturnsFalseForPlainError(t *testing.T) {
	if _, ok := As(errors.New("plain")); ok {
		t.Error("As() = true for a plain error, want false")
	}
}

func TestErrorIsMatchesByKindOnly(t *testing.T) {
	a := NewUpstreamTimeout(errors.New("first"))
	b := NewUpstreamTimeout(errors.New("second"))
	if !errors.Is(a, b) {
		t.Error("errors.Is() = false for two Errors of the same Kind, want true")
	}

	c := NewInternal(errors.New("third"))
	if errors.Is(a, c) {
		t.Error("errors.Is() = true across different Kinds, want false")
	}
}
