package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeFromStatus(t *testing.T) {
	cases := map[int]Code{
		400: CodeBadRequest,
		401: CodeUnauthorized,
		403: CodeForbidden,
		404: CodeNotFound,
		409: CodeBadRequest,
		429: CodeRateLimit,
		500: CodeServerError,
		503: CodeServerError,
	}
	for status, want := range cases {
		if got := CodeFromStatus(status); got != want {
			t.Errorf("status %d: expected %s, got %s", status, want, got)
		}
	}
}

func TestCodeOfUnwrapsChain(t *testing.T) {
	base := errors.New("dial tcp: refused")
	err := fmt.Errorf("list stations: %w", Network(base))

	if KindOf(err) != KindNetwork {
		t.Fatalf("expected network kind, got %q", KindOf(err))
	}
	if !HasCode(err, CodeNetworkError) {
		t.Fatalf("expected network code, got %q", CodeOf(err))
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected cause to be reachable")
	}
	if CodeOf(base) != "" {
		t.Fatalf("plain errors have no code")
	}
}

func TestFromStatusDefaultsMessage(t *testing.T) {
	err := FromStatus(404, "")
	if err.Message != "Not Found" {
		t.Fatalf("expected status text, got %q", err.Message)
	}
	if err.Kind != KindAPI || err.Status != 404 {
		t.Fatalf("unexpected error %+v", err)
	}
}
