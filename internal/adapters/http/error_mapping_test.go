package httpadapter

import (
	"errors"
	"net/http"
	"testing"

	"github.com/invopilot/docflow/internal/core/domain"
)

func TestMapErrorToHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid filter", domain.WrapError(domain.ErrInvalidFilter, "parse", errors.New("lo > hi")), http.StatusBadRequest},
		{"invalid input", domain.WrapError(domain.ErrInvalidInput, "decode", errors.New("bad json")), http.StatusBadRequest},
		{"not found", domain.WrapError(domain.ErrNotFound, "load", errors.New("gone")), http.StatusNotFound},
		{"illegal transition", domain.WrapError(domain.ErrIllegalTransition, "guard", errors.New("archived")), http.StatusConflict},
		{"stale transition", domain.WrapError(domain.ErrStaleTransition, "check", errors.New("moved")), http.StatusConflict},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := mapErrorToHTTPStatus(tc.err); got != tc.want {
				t.Fatalf("mapErrorToHTTPStatus() = %d, want %d", got, tc.want)
			}
		})
	}
}
