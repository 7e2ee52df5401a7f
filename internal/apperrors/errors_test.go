package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("campo faltando"), http.StatusBadRequest},
		{Authentication("sessão inválida"), http.StatusUnauthorized},
		{Authorization("sem permissão"), http.StatusForbidden},
		{NotFound("não existe"), http.StatusNotFound},
		{Upstream("provider fora", nil), http.StatusBadGateway},
		{Transient("timeout", nil), http.StatusBadGateway},
		{Configuration("tipo inválido"), http.StatusInternalServerError},
		{errors.New("qualquer coisa"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestKindOfAtravessaWrap(t *testing.T) {
	inner := Authentication("token expirado")
	wrapped := fmt.Errorf("login: %w", inner)

	kind, ok := KindOf(wrapped)
	if !ok || kind != KindAuthentication {
		t.Errorf("KindOf = %v, %v", kind, ok)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Transient("falha na chamada", cause)
	if !errors.Is(err, cause) {
		t.Error("wrapped cause must survive errors.Is")
	}
}
