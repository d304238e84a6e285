package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"agritrace/internal/service"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("get batch: %w", service.ErrNotFound), http.StatusNotFound},
		{service.ErrValidation, http.StatusBadRequest},
		{service.ErrInvalidTransition, http.StatusBadRequest},
		{service.ErrUnauthorized, http.StatusUnauthorized},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrConflict, http.StatusConflict},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusOf(tc.err), tc.err.Error())
	}
}
