package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHandleErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"not found", NotFound("course %s not found", "x"), http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", ErrUserNotFound), http.StatusNotFound},
		{"invalid argument", ErrInvalidQuestionIDs, http.StatusBadRequest},
		{"business rule", ErrMaxAttemptsExceeded, http.StatusBadRequest},
		{"already exists", ErrEmailRegistered, http.StatusBadRequest},
		{"unclassified", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleError(c, tc.err)

			assert.Equal(t, tc.code, w.Code)
			var resp Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.code, resp.Code)
		})
	}
}

func TestInternalErrorHidesMessage(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleError(c, errors.New("secret dsn leaked"))

	assert.NotContains(t, w.Body.String(), "secret dsn")
}

func TestErrorKinds(t *testing.T) {
	assert.True(t, errors.Is(ErrNoActiveSubmission, ErrNotFound))
	assert.True(t, errors.Is(ErrAssessmentInactive, ErrBusinessRule))
	assert.True(t, IsClientError(AlreadyExists("dup")))
	assert.False(t, IsClientError(errors.New("boom")))
	assert.Equal(t, "badge 7 missing", NotFound("badge %d missing", 7).Error())
}
