package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgegate/registry-auth/auth"
)

type tokenServiceStub struct {
	request  auth.TokenRequest
	response auth.TokenResponse
	err      error
}

func (s *tokenServiceStub) TokenHandler(_ context.Context, r auth.TokenRequest) (auth.TokenResponse, error) {
	s.request = r

	return s.response, s.err
}

func TestTokenServer_TokenHandler(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		stub := &tokenServiceStub{
			response: auth.TokenResponse{Token: "token", ExpiresIn: 300, IssuedAt: "2026-08-30T00:00:00Z"},
		}
		server := auth.TokenServer{Service: stub}

		request := httptest.NewRequest(
			http.MethodGet,
			"/token?service=container_registry&client_id=docker&offline_token=true&scope=repository:org/app:pull&scope=repository:org/other:push",
			nil,
		)
		request.SetBasicAuth("user", "password")

		recorder := httptest.NewRecorder()
		server.TokenHandler(recorder, request)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

		assert.Equal(t, auth.TokenRequest{
			Service:      "container_registry",
			ClientID:     "docker",
			OfflineToken: true,
			Scopes:       []string{"repository:org/app:pull", "repository:org/other:push"},
			Username:     "user",
			Password:     "password",
		}, stub.request)

		var response auth.TokenResponse

		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
		assert.Equal(t, stub.response, response)
	})

	t.Run("Anonymous", func(t *testing.T) {
		stub := &tokenServiceStub{}
		server := auth.TokenServer{Service: stub}

		request := httptest.NewRequest(http.MethodGet, "/token?service=container_registry", nil)

		server.TokenHandler(httptest.NewRecorder(), request)

		assert.True(t, stub.request.Anonymous)
		assert.Empty(t, stub.request.Username)
	})

	t.Run("UnknownParametersIgnored", func(t *testing.T) {
		stub := &tokenServiceStub{}
		server := auth.TokenServer{Service: stub}

		request := httptest.NewRequest(http.MethodGet, "/token?service=container_registry&unknown=1", nil)

		recorder := httptest.NewRecorder()
		server.TokenHandler(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("Errors", func(t *testing.T) {
		testCases := []struct {
			name     string
			err      error
			expected int
		}{
			{"InvalidScope", auth.ErrInvalidScope, http.StatusBadRequest},
			{"AuthenticationFailed", auth.ErrAuthenticationFailed, http.StatusUnauthorized},
			{"Unauthorized", auth.ErrUnauthorized, http.StatusForbidden},
			{"Internal", assert.AnError, http.StatusInternalServerError},
		}

		for _, testCase := range testCases {
			testCase := testCase

			t.Run(testCase.name, func(t *testing.T) {
				server := auth.TokenServer{Service: &tokenServiceStub{err: testCase.err}}

				request := httptest.NewRequest(http.MethodGet, "/token?service=container_registry", nil)

				recorder := httptest.NewRecorder()
				server.TokenHandler(recorder, request)

				assert.Equal(t, testCase.expected, recorder.Code)
			})
		}
	})
}
