package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/devpystudio/backend/internal/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestLogin() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.T().Run("login with wrong credentials", func(t *testing.T) {
		loginReqJson, err := json.Marshal(loginRequest{
			Username: testUsername,
			Password: "not-the-password",
		})
		require.NoError(t, err)

		req, err := http.NewRequestWithContext(
			ctx,
			"POST", fmt.Sprintf("%s/api/admin/login", serverEndpoint),
			bytes.NewBuffer(loginReqJson),
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		assert.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	s.T().Run("login, then logout", func(t *testing.T) {
		authToken := s.doLogin(ctx)

		req, err := http.NewRequestWithContext(
			ctx,
			"POST", fmt.Sprintf("%s/api/admin/logout", serverEndpoint),
			nil,
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set(middleware.AuthTokenHeader, authToken)

		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		assert.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusOK, resp.StatusCode)

		// the token is dead now, admin routes are off limits again
		req, err = http.NewRequestWithContext(
			ctx,
			"GET", fmt.Sprintf("%s/api/admin/posts", serverEndpoint),
			nil,
		)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		req.Header.Set(middleware.AuthTokenHeader, authToken)

		resp, err = s.httpClient.Do(req)
		require.NoError(t, err)
		assert.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
