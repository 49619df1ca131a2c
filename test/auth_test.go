package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/devpystudio/backend/internal/misc"

	"github.com/stretchr/testify/require"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *IntegrationTestSuite) doLogin(ctx context.Context) string {
	loginReq := loginRequest{
		Username: testUsername,
		Password: testPassword,
	}
	loginReqJson, err := json.Marshal(loginReq)
	require.NoError(s.T(), err)

	req, err := http.NewRequestWithContext(
		ctx,
		"POST", fmt.Sprintf("%s/api/admin/login", serverEndpoint),
		bytes.NewBuffer(loginReqJson),
	)
	require.NoError(s.T(), err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err)
	require.NotEmpty(s.T(), respBytes)

	var loginResp misc.LoginResponse
	require.NoError(s.T(), json.Unmarshal(respBytes, &loginResp))
	require.True(s.T(), loginResp.Success)
	require.NotEmpty(s.T(), loginResp.Token)

	return loginResp.Token
}
