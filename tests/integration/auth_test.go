//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdminTokenExchange(t *testing.T) {
	env := SetupTestEnv(t)

	t.Run("valid admin key returns token", func(t *testing.T) {
		resp := DoRequest(t, env, "POST", "/api/v1/auth/token", map[string]string{"api_key": AdminAPIKey}, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		result := ParseResponse(t, resp)
		data := result["data"].(map[string]any)
		assert.NotEmpty(t, data["access_token"])
	})

	t.Run("wrong admin key is rejected", func(t *testing.T) {
		resp := DoRequest(t, env, "POST", "/api/v1/auth/token", map[string]string{"api_key": "wrong-key-but-long-enough!!"}, "")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("short key fails validation", func(t *testing.T) {
		resp := DoRequest(t, env, "POST", "/api/v1/auth/token", map[string]string{"api_key": "short"}, "")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAdminRoutesRequireToken(t *testing.T) {
	env := SetupTestEnv(t)

	t.Run("no token", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/provision/status", nil, "")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("garbage token", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/audit", nil, "not-a-jwt")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("valid token", func(t *testing.T) {
		token := AdminToken(t, env)
		resp := DoRequest(t, env, "GET", "/api/v1/provision/status", nil, token)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
