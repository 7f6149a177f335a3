package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type staticTokenProvider struct {
	token *oauth2.Token
}

func (p staticTokenProvider) GetTokenForAccount(_ context.Context, _ string) (*oauth2.Token, error) {
	return p.token, nil
}

func (p staticTokenProvider) HasTokenForAccount(_ string) bool {
	return p.token != nil
}

func TestGetHTTPClient_UsesProviderToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer server.Close()

	provider := staticTokenProvider{token: &oauth2.Token{
		AccessToken: "injected-token",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}}

	client, err := GetHTTPClient(context.Background(), provider, "test")
	require.NoError(t, err)

	res, err := client.Get(server.URL)
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()

	assert.Equal(t, "Bearer injected-token", gotAuth)
}

func TestFileTokenProvider_HasTokenForAccount(t *testing.T) {
	cacheDir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cacheDir)

	provider := NewFileTokenProvider()
	assert.False(t, provider.HasTokenForAccount("default"))

	tokenFile := filepath.Join(cacheDir, "feierabend", "default.token")
	require.NoError(t, os.MkdirAll(filepath.Dir(tokenFile), 0700))
	require.NoError(t, os.WriteFile(tokenFile, []byte("access refresh"), 0600))

	assert.True(t, provider.HasTokenForAccount("default"))
	assert.False(t, provider.HasTokenForAccount("other"))
}
