package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeTokenProvider struct {
	token *oauth2.Token
	err   error
}

func (p fakeTokenProvider) GetTokenForAccount(_ context.Context, _ string) (*oauth2.Token, error) {
	return p.token, p.err
}

func (p fakeTokenProvider) HasTokenForAccount(_ string) bool {
	return p.token != nil
}

func TestNewServiceForAccount_InjectedTokenProvider(t *testing.T) {
	provider := fakeTokenProvider{token: &oauth2.Token{
		AccessToken: "injected-token",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}}

	svc, err := NewServiceForAccount(context.Background(), "test", WithTokenProvider(provider))

	require.NoError(t, err)
	require.NotNil(t, svc)
	assert.Equal(t, "test", svc.account)
}

func TestNewServiceForAccount_ProviderFailure(t *testing.T) {
	provider := fakeTokenProvider{err: errors.New("no token on disk")}

	svc, err := NewServiceForAccount(context.Background(), "test", WithTokenProvider(provider))

	assert.Nil(t, svc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no token on disk")
}
