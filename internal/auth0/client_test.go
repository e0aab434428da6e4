package auth0_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actionsflow/internal/auth0"
	"actionsflow/internal/auth0/auth0test"
)

func TestAccessTokenCachedWithinLifetime(t *testing.T) {
	s := auth0test.NewServer(t)
	c := s.Client()

	tok1, err := c.AccessToken(context.Background())
	require.NoError(t, err)
	tok2, err := c.AccessToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, tok1, tok2)
	assert.Equal(t, 1, s.Calls["token"], "second call within lifetime must not hit the token endpoint")
}

func TestAccessTokenRefetchedAfterExpiry(t *testing.T) {
	s := auth0test.NewServer(t)
	s.ExpiresIn = -1 // already expired when issued
	c := s.Client()

	_, err := c.AccessToken(context.Background())
	require.NoError(t, err)
	_, err = c.AccessToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, s.Calls["token"])
}

func TestAccessTokenAuthenticationError(t *testing.T) {
	s := auth0test.NewServer(t)
	s.TokenStatus = 401
	c := s.Client()

	_, err := c.AccessToken(context.Background())
	require.Error(t, err)

	var authErr *auth0.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 401, authErr.Status)
	assert.Contains(t, authErr.Body, "access_denied")
	assert.NotContains(t, err.Error(), "fake-client-secret")
}

func TestAccessTokenErrorBodyTruncated(t *testing.T) {
	s := auth0test.NewServer(t)
	s.TokenStatus = 500
	s.TokenBody = strings.Repeat("x", 4096)
	c := s.Client()

	_, err := c.AccessToken(context.Background())
	var authErr *auth0.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.LessOrEqual(t, len(authErr.Body), 512+len("..."))
}

func TestAPIRequestErrorCarriesStatusAndBody(t *testing.T) {
	s := auth0test.NewServer(t)
	c := s.Client()

	err := c.DeleteAction(context.Background(), "missing")
	require.Error(t, err)

	var apiErr *auth0.APIRequestError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 404, apiErr.Status)
	assert.Equal(t, "DELETE", apiErr.Method)
	assert.Contains(t, apiErr.Body, "not found")
}

func TestDeleteActionToleratesNoContent(t *testing.T) {
	s := auth0test.NewServer(t)
	a := s.AddAction(auth0.Action{Name: "doomed"})
	c := s.Client()

	require.NoError(t, c.DeleteAction(context.Background(), a.ID))
	assert.Empty(t, s.Actions)
}

func TestCreateUpdateList(t *testing.T) {
	s := auth0test.NewServer(t)
	c := s.Client()
	ctx := context.Background()

	created, err := c.CreateAction(ctx, auth0.Action{Name: "one", Code: "c1"})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	updated, err := c.UpdateAction(ctx, created.ID, auth0.Action{Name: "one", Code: "c2"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "c2", updated.Code)

	list, err := c.ListActions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "c2", list[0].Code)
}

func TestSetTriggerBindingsRoundTrip(t *testing.T) {
	s := auth0test.NewServer(t)
	a := s.AddAction(auth0.Action{Name: "bound-action"})
	c := s.Client()
	ctx := context.Background()

	out, err := c.SetTriggerBindings(ctx, "post-login", []auth0.BindingEntry{
		{Ref: auth0.BindingRef{Type: auth0.RefTypeActionID, Value: a.ID}, DisplayName: "First"},
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, a.ID, out[0].Action.ID)
	assert.Equal(t, "bound-action", out[0].Action.Name)
	assert.Equal(t, "First", out[0].DisplayName)

	got, err := c.TriggerBindings(ctx, "post-login")
	require.NoError(t, err)
	assert.Equal(t, out, got)
}

func TestTestConnection(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := auth0test.NewServer(t)
		res := s.Client().TestConnection(context.Background())
		assert.True(t, res.Success)
		assert.Empty(t, res.Error)
	})

	t.Run("token endpoint rejects", func(t *testing.T) {
		s := auth0test.NewServer(t)
		s.TokenStatus = 401
		res := s.Client().TestConnection(context.Background())
		assert.False(t, res.Success)
		assert.NotEmpty(t, res.Error)
	})
}
