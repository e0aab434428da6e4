package deploy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actionsflow/internal/auth0"
	"actionsflow/internal/auth0/auth0test"
	"actionsflow/internal/deploy"
)

func newManager(t *testing.T) (*auth0test.Server, *deploy.Manager) {
	t.Helper()
	s := auth0test.NewServer(t)
	m := deploy.NewManager(s.Client(), deploy.Config{
		ActionNamePrefix: "acme-",
		MetadataKey:      "acme_enrollment",
		ClaimsNamespace:  "https://acme.example/",
		CallbackURL:      "https://verify.acme.example/hook",
		CallbackAPIKey:   "cb-key",
	})
	return s, m
}

func TestDeployTwiceConvergesOnOneAction(t *testing.T) {
	s, m := newManager(t)
	ctx := context.Background()

	first := m.Deploy(ctx, deploy.Options{})
	require.True(t, first.Success, first.Error)
	require.NotEmpty(t, first.ActionID)
	assert.True(t, first.Deployed)
	assert.Equal(t, 1, s.Calls["create"])
	assert.Equal(t, 0, s.Calls["update"])
	assert.Equal(t, 1, s.Calls["deploy"])

	second := m.Deploy(ctx, deploy.Options{})
	require.True(t, second.Success, second.Error)
	assert.Equal(t, first.ActionID, second.ActionID)
	assert.Equal(t, 1, s.Calls["create"], "second deploy must update, not create a duplicate")
	assert.Equal(t, 1, s.Calls["update"])
	assert.Len(t, s.Actions, 1)
}

func TestDeployRendersNameAndSecrets(t *testing.T) {
	s, m := newManager(t)

	res := m.Deploy(context.Background(), deploy.Options{SkipEnrollment: true})
	require.True(t, res.Success, res.Error)
	require.Len(t, s.Actions, 1)

	a := s.Actions[0]
	assert.Equal(t, "acme-post-login", a.Name)
	assert.Equal(t, "node18", a.Runtime)
	require.Len(t, a.SupportedTriggers, 1)
	assert.Equal(t, "post-login", a.SupportedTriggers[0].ID)

	names := map[string]string{}
	for _, sec := range a.Secrets {
		names[sec.Name] = sec.Value
	}
	assert.Equal(t, "https://verify.acme.example/hook", names["CALLBACK_URL"])
	assert.Equal(t, "cb-key", names["CALLBACK_API_KEY"])
	assert.Equal(t, "5000", names["TIMEOUT_MS"])
	assert.Equal(t, "true", names["SKIP_ENROLLMENT"])
	_, hasDeviceFlag := names["SKIP_DEVICE_CHECK"]
	assert.False(t, hasDeviceFlag, "flag must only appear when the option is set")
}

func TestDeployFailureReturnsEnvelope(t *testing.T) {
	s, m := newManager(t)
	s.TokenStatus = 500

	res := m.Deploy(context.Background(), deploy.Options{})
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestUndeployMissingIsIdempotentNoOp(t *testing.T) {
	s, m := newManager(t)

	res := m.Undeploy(context.Background())
	assert.True(t, res.Success)
	assert.False(t, res.Deployed)
	assert.Empty(t, res.Error)
	assert.Equal(t, 0, s.Calls["getBindings"])
	assert.Equal(t, 0, s.Calls["setBindings"])
	assert.Equal(t, 0, s.Calls["delete"])
}

func TestUndeployRemovesBindingThenDeletes(t *testing.T) {
	s, m := newManager(t)
	other := s.AddAction(auth0.Action{Name: "other"})
	ours := s.AddAction(auth0.Action{Name: "acme-post-login"})
	s.AddBinding(other.ID, other.Name, "Other")
	s.AddBinding(ours.ID, ours.Name, "Ours")

	res := m.Undeploy(context.Background())
	require.True(t, res.Success, res.Error)
	assert.False(t, res.Deployed)

	assert.Equal(t, 1, s.Calls["setBindings"])
	require.Len(t, s.LastSetBindings, 1)
	assert.Equal(t, other.ID, s.LastSetBindings[0].Ref.Value)

	assert.Equal(t, 1, s.Calls["delete"])
	require.Len(t, s.Actions, 1)
	assert.Equal(t, "other", s.Actions[0].Name)
}

func TestUndeploySkipsBindingWriteWhenNotBound(t *testing.T) {
	s, m := newManager(t)
	other := s.AddAction(auth0.Action{Name: "other"})
	s.AddAction(auth0.Action{Name: "acme-post-login"})
	s.AddBinding(other.ID, other.Name, "Other")

	res := m.Undeploy(context.Background())
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 0, s.Calls["setBindings"], "unchanged binding list must not be written back")
	assert.Equal(t, 1, s.Calls["delete"])
}

func TestListDeployedFiltersByPrefix(t *testing.T) {
	s, m := newManager(t)
	s.AddAction(auth0.Action{Name: "acme-post-login"})
	s.AddAction(auth0.Action{Name: "unrelated"})

	got, err := m.ListDeployed(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "acme-post-login", got[0].Name)
}
