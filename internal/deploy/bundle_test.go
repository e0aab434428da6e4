package deploy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actionsflow/internal/auth0/auth0test"
	"actionsflow/internal/deploy"
)

func TestBundleRendersConfiguredNames(t *testing.T) {
	_, m := newManager(t)

	b, err := m.Bundle(deploy.BundleNamePostLogin)
	require.NoError(t, err)

	assert.Equal(t, "acme-post-login.js", b.Filename)
	assert.Contains(t, b.Code, "event.secrets['CALLBACK_URL']")
	assert.Contains(t, b.Code, "event.secrets['CALLBACK_API_KEY']")
	assert.Contains(t, b.Code, "acme_enrollment")
	assert.Contains(t, b.Code, "https://acme.example/")
	assert.NotEmpty(t, b.Instructions)

	secretNames := make([]string, 0, len(b.Secrets))
	for _, s := range b.Secrets {
		secretNames = append(secretNames, s.Name)
	}
	assert.ElementsMatch(t, []string{"CALLBACK_URL", "CALLBACK_API_KEY", "TIMEOUT_MS"}, secretNames)
}

func TestBundleCustomSecretNames(t *testing.T) {
	s := newManagerConfig(t, deploy.Config{
		ActionNamePrefix:         "x-",
		CallbackURL:              "https://cb.example",
		CallbackURLSecretName:    "HOOK_URL",
		CallbackAPIKeySecretName: "HOOK_KEY",
	})

	b, err := s.Bundle(deploy.BundleNamePostLogin)
	require.NoError(t, err)
	assert.Contains(t, b.Code, "event.secrets['HOOK_URL']")
	assert.Contains(t, b.Code, "event.secrets['HOOK_KEY']")
}

func TestBundleUnknownName(t *testing.T) {
	_, m := newManager(t)

	_, err := m.Bundle("pre-registration")
	require.ErrorIs(t, err, deploy.ErrUnknownBundle)
	assert.Contains(t, err.Error(), "pre-registration")
}

func newManagerConfig(t *testing.T, cfg deploy.Config) *deploy.Manager {
	t.Helper()
	return deploy.NewManager(auth0test.NewServer(t).Client(), cfg)
}
