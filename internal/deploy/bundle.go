package deploy

import (
	"bytes"
	"errors"
	"fmt"
	"text/template"
)

// BundleNamePostLogin is the only bundle this manager renders.
const BundleNamePostLogin = "post-login"

// ErrUnknownBundle is returned by Bundle for any unsupported name.
var ErrUnknownBundle = errors.New("unknown action bundle")

// Bundle is a rendered action artifact: the source to upload plus the
// secret metadata an operator needs to install it by hand.
type Bundle struct {
	Filename     string       `json:"filename"`
	Code         string       `json:"code"`
	Secrets      []SecretSpec `json:"secrets"`
	Instructions string       `json:"instructions"`
}

// SecretSpec describes one secret the rendered action expects.
type SecretSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var actionTemplate = template.Must(template.New(BundleNamePostLogin).Parse(
	`exports.onExecutePostLogin = async (event, api) => {
  const callbackUrl = event.secrets['{{.CallbackURLSecretName}}'];
  const apiKey = event.secrets['{{.CallbackAPIKeySecretName}}'];
  const timeoutMs = Number(event.secrets['TIMEOUT_MS'] || '{{.DefaultTimeoutMS}}');
  const skipEnrollment = event.secrets['SKIP_ENROLLMENT'] === 'true';
  const skipDeviceCheck = event.secrets['SKIP_DEVICE_CHECK'] === 'true';

  const meta = (event.user.app_metadata || {})['{{.MetadataKey}}'];
  if (!meta && skipEnrollment) {
    return;
  }

  const controller = new AbortController();
  const timer = setTimeout(() => controller.abort(), timeoutMs);
  try {
    const res = await fetch(callbackUrl, {
      method: 'POST',
      signal: controller.signal,
      headers: {
        'Content-Type': 'application/json',
        'Authorization': 'Bearer ' + apiKey,
      },
      body: JSON.stringify({
        user_id: event.user.user_id,
        session_id: event.session ? event.session.id : null,
        metadata: meta || null,
        device_check: !skipDeviceCheck,
      }),
    });
    if (!res.ok) {
      api.access.deny('verification service rejected the login');
      return;
    }
    const outcome = await res.json();
    if (outcome.deny) {
      api.access.deny(outcome.reason || 'login denied');
      return;
    }
    if (outcome.claims) {
      for (const [key, value] of Object.entries(outcome.claims)) {
        api.idToken.setCustomClaim('{{.ClaimsNamespace}}' + key, value);
        api.accessToken.setCustomClaim('{{.ClaimsNamespace}}' + key, value);
      }
    }
  } catch (err) {
    api.access.deny('verification service unreachable');
  } finally {
    clearTimeout(timer);
  }
};
`))

// Bundle renders the named action bundle from the manager's configuration.
// Pure string work, no network call.
func (m *Manager) Bundle(name string) (Bundle, error) {
	if name != BundleNamePostLogin {
		return Bundle{}, fmt.Errorf("%w: %q", ErrUnknownBundle, name)
	}
	var buf bytes.Buffer
	if err := actionTemplate.Execute(&buf, m.cfg); err != nil {
		return Bundle{}, fmt.Errorf("render action code: %w", err)
	}
	return Bundle{
		Filename: m.actionName() + ".js",
		Code:     buf.String(),
		Secrets: []SecretSpec{
			{Name: m.cfg.CallbackURLSecretName, Description: "URL the action calls during login"},
			{Name: m.cfg.CallbackAPIKeySecretName, Description: "bearer key sent with each callback"},
			{Name: timeoutSecretName, Description: "callback timeout in milliseconds"},
		},
		Instructions: fmt.Sprintf(
			"Create a %s action named %q with the code above, configure the listed secrets, deploy it, then bind it to the %s trigger.",
			actionRuntime, m.actionName(), TriggerID),
	}, nil
}
