package auth0

import "fmt"

// maxErrorBody bounds how much of a remote response body is retained in an
// error message.
const maxErrorBody = 512

// AuthenticationError reports a token-endpoint rejection. Body is a
// truncated excerpt of the response; the client secret sent in the request
// is never part of it.
type AuthenticationError struct {
	Status int
	Body   string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("auth0: token request failed: http %d: %s", e.Status, e.Body)
}

// APIRequestError reports a non-2xx Management API response. The client
// never retries; callers decide what a given status means for them.
type APIRequestError struct {
	Status int
	Method string
	Path   string
	Body   string
}

func (e *APIRequestError) Error() string {
	return fmt.Sprintf("auth0: %s %s: http %d: %s", e.Method, e.Path, e.Status, e.Body)
}

func truncateBody(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}
