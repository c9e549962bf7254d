// Package secret loads the upstream API key and scrubs it out of anything
// that might otherwise end up in a log line.
package secret

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// MissingEnvironmentKey is returned when the named environment variable is
// unset, so callers can distinguish "no key configured" from any other
// failure and exit cleanly per the Config error kind.
type MissingEnvironmentKey string

func (k MissingEnvironmentKey) Error() string {
	return fmt.Sprintf("%s environment variable not set", string(k))
}

// FromEnvironment reads key from the environment, falling back to the
// contents of the file named by key+"_FILE" if the variable itself is empty.
func FromEnvironment(key string) (string, error) {
	value := os.Getenv(key)
	path := os.Getenv(key + "_FILE")

	if value == "" && path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		value = string(content)
	}

	if value == "" {
		return "", MissingEnvironmentKey(key)
	}

	return strings.TrimSpace(value), nil
}

// Redactor removes a known secret value, in both its raw and
// percent-encoded forms, from arbitrary strings before they are logged.
type Redactor struct {
	raw     string
	encoded string
}

// NewRedactor builds a Redactor for apiKey. An empty apiKey yields a no-op
// redactor so callers don't need to special-case the unconfigured state.
func NewRedactor(apiKey string) Redactor {
	if apiKey == "" {
		return Redactor{}
	}
	return Redactor{raw: apiKey, encoded: url.QueryEscape(apiKey)}
}

// Scrub replaces every occurrence of the raw key and its URL-encoded form
// with "[REDACTED]".
func (r Redactor) Scrub(s string) string {
	if r.raw == "" {
		return s
	}
	s = strings.ReplaceAll(s, r.raw, "[REDACTED]")
	if r.encoded != r.raw {
		s = strings.ReplaceAll(s, r.encoded, "[REDACTED]")
	}
	return s
}

// Err wraps err's message through Scrub, returning nil if err is nil.
func (r Redactor) Err(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s", r.Scrub(err.Error()))
}
