package worker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/caltrain-transit/railfeed/pkg/errs"
	"github.com/caltrain-transit/railfeed/pkg/secret"
)

// fetch retrieves rawURL with the upstream API key appended under
// apiKeyParam, redacting the key from any error it returns so a failed
// fetch never leaks it into a log line.
func fetch(ctx context.Context, client *http.Client, rawURL, apiKeyParam, apiKey string) ([]byte, error) {
	redactor := secret.NewRedactor(apiKey)

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, errs.New(errs.KindUpstream, "fetch", redactor.Err(err))
	}

	if apiKey != "" {
		q := parsed.Query()
		q.Set(apiKeyParam, apiKey)
		parsed.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, errs.New(errs.KindUpstream, "fetch", redactor.Err(err))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errs.New(errs.KindUpstream, "fetch", redactor.Err(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.New(errs.KindUpstream, "fetch", fmt.Errorf("%s: unexpected status %d", redactor.Scrub(rawURL), resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.New(errs.KindUpstream, "fetch", redactor.Err(err))
	}

	return body, nil
}
