package client

import (
	"errors"
	"net/http"
	"time"
)

// BearerTransport attaches the stored session token to outgoing requests and
// drops the session when the server answers 401.
type BearerTransport struct {
	Store SessionStore
	// Base defaults to http.DefaultTransport.
	Base http.RoundTripper
	// Now defaults to time.Now.
	Now func() time.Time
}

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	sess, err := t.Store.Load(ctx)
	switch {
	case errors.Is(err, ErrNoSession):
	case err != nil:
		return nil, err
	case sess.Expired(t.now()):
		if err := t.Store.Clear(ctx); err != nil {
			return nil, err
		}
	case req.Header.Get("Authorization") == "":
		req = req.Clone(ctx)
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized && req.Header.Get("Authorization") != "" {
		if err := t.Store.Clear(ctx); err != nil {
			_ = resp.Body.Close()
			return nil, err
		}
	}
	return resp, nil
}

func (t *BearerTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *BearerTransport) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}
