package platforms

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"signalfire/pkg/models"
)

// newTestCore builds plumbing without an executor so tests exercise the
// direct client.Do path, avoiding retry policies wrapping errors.
func newTestCore() httpCore {
	return httpCore{client: &http.Client{}}
}

func linkedinTestAdapter(apiBase, authBase string) *LinkedInAdapter {
	return &LinkedInAdapter{
		httpCore:     newTestCore(),
		apiBase:      apiBase,
		authBase:     authBase,
		clientID:     "cid",
		clientSecret: "secret",
	}
}

func TestLinkedInPublishSuccess(t *testing.T) {
	var gotPath, gotAuth, gotRestli string
	var gotBody linkedinUGCPost

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRestli = r.Header.Get("X-Restli-Protocol-Version")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"urn:li:share:123"}`))
	}))
	defer srv.Close()

	a := linkedinTestAdapter(srv.URL, srv.URL)
	res, err := a.Publish(context.Background(), &models.PublishRequest{
		Platform:   models.PlatformLinkedIn,
		ExternalID: "abc",
		Content:    "hello network",
		Creds:      models.PlatformCredentials{AccessToken: "tok"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.ID != "urn:li:share:123" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if gotPath != "/v2/ugcPosts" {
		t.Fatalf("expected /v2/ugcPosts, got %s", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("expected bearer token, got %q", gotAuth)
	}
	if gotRestli != "2.0.0" {
		t.Fatalf("expected Restli protocol header, got %q", gotRestli)
	}
	if gotBody.Author != "urn:li:person:abc" {
		t.Fatalf("expected person URN, got %q", gotBody.Author)
	}
	if gotBody.Visibility.MemberNetworkVisibility != "PUBLIC" {
		t.Fatalf("visibility should default to PUBLIC, got %q", gotBody.Visibility.MemberNetworkVisibility)
	}
	if gotBody.LifecycleState != "PUBLISHED" {
		t.Fatalf("unexpected lifecycle state %q", gotBody.LifecycleState)
	}
}

func TestLinkedInPublishOrganizationURN(t *testing.T) {
	if got := authorURN("org:999"); got != "urn:li:organization:999" {
		t.Fatalf("unexpected org URN %q", got)
	}
	if got := authorURN("urn:li:organization:7"); got != "urn:li:organization:7" {
		t.Fatalf("full URN should pass through, got %q", got)
	}
}

func TestLinkedInPublishMissingAuthorNoNetworkCall(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	a := linkedinTestAdapter(srv.URL, srv.URL)
	_, err := a.Publish(context.Background(), &models.PublishRequest{
		Content: "no author",
		Creds:   models.PlatformCredentials{AccessToken: "tok"},
	})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no network call, got %d", calls)
	}
}

func TestLinkedInPublishRemoteRejectionReturnsResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"duplicate share detected"}`))
	}))
	defer srv.Close()

	a := linkedinTestAdapter(srv.URL, srv.URL)
	res, err := a.Publish(context.Background(), &models.PublishRequest{
		ExternalID: "abc",
		Content:    "dup",
		Creds:      models.PlatformCredentials{AccessToken: "tok"},
	})
	if err != nil {
		t.Fatalf("remote rejection must not be an error: %v", err)
	}
	if res.Success {
		t.Fatal("expected Success=false")
	}
	if res.Error != "duplicate share detected" {
		t.Fatalf("expected platform message verbatim, got %q", res.Error)
	}
}

func TestLinkedInPublishConnectivityFailureThrows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // dead endpoint

	a := linkedinTestAdapter(srv.URL, srv.URL)
	_, err := a.Publish(context.Background(), &models.PublishRequest{
		ExternalID: "abc",
		Content:    "x",
		Creds:      models.PlatformCredentials{AccessToken: "tok"},
	})
	if err == nil {
		t.Fatal("expected connectivity failure to surface as error")
	}
}

func TestLinkedInExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/v2/accessToken" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = r.ParseForm()
		if r.Form.Get("grant_type") != "authorization_code" {
			t.Errorf("unexpected grant type %s", r.Form.Get("grant_type"))
		}
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":5184000}`))
	}))
	defer srv.Close()

	a := linkedinTestAdapter(srv.URL, srv.URL)
	pair, err := a.ExchangeCode(context.Background(), "code123", "https://app/callback")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pair.AccessToken != "at" || pair.RefreshToken != "rt" {
		t.Fatalf("unexpected pair %+v", pair)
	}
	if pair.ExpiresAt == nil {
		t.Fatal("expected expiry to be set")
	}
}

func TestLinkedInExchangeRejectedThrowsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_description":"invalid authorization code"}`))
	}))
	defer srv.Close()

	a := linkedinTestAdapter(srv.URL, srv.URL)
	_, err := a.ExchangeCode(context.Background(), "bad", "uri")

	var aerr *AuthError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if aerr.Message != "invalid authorization code" {
		t.Fatalf("unexpected message %q", aerr.Message)
	}
}

func TestLinkedInExchangeNetworkErrorThrows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	a := linkedinTestAdapter(srv.URL, srv.URL)
	if _, err := a.ExchangeCode(context.Background(), "c", "u"); err == nil {
		t.Fatal("expected network error to surface")
	}
}
