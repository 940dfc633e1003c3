package platforms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"signalfire/pkg/models"
)

func instagramTestAdapter(base string) *InstagramAdapter {
	return &InstagramAdapter{
		httpCore:     newTestCore(),
		graphBase:    base,
		clientID:     "cid",
		clientSecret: "secret",
	}
}

func igRequest(media ...models.MediaRef) *models.PublishRequest {
	return &models.PublishRequest{
		ExternalID: "ig9",
		Content:    "caption",
		Media:      media,
		Creds:      models.PlatformCredentials{AccessToken: "tok"},
	}
}

func TestInstagramSinglePublishTwoPhases(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_ = r.ParseForm()
		switch r.URL.Path {
		case "/ig9/media":
			if r.Form.Get("image_url") != "https://cdn/img.jpg" {
				t.Errorf("missing image_url, got %v", r.Form)
			}
			_, _ = w.Write([]byte(`{"id":"container_1"}`))
		case "/ig9/media_publish":
			if r.Form.Get("creation_id") != "container_1" {
				t.Errorf("expected creation_id container_1, got %q", r.Form.Get("creation_id"))
			}
			_, _ = w.Write([]byte(`{"id":"media_1"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	a := instagramTestAdapter(srv.URL)
	res, err := a.Publish(context.Background(), igRequest(models.MediaRef{URL: "https://cdn/img.jpg"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.ID != "media_1" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(paths) != 2 {
		t.Fatalf("expected exactly 2 API calls, got %d: %v", len(paths), paths)
	}
}

func TestInstagramPublishMissingImageNoNetworkCall(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()

	a := instagramTestAdapter(srv.URL)
	_, err := a.Publish(context.Background(), igRequest())

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no network calls, got %d", calls)
	}
}

func TestInstagramCarouselItemCountRejectedLocally(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()

	a := instagramTestAdapter(srv.URL)

	one := igRequest(models.MediaRef{URL: "https://cdn/1.jpg"})
	if _, err := a.PublishCarousel(context.Background(), one); err == nil {
		t.Fatal("1-image carousel must be rejected")
	}

	var eleven []models.MediaRef
	for i := 0; i < 11; i++ {
		eleven = append(eleven, models.MediaRef{URL: fmt.Sprintf("https://cdn/%d.jpg", i)})
	}
	if _, err := a.Publish(context.Background(), igRequest(eleven...)); err == nil {
		t.Fatal("11-image carousel must be rejected")
	}

	if calls != 0 {
		t.Fatalf("expected no network calls, got %d", calls)
	}
}

func TestInstagramCarouselTwoImagesFourSequentialCalls(t *testing.T) {
	var paths []string
	containers := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_ = r.ParseForm()
		switch r.URL.Path {
		case "/ig9/media":
			containers++
			if r.Form.Get("media_type") == "CAROUSEL" {
				if r.Form.Get("children") != "child_1,child_2" {
					t.Errorf("expected children child_1,child_2, got %q", r.Form.Get("children"))
				}
				_, _ = w.Write([]byte(`{"id":"carousel_parent"}`))
				return
			}
			if r.Form.Get("is_carousel_item") != "true" {
				t.Errorf("child containers must set is_carousel_item")
			}
			_, _ = w.Write([]byte(fmt.Sprintf(`{"id":"child_%d"}`, containers)))
		case "/ig9/media_publish":
			if r.Form.Get("creation_id") != "carousel_parent" {
				t.Errorf("publish must target the parent container, got %q", r.Form.Get("creation_id"))
			}
			_, _ = w.Write([]byte(`{"id":"published_carousel"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	a := instagramTestAdapter(srv.URL)
	res, err := a.Publish(context.Background(), igRequest(
		models.MediaRef{URL: "https://cdn/1.jpg"},
		models.MediaRef{URL: "https://cdn/2.jpg"},
	))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.ID != "published_carousel" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(paths) != 4 {
		t.Fatalf("a 2-image carousel costs exactly 4 calls, got %d: %v", len(paths), paths)
	}
}

func TestInstagramContainerRejectionShortCircuits(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid image URL"}}`))
	}))
	defer srv.Close()

	a := instagramTestAdapter(srv.URL)
	res, err := a.Publish(context.Background(), igRequest(
		models.MediaRef{URL: "https://cdn/bad.jpg"},
		models.MediaRef{URL: "https://cdn/2.jpg"},
	))
	if err != nil {
		t.Fatalf("remote rejection must not be an error: %v", err)
	}
	if res.Success || res.Error != "Invalid image URL" {
		t.Fatalf("unexpected result %+v", res)
	}
	if calls != 1 {
		t.Fatalf("first rejected container must stop the flow, got %d calls", calls)
	}
}

func TestInstagramRefreshUnsupported(t *testing.T) {
	a := instagramTestAdapter("http://unused")
	if _, err := a.RefreshToken(context.Background(), "rt"); !errors.Is(err, ErrRefreshUnsupported) {
		t.Fatalf("expected ErrRefreshUnsupported, got %v", err)
	}
}
