package breeds

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func catalogServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestValidateCaseInsensitive(t *testing.T) {
	srv := catalogServer(t, http.StatusOK, `[{"name":"Persian"},{"name":"Siamese"},{"name":"Maine Coon"}]`)
	v := Validator{Catalog: NewHTTPCatalog(srv.URL, time.Second)}
	for _, breed := range []string{"Persian", "persian", "PERSIAN", "maine coon"} {
		if err := v.Validate(context.Background(), breed); err != nil {
			t.Fatalf("breed %q: %v", breed, err)
		}
	}
}

func TestValidateInvalidBreedHint(t *testing.T) {
	srv := catalogServer(t, http.StatusOK, `[{"name":"Persian"},{"name":"Siamese"},{"name":"Bengal"}]`)
	v := Validator{Catalog: NewHTTPCatalog(srv.URL, time.Second), SampleSize: 2}
	err := v.Validate(context.Background(), "housecat")
	var invalid InvalidBreedError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidBreedError, got %v", err)
	}
	if len(invalid.Sample) != 2 {
		t.Fatalf("expected 2 sample names, got %v", invalid.Sample)
	}
	if !strings.Contains(err.Error(), "Persian") {
		t.Fatalf("expected hint in message, got %q", err.Error())
	}
}

func TestValidateCatalogErrorStatus(t *testing.T) {
	srv := catalogServer(t, http.StatusInternalServerError, `oops`)
	v := Validator{Catalog: NewHTTPCatalog(srv.URL, time.Second)}
	if err := v.Validate(context.Background(), "persian"); !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestValidateMalformedPayload(t *testing.T) {
	srv := catalogServer(t, http.StatusOK, `{"not":"a list"}`)
	v := Validator{Catalog: NewHTTPCatalog(srv.URL, time.Second)}
	if err := v.Validate(context.Background(), "persian"); !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestValidateTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)
	v := Validator{Catalog: NewHTTPCatalog(srv.URL, 20*time.Millisecond)}
	if err := v.Validate(context.Background(), "persian"); !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable on timeout, got %v", err)
	}
}

func TestValidateUnreachableHost(t *testing.T) {
	v := Validator{Catalog: NewHTTPCatalog("http://127.0.0.1:1", 100*time.Millisecond)}
	if err := v.Validate(context.Background(), "persian"); !errors.Is(err, ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
}
