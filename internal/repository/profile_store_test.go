package repository

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestStore(handler http.HandlerFunc) (*SupabaseStore, *httptest.Server) {
	server := httptest.NewServer(handler)
	store := NewSupabaseStore(server.URL, "anon-key", server.Client())
	return store, server
}

func TestGetActiveProfiles(t *testing.T) {
	var gotPath, gotAPIKey, gotAuth string
	store, server := newTestStore(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path + "?" + r.URL.RawQuery
		gotAPIKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[
			{"profile_id": "p1", "person_name": "Ana", "profile_data": {"eating_habits": {"snacks": true}}},
			{"profile_id": "p2", "person_name": "Ben", "profile_data": {}}
		]`))
	})
	defer server.Close()

	profiles, err := store.GetActiveProfiles(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
	if profiles[0].ProfileID != "p1" || profiles[0].PersonName != "Ana" {
		t.Fatalf("unexpected first profile: %+v", profiles[0])
	}
	if _, ok := profiles[0].ProfileData["eating_habits"]; !ok {
		t.Fatalf("expected profile_data bag preserved, got %+v", profiles[0].ProfileData)
	}

	if gotPath != "/rest/v1/profile_versions?is_active=eq.true" {
		t.Fatalf("unexpected request path: %s", gotPath)
	}
	if gotAPIKey != "anon-key" || gotAuth != "Bearer anon-key" {
		t.Fatalf("expected anon key headers, got apikey=%q auth=%q", gotAPIKey, gotAuth)
	}
}

func TestGetProfileVersion(t *testing.T) {
	var gotQuery string
	store, server := newTestStore(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[{"profile_id": "p1", "person_name": "Ana", "profile_data": {"lifestyle": {}}}]`))
	})
	defer server.Close()

	profile, err := store.GetProfileVersion(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.ProfileID != "p1" || profile.PersonName != "Ana" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if gotQuery != "profile_id=eq.p1" {
		t.Fatalf("unexpected query: %s", gotQuery)
	}
}

func TestGetProfileVersionNotFound(t *testing.T) {
	store, server := newTestStore(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	defer server.Close()

	_, err := store.GetProfileVersion(context.Background(), "missing")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestGetProfileVersionEscapesID(t *testing.T) {
	var gotQuery string
	store, server := newTestStore(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[{"profile_id": "a b"}]`))
	})
	defer server.Close()

	if _, err := store.GetProfileVersion(context.Background(), "a b&c"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(gotQuery, " ") || strings.Contains(gotQuery, "&c") {
		t.Fatalf("expected escaped profile id, got raw query %q", gotQuery)
	}
}

func TestStoreErrorStatus(t *testing.T) {
	store, server := newTestStore(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "invalid api key"}`))
	})
	defer server.Close()

	_, err := store.GetActiveProfiles(context.Background())
	if err == nil {
		t.Fatalf("expected error for status 401")
	}
	if !strings.Contains(err.Error(), "status=401") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestStoreMalformedBody(t *testing.T) {
	store, server := newTestStore(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})
	defer server.Close()

	if _, err := store.GetActiveProfiles(context.Background()); err == nil {
		t.Fatalf("expected unmarshal error")
	}
}
