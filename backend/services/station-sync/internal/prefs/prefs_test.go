package prefs

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"chargemap/backend/services/station-sync/internal/apperr"
	"chargemap/backend/services/station-sync/internal/kvstore"
	"chargemap/backend/services/station-sync/internal/models"
)

type staticIdentity string

func (s staticIdentity) EnsureDeviceID(context.Context) string { return string(s) }

type fakeRemote struct {
	saved  map[string]models.Preferences
	getErr error
	setErr error
}

func (f *fakeRemote) Get(_ context.Context, deviceID string) (models.Preferences, error) {
	if f.getErr != nil {
		return models.Preferences{}, f.getErr
	}
	return f.saved[deviceID], nil
}

func (f *fakeRemote) Set(_ context.Context, deviceID string, prefs models.Preferences) (models.Preferences, error) {
	if f.setErr != nil {
		return models.Preferences{}, f.setErr
	}
	if f.saved == nil {
		f.saved = make(map[string]models.Preferences)
	}
	f.saved[deviceID] = prefs
	return prefs, nil
}

func newKV() *kvstore.Store {
	return kvstore.New(kvstore.NewMemoryBackend(16), kvstore.Options{Namespace: "ev_"}, zap.NewNop())
}

func TestDefaults(t *testing.T) {
	s := New(newKV(), nil, staticIdentity("dev-1"), "et", zap.NewNop())
	got := s.Get(context.Background())
	if got.Language != "et" || got.Theme != "system" || len(got.Favorites) != 0 || got.DeviceID != "dev-1" {
		t.Fatalf("unexpected defaults %+v", got)
	}

	fallback := New(newKV(), nil, nil, "xx", zap.NewNop())
	if lang := fallback.Get(context.Background()).Language; lang != "en" {
		t.Fatalf("expected en fallback, got %q", lang)
	}
}

func TestUpdateValidatesAndPersists(t *testing.T) {
	ctx := context.Background()
	kv := newKV()
	s := New(kv, nil, nil, "en", zap.NewNop())

	if _, err := s.Update(ctx, models.Preferences{Language: "fr"}); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := s.Update(ctx, models.Preferences{FilterSettings: models.FilterSettings{ConnectorTypes: []models.ConnectorType{"WARP"}}}); err == nil {
		t.Fatalf("expected connector type validation")
	}

	updated, err := s.Update(ctx, models.Preferences{
		Language:       "ru",
		Theme:          "dark",
		Favorites:      []string{"st-1", "st-2", "st-1", ""},
		FilterSettings: models.FilterSettings{ConnectorTypes: []models.ConnectorType{models.ConnectorCCS}, AvailableOnly: true},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Theme != "dark" || len(updated.Favorites) != 2 || !updated.FilterSettings.AvailableOnly {
		t.Fatalf("unexpected result %+v", updated)
	}

	reopened := New(kv, nil, nil, "en", zap.NewNop())
	if got := reopened.Get(ctx); got.Language != "ru" || got.Favorites[1] != "st-2" {
		t.Fatalf("preferences not persisted: %+v", got)
	}
}

func TestFavoritesKeepOrderWithoutDuplicates(t *testing.T) {
	ctx := context.Background()
	s := New(newKV(), nil, nil, "en", zap.NewNop())

	s.AddFavorite(ctx, "b")
	s.AddFavorite(ctx, "a")
	s.AddFavorite(ctx, "b")
	if favs := s.Favorites(ctx); len(favs) != 2 || favs[0] != "b" || favs[1] != "a" {
		t.Fatalf("unexpected favorites %v", favs)
	}

	added, err := s.ToggleFavorite(ctx, "b")
	if err != nil || added {
		t.Fatalf("toggle should remove b: added=%v err=%v", added, err)
	}
	added, _ = s.ToggleFavorite(ctx, "c")
	if !added || !s.IsFavorite(ctx, "c") {
		t.Fatalf("toggle should add c")
	}

	s.RemoveFavorite(ctx, "missing")
	favs, _ := s.RemoveFavorite(ctx, "a")
	if len(favs) != 1 || favs[0] != "c" {
		t.Fatalf("unexpected favorites %v", favs)
	}
}

func TestSyncPushesForDevice(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{}
	s := New(newKV(), remote, staticIdentity("dev-9"), "en", zap.NewNop())
	s.AddFavorite(ctx, "st-4")

	if _, err := s.Sync(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if got := remote.saved["dev-9"]; len(got.Favorites) != 1 || got.Favorites[0] != "st-4" {
		t.Fatalf("remote not updated: %+v", got)
	}

	remote.setErr = apperr.Network(errors.New("down"))
	local, err := s.Sync(ctx)
	if apperr.KindOf(err) != apperr.KindNetwork || len(local.Favorites) != 1 {
		t.Fatalf("expected network error with local copy, got %+v %v", local, err)
	}
}

func TestPullAdoptsRemoteAndToleratesMissing(t *testing.T) {
	ctx := context.Background()
	remote := &fakeRemote{saved: map[string]models.Preferences{
		"dev-1": {Language: "et", Theme: "light", Favorites: []string{"x"}},
	}}
	s := New(newKV(), remote, staticIdentity("dev-1"), "en", zap.NewNop())

	got, err := s.Pull(ctx)
	if err != nil || got.Language != "et" || got.Favorites[0] != "x" {
		t.Fatalf("unexpected pull %+v %v", got, err)
	}

	remote.getErr = apperr.FromStatus(404, "")
	if _, err := s.Pull(ctx); err != nil {
		t.Fatalf("missing remote preferences should not fail: %v", err)
	}
}
