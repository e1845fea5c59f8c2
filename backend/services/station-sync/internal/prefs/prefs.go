// Package prefs keeps user preferences in the local store and mirrors them to the backend.
package prefs

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"chargemap/backend/services/station-sync/internal/apperr"
	"chargemap/backend/services/station-sync/internal/kvstore"
	"chargemap/backend/services/station-sync/internal/models"
)

// Supported languages and themes.
var (
	Languages = []string{"en", "et", "ru"}
	Themes    = []string{"light", "dark", "system"}
)

const defaultTheme = "system"

// Remote is the backend preferences endpoint.
type Remote interface {
	Get(ctx context.Context, deviceID string) (models.Preferences, error)
	Set(ctx context.Context, deviceID string, prefs models.Preferences) (models.Preferences, error)
}

// DeviceIdentity supplies the device the preferences belong to.
type DeviceIdentity interface {
	EnsureDeviceID(ctx context.Context) string
}

// Store reads and writes preferences.
type Store struct {
	kv              *kvstore.Store
	remote          Remote
	identity        DeviceIdentity
	defaultLanguage string
	logger          *zap.Logger

	mu sync.Mutex
}

// New builds a preference store. remote may be nil.
func New(kv *kvstore.Store, remote Remote, identity DeviceIdentity, defaultLanguage string, logger *zap.Logger) *Store {
	if !slices.Contains(Languages, defaultLanguage) {
		defaultLanguage = Languages[0]
	}
	return &Store{
		kv:              kv,
		remote:          remote,
		identity:        identity,
		defaultLanguage: defaultLanguage,
		logger:          logger.Named("prefs"),
	}
}

// Get returns the full local preference set.
func (s *Store) Get(ctx context.Context) models.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx)
}

func (s *Store) getLocked(ctx context.Context) models.Preferences {
	prefs := models.Preferences{
		Language:  kvstore.GetOr(ctx, s.kv, kvstore.KeyLanguage, s.defaultLanguage),
		Theme:     kvstore.GetOr(ctx, s.kv, kvstore.KeyTheme, defaultTheme),
		Favorites: kvstore.GetOr(ctx, s.kv, kvstore.KeyFavorites, []string{}),
	}
	prefs.FilterSettings = kvstore.GetOr(ctx, s.kv, kvstore.KeyFilterSettings, models.FilterSettings{})
	if s.identity != nil {
		prefs.DeviceID = s.identity.EnsureDeviceID(ctx)
	}
	return prefs
}

// Update stores language, theme and favorites when set and replaces the filter settings.
func (s *Store) Update(ctx context.Context, in models.Preferences) (models.Preferences, error) {
	if in.Language != "" && !slices.Contains(Languages, in.Language) {
		return models.Preferences{}, apperr.New(apperr.KindValidation, apperr.CodeInvalid, fmt.Sprintf("unsupported language %q", in.Language))
	}
	if in.Theme != "" && !slices.Contains(Themes, in.Theme) {
		return models.Preferences{}, apperr.New(apperr.KindValidation, apperr.CodeInvalid, fmt.Sprintf("unsupported theme %q", in.Theme))
	}
	for _, ct := range in.FilterSettings.ConnectorTypes {
		if !ct.Valid() {
			return models.Preferences{}, apperr.New(apperr.KindValidation, apperr.CodeInvalid, fmt.Sprintf("unknown connector type %q", ct))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if in.Language != "" {
		if err := s.set(ctx, kvstore.KeyLanguage, in.Language); err != nil {
			return models.Preferences{}, err
		}
	}
	if in.Theme != "" {
		if err := s.set(ctx, kvstore.KeyTheme, in.Theme); err != nil {
			return models.Preferences{}, err
		}
	}
	if in.Favorites != nil {
		if err := s.set(ctx, kvstore.KeyFavorites, dedupe(in.Favorites)); err != nil {
			return models.Preferences{}, err
		}
	}
	if err := s.set(ctx, kvstore.KeyFilterSettings, in.FilterSettings); err != nil {
		return models.Preferences{}, err
	}
	return s.getLocked(ctx), nil
}

// Favorites returns favorite station ids in insertion order.
func (s *Store) Favorites(ctx context.Context) []string {
	return kvstore.GetOr(ctx, s.kv, kvstore.KeyFavorites, []string{})
}

// IsFavorite reports whether stationID is a favorite.
func (s *Store) IsFavorite(ctx context.Context, stationID string) bool {
	return slices.Contains(s.Favorites(ctx), stationID)
}

// AddFavorite appends stationID unless already present.
func (s *Store) AddFavorite(ctx context.Context, stationID string) ([]string, error) {
	return s.editFavorites(ctx, func(favs []string) []string {
		if slices.Contains(favs, stationID) {
			return favs
		}
		return append(favs, stationID)
	})
}

// RemoveFavorite drops stationID.
func (s *Store) RemoveFavorite(ctx context.Context, stationID string) ([]string, error) {
	return s.editFavorites(ctx, func(favs []string) []string {
		return slices.DeleteFunc(favs, func(id string) bool { return id == stationID })
	})
}

// ToggleFavorite flips stationID and reports whether it is now a favorite.
func (s *Store) ToggleFavorite(ctx context.Context, stationID string) (bool, error) {
	var added bool
	_, err := s.editFavorites(ctx, func(favs []string) []string {
		if slices.Contains(favs, stationID) {
			return slices.DeleteFunc(favs, func(id string) bool { return id == stationID })
		}
		added = true
		return append(favs, stationID)
	})
	return added, err
}

func (s *Store) editFavorites(ctx context.Context, edit func([]string) []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	favs := edit(kvstore.GetOr(ctx, s.kv, kvstore.KeyFavorites, []string{}))
	if err := s.set(ctx, kvstore.KeyFavorites, favs); err != nil {
		return nil, err
	}
	return favs, nil
}

// Sync pushes local preferences to the backend for the current device.
func (s *Store) Sync(ctx context.Context) (models.Preferences, error) {
	if s.remote == nil || s.identity == nil {
		return s.Get(ctx), nil
	}
	local := s.Get(ctx)
	saved, err := s.remote.Set(ctx, local.DeviceID, local)
	if err != nil {
		s.logger.Warn("preference sync failed", zap.Error(err))
		return local, err
	}
	return saved, nil
}

// Pull replaces local preferences with the backend copy.
func (s *Store) Pull(ctx context.Context) (models.Preferences, error) {
	if s.remote == nil || s.identity == nil {
		return s.Get(ctx), nil
	}
	remote, err := s.remote.Get(ctx, s.identity.EnsureDeviceID(ctx))
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return s.Get(ctx), nil
		}
		return models.Preferences{}, err
	}
	if remote.Favorites == nil {
		remote.Favorites = []string{}
	}
	return s.Update(ctx, remote)
}

func (s *Store) set(ctx context.Context, key string, value interface{}) error {
	if err := s.kv.Set(ctx, key, value, 0); err != nil {
		return apperr.Wrap(apperr.KindStorage, apperr.CodeStorage, fmt.Errorf("save %s: %w", key, err))
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
