package kvstore

// Durable keys, namespaced by Options.Namespace.
const (
	KeyDeviceID         = "device_id"
	KeyLanguage         = "language"
	KeyTheme            = "theme"
	KeyFavorites        = "favorites"
	KeyFilterSettings   = "filter_settings"
	KeyLastLocation     = "last_location"
	KeyCachedStations   = "cached_stations"
	KeyCachedStationsTS = "cached_stations_timestamp"
)
