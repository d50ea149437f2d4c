// internal/app/bootstrap/appconfig.go
package bootstrap

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (HTTP ports, TLS,
// logging level, request limits). AppConfig is everything specific to
// DocHub: where the database lives and how the external identity
// provider is reached.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connections in the driver pool
	MongoMinPoolSize uint64 // Min connections kept warm in the pool

	// External identity provider (OAuth2) configuration
	OAuthClientID     string // OAuth2 client ID
	OAuthClientSecret string // OAuth2 client secret

	// Base URL for OAuth callbacks
	BaseURL string // e.g., "https://dochub.example.com" or "http://localhost:3000"
}
