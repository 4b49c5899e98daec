// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds Hearth's service-specific configuration.
//
// Values come from config files, HEARTH_* environment variables, or
// command-line flags (see LoadConfig). Framework settings such as ports,
// TLS and log level live in WAFFLE's CoreConfig instead.
//
// The struct is built once at startup and passed explicitly to every
// lifecycle hook; nothing reads configuration from globals.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session tokens
	JWTSecret         string        // HS256 signing secret (at least 32 characters)
	SessionCookieName string        // Cookie carrying the token (default: token)
	SessionTTL        time.Duration // Token lifetime (default: 1h)
	SessionDomain     string        // Cookie domain (blank means current host)

	// CORSOrigin is the single browser origin allowed to call the API with
	// credentials.
	CORSOrigin string

	// Uploaded files, served under /uploads
	UploadsDir     string
	AvatarMaxBytes int64

	// Domain tuning
	LeaderboardSize             int           // default page size for GET /api/users/leaderboard
	MessageFeedCap              int           // messages kept in the feed
	BcryptCost                  int           // password hash cost
	LoginRateLimit              int           // failed-login attempts allowed per window
	LoginRateWindow             time.Duration // window for LoginRateLimit
	LeaderboardSnapshotInterval time.Duration // 0 disables the snapshot worker

	// Audit logging: "all", "db", "log", or "off"
	AuditLogAuth  string
	AuditLogAdmin string

	// Bootstrap admin, created or promoted at startup when AdminEmail is set.
	AdminEmail    string
	AdminPassword string
	AdminName     string
}
