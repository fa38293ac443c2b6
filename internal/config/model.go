// internal/config/model.go
//
// Typed configuration model for the Adept content gateway.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                         – dotenv values,
//   • `conf/global.yaml`                      – primary static file,
//   • `ADEPT_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client after unmarshalling, so downstream code never
// sees Vault URIs, only plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// Database section
//

// Storage drivers understood by the loader.
const (
	DriverMemory = "memory"
	DriverMySQL  = "mysql"
)

// Database selects the record and API key store backend.
//
// `DSN` is a template kept in YAML; when it contains a single `%s` verb the
// loader substitutes `Password`, which is usually a `vault:` reference.
type Database struct {
	Driver   string `koanf:"driver"   validate:"required,oneof=memory mysql"`
	DSN      string `koanf:"dsn"      validate:"required_if=Driver mysql"`
	Password string `koanf:"password"`
	MaxOpen  int    `koanf:"max_open" validate:"gte=0"`
	MaxIdle  int    `koanf:"max_idle" validate:"gte=0"`
}

//
// Store section
//

// Store configures the in-memory driver.
type Store struct {
	SeedFile string `koanf:"seed_file"` // YAML fixtures, memory driver only
}

//
// Gateway section
//

// Gateway toggles request-handling behaviour.  Defaults keep the established
// wire contract: route misses and permission misses are both 400, and every
// request must carry a valid key.
type Gateway struct {
	PublicSubmit          bool   `koanf:"public_submit"`
	DistinctRouteErrors   bool   `koanf:"distinct_route_errors"`
	ExposeInternalErrors  bool   `koanf:"expose_internal_errors"`
	DefaultSuccessMessage string `koanf:"default_success_message"`
}

//
// Log section
//

// Log controls the file logger.
type Log struct {
	Dir   string `koanf:"dir"`
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

//
// Geo section
//

// Geo points at an optional MaxMind GeoLite2-City database used to tag form
// submissions with a country.  Empty disables the lookup.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // ADEPT_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Store    Store    `koanf:"store"`
	Gateway  Gateway  `koanf:"gateway"`
	Log      Log      `koanf:"log"`
	Geo      Geo      `koanf:"geo"`
	Paths    Paths    `koanf:"-"` // not loaded from config files
}
