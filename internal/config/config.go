package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "strings"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
    DriverMySQL  = "mysql"
    DriverMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  DB_* values are only required when the MySQL
// driver is selected.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    StorageDriver  string // mysql or memory
    MigrateOnStart bool   // run embedded migrations before serving
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time‑to‑live in minutes
    RefreshTTLDays int    // refresh token time‑to‑live in days
    BcryptCost     int    // bcrypt cost for password hashing

    FinePerDay      float64 // fine charged per started overdue day
    BulkConcurrency int     // parallel approvals in a bulk call

    AdminEmail    string // bootstrap admin account, created when missing
    AdminPassword string
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    cfg := Config{
        Env:            must("APP_ENV"),
        Port:           must("APP_PORT"),
        StorageDriver:  strings.ToLower(envStr("STORAGE_DRIVER", DriverMySQL)),
        MigrateOnStart: envBool("DB_MIGRATE", true),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
        BcryptCost:     mustInt("BCRYPT_COST"),

        FinePerDay:      envFloat("FINE_PER_DAY", 10),
        BulkConcurrency: envInt("BULK_CONCURRENCY", 4),

        AdminEmail:    os.Getenv("ADMIN_EMAIL"),
        AdminPassword: os.Getenv("ADMIN_PASSWORD"),
    }
    switch cfg.StorageDriver {
    case DriverMySQL:
        cfg.DBUser = must("DB_USER")
        cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = must("DB_PORT")
        cfg.DBName = must("DB_NAME")
    case DriverMemory:
    default:
        log.Fatalf("unsupported STORAGE_DRIVER: %q", cfg.StorageDriver)
    }
    if cfg.BulkConcurrency < 1 {
        cfg.BulkConcurrency = 1
    }
    return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
