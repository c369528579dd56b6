package session

import (
	"net"
	"net/url"
	"os"
)

// ConnConfig locates a database server. The zero value is completed from
// the DB_* environment variables by ConnConfigFromEnv.
type ConnConfig struct {
	Username string
	Password string
	Host     string
	Port     string
	Database string
}

func ConnConfigFromEnv() ConnConfig {
	return ConnConfig{
		Username: getEnv("DB_USERNAME", "devel"),
		Password: getEnv("DB_PASSWORD", "devel"),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		Database: getEnv("DB_DATABASE", "devel_oql"),
	}
}

// PostgresURL renders the config as a postgres:// connection string with
// the credentials escaped.
func (c ConnConfig) PostgresURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	return u.String()
}

// MySQLDSN renders the config in the go-sql-driver/mysql format.
func (c ConnConfig) MySQLDSN() string {
	return c.Username + ":" + c.Password + "@tcp(" + c.Host + ":" + c.Port + ")/" + c.Database + "?parseTime=true"
}

// IsConfigured reports whether DB_HOST is set, gating integration tests.
func IsConfigured() bool {
	_, ok := os.LookupEnv("DB_HOST")
	return ok
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}

	return fallback
}
