package store

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
)

const (
	DialectMySQL  = "mysql"
	DialectSQLite = "sqlite"
)

// Config is bound from DB_* variables. DSN, when set, is used verbatim
// (a file path or ":memory:" for sqlite).
type Config struct {
	Driver       string `envconfig:"DB_DRIVER" default:"mysql"`
	Host         string `envconfig:"DB_HOST" default:"127.0.0.1"`
	Port         int    `envconfig:"DB_PORT" default:"3306"`
	User         string `envconfig:"DB_USER"`
	Password     string `envconfig:"DB_PASS"`
	Name         string `envconfig:"DB_NAME" default:"urbanbot"`
	DSN          string `envconfig:"DB_DSN"`
	MaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns int    `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLife  string `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// DataSourceName returns the driver-specific DSN.
func (c Config) DataSourceName() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	switch c.Driver {
	case DialectMySQL:
		mc := mysql.NewConfig()
		mc.User = c.User
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
		mc.DBName = c.Name
		mc.ParseTime = true
		mc.Loc = time.UTC
		return mc.FormatDSN(), nil
	case DialectSQLite:
		return c.Name + ".db", nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q (supported: mysql, sqlite)", c.Driver)
	}
}

func (c Config) connMaxLifetime() time.Duration {
	d, err := time.ParseDuration(c.ConnMaxLife)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}
