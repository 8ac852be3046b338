package schema

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/omnera-dev/omnera/model"
)

var postgresURLPattern = regexp.MustCompile(`^postgres(ql)?://`)

var connectionCommon = newShape("connection", false,
	Property{"id", Identifier(false)},
	Property{"name", StringRule{Required: true, MinLength: 1, MaxLength: 63}},
)

var connectionUnion = newUnion("connection", []string{"type"}, connectionCommon,
	Variant{"postgres", newShape("postgres", false,
		Property{"url", StringRule{Required: true, Pattern: postgresURLPattern, Check: checkPostgresURL}},
	)},
	Variant{"mysql", newShape("mysql", false,
		Property{"dsn", StringRule{Required: true, MinLength: 1, Check: checkMySQLDSN}},
	)},
	Variant{"http", newShape("http", false,
		Property{"baseUrl", StringRule{Required: true, Format: "http_url"}},
		Property{"headers", ObjectRule{}},
	)},
	Variant{"smtp", newShape("smtp", false,
		Property{"host", StringRule{Required: true, Format: "hostname|ip"}},
		Property{"port", NumberRule{Integer: true, Min: Ptr(1.0), Max: Ptr(65535.0), Default: Ptr(587.0)}},
		Property{"username", StringRule{}},
		Property{"from", StringRule{Format: "email"}},
	)},
)

// checkPostgresURL parses a postgres:// URL without touching the
// environment or the filesystem.
func checkPostgresURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Hostname() == "" {
		return errors.New("missing host")
	}
	if p := u.Port(); p != "" {
		return checkPort(p)
	}
	return nil
}

func checkMySQLDSN(s string) error {
	cfg, err := mysql.ParseDSN(s)
	if err != nil {
		return err
	}
	if cfg.Net != "tcp" {
		return nil
	}
	if _, p, err := net.SplitHostPort(cfg.Addr); err == nil {
		return checkPort(p)
	}
	return nil
}

// checkPort accepts decimal ports in 1..65535.
func checkPort(p string) error {
	if n, err := strconv.ParseUint(p, 10, 16); err != nil || n == 0 {
		return fmt.Errorf("invalid port %q", p)
	}
	return nil
}

func validateConnection(raw any, path model.Path, pos int) *entity {
	e := newEntity(model.KindConnection, path, pos)
	r, issue := readObject(raw, path)
	if issue != nil {
		e.add(*issue)
		return e
	}
	e.identify(r)
	tag, ok := connectionUnion.read(r)
	c := &model.Connection{Name: r.props.String("name"), Type: model.ConnectionType(tag)}
	if ok {
		c.Variant = connectionVariant(c.Type, r)
	}
	e.add(r.issues...)
	e.data = c
	return e
}

func connectionVariant(t model.ConnectionType, r *reader) model.ConnectionVariant {
	p := r.props
	switch t {
	case model.ConnectionPostgres:
		v := &model.DatabaseConnection{DSN: p.String("url")}
		if u, err := url.Parse(v.DSN); err == nil && v.DSN != "" {
			v.Host = u.Hostname()
			v.Port, _ = strconv.Atoi(u.Port())
			v.User = u.User.Username()
			v.Database = strings.TrimPrefix(u.Path, "/")
		}
		return v
	case model.ConnectionMySQL:
		v := &model.DatabaseConnection{DSN: p.String("dsn")}
		if cfg, err := mysql.ParseDSN(v.DSN); err == nil && v.DSN != "" {
			v.Host = cfg.Addr
			if host, port, err := net.SplitHostPort(cfg.Addr); err == nil {
				v.Host = host
				v.Port, _ = strconv.Atoi(port)
			}
			v.User = cfg.User
			v.Database = cfg.DBName
		}
		return v
	case model.ConnectionHTTP:
		return &model.HTTPConnection{BaseURL: p.String("baseUrl"), Headers: stringMap(r, "headers")}
	case model.ConnectionSMTP:
		return &model.SMTPConnection{
			Host:     p.String("host"),
			Port:     p.Int("port"),
			Username: p.String("username"),
			From:     p.String("from"),
		}
	}
	panic("schema: connection variant without builder: " + string(t))
}
