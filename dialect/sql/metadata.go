package sql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/signet/dialect"
)

// Metadata describes the database product behind a connection.
type Metadata struct {
	Vendor  string // Vendor name, e.g. dialect.MySQL.
	Version string // Raw server version string.
	Major   int
	Minor   int
}

// Signet returns the signet of the database product.
func (m Metadata) Signet() dialect.Signet {
	return dialect.NewSignet(m.Vendor, m.Major, m.Minor)
}

// MetadataReader reads the product metadata of a live connection.
type MetadataReader interface {
	Metadata(context.Context) (Metadata, error)
}

// versionQueries are the statements returning the server version.
var versionQueries = map[string]string{
	dialect.MySQL:    "select version()",
	dialect.Postgres: "show server_version",
	dialect.SQLite:   "select sqlite_version()",
}

// QueryMetadata queries the server version of the connection. MariaDB
// servers, which use the MySQL driver, are detected from their version
// string.
func QueryMetadata(ctx context.Context, q dialect.ExecQuerier, driverName string) (_ Metadata, rerr error) {
	vendor, ok := dialect.VendorOf(driverName)
	if !ok {
		return Metadata{}, fmt.Errorf("dialect/sql: unknown driver %q", driverName)
	}
	query := versionQueries[vendor]
	var rows Rows
	if err := q.Query(ctx, query, []any{}, &rows); err != nil {
		return Metadata{}, err
	}
	defer func() { rerr = errors.Join(rerr, rows.Close()) }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Metadata{}, fmt.Errorf("dialect/sql: query server version: %w", err)
		}
		return Metadata{}, fmt.Errorf("dialect/sql: %q returned no rows", query)
	}
	var version string
	if err := rows.Scan(&version); err != nil {
		return Metadata{}, fmt.Errorf("dialect/sql: scan server version: %w", err)
	}
	return ParseMetadata(vendor, version)
}

// ParseMetadata builds the metadata of a server version string reported
// by a server of the given vendor.
func ParseMetadata(vendor, version string) (Metadata, error) {
	v := version
	if vendor == dialect.MySQL && strings.Contains(strings.ToLower(v), "mariadb") {
		vendor = dialect.MariaDB
		// Replication-compatible prefix of MariaDB servers before 11.0.
		v = strings.TrimPrefix(v, "5.5.5-")
	}
	major, minor, err := dialect.ParseVersion(v)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{Vendor: vendor, Version: version, Major: major, Minor: minor}, nil
}

// StaticMetadata is a MetadataReader returning fixed metadata, for
// connections whose vendor is known in advance.
type StaticMetadata Metadata

// Metadata implements MetadataReader.
func (m StaticMetadata) Metadata(context.Context) (Metadata, error) {
	return Metadata(m), nil
}
