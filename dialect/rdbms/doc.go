// Package rdbms bundles everything that varies between database vendors
// into a Dialect, and selects the Dialect of a live connection.
//
// Vendor packages register their dialects from init, newest versions
// first:
//
//	import (
//		_ "github.com/syssam/signet/dialect/rdbms/mysql"
//		_ "github.com/syssam/signet/dialect/rdbms/postgres"
//	)
//
//	drv, err := sql.Open(dialect.DriverMySQL, dsn)
//	if err != nil {
//		return err
//	}
//	d, err := rdbms.DefaultResolver().Resolve(ctx, drv)
//	if err != nil {
//		return err // *signet.UnsupportedDatabaseError for unknown servers
//	}
//	op, err := d.InsertOperation(drv, users, []*schema.Column{name}, true)
//
// The first entry whose matcher accepts the server's vendor and version
// wins. Entries match either one exact version or every version from a
// floor onwards.
//
// # Overrides
//
// Vendor settings can be overridden from YAML, see LoadOverrides:
//
//	f, _ := os.Open("signet.yaml")
//	o, err := rdbms.LoadOverrides(f)
//	r := rdbms.DefaultResolver(rdbms.WithOverrides(o))
package rdbms
