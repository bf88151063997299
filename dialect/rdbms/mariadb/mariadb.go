// Package mariadb registers the MariaDB dialects. MariaDB speaks the MySQL
// protocol and is detected from the server version of MySQL connections.
//
//	import _ "github.com/syssam/signet/dialect/rdbms/mariadb"
package mariadb

import (
	"github.com/syssam/signet/dialect"
	"github.com/syssam/signet/dialect/rdbms"
	"github.com/syssam/signet/dialect/rdbms/mysql"
	"github.com/syssam/signet/dialect/sql"
	"github.com/syssam/signet/schema/field"
)

func init() {
	rdbms.Register("MariaDB 10.5+", dialect.Floor(V105), func() (*rdbms.Dialect, error) { return rdbms.New(Config(V105)) })
	rdbms.Register("MariaDB 10.0+", dialect.Floor(V100), func() (*rdbms.Dialect, error) { return rdbms.New(Config(V100)) })
}

// Signets of the registered entries. Inserts report their generated keys
// through a returning clause since 10.5.
var (
	V100 = dialect.NewSignet(dialect.MariaDB, 10, 0)
	V105 = dialect.NewSignet(dialect.MariaDB, 10, 5)
)

// Keywords reserved by MariaDB in addition to the MySQL 5.7 keywords.
var Keywords = []string{"except", "intersect", "over", "recursive", "returning", "rows", "window"}

// Config returns the dialect configuration for the given signet.
func Config(s dialect.Signet) rdbms.Config {
	// MariaDB 10.x types and limits follow MySQL 5.7.
	cfg := mysql.Config(mysql.V57)
	cfg.Signet = s
	cfg.Settings.Keywords = append(cfg.Settings.Keywords, Keywords...)
	cfg.Types.Put(field.TypeTime, "datetime(6)")
	if !s.Less(V105) {
		cfg.Strategies.KeyCapture = sql.KeysReturning
		cfg.Strategies.BulkKeys = nil
	}
	return cfg
}
