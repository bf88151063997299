package mariadb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/signet/dialect/rdbms"
	"github.com/syssam/signet/dialect/rdbms/mysql"
	"github.com/syssam/signet/dialect/sql"
	"github.com/syssam/signet/dialect/sql/schema"
	"github.com/syssam/signet/schema/field"
)

func TestConfig(t *testing.T) {
	at := schema.NewTable("events").MustAddColumn(&schema.Column{Name: "at", Type: field.TypeTime})
	for _, tt := range []struct {
		name    string
		cfg     rdbms.Config
		capture sql.KeyCapture
		bulk    bool
	}{
		{"10.0", Config(V100), sql.KeysLastInsertID, true},
		{"10.5", Config(V105), sql.KeysReturning, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			d, err := rdbms.New(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.capture, d.KeyCapture())
			assert.Equal(t, tt.bulk, tt.cfg.Strategies.BulkKeys != nil)
			typ, err := d.TypeName(at)
			require.NoError(t, err)
			assert.Equal(t, "datetime(6)", typ)
			assert.Equal(t, "`returning`", d.Quoter().Quote("returning"))
		})
	}
	assert.NotContains(t, mysql.Settings(mysql.V57).Keywords, "returning", "vendor keywords stay separate")
}
