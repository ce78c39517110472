package storage

import (
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLDSN_ForcesParseTimeUTC(t *testing.T) {
	cases := []string{
		"app:secret@tcp(db:3306)/dishmap",
		"app:secret@tcp(db:3306)/dishmap?parseTime=false&loc=Local",
		"app:secret@tcp(db:3306)/dishmap?parseTime=true&loc=UTC&autocommit=true",
	}
	for _, in := range cases {
		out, err := mysqlDSN(in)
		require.NoError(t, err, in)

		c, err := mysql.ParseDSN(out)
		require.NoError(t, err, out)
		assert.True(t, c.ParseTime, out)
		assert.Equal(t, time.UTC, c.Loc, out)
		assert.Equal(t, "app", c.User)
		assert.Equal(t, "db:3306", c.Addr)
		assert.Equal(t, "dishmap", c.DBName)
	}
}

func TestMySQLDSN_KeepsExtraParams(t *testing.T) {
	out, err := mysqlDSN("app:secret@tcp(db:3306)/dishmap?autocommit=true&timeout=5s")
	require.NoError(t, err)
	c, err := mysql.ParseDSN(out)
	require.NoError(t, err)
	assert.Equal(t, "true", c.Params["autocommit"])
	assert.Equal(t, 5*time.Second, c.Timeout)
}

func TestMySQLDSN_Invalid(t *testing.T) {
	_, err := mysqlDSN("not a dsn")
	assert.Error(t, err)
}
