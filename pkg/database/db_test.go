package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLDSNCountsMatchedRows(t *testing.T) {
	dsn, err := mysqlDSN("root:root@tcp(127.0.0.1:3306)/kirana?charset=utf8mb4&parseTime=True&loc=Local")
	require.NoError(t, err)
	assert.Contains(t, dsn, "clientFoundRows=true")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "/kirana?")

	_, err = mysqlDSN("not a dsn")
	assert.Error(t, err)
}

func TestBuildDialectorRejectsUnknownDriver(t *testing.T) {
	_, err := buildDialector("oracle", "")
	assert.Error(t, err)

	d, err := buildDialector("mysql", "root:root@tcp(127.0.0.1:3306)/kirana")
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name())
}
