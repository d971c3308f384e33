// Package dbtest opens throwaway in-memory databases for package tests.
package dbtest

import (
	"testing"

	"FoodTok.com/pkg/dal/db"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// New 每个测试一个独立的内存库. 只保留一个连接, sqlite 的写入因此是串行的,
// 事务内部不能再使用外层句柄
func New(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(0)"
	gdb, err := db.Open(sqlite.Open(dsn))
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb))
	return gdb
}
