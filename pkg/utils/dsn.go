package utils

import (
	"strings"

	"FoodTok.com/config"
)

// GetMysqlDsn 生成数据库的dsn, 时间统一按UTC解析
func GetMysqlDsn() string {
	return strings.Join([]string{config.ConfigInfo.Mysql.Username, ":",
		config.ConfigInfo.Mysql.Password, "@tcp(", config.ConfigInfo.Mysql.Addr, ")/",
		config.ConfigInfo.Mysql.Database, "?charset=" + config.ConfigInfo.Mysql.Charset + "&parseTime=true&loc=UTC"}, "") //nolint:lll
}
