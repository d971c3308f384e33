package db

import (
	"FoodTok.com/cmd/model"
	"FoodTok.com/pkg/utils"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormopentracing "gorm.io/plugin/opentracing"
)

var DB *gorm.DB

// Init init DB
func Init() {
	var err error
	dsn := utils.GetMysqlDsn()
	cfg := newConfig()
	cfg.PrepareStmt = true
	DB, err = gorm.Open(mysql.Open(dsn), cfg)
	if err != nil {
		panic(err)
	}
	if err = DB.Use(gormopentracing.New()); err != nil {
		panic(err)
	}
	if err = Migrate(DB); err != nil {
		panic(err)
	}
}

// 计数器的并发控制依赖version列, 不使用gorm的默认事务
func newConfig() *gorm.Config {
	return &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
	}
}

// Open 打开数据库但不迁移表结构
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, newConfig())
}

func Migrate(db *gorm.DB) error {
	hlog.Info("Starting tables migration...")
	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		hlog.Errorf("Failed to migrate tables: %v", err)
		return err
	}
	hlog.Info("Tables migration completed successfully")
	return nil
}
