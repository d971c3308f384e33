package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"FoodTok.com/pkg/retry"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var ConfigInfo config

// viper对大小写不敏感, 未配置的项保留默认值
func Init() {
	wd, _ := os.Getwd()
	logrus.Infof("Current working directory: %s", wd)

	// 本地开发时从 .env 读取环境变量, 文件不存在时忽略
	if err := godotenv.Load(); err == nil {
		logrus.Info("Loaded environment from .env")
	}
	viper.SetEnvPrefix("foodtok")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	viper.SetConfigType("yaml")
	viper.SetConfigName("config.yml")

	configPaths := []string{
		"../../config",
		"./config",
		"../config",
		".",
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
		absPath, _ := filepath.Abs(path)
		logrus.Debugf("Added config path: %s (absolute: %s)", path, absPath)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logrus.Errorf("config file not found: %v", err)
		} else {
			logrus.Errorf("config error: %v", err)
		}
	} else {
		logrus.Infof("Successfully read config file: %s", viper.ConfigFileUsed())
	}

	load()

	logrus.Infof("Config loaded - MySQL: %s:%s@%s/%s",
		ConfigInfo.Mysql.Username, "***", ConfigInfo.Mysql.Addr, ConfigInfo.Mysql.Database)
	logrus.Infof("Retry policy - MaxAttempts: %d, BaseDelay: %s, Jitter: %.2f",
		ConfigInfo.Retry.MaxAttempts, ConfigInfo.Retry.BaseDelay, ConfigInfo.Retry.Jitter)

	if ConfigInfo.Jwt.Secret == "" {
		logrus.Warn("No jwt secret configured!")
	}
}

func setDefaults() {
	viper.SetDefault("mysql.charset", "utf8mb4")
	viper.SetDefault("redis.addr", "127.0.0.1:6379")
	viper.SetDefault("rabbitmq.addr", "127.0.0.1:5672")
	viper.SetDefault("rabbitmq.username", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("elasticsearch.index", "videos")
	viper.SetDefault("jwt.timeout", "24h")
	viper.SetDefault("retry.max_attempts", 3)
	viper.SetDefault("retry.base_delay", "1s")
	viper.SetDefault("retry.jitter", 0.2)
	viper.SetDefault("reconcile.interval", "10m")
	viper.SetDefault("reconcile.page_size", 500)
	viper.SetDefault("reconcile.users_per_sec", 0)
	viper.SetDefault("reconcile.users_per_burst", 10)
	viper.SetDefault("fanout.chunk_size", 500)
	viper.SetDefault("server.api_addr", "0.0.0.0:8888")
}

// 手动从viper获取配置值，避免Unmarshal问题
func load() {
	ConfigInfo.Mysql.Addr = viper.GetString("mysql.addr")
	ConfigInfo.Mysql.Database = viper.GetString("mysql.database")
	ConfigInfo.Mysql.Username = viper.GetString("mysql.username")
	ConfigInfo.Mysql.Password = viper.GetString("mysql.password")
	ConfigInfo.Mysql.Charset = viper.GetString("mysql.charset")

	ConfigInfo.Redis.Addr = viper.GetString("redis.addr")
	ConfigInfo.Redis.Password = viper.GetString("redis.password")
	ConfigInfo.Redis.DB = viper.GetInt("redis.db")

	ConfigInfo.RabbitMq.Addr = viper.GetString("rabbitmq.addr")
	ConfigInfo.RabbitMq.Username = viper.GetString("rabbitmq.username")
	ConfigInfo.RabbitMq.Password = viper.GetString("rabbitmq.password")

	ConfigInfo.Elasticsearch.Url = viper.GetString("elasticsearch.url")
	ConfigInfo.Elasticsearch.Index = viper.GetString("elasticsearch.index")

	ConfigInfo.Jaeger.AgentAddr = viper.GetString("jaeger.agent_addr")

	ConfigInfo.Jwt.Secret = viper.GetString("jwt.secret")
	ConfigInfo.Jwt.Timeout = viper.GetString("jwt.timeout")

	ConfigInfo.Retry.MaxAttempts = viper.GetInt("retry.max_attempts")
	ConfigInfo.Retry.BaseDelay = viper.GetString("retry.base_delay")
	ConfigInfo.Retry.Jitter = viper.GetFloat64("retry.jitter")

	ConfigInfo.Reconcile.Interval = viper.GetString("reconcile.interval")
	ConfigInfo.Reconcile.PageSize = viper.GetInt("reconcile.page_size")
	ConfigInfo.Reconcile.UsersPerSec = viper.GetFloat64("reconcile.users_per_sec")
	ConfigInfo.Reconcile.UsersPerBurst = viper.GetInt("reconcile.users_per_burst")

	ConfigInfo.Fanout.ChunkSize = viper.GetInt("fanout.chunk_size")

	ConfigInfo.Server.ApiAddr = viper.GetString("server.api_addr")
	ConfigInfo.Server.PprofAddr = viper.GetString("server.pprof_addr")
	ConfigInfo.Server.MetricsAddr = viper.GetString("server.metrics_addr")
}

// RabbitMqURL 拼接amqp连接串
func RabbitMqURL() string {
	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		return url
	}
	return "amqp://" + ConfigInfo.RabbitMq.Username + ":" + ConfigInfo.RabbitMq.Password + "@" + ConfigInfo.RabbitMq.Addr + "/"
}

// RetryPolicy 按配置生成计数器的重试策略
func RetryPolicy() *retry.Policy {
	p := retry.DefaultPolicy()
	if ConfigInfo.Retry.MaxAttempts > 0 {
		p.MaxAttempts = ConfigInfo.Retry.MaxAttempts
	}
	if d, err := time.ParseDuration(ConfigInfo.Retry.BaseDelay); err == nil && d > 0 {
		p.BaseDelay = d
	} else if ConfigInfo.Retry.BaseDelay != "" {
		logrus.Warnf("invalid retry.base_delay %q, using %s", ConfigInfo.Retry.BaseDelay, p.BaseDelay)
	}
	if ConfigInfo.Retry.Jitter >= 0 && ConfigInfo.Retry.Jitter < 1 {
		p.Jitter = ConfigInfo.Retry.Jitter
	}
	return p
}

// ReconcileInterval 修复任务的运行间隔, 默认10分钟
func ReconcileInterval() time.Duration {
	if d, err := time.ParseDuration(ConfigInfo.Reconcile.Interval); err == nil && d > 0 {
		return d
	}
	return 10 * time.Minute
}

// JwtTimeout token有效期, 默认24小时
func JwtTimeout() time.Duration {
	if d, err := time.ParseDuration(ConfigInfo.Jwt.Timeout); err == nil && d > 0 {
		return d
	}
	return 24 * time.Hour
}
