package config

type config struct {
	Mysql         mysql         `yaml:"mysql" mapstructure:"mysql"`
	Redis         redis         `yaml:"redis" mapstructure:"redis"`
	RabbitMq      rabbitmq      `yaml:"rabbitmq" mapstructure:"rabbitmq"`
	Elasticsearch elasticsearch `yaml:"elasticsearch" mapstructure:"elasticsearch"`
	Jaeger        jaeger        `yaml:"jaeger" mapstructure:"jaeger"`
	Jwt           jwt           `yaml:"jwt" mapstructure:"jwt"`
	Retry         retryConf     `yaml:"retry" mapstructure:"retry"`
	Reconcile     reconcile     `yaml:"reconcile" mapstructure:"reconcile"`
	Fanout        fanout        `yaml:"fanout" mapstructure:"fanout"`
	Server        server        `yaml:"server" mapstructure:"server"`
}

type mysql struct {
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Charset  string `yaml:"charset"`
}

type redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type rabbitmq struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type elasticsearch struct {
	Url   string `yaml:"url"`
	Index string `yaml:"index"`
}

type jaeger struct {
	AgentAddr string `yaml:"agent_addr" mapstructure:"agent_addr"`
}

type jwt struct {
	Secret  string `yaml:"secret"`
	Timeout string `yaml:"timeout"`
}

type retryConf struct {
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelay   string  `yaml:"base_delay" mapstructure:"base_delay"`
	Jitter      float64 `yaml:"jitter"`
}

type reconcile struct {
	Interval      string  `yaml:"interval"`
	PageSize      int     `yaml:"page_size" mapstructure:"page_size"`
	UsersPerSec   float64 `yaml:"users_per_sec" mapstructure:"users_per_sec"`
	UsersPerBurst int     `yaml:"users_per_burst" mapstructure:"users_per_burst"`
}

type fanout struct {
	ChunkSize int `yaml:"chunk_size" mapstructure:"chunk_size"`
}

type server struct {
	ApiAddr     string `yaml:"api_addr" mapstructure:"api_addr"`
	PprofAddr   string `yaml:"pprof_addr" mapstructure:"pprof_addr"`
	MetricsAddr string `yaml:"metrics_addr" mapstructure:"metrics_addr"`
}
