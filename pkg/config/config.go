package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var valid = validator.New()

// EnvPrefix 环境变量前缀（STATS_MONITOR_INTERVAL -> monitor.interval）
const EnvPrefix = "STATS"

// Config 全局配置结构体
type Config struct {
	Server  ServerConfig  `yaml:"server" mapstructure:"server" comment:"HTTP服务配置"`
	Monitor MonitorConfig `yaml:"monitor" mapstructure:"monitor" comment:"监控采集配置"`
	Sink    SinkConfig    `yaml:"sink" mapstructure:"sink" comment:"记录下发配置"`
	Log     ZapLogConfig  `yaml:"log" mapstructure:"log" comment:"日志配置"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Addr         string        `yaml:"addr" mapstructure:"addr" validate:"required,hostname_port" comment:"HTTP监听地址（格式：ip:port）"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" validate:"required,gt=0" comment:"读取超时时间（如30s）"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" validate:"required,gt=0" comment:"写入超时时间（如30s）"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" validate:"required,gt=0" comment:"空闲连接超时时间（如60s）"`
}

// MonitorConfig 监控采集全局配置
type MonitorConfig struct {
	Interval       time.Duration   `yaml:"interval" mapstructure:"interval" validate:"required,gt=0" comment:"采集间隔（如10s）" default:"10s"`
	CommandTimeout time.Duration   `yaml:"command_timeout" mapstructure:"command_timeout" validate:"required,gt=0" comment:"单次外部调用超时" default:"30s"`
	Retry          RetryConfig     `yaml:"retry" mapstructure:"retry" comment:"连接重试策略"`
	Collectors     CollectorConfig `yaml:"collectors" mapstructure:"collectors" comment:"各类采集器配置"`
}

// RetryConfig 数据库/缓存连接重试（固定间隔，有上限）
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=1,lte=10" comment:"最大尝试次数" default:"3"`
	Delay       time.Duration `yaml:"delay" mapstructure:"delay" validate:"gte=0" comment:"两次尝试之间的间隔" default:"5s"`
}

// CollectorConfig 采集器配置
type CollectorConfig struct {
	CPU     CPUConfig     `yaml:"cpu" mapstructure:"cpu" comment:"CPU 时间片采集"`
	Lsof    CommandConfig `yaml:"lsof" mapstructure:"lsof" comment:"打开文件列表（lsof）"`
	Process ProcessConfig `yaml:"process" mapstructure:"process" comment:"进程列表（ps）"`
	Socket  CommandConfig `yaml:"socket" mapstructure:"socket" comment:"套接字列表（netstat）"`
	MySQL   MySQLConfig   `yaml:"mysql" mapstructure:"mysql" comment:"MySQL 服务端指标"`
	Redis   RedisConfig   `yaml:"redis" mapstructure:"redis" comment:"Redis 服务端指标"`
	Nginx   NginxConfig   `yaml:"nginx" mapstructure:"nginx" comment:"NGINX Plus API 指标"`
}

// CPUConfig CPU 采集配置
type CPUConfig struct {
	Enable         bool `yaml:"enable" mapstructure:"enable" comment:"是否启用" default:"false"`
	CollectPerCore bool `yaml:"collect_per_core" mapstructure:"collect_per_core" comment:"是否按每核心输出" default:"false"`
}

// CommandConfig 基于 shell 命令输出的采集器
type CommandConfig struct {
	Enable  bool   `yaml:"enable" mapstructure:"enable" comment:"是否启用" default:"false"`
	Command string `yaml:"command" mapstructure:"command" comment:"执行的命令（sh -c）"`
}

// ProcessConfig ps 采集配置
type ProcessConfig struct {
	Enable       bool   `yaml:"enable" mapstructure:"enable" comment:"是否启用" default:"false"`
	NumProcesses int    `yaml:"num_processes" mapstructure:"num_processes" validate:"gte=0" comment:"输出前 N 个进程，0 表示全部" default:"0"`
	SortBy       string `yaml:"sort_by" mapstructure:"sort_by" validate:"required,oneof=cpu mem" comment:"排序字段 cpu/mem" default:"cpu"`
}

// MySQLConfig MySQL 采集配置
type MySQLConfig struct {
	Enable        bool          `yaml:"enable" mapstructure:"enable" comment:"是否启用" default:"false"`
	DocumentTypes []string      `yaml:"document_types" mapstructure:"document_types" validate:"dive,oneof=serverDetails databaseDetails tableDetails" comment:"输出的记录类型，空表示全部"`
	TableLimit    int           `yaml:"table_limit" mapstructure:"table_limit" validate:"gte=0" comment:"每个库最多输出的表数量，0 表示不限" default:"100"`
	Targets       []MySQLTarget `yaml:"targets" mapstructure:"targets" comment:"监控目标"`
}

// MySQLTarget 单个 MySQL 实例
type MySQLTarget struct {
	Name     string `yaml:"name" mapstructure:"name"`
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database" default:"information_schema"`
}

// RedisConfig Redis 采集配置
type RedisConfig struct {
	Enable        bool          `yaml:"enable" mapstructure:"enable" comment:"是否启用" default:"false"`
	DocumentTypes []string      `yaml:"document_types" mapstructure:"document_types" validate:"dive,oneof=redisDetails redisStat keyspaceStat" comment:"输出的记录类型，空表示全部"`
	Targets       []RedisTarget `yaml:"targets" mapstructure:"targets" comment:"监控目标"`
}

// RedisTarget 单个 Redis 实例
type RedisTarget struct {
	Name     string `yaml:"name" mapstructure:"name"`
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
}

// NginxConfig NGINX Plus 采集配置
type NginxConfig struct {
	Enable        bool          `yaml:"enable" mapstructure:"enable" comment:"是否启用" default:"false"`
	DocumentTypes []string      `yaml:"document_types" mapstructure:"document_types" validate:"dive,oneof=serverDetails serverStats" comment:"输出的记录类型，空表示全部"`
	Targets       []NginxTarget `yaml:"targets" mapstructure:"targets" comment:"监控目标"`
}

// NginxTarget 单个 NGINX Plus 实例
type NginxTarget struct {
	Name       string `yaml:"name" mapstructure:"name"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url" comment:"如 http://127.0.0.1:8080"`
	APIVersion string `yaml:"api_version" mapstructure:"api_version" comment:"为空时自动探测"`
}

// SinkConfig 记录下发配置
type SinkConfig struct {
	Outputs    []string `yaml:"outputs" mapstructure:"outputs" validate:"required,min=1,dive,oneof=log file memory" comment:"输出目标 log/file/memory"`
	FilePath   string   `yaml:"file_path" mapstructure:"file_path" comment:"file 输出目录" default:"./data"`
	MemorySize int      `yaml:"memory_size" mapstructure:"memory_size" validate:"gte=0" comment:"memory 输出保留的记录条数" default:"1000"`
}

// ZapLogConfig 日志配置
type ZapLogConfig struct {
	Level     string `yaml:"level" mapstructure:"level" validate:"required" comment:"日志级别" default:"info"`
	Format    string `yaml:"format" mapstructure:"format" validate:"required,oneof=json console" comment:"日志格式（json/console）" default:"json"`
	Path      string `yaml:"path" mapstructure:"path" validate:"required" comment:"日志存储路径" default:"./logs"`
	MaxBackup int    `yaml:"max_backup" mapstructure:"max_backup" validate:"gte=0" comment:"保留的日志文件个数，大于 0 时优先于 max_age" default:"30"`
	MaxAge    int    `yaml:"max_age" mapstructure:"max_age" validate:"gte=0" comment:"日志文件最大保存天数" default:"7"`
}

// 默认命令
const (
	DefaultLsofCommand   = "lsof -nPs -Ki | sed -n '2,$p'"
	DefaultSocketCommand = "netstat -aenp | grep -E 'tcp|udp'"
)

// NewDefaultConfig 创建默认配置（所有字段兜底，避免空指针/非法值）
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         "0.0.0.0:8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Monitor: MonitorConfig{
			Interval:       10 * time.Second,
			CommandTimeout: 30 * time.Second,
			Retry: RetryConfig{
				MaxAttempts: 3,
				Delay:       5 * time.Second,
			},
			Collectors: CollectorConfig{
				CPU: CPUConfig{
					Enable:         true,
					CollectPerCore: false,
				},
				Lsof: CommandConfig{
					Enable:  false,
					Command: DefaultLsofCommand,
				},
				Process: ProcessConfig{
					Enable:       false,
					NumProcesses: 0,
					SortBy:       "cpu",
				},
				Socket: CommandConfig{
					Enable:  false,
					Command: DefaultSocketCommand,
				},
				MySQL: MySQLConfig{
					TableLimit: 100,
				},
			},
		},
		Sink: SinkConfig{
			Outputs:    []string{"log"},
			FilePath:   "./data",
			MemorySize: 1000,
		},
		Log: ZapLogConfig{
			Level:     "info",
			Format:    "json",
			Path:      "./logs",
			MaxBackup: 30,
			MaxAge:    7,
		},
	}
}

// LoadConfigWithCli 加载配置（Flags + YAML + ENV），支持 time.Duration
func LoadConfigWithCli(cmd *cobra.Command) (*Config, error) {
	cfg := NewDefaultConfig()
	v := viper.New()

	// 1. 绑定 Cobra Flags → Viper
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	// 2. 解析配置文件 (--config)，未显式指定且默认文件不存在时只用默认值
	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" {
		_, statErr := os.Stat(configFile)
		explicit := cmd.Flags().Changed("config")
		if statErr == nil || explicit {
			v.SetConfigFile(configFile)
			if err := v.ReadInConfig(); err != nil {
				return nil, &ConfigError{Field: "config", Reason: "read config file " + configFile, Err: err}
			}
		}
	}

	// 3. 绑定环境变量 STATS_MONITOR_INTERVAL -> monitor.interval
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// 4. 解码到结构体
	if err := decode(v.AllSettings(), cfg); err != nil {
		return nil, &ConfigError{Field: "config", Reason: "decode", Err: err}
	}

	// 5. 校验配置
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(settings map[string]any, cfg *Config) error {
	decoderConfig := &mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return fmt.Errorf("new decoder: %w", err)
	}
	return decoder.Decode(settings)
}

// Validate 配置校验，失败统一返回 *ConfigError
func (c *Config) Validate() error {
	if err := valid.Struct(c); err != nil {
		return asConfigError(err)
	}
	// 	1,校验Server服务配置
	if err := c.Server.Validate(); err != nil {
		return err
	}
	// 	2，校验采集配置
	if err := c.Monitor.Validate(); err != nil {
		return err
	}
	// 	3，校验下发配置
	if err := c.Sink.Validate(); err != nil {
		return err
	}
	// 	4，校验日志配置
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return nil
}

// asConfigError 把 validator 的错误转换为 ConfigError（取第一个字段）
func asConfigError(err error) error {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return err
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		return &ConfigError{Field: fe.Namespace(), Reason: fmt.Sprintf("failed on '%s' rule", fe.Tag()), Err: err}
	}
	return &ConfigError{Field: "config", Reason: "invalid", Err: err}
}
