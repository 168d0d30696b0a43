package config

import (
	"github.com/spf13/viper"
	"github.com/starkclip/crs/internal/logger"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Treasury TreasuryConfig `mapstructure:"treasury"`
	Platform PlatformConfig `mapstructure:"platform"`
	Task     TaskConfig     `mapstructure:"task"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// AdminConfig 管理接口共享密钥，x-admin-password 请求头校验
type AdminConfig struct {
	Password string `mapstructure:"password"`
}

// TreasuryConfig 金库签名账户与奖励代币配置
type TreasuryConfig struct {
	RpcUrl          string `mapstructure:"rpc_url"`          // RPC节点URL
	ChainId         int64  `mapstructure:"chain_id"`         // 链ID
	PrivateKey      string `mapstructure:"private_key"`      // 金库私钥
	TokenAddress    string `mapstructure:"token_address"`    // 奖励代币合约地址
	TokenDecimals   int32  `mapstructure:"token_decimals"`   // 代币精度
	TransferTimeout int    `mapstructure:"transfer_timeout"` // 单笔转账超时（秒）
	Confirmations   int    `mapstructure:"confirmations"`    // 确认区块数
}

// PlatformConfig 视频平台会话服务（外部协作方）配置
type PlatformConfig struct {
	BaseUrl string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // 秒
}

type TaskConfig struct {
	Interval int `mapstructure:"interval"` // 秒
	PoolSize int `mapstructure:"pool_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, stderr, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

// GetLevel 实现 logger.LogConfig 接口
func (l LogConfig) GetLevel() string {
	return l.Level
}

// GetOutput 实现 logger.LogConfig 接口
func (l LogConfig) GetOutput() string {
	return l.Output
}

// GetFile 实现 logger.LogConfig 接口
func (l LogConfig) GetFile() string {
	return l.File
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/crs")

	// 设置默认值
	viper.SetDefault("server.port", "4000")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "creator_rewards")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("treasury.token_decimals", 18)
	viper.SetDefault("treasury.transfer_timeout", 30)
	viper.SetDefault("treasury.confirmations", 6)
	viper.SetDefault("platform.timeout", 10)
	viper.SetDefault("task.interval", 60)
	viper.SetDefault("task.pool_size", 8)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file", "logs/app.log")

	// 自动读取环境变量
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	return &config
}
