package websocket

import (
	"fmt"
	"strings"
	"time"

	"AmberWatch/pkg/util"
)

// 环境变量配置键
const (
	EnvWebSocketMaxConnections      = "WEBSOCKET_MAX_CONNECTIONS"
	EnvWebSocketHeartbeatInterval   = "WEBSOCKET_HEARTBEAT_INTERVAL"
	EnvWebSocketConnectionTimeout   = "WEBSOCKET_CONNECTION_TIMEOUT"
	EnvWebSocketMessageBufferSize   = "WEBSOCKET_MESSAGE_BUFFER_SIZE"
	EnvWebSocketMessageQueueSize    = "WEBSOCKET_MESSAGE_QUEUE_SIZE"
	EnvWebSocketEnableCompression   = "WEBSOCKET_ENABLE_COMPRESSION"
	EnvWebSocketShardCount          = "WEBSOCKET_SHARD_COUNT"
	EnvWebSocketBroadcastWorkers    = "WEBSOCKET_BROADCAST_WORKERS"
	EnvWebSocketCloseOnBackpressure = "WEBSOCKET_CLOSE_ON_BACKPRESSURE"
	EnvWebSocketAllowedOrigins      = "WEBSOCKET_ALLOWED_ORIGINS"
)

// Config WebSocket配置
type Config struct {
	// 最大连接数
	MaxConnections int64
	// 心跳间隔
	HeartbeatInterval time.Duration
	// 连接超时时间
	ConnectionTimeout time.Duration
	// 每个连接的发送缓冲
	MessageBufferSize int
	ReadBufferSize    int
	WriteBufferSize   int
	// 观察端只发心跳，读上限很小
	MaxMessageSize    int
	EnableCompression bool
	// 广播作业队列大小
	MessageQueueSize     int
	ShardCount           int
	BroadcastWorkerCount int
	// 慢消费者策略：缓冲满时直接断开
	CloseOnBackpressure bool
	// 为空时不校验 Origin
	AllowedOrigins []string
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		MaxConnections:       10000,
		HeartbeatInterval:    30 * time.Second,
		ConnectionTimeout:    60 * time.Second,
		MessageBufferSize:    64,
		ReadBufferSize:       1024,
		WriteBufferSize:      4096,
		MaxMessageSize:       512,
		EnableCompression:    true,
		MessageQueueSize:     256,
		ShardCount:           8,
		BroadcastWorkerCount: 4,
	}
}

// LoadConfigFromEnv 从环境变量加载WebSocket配置
func LoadConfigFromEnv() *Config {
	config := DefaultConfig()

	if v := util.GetIntEnv(EnvWebSocketMaxConnections); v > 0 {
		config.MaxConnections = int64(v)
	}
	if v := util.GetIntEnv(EnvWebSocketHeartbeatInterval); v > 0 {
		config.HeartbeatInterval = time.Duration(v) * time.Second
	}
	if v := util.GetIntEnv(EnvWebSocketConnectionTimeout); v > 0 {
		config.ConnectionTimeout = time.Duration(v) * time.Second
	}
	if v := util.GetIntEnv(EnvWebSocketMessageBufferSize); v > 0 {
		config.MessageBufferSize = int(v)
	}
	if v := util.GetIntEnv(EnvWebSocketMessageQueueSize); v > 0 {
		config.MessageQueueSize = int(v)
	}
	if v := util.GetIntEnv(EnvWebSocketShardCount); v > 0 {
		config.ShardCount = int(v)
	}
	if v := util.GetIntEnv(EnvWebSocketBroadcastWorkers); v > 0 {
		config.BroadcastWorkerCount = int(v)
	}
	if util.GetEnv(EnvWebSocketEnableCompression) != "" {
		config.EnableCompression = util.GetBoolEnv(EnvWebSocketEnableCompression)
	}
	if util.GetEnv(EnvWebSocketCloseOnBackpressure) != "" {
		config.CloseOnBackpressure = util.GetBoolEnv(EnvWebSocketCloseOnBackpressure)
	}
	if v := util.GetEnv(EnvWebSocketAllowedOrigins); v != "" {
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				config.AllowedOrigins = append(config.AllowedOrigins, o)
			}
		}
	}
	return config
}

// ValidateConfig 验证WebSocket配置
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("配置不能为空")
	}
	if config.MaxConnections <= 0 {
		return fmt.Errorf("最大连接数必须大于0")
	}
	if config.HeartbeatInterval <= 0 {
		return fmt.Errorf("心跳间隔必须大于0")
	}
	if config.ConnectionTimeout <= 0 {
		return fmt.Errorf("连接超时时间必须大于0")
	}
	if config.MessageBufferSize <= 0 {
		return fmt.Errorf("消息缓冲区大小必须大于0")
	}
	if config.MessageQueueSize <= 0 {
		return fmt.Errorf("消息队列大小必须大于0")
	}
	if config.ReadBufferSize <= 0 || config.WriteBufferSize <= 0 {
		return fmt.Errorf("读/写缓冲区大小必须大于0")
	}
	if config.MaxMessageSize <= 0 {
		return fmt.Errorf("最大消息大小必须大于0")
	}
	// 心跳间隔应该小于连接超时时间
	if config.HeartbeatInterval >= config.ConnectionTimeout {
		return fmt.Errorf("心跳间隔必须小于连接超时时间")
	}
	return nil
}
