package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"200"` // 红色警报最长需要 3 分钟
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"60"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"2"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	InitialAdmin struct {
		Username string `env:"USERNAME" envDefault:"admin"`
		Password string `env:"PASSWORD,required"`
		FullName string `env:"FULL_NAME" envDefault:"Administrator"`
		Email    string `env:"EMAIL,required"`
	} `envPrefix:"INITIAL_ADMIN_"`
	JWT struct {
		Expiration int    `env:"EXPIRATION" envDefault:"8"` // 单位为小时
		Secret     string `env:"SECRET,required"`
	} `envPrefix:"JWT_"`
	Seed struct {
		User struct {
			Password string `env:"PASSWORD" envDefault:"medroster"`
		} `envPrefix:"USER_"`
	} `envPrefix:"SEED_"`
	Email struct {
		UserDomain string `env:"USER_DOMAIN" envDefault:"hospital.local"`
		SMTP       struct {
			Username    string `env:"USERNAME"`
			Password    string `env:"PASSWORD"`
			Host        string `env:"HOST"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
		MailQueue      string `env:"MAIL_QUEUE" envDefault:"email_queue"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host                string `env:"HOST" envDefault:"localhost"`
		Port                int    `env:"PORT" envDefault:"6379"`
		Password            string `env:"PASSWORD"`
		ConnectTimeout      int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		OperationExpiration int    `env:"OPERATION_EXPIRATION" envDefault:"10"`
	} `envPrefix:"REDIS_"`
	RedAlert struct {
		LockTTL        int `env:"LOCK_TTL" envDefault:"180"`
		ResponseBudget int `env:"RESPONSE_BUDGET" envDefault:"180"`
		AuditLogLimit  int `env:"AUDIT_LOG_LIMIT" envDefault:"50"`
	} `envPrefix:"RED_ALERT_"`
	OpenAI struct {
		APIKey  string `env:"API_KEY"`
		BaseURL string `env:"BASE_URL" envDefault:"https://api.openai.com/v1"`
		Model   string `env:"MODEL" envDefault:"gpt-4o"`
		Timeout int    `env:"TIMEOUT" envDefault:"60"`
	} `envPrefix:"OPENAI_"`
	ElevenLabs struct {
		APIKey          string  `env:"API_KEY"`
		VoiceID         string  `env:"VOICE_ID" envDefault:"JBFqnCBsd6RMkjVDRZzb"`
		BaseURL         string  `env:"BASE_URL" envDefault:"https://api.elevenlabs.io/v1"`
		ModelID         string  `env:"MODEL_ID" envDefault:"eleven_multilingual_v2"`
		Stability       float64 `env:"STABILITY" envDefault:"0.5"`
		SimilarityBoost float64 `env:"SIMILARITY_BOOST" envDefault:"0.75"`
		Timeout         int     `env:"TIMEOUT" envDefault:"30"`
		AudioDir        string  `env:"AUDIO_DIR" envDefault:"/tmp/medroster-audio"`
	} `envPrefix:"ELEVENLABS_"`
	NewUser struct {
		PasswordLength int `env:"PASSWORD_LENGTH" envDefault:"12"`
	} `envPrefix:"NEW_USER_"`
}

// 示例 .env 中的占位符视为未配置
var placeholderKeys = []string{"your_openai_key_here", "your_elevenlabs_key_here"}

func isConfigured(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return false
	}
	for _, p := range placeholderKeys {
		if key == p {
			return false
		}
	}
	return true
}

// OpenAIConfigured 判断推理服务的凭证是否可用
func (c *Config) OpenAIConfigured() bool {
	return isConfigured(c.OpenAI.APIKey)
}

// ElevenLabsConfigured 判断语音合成服务的凭证与声音 ID 是否可用
func (c *Config) ElevenLabsConfigured() bool {
	return isConfigured(c.ElevenLabs.APIKey) && strings.TrimSpace(c.ElevenLabs.VoiceID) != ""
}

func LoadConfig() (*Config, error) {
	// .env 文件是可选的，不存在时直接使用环境变量
	_ = godotenv.Load()

	return parse()
}

func parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
		return nil, err
	}

	// 红色警报在事务内等待语音广播完成，事务超时不能短于语音合成超时
	if cfg.Database.TransactionTimeout < cfg.ElevenLabs.Timeout {
		return nil, fmt.Errorf("DATABASE_TRANSACTION_TIMEOUT (%d) must not be shorter than ELEVENLABS_TIMEOUT (%d)",
			cfg.Database.TransactionTimeout, cfg.ElevenLabs.Timeout)
	}

	return cfg, nil
}
