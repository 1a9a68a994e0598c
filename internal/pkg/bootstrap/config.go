// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile = "configs/config.yaml"

	StoreDriverREST  = "rest"
	StoreDriverMySQL = "mysql"
)

type Config struct {
	App       AppConfig       `yaml:"app"`
	Platform  PlatformConfig  `yaml:"platform"`
	Store     StoreConfig     `yaml:"store"`
	Infra     InfraConfig     `yaml:"infra"`
	Functions FunctionsConfig `yaml:"functions"`
}

type AppConfig struct {
	Name     string `yaml:"name"`
	Env      string `yaml:"env"` // dev 时使用 console 日志
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"logLevel"`
}

// PlatformConfig 是托管平台的地址和两把 key。ServiceRoleKey 只允许出现在服务端。
type PlatformConfig struct {
	URL            string        `yaml:"url"`
	AnonKey        string        `yaml:"anonKey"`
	ServiceRoleKey string        `yaml:"serviceRoleKey"`
	Timeout        time.Duration `yaml:"timeout"`
}

type StoreConfig struct {
	Driver        string `yaml:"driver"` // rest | mysql
	MySQLDSN      string `yaml:"mysqlDsn"`
	IdentityTable string `yaml:"identityTable"`
}

type InfraConfig struct {
	Jaeger struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"jaeger"`
	Redis struct {
		Addrs    string `yaml:"addrs"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Kafka struct {
		Brokers     []string `yaml:"brokers"`
		EventsTopic string   `yaml:"eventsTopic"`
		AuditGroup  string   `yaml:"auditGroup"`
	} `yaml:"kafka"`
	Nacos struct {
		Enabled     bool   `yaml:"enabled"`
		ServerAddrs string `yaml:"serverAddrs"`
		Namespace   string `yaml:"namespace"`
		Group       string `yaml:"group"`
	} `yaml:"nacos"`
}

type FunctionsConfig struct {
	RateLimit struct {
		Limit  int           `yaml:"limit"`
		Window time.Duration `yaml:"window"`

		// 服务前面的可信代理层数，0 表示直连，只按 RemoteAddr 限流
		TrustedProxies int `yaml:"trustedProxies"`
	} `yaml:"rateLimit"`
	Redeem struct {
		IdempotencyTTL time.Duration `yaml:"idempotencyTtl"`
		MaxAttempts    int           `yaml:"maxAttempts"`
	} `yaml:"redeem"`
	Delivery struct {
		DefaultFee float64       `yaml:"defaultFee"`
		CacheTTL   time.Duration `yaml:"cacheTtl"`
	} `yaml:"delivery"`
}

// LoadConfig 读取 YAML 配置，再用环境变量覆盖，最后补默认值。
// 文件不存在时只使用环境变量和默认值。
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = getEnv("CONFIG_FILE", DefaultConfigFile)
	}

	cfg := &Config{}
	data, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", path)
		}
	case os.IsNotExist(err):
	default:
		return nil, errors.Wrapf(err, "read config file %s", path)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Platform.URL = getEnv("PLATFORM_URL", c.Platform.URL)
	c.Platform.AnonKey = getEnv("PLATFORM_ANON_KEY", c.Platform.AnonKey)
	c.Platform.ServiceRoleKey = getEnv("PLATFORM_SERVICE_ROLE_KEY", c.Platform.ServiceRoleKey)
	c.Store.Driver = getEnv("STORE_DRIVER", c.Store.Driver)
	c.Store.MySQLDSN = getEnv("MYSQL_DSN", c.Store.MySQLDSN)
	c.Infra.Redis.Addrs = getEnv("REDIS_ADDR", c.Infra.Redis.Addrs)
	c.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", c.Infra.Jaeger.Endpoint)
	c.App.LogLevel = getEnv("LOG_LEVEL", c.App.LogLevel)
	c.Infra.Nacos.ServerAddrs = getEnv("NACOS_SERVER_ADDRS", c.Infra.Nacos.ServerAddrs)
	c.Infra.Nacos.Namespace = getEnv("NACOS_NAMESPACE", c.Infra.Nacos.Namespace)
	c.Infra.Nacos.Group = getEnv("NACOS_GROUP", c.Infra.Nacos.Group)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		c.Infra.Kafka.Brokers = splitList(brokers)
	}
	if hops := getEnv("TRUSTED_PROXIES", ""); hops != "" {
		n, err := strconv.Atoi(hops)
		if err != nil {
			return errors.Wrapf(err, "invalid TRUSTED_PROXIES %q", hops)
		}
		c.Functions.RateLimit.TrustedProxies = n
	}
	if port := getEnv("HTTP_PORT", ""); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return errors.Wrapf(err, "invalid HTTP_PORT %q", port)
		}
		c.App.Port = p
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "storefront-functions"
	}
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Platform.Timeout == 0 {
		c.Platform.Timeout = 10 * time.Second
	}
	if c.Store.Driver == "" {
		c.Store.Driver = StoreDriverREST
	}
	if c.Infra.Kafka.EventsTopic == "" {
		c.Infra.Kafka.EventsTopic = "storefront-events"
	}
	if c.Infra.Kafka.AuditGroup == "" {
		c.Infra.Kafka.AuditGroup = "erasure-audit"
	}
	if c.Infra.Nacos.Group == "" {
		c.Infra.Nacos.Group = "DEFAULT_GROUP"
	}
	if c.Functions.RateLimit.Limit == 0 {
		c.Functions.RateLimit.Limit = 20
	}
	if c.Functions.RateLimit.Window == 0 {
		c.Functions.RateLimit.Window = time.Minute
	}
	if c.Functions.Redeem.IdempotencyTTL == 0 {
		c.Functions.Redeem.IdempotencyTTL = 24 * time.Hour
	}
	if c.Functions.Redeem.MaxAttempts == 0 {
		c.Functions.Redeem.MaxAttempts = 3
	}
	if c.Functions.Delivery.CacheTTL == 0 {
		c.Functions.Delivery.CacheTTL = 5 * time.Minute
	}
}

// Validate 检查函数服务启动必需的配置。
func (c *Config) Validate() error {
	if c.Platform.URL == "" {
		return errors.New("platform.url (PLATFORM_URL) is required")
	}
	u, err := url.Parse(c.Platform.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Errorf("platform.url %q must be an absolute URL", c.Platform.URL)
	}
	if c.Platform.AnonKey == "" {
		return errors.New("platform.anonKey (PLATFORM_ANON_KEY) is required")
	}

	switch c.Store.Driver {
	case StoreDriverREST:
		if c.Platform.ServiceRoleKey == "" {
			return errors.New("platform.serviceRoleKey (PLATFORM_SERVICE_ROLE_KEY) is required for the rest store driver")
		}
	case StoreDriverMySQL:
		if c.Store.MySQLDSN == "" {
			return errors.New("store.mysqlDsn (MYSQL_DSN) is required for the mysql store driver")
		}
		if _, err := mysql.ParseDSN(c.Store.MySQLDSN); err != nil {
			return errors.Wrap(err, "invalid store.mysqlDsn")
		}
	default:
		return errors.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.Functions.RateLimit.Limit < 0 || c.Functions.RateLimit.TrustedProxies < 0 || c.Functions.Redeem.MaxAttempts < 0 {
		return errors.New("functions limits must not be negative")
	}
	if c.Functions.Delivery.DefaultFee < 0 {
		return errors.New("functions.delivery.defaultFee must not be negative")
	}
	if c.Infra.Nacos.Enabled && c.Infra.Nacos.ServerAddrs == "" {
		return errors.New("infra.nacos.serverAddrs is required when nacos is enabled")
	}
	return nil
}

// getEnv 是一个内部辅助函数，从环境变量中读取配置。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
