package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type DB struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Pass     string `mapstructure:"password"`
	Name     string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int    `mapstructure:"max_conns"`
}

func (d DB) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d",
		d.User, d.Pass, d.Host, d.Port, d.Name, d.SSLMode, d.MaxConns)
}

type MQ struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Pass     string `mapstructure:"password"`
	VHost    string `mapstructure:"vhost"`
	Exchange string `mapstructure:"exchange"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Kafka struct {
	Brokers     []string `mapstructure:"brokers"`
	Topic       string   `mapstructure:"topic"`
	GroupPrefix string   `mapstructure:"group_prefix"`
}

// Feed selects the change-notification transport: rabbitmq, kafka, poll or memory.
type Feed struct {
	Transport    string        `mapstructure:"transport"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// Draft selects where the counter mirrors its cart: file, redis or memory.
type Draft struct {
	Driver  string `mapstructure:"driver"`
	Dir     string `mapstructure:"dir"`
	Station string `mapstructure:"station"`
}

// Storage selects the order queue backend: postgres or memory.
type Storage struct {
	Driver string `mapstructure:"driver"`
}

// Register names the fulfillment station in completion logs.
type Register struct {
	Station string `mapstructure:"station"`
}

// ProductSeed feeds the static catalog used with the memory storage driver.
type ProductSeed struct {
	ID       string   `mapstructure:"id"`
	Name     string   `mapstructure:"name"`
	Units    []string `mapstructure:"units"`
	Location string   `mapstructure:"location"`
}

type Catalog struct {
	Products []ProductSeed `mapstructure:"products"`
}

type HTTP struct {
	Port int `mapstructure:"port"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type App struct {
	Database DB       `mapstructure:"database"`
	Rabbit   MQ       `mapstructure:"rabbitmq"`
	Redis    Redis    `mapstructure:"redis"`
	Kafka    Kafka    `mapstructure:"kafka"`
	Feed     Feed     `mapstructure:"feed"`
	Draft    Draft    `mapstructure:"draft"`
	Storage  Storage  `mapstructure:"storage"`
	Register Register `mapstructure:"register"`
	Catalog  Catalog  `mapstructure:"catalog"`
	HTTP     HTTP     `mapstructure:"http"`
	Log      Log      `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "pos")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "pos")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("rabbitmq.host", "localhost")
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.user", "guest")
	v.SetDefault("rabbitmq.password", "guest")
	v.SetDefault("rabbitmq.vhost", "/")
	v.SetDefault("rabbitmq.exchange", "orders_changes")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "orders.changes")
	v.SetDefault("kafka.group_prefix", "register")

	v.SetDefault("feed.transport", "rabbitmq")
	v.SetDefault("feed.poll_interval", 5*time.Second)

	v.SetDefault("draft.driver", "file")
	v.SetDefault("draft.dir", ".pos-draft")
	v.SetDefault("draft.station", "counter-1")

	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("register.station", "caja-1")
	v.SetDefault("http.port", 3000)
	v.SetDefault("log.level", "info")
}

// Load reads path (optional) and applies POS_* environment overrides,
// e.g. POS_DATABASE_HOST or POS_FEED_TRANSPORT.
func Load(path string) (App, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("POS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return App{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var a App
	if err := v.Unmarshal(&a); err != nil {
		return App{}, fmt.Errorf("decode config: %w", err)
	}
	return a, nil
}

// Validate checks only the sections the selected drivers need.
func (a App) Validate() error {
	var errs []error
	switch a.Storage.Driver {
	case "postgres":
		if a.Database.Host == "" || a.Database.User == "" || a.Database.Name == "" {
			errs = append(errs, errors.New("database: host, user and database are required"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown %q", a.Storage.Driver))
	}
	switch a.Feed.Transport {
	case "rabbitmq":
		if a.Rabbit.Host == "" || a.Rabbit.User == "" {
			errs = append(errs, errors.New("rabbitmq: host and user are required"))
		}
	case "kafka":
		if len(a.Kafka.Brokers) == 0 || a.Kafka.Topic == "" {
			errs = append(errs, errors.New("kafka: brokers and topic are required"))
		}
	case "poll":
		if a.Feed.PollInterval <= 0 {
			errs = append(errs, errors.New("feed.poll_interval must be positive"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("feed.transport: unknown %q", a.Feed.Transport))
	}
	switch a.Draft.Driver {
	case "file":
		if a.Draft.Dir == "" {
			errs = append(errs, errors.New("draft.dir is required for the file driver"))
		}
	case "redis":
		if a.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required for the redis driver"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("draft.driver: unknown %q", a.Draft.Driver))
	}
	return errors.Join(errs...)
}

func FindConfig() (string, error) {
	candidates := []string{"config.yaml", "deploy/config.example.yaml"}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fs.ErrNotExist
}
