// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	GRPCHealthAddress       string `yaml:"grpc_health_address" env-default:":9090"`
	BaseURL                 string `yaml:"base_url" env:"BASE_URL" env-default:"http://localhost:8080"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Billing                 `yaml:"billing"`
	Chargily                `yaml:"chargily"`
	Webhook                 `yaml:"webhook"`
	Scheduler               `yaml:"scheduler"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
// Пустой адрес отключает защиту от повторной доставки вебхуков.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// RabbitMQ структура для подключения к брокеру уведомлений.
// Пустой URL включает dev-режим: ссылки пишутся в лог.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// Billing правила пробного периода и тарифа.
type Billing struct {
	TrialDays    int    `yaml:"trial_days" env-default:"7"`
	BillingDays  int    `yaml:"billing_days" env-default:"30"`
	MonthlyPrice int    `yaml:"monthly_price" env:"MONTHLY_PRICE_DZD" env-default:"1000"`
	Currency     string `yaml:"currency" env-default:"dzd"`
	Plan         string `yaml:"plan" env-default:"monthly"`
	Locale       string `yaml:"locale" env-default:"ar"`
}

// Chargily настройки платёжного шлюза.
type Chargily struct {
	SecretKey  string        `yaml:"secret_key" env:"CHARGILY_SECRET_KEY"`
	Live       bool          `yaml:"live" env:"CHARGILY_LIVE"`
	SuccessURL string        `yaml:"success_url" env:"CHARGILY_SUCCESS_URL" env-default:"http://localhost:8080/account"`
	Timeout    time.Duration `yaml:"timeout" env-default:"20s"`
}

// Webhook дополнительная защита обработчика уведомлений. По умолчанию выключена.
type Webhook struct {
	Dedupe        bool          `yaml:"dedupe" env:"WEBHOOK_DEDUPE"`
	DedupeTTL     time.Duration `yaml:"dedupe_ttl" env-default:"72h"`
	SigningSecret string        `yaml:"signing_secret" env:"WEBHOOK_SIGNING_SECRET"`
}

// Scheduler расписание рассылки напоминаний.
type Scheduler struct {
	Spec string `yaml:"spec" env-default:"@daily"`
}

// MustLoad функция для загрузки конфига, возвращает конфиг, сгенерированный из config/config.go
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}

// ChargilyBaseURL возвращает адрес API в зависимости от режима.
func (c Chargily) ChargilyBaseURL() string {
	if c.Live {
		return "https://pay.chargily.net/api/v2"
	}
	return "https://pay.chargily.net/test/api/v2"
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"GRPCHealthAddress: %s\n"+
			"Redis: %s\n"+
			"RabbitMQ configured: %t\n"+
			"Billing:\n"+
			"  TrialDays: %d\n"+
			"  BillingDays: %d\n"+
			"  MonthlyPrice: %d %s\n"+
			"Chargily:\n"+
			"  Live: %t\n"+
			"  SecretKey set: %t\n"+
			"Webhook:\n"+
			"  Dedupe: %t\n"+
			"  Signed: %t\n",
		c.Env,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.GRPCHealthAddress,
		c.AddressRedis,
		c.RabbitMQURL != "",
		c.TrialDays,
		c.BillingDays,
		c.MonthlyPrice,
		c.Currency,
		c.Live,
		c.SecretKey != "",
		c.Dedupe,
		c.SigningSecret != "",
	)
}
