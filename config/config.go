// Package config provides configuration management for the ePay.bg payment
// service. Configuration can be loaded from YAML files and overridden by
// environment variables.
package config

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the ePay.bg payment service.
// Values can be set via YAML configuration file or environment variables.
// Environment variables take precedence over YAML values.
type Config struct {
	IsDebug    bool  `yaml:"is_debug" env:"DEBUG" env-default:"false"`
	LogRecords int64 `yaml:"log_records" env:"LOG_RECORDS" env-default:"0"`
	Listen     struct {
		BindIP   string `yaml:"bind_ip" env:"BIND_IP" env-default:"0.0.0.0"`
		Port     string `yaml:"port" env:"PORT" env-default:"5200"`
		TLS      bool   `yaml:"tls_enabled" env:"TLS_ENABLED" env-default:"false"`
		CertFile string `yaml:"cert_file" env:"TLS_CERT_FILE" env-default:""`
		KeyFile  string `yaml:"key_file" env:"TLS_KEY_FILE" env-default:""`
	} `yaml:"listen"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env:"MONGO_ENABLED" env-default:"false"`
		Host     string `yaml:"host" env:"MONGO_HOST" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env:"MONGO_PORT" env-default:"27017"`
		User     string `yaml:"user" env:"MONGO_USER" env-default:"admin"`
		Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:"pass"`
		Database string `yaml:"database" env:"MONGO_DATABASE" env-default:""`
	} `yaml:"mongo"`
	Merchant struct {
		// ClientId is the merchant customer number (MIN) of the ePay.bg account
		ClientId string `yaml:"client_id" env:"MERCHANT_CLIENT_ID" env-default:""`
		// SecretKey is the shared signing secret; whitespace is stripped on load
		SecretKey string `yaml:"secret_key" env:"MERCHANT_SECRET_KEY" env-default:""`
		// InvoicePrefix separates this shop's invoice numbers on the ePay.bg
		// side; digits only, at most ten of them
		InvoicePrefix string `yaml:"invoice_prefix" env:"MERCHANT_INVOICE_PREFIX" env-default:"00000"`
		// TestMode targets the demo portal instead of the live one
		TestMode bool   `yaml:"test_mode" env:"MERCHANT_TEST_MODE" env-default:"true"`
		Language string `yaml:"language" env:"MERCHANT_LANGUAGE" env-default:"en"`
		// ExpTimeHours limits how long a submitted payment request stays valid
		ExpTimeHours int    `yaml:"exp_time_hours" env:"MERCHANT_EXP_TIME_HOURS" env-default:"24"`
		UrlOk        string `yaml:"url_ok" env:"MERCHANT_URL_OK" env-default:""`
		UrlCancel    string `yaml:"url_cancel" env:"MERCHANT_URL_CANCEL" env-default:""`
		// DisableIpnKeyCheck bypasses the out-of-band token gate on callbacks
		DisableIpnKeyCheck bool `yaml:"disable_ipn_key_check" env:"MERCHANT_DISABLE_IPN_KEY_CHECK" env-default:"false"`
		// ServerSalt feeds the IPN token derivation together with the secret key
		ServerSalt string `yaml:"server_salt" env:"MERCHANT_SERVER_SALT" env-default:""`
	} `yaml:"merchant"`
	EasyPay struct {
		ExpTimeHours     int  `yaml:"exp_time_hours" env:"EASYPAY_EXP_TIME_HOURS" env-default:"48"`
		SendInstructions bool `yaml:"send_instructions" env:"EASYPAY_SEND_INSTRUCTIONS" env-default:"true"`
	} `yaml:"easypay"`
}

var instance *Config
var once sync.Once

var whitespace = regexp.MustCompile(`\s+`)
var nonDigits = regexp.MustCompile(`\D`)

// GetConfig loads configuration from the specified YAML file path.
// Configuration values can be overridden by environment variables.
// This function uses a singleton pattern and only loads the config once.
func GetConfig(path string) (*Config, error) {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("load config: %w; %s", err, desc)
			instance = nil
			return
		}
		instance.Normalize()
	})
	return instance, err
}

// Normalize applies the same input cleanup the ePay.bg merchant profile
// expects: no whitespace in the secret, digits-only prefix capped at ten.
func (c *Config) Normalize() {
	c.Merchant.SecretKey = whitespace.ReplaceAllString(c.Merchant.SecretKey, "")
	prefix := nonDigits.ReplaceAllString(c.Merchant.InvoicePrefix, "")
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	c.Merchant.InvoicePrefix = prefix
}
