package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/yashrajoria/ups-shipping-service/providers"
	"github.com/yashrajoria/ups-shipping-service/storage"
)

const upsCredentialsSecret = "ups/CLIENT_CREDENTIALS"

// Config holds all configuration for the UPS shipping service.
type Config struct {
	Port   string `validate:"required,numeric"`
	AppEnv string

	UPSClientID       string `validate:"required"`
	UPSClientSecret   string `validate:"required"`
	UPSSandbox        bool
	UPSAccountNumber  string `validate:"required"`
	UPSProductionURL  string `validate:"required,url"`
	UPSSandboxURL     string `validate:"required,url"`
	UPSTransactionSrc string
	UPSHTTPTimeout    time.Duration `validate:"gt=0"`

	LabelStore    string `validate:"oneof=local s3"`
	StorageRoot   string `validate:"required_if=LabelStore local"`
	PublicBaseURL string `validate:"required,url"`
	LabelS3Bucket string `validate:"required_if=LabelStore s3"`

	ShippingSNSTopicARN string
	UseSecrets          bool
	LogFile             string
	CloudWatchEnabled   bool
}

// UPS returns the carrier client settings.
func (c *Config) UPS() providers.UPSConfig {
	return providers.UPSConfig{
		ClientID:          c.UPSClientID,
		ClientSecret:      c.UPSClientSecret,
		Sandbox:           c.UPSSandbox,
		AccountNumber:     c.UPSAccountNumber,
		ProductionURL:     c.UPSProductionURL,
		SandboxURL:        c.UPSSandboxURL,
		TransactionSource: c.UPSTransactionSrc,
		Timeout:           c.UPSHTTPTimeout,
	}
}

// NeedsAWS reports whether any configured integration talks to AWS.
func (c *Config) NeedsAWS() bool {
	return c.LabelStore == storage.BackendS3 || c.ShippingSNSTopicARN != "" || c.UseSecrets || c.CloudWatchEnabled
}

// secretMapGetter is satisfied by pkg/aws.SecretsClient.
type secretMapGetter interface {
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// LoadConfig reads configuration from the environment, after loading .env
// when one exists.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	port := getEnv("PORT", "8092")
	cfg := &Config{
		Port:   port,
		AppEnv: getEnv("APP_ENV", "development"),

		UPSClientID:       os.Getenv("UPS_CLIENT_ID"),
		UPSClientSecret:   os.Getenv("UPS_CLIENT_SECRET"),
		UPSSandbox:        getEnvBool("UPS_SANDBOX", true),
		UPSAccountNumber:  os.Getenv("UPS_BILLING_ACCOUNT"),
		UPSProductionURL:  getEnv("UPS_API_PRODUCTION_URL", "https://onlinetools.ups.com"),
		UPSSandboxURL:     getEnv("UPS_API_SANDBOX_URL", "https://wwwcie.ups.com"),
		UPSTransactionSrc: getEnv("UPS_TRANSACTION_SRC", "testing"),

		LabelStore:    getEnv("LABEL_STORE", storage.BackendLocal),
		StorageRoot:   getEnv("STORAGE_ROOT", "./storage"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:"+port),
		LabelS3Bucket: os.Getenv("LABEL_S3_BUCKET"),

		ShippingSNSTopicARN: os.Getenv("SHIPPING_SNS_TOPIC_ARN"),
		UseSecrets:          getEnvBool("AWS_USE_SECRETS", false),
		LogFile:             os.Getenv("LOG_FILE"),
		CloudWatchEnabled:   getEnvBool("CLOUDWATCH_ENABLED", false),
	}

	timeout, err := time.ParseDuration(getEnv("UPS_HTTP_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid UPS_HTTP_TIMEOUT: %w", err)
	}
	cfg.UPSHTTPTimeout = timeout

	return cfg, nil
}

// ApplySecrets overrides the UPS credentials with the values stored in
// Secrets Manager. Missing keys leave the environment values in place.
func (c *Config) ApplySecrets(ctx context.Context, sm secretMapGetter) error {
	m, err := sm.GetSecretMap(ctx, upsCredentialsSecret)
	if err != nil {
		return err
	}
	if v := m["UPS_CLIENT_ID"]; v != "" {
		c.UPSClientID = v
	}
	if v := m["UPS_CLIENT_SECRET"]; v != "" {
		c.UPSClientSecret = v
	}
	if v := m["UPS_BILLING_ACCOUNT"]; v != "" {
		c.UPSAccountNumber = v
	}
	return nil
}

// Validate checks required settings once every source has been applied.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
