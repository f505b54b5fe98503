package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/papervault/internal/flagx"
	"github.com/dmitrijs2005/papervault/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "5m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddr       string         `json:"endpoint_addr"`
	DatabaseDSN        string         `json:"database_dsn"`
	SecretKey          string         `json:"secret_key"`
	S3RootUser         string         `json:"s3_root_user"`
	S3RootPassword     string         `json:"s3_root_password"`
	S3Bucket           string         `json:"s3_bucket"`
	S3Region           string         `json:"s3_region"`
	S3BaseEndpoint     string         `json:"s3_base_endpoint"`
	S3KMSKeyID         string         `json:"s3_kms_key_id"`
	OwnerNamespace     string         `json:"owner_namespace"`
	MaxFileSize        int64          `json:"max_file_size"`
	AllowedMimeTypes   []string       `json:"allowed_mime_types"`
	SignedRefExpiry    timex.Duration `json:"signed_ref_expiry"`
	ClassifierEndpoint string         `json:"classifier_endpoint"`
	OCREndpoint        string         `json:"ocr_endpoint"`
	ClassifierTimeout  timex.Duration `json:"classifier_timeout"`
}

// parseJson loads configuration values from the JSON file given via the -c or
// -config flags into the provided Config. When no file is given, the Config
// is left untouched. An unreadable or invalid file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.S3RootUser != "" {
		config.S3RootUser = c.S3RootUser
	}
	if c.S3RootPassword != "" {
		config.S3RootPassword = c.S3RootPassword
	}
	if c.S3Bucket != "" {
		config.S3Bucket = c.S3Bucket
	}
	if c.S3Region != "" {
		config.S3Region = c.S3Region
	}
	if c.S3BaseEndpoint != "" {
		config.S3BaseEndpoint = c.S3BaseEndpoint
	}
	if c.S3KMSKeyID != "" {
		config.S3KMSKeyID = c.S3KMSKeyID
	}
	if c.OwnerNamespace != "" {
		config.OwnerNamespace = c.OwnerNamespace
	}
	if c.MaxFileSize != 0 {
		config.MaxFileSize = c.MaxFileSize
	}
	if len(c.AllowedMimeTypes) > 0 {
		config.AllowedMimeTypes = c.AllowedMimeTypes
	}
	if c.SignedRefExpiry.Duration != 0 {
		config.SignedRefExpiry = c.SignedRefExpiry.Duration
	}
	if c.ClassifierEndpoint != "" {
		config.ClassifierEndpoint = c.ClassifierEndpoint
	}
	if c.OCREndpoint != "" {
		config.OCREndpoint = c.OCREndpoint
	}
	if c.ClassifierTimeout.Duration != 0 {
		config.ClassifierTimeout = c.ClassifierTimeout.Duration
	}
}
