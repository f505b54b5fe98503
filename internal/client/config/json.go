package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/papervault/internal/flagx"
	"github.com/dmitrijs2005/papervault/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. It uses timex.Duration for interval fields, which parses both string
// values such as "3s" and integer nanoseconds. After unmarshalling, its
// fields are copied into the runtime Config.
type JsonConfig struct {
	ServerEndpointAddr  string         `json:"server_endpoint_addr"`
	DatabaseDSN         string         `json:"database_dsn"`
	Token               string         `json:"token"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	RetentionWindow     timex.Duration `json:"retention_window"`
	UploadTimeout       timex.Duration `json:"upload_timeout"`
}

// parseJson loads configuration values from the JSON file given via the -c or
// -config flags. When no file is given, the Config is left untouched. A file
// that cannot be read or parsed panics: a broken explicit config should not
// start the agent.
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

	if c.ServerEndpointAddr != "" {
		config.ServerEndpointAddr = c.ServerEndpointAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.Token != "" {
		config.Token = c.Token
	}
	if c.OnlineCheckInterval.Duration != 0 {
		config.OnlineCheckInterval = c.OnlineCheckInterval.Duration
	}
	if c.RetentionWindow.Duration != 0 {
		config.RetentionWindow = c.RetentionWindow.Duration
	}
	if c.UploadTimeout.Duration != 0 {
		config.UploadTimeout = c.UploadTimeout.Duration
	}
}
