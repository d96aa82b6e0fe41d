package logger

import (
	"fmt"
	"os"
	"runtime"
)

type Config struct {
	Level      Level             `json:"level"       yaml:"level"`
	Format     string            `json:"format"      yaml:"format"` // console, json, text
	Output     string            `json:"output"      yaml:"output"` // stdout, stderr, file
	FilePath   string            `json:"file_path"   yaml:"file_path"`
	MaxSize    int               `json:"max_size"    yaml:"max_size"` // MB
	MaxBackups int               `json:"max_backups" yaml:"max_backups"`
	MaxAge     int               `json:"max_age"     yaml:"max_age"` // days
	Compress   bool              `json:"compress"    yaml:"compress"`
	Fields     map[string]string `json:"fields"      yaml:"fields"` // static fields for k8s/docker
}

// envFields maps environment variables onto static log fields.
var envFields = map[string]string{
	"KUBERNETES_NAMESPACE":    "k8s_namespace",
	"KUBERNETES_POD_NAME":     "k8s_pod",
	"KUBERNETES_NODE_NAME":    "k8s_node",
	"KUBERNETES_SERVICE_NAME": "k8s_service",
	"HOSTNAME":                "container_id",
	"DOCKER_IMAGE":            "docker_image",
	"SOCKETHUB_INSTANCE":      "instance",
	"SOCKETHUB_ENV":           "environment",
}

func GetDefaultFields() Fields {
	hostname, _ := os.Hostname()

	fields := Fields{
		"hostname":   hostname,
		"pid":        os.Getpid(),
		"go_version": runtime.Version(),
		"app_name":   "socket-hub",
	}

	for env, field := range envFields {
		if v := os.Getenv(env); v != "" {
			fields[field] = v
		}
	}

	return fields
}

func NewDefaultConfig() *Config {
	config := &Config{
		Level:      LevelInfo,
		Format:     "console",
		Output:     "stdout",
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
		Fields:     make(map[string]string),
	}

	for k, v := range GetDefaultFields() {
		config.Fields[k] = fmt.Sprint(v)
	}

	return config
}

// Validate checks format and output values.
func (c *Config) Validate() error {
	switch c.Format {
	case "", "console", "json", "text":
	default:
		return fmt.Errorf("log.format must be one of console, json, text, got %q", c.Format)
	}

	switch c.Output {
	case "", "stdout", "stderr":
	case "file":
		if c.FilePath == "" {
			return fmt.Errorf("log.file_path is required when log.output is file")
		}
	default:
		return fmt.Errorf("log.output must be one of stdout, stderr, file, got %q", c.Output)
	}

	return nil
}
