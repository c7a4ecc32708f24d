// Package configloader loads service configuration from a yaml file, a
// .env file and process environment variables, in that order of precedence
// (environment wins).
package configloader

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const configFile = "config.yaml"

// Validator is implemented by config structs that can check themselves.
type Validator interface {
	Validate() error
}

// Load builds a T from config.yaml, .env and environment variables.
// Environment keys are prefixed with the upper-cased service name, e.g.
// PRODUCT_SERVER_PORT maps to server.port for serviceName "product".
func Load[T Validator](serviceName string) (T, error) {
	var cfg T
	k := koanf.New(".")

	envPrefix := strings.ToUpper(serviceName) + "_"
	keyOf := func(envKey string) string {
		key := strings.ToLower(strings.TrimPrefix(strings.ToLower(envKey), strings.ToLower(envPrefix)))
		return strings.ReplaceAll(key, "_", ".")
	}

	if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil && !os.IsNotExist(err) {
		log.Printf("WARN: error loading YAML config file %q: %v", configFile, err)
	}

	if dotenv, err := godotenv.Read(".env"); err == nil {
		flat := make(map[string]any, len(dotenv))
		for key, value := range dotenv {
			flat[keyOf(key)] = value
		}
		if err := k.Load(confmap.Provider(flat, "."), nil); err != nil {
			log.Printf("WARN: error loading .env config: %v", err)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("WARN: error reading .env file: %v", err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", keyOf), nil); err != nil {
		log.Printf("WARN: error loading environment variables: %v", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
