package config

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// Validate checks cfg's struct tags via go-playground/validator.
// Defaults should be applied (ApplyDefaults) before calling Validate, since
// several fields are only conditionally required (e.g. ChunkCache.Size when
// ChunkCache.Enabled, ChunkCache.DirectoryPath when ChunkCache.Type == "file").
func Validate(cfg *Config) error {
	return validate.Struct(cfg)
}
