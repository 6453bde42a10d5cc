// Package buildconfig loads the build configuration consumed by the layer
// catalog and the stack: pip options, source root, stack naming.
//
// Values are layered: defaults, then an optional TOML file, then environment
// variables. The result is validated before use.
package buildconfig

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Config is the build configuration.
type Config struct {
	// LayerPipOption is appended to pip install in dependency-install layers.
	LayerPipOption string `toml:"layer_pip_option" env:"LAYER_PIP_OPTION"`
	// SourceRoot is the directory holding the lambda/ source tree.
	SourceRoot string `toml:"source_root" env:"WETWIRE_SOURCE_ROOT" validate:"required"`
	// StackName names the synthesized stack.
	StackName string `toml:"stack_name" env:"WETWIRE_STACK_NAME" validate:"required,max=128"`
	// AssetQualifier is the bootstrap qualifier of the asset bucket.
	AssetQualifier string `toml:"asset_qualifier" env:"WETWIRE_ASSET_QUALIFIER" validate:"required,alphanum,max=10"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		SourceRoot:     "source",
		StackName:      "intelli-agent-shared",
		AssetQualifier: "hnb659fds",
	}
}

// Load reads path (skipped when empty), applies environment overrides and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decoding %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("reading environment: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks cfg against its field constraints.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid build config: %w", err)
	}
	return nil
}
