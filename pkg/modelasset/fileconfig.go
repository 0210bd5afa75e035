package modelasset

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/srcres/modelasset-go/pkg/modelasset/logging"
)

// FileConfig is the on-disk form of Config. Every key can be overridden by a
// MODELASSET_<KEY> environment variable.
type FileConfig struct {
	Name        string `mapstructure:"name" yaml:"name"`
	Backend     string `mapstructure:"backend" yaml:"backend"`
	ResourceDir string `mapstructure:"resource_dir" yaml:"resource_dir"`
	TempDir     string `mapstructure:"temp_dir" yaml:"temp_dir"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
}

// LoadConfig reads the file at path (any format viper understands). An empty
// path yields the defaults plus environment overrides.
func LoadConfig(path string) (*FileConfig, error) {
	v := viper.New()

	v.SetDefault("name", DefaultName)
	v.SetDefault("backend", string(BackendNative))
	v.SetDefault("resource_dir", "./resources")
	v.SetDefault("temp_dir", "")
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("modelasset")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg FileConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if _, err := ParseBackend(cfg.Backend); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Config converts the file form into a Config rooted at ResourceDir.
func (f *FileConfig) Config(logger logging.Logger) (Config, error) {
	b, err := ParseBackend(f.Backend)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Name:    f.Name,
		Backend: b,
		TempDir: f.TempDir,
		Logger:  logger,
	}
	if f.ResourceDir != "" {
		cfg.Resources = os.DirFS(f.ResourceDir)
	}
	return cfg, nil
}
