package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// ViperConfig reads keys from a config file (any format viper understands),
// with environment variables taking precedence over file values.
type ViperConfig struct {
	keyGetter
	v    *viper.Viper
	path string
}

func NewViperConfig(path string) *ViperConfig {
	v := viper.New()
	v.AutomaticEnv()

	return &ViperConfig{
		keyGetter: keyGetter{lookup: v.GetString},
		v:         v,
		path:      path,
	}
}

func (c *ViperConfig) LoadFromPath(path string) error {
	c.path = path
	return c.Load()
}

func (c *ViperConfig) Load() error {
	if c.path == "" {
		return nil
	}

	c.v.SetConfigFile(c.path)
	if err := c.v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "reading config file %s", c.path)
	}

	return nil
}
