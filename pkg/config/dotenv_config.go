package config

import (
	"os"

	"github.com/subosito/gotenv"
)

// DotenvConfig reads keys from the process environment, optionally seeded
// from a dotenv file. Values already in the environment win over the file.
type DotenvConfig struct {
	keyGetter
	DotenvPath string
}

func NewDotenvConfig(path string) *DotenvConfig {
	return &DotenvConfig{
		keyGetter:  keyGetter{lookup: os.Getenv},
		DotenvPath: path,
	}
}

func (c *DotenvConfig) LoadFromPath(path string) error {
	c.DotenvPath = path
	return c.Load()
}

func (c *DotenvConfig) Load() error {
	if c.DotenvPath == "" {
		return nil
	}

	return gotenv.Load(c.DotenvPath)
}
