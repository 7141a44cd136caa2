package config

import (
	"os"

	"github.com/apex/log"
)

var configer Configer = NewDotenvConfig("")

func SetConfig(c Configer) {
	configer = c
}

func GetConfig() Configer {
	return configer
}

// MustLoadFromMCDotenv loads the dotenv file named by MC_DOTENV_PATH into the
// environment and returns the resulting config. A blank MC_DOTENV_PATH means
// the plain process environment is used.
func MustLoadFromMCDotenv() Configer {
	c := NewDotenvConfig(os.Getenv("MC_DOTENV_PATH"))
	if err := c.Load(); err != nil {
		log.Fatalf("Failed loading configuration file %s: %s", c.DotenvPath, err)
	}

	SetConfig(c)
	return c
}

// MustLoadFromFile loads a viper readable config file.
func MustLoadFromFile(path string) Configer {
	c := NewViperConfig(path)
	if err := c.Load(); err != nil {
		log.Fatalf("Failed loading configuration: %s", err)
	}

	SetConfig(c)
	return c
}

func GetKey(key string) string {
	return configer.GetKey(key)
}

func MustGetKey(key string) string {
	return configer.MustGetKey(key)
}

func GetKeyWithDefault(key, defaultValue string) string {
	return configer.GetKeyWithDefault(key, defaultValue)
}

func GetIntKeyWithDefault(key string, defaultValue int) int {
	return configer.GetIntKeyWithDefault(key, defaultValue)
}
