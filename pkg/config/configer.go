package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
)

type Configer interface {
	LoadFromPath(path string) error
	Load() error
	GetKey(key string) string
	MustGetKey(key string) string
	GetKeyWithDefault(key, defaultValue string) string
	GetIntKey(key string) int
	MustGetIntKey(key string) int
	GetIntKeyWithDefault(key string, defaultValue int) int
	GetInt64KeyWithDefault(key string, defaultValue int64) int64
	GetMillisKeyWithDefault(key string, defaultValue time.Duration) time.Duration
	GetListKeyWithDefault(key string, defaultValue []string) []string
}

// keyGetter implements the typed accessors of Configer on top of a single
// string lookup. Each Configer implementation embeds one.
type keyGetter struct {
	lookup func(key string) string
}

func (g keyGetter) GetKey(key string) string {
	return g.lookup(key)
}

func (g keyGetter) MustGetKey(key string) string {
	val := g.GetKey(key)
	if val == "" {
		log.Fatalf("No such required config key: '%s'", key)
	}

	return val
}

func (g keyGetter) GetKeyWithDefault(key, defaultValue string) string {
	val := g.GetKey(key)
	if val == "" {
		return defaultValue
	}

	return val
}

func (g keyGetter) GetIntKey(key string) int {
	return g.GetIntKeyWithDefault(key, 0)
}

func (g keyGetter) MustGetIntKey(key string) int {
	intVal, err := strconv.Atoi(g.GetKey(key))
	if err != nil {
		log.Fatalf("Required config key either doesn't exist or isn't an int: '%s': %s", key, err)
	}

	return intVal
}

func (g keyGetter) GetIntKeyWithDefault(key string, defaultValue int) int {
	intVal, err := strconv.Atoi(g.GetKey(key))
	if err != nil {
		return defaultValue
	}

	return intVal
}

func (g keyGetter) GetInt64KeyWithDefault(key string, defaultValue int64) int64 {
	intVal, err := strconv.ParseInt(strings.TrimSpace(g.GetKey(key)), 10, 64)
	if err != nil {
		return defaultValue
	}

	return intVal
}

// GetMillisKeyWithDefault reads key as a number of milliseconds.
func (g keyGetter) GetMillisKeyWithDefault(key string, defaultValue time.Duration) time.Duration {
	ms := g.GetInt64KeyWithDefault(key, -1)
	if ms < 0 {
		return defaultValue
	}

	return time.Duration(ms) * time.Millisecond
}

// GetListKeyWithDefault reads key as a comma separated list. Blank entries are dropped.
func (g keyGetter) GetListKeyWithDefault(key string, defaultValue []string) []string {
	val := g.GetKey(key)
	if val == "" {
		return defaultValue
	}

	var entries []string
	for _, entry := range strings.Split(val, ",") {
		if entry = strings.TrimSpace(entry); entry != "" {
			entries = append(entries, entry)
		}
	}

	if len(entries) == 0 {
		return defaultValue
	}

	return entries
}
