package resource

import (
	"fmt"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/spf13/viper"
)

const defaultPropertiesPath = "configs/application.yml"

var (
	mu         sync.RWMutex
	properties = viper.New()
	envPattern = regexp.MustCompile(`\$\{([^:}]+)(?::([^}]*))?}`)
)

// Load reads the properties file named by PROPERTIES_FILE_PATH, or
// configs/application.yml when the variable is unset.
func Load() error {
	path, ok := os.LookupEnv("PROPERTIES_FILE_PATH")
	if !ok {
		path = defaultPropertiesPath
	}
	return Init(path)
}

// Init loads application properties from the YAML file at filepath and
// resolves ${ENV:default} placeholders in string values.
func Init(filepath string) error {
	v := viper.New()
	v.SetConfigFile(filepath)
	v.SetConfigType("yml")

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("fail to read properties %s: %w", filepath, err)
	}

	resolved := make(map[string]any)
	parsePropertiesMap("", v.AllSettings(), resolved)
	for key, value := range resolved {
		v.Set(key, value)
	}

	mu.Lock()
	properties = v
	mu.Unlock()
	return nil
}

// parsePropertiesMap walks the YAML tree and collects resolved leaf values
func parsePropertiesMap(prefix string, data map[string]any, result map[string]any) {
	for key, value := range data {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		switch v := value.(type) {
		case map[string]any:
			parsePropertiesMap(fullKey, v, result)
		default:
			result[fullKey] = resolveValue(v)
		}
	}
}

// resolveValue resolves placeholders in strings, and in strings nested in
// lists and maps, returning a copy of value
func resolveValue(value any) any {
	switch v := value.(type) {
	case string:
		return resolveEnvVariable(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = resolveValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = resolveValue(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = resolveValue(item)
		}
		return out
	default:
		return v
	}
}

// resolveEnvVariable replaces a ${NAME:default} placeholder with the
// environment value, the default, or an empty string in that order.
func resolveEnvVariable(value string) string {
	return envPattern.ReplaceAllStringFunc(value, func(match string) string {
		groups := envPattern.FindStringSubmatch(match)
		if envValue, exists := os.LookupEnv(groups[1]); exists {
			return envValue
		}
		return groups[2]
	})
}

func current() *viper.Viper {
	mu.RLock()
	defer mu.RUnlock()
	return properties
}

func Get(key string) any {
	return current().Get(key)
}

func IsSet(key string) bool {
	return current().IsSet(key)
}

func GetString(key string) string {
	return current().GetString(key)
}

func GetBool(key string) bool {
	return current().GetBool(key)
}

func GetDuration(key string) time.Duration {
	return current().GetDuration(key)
}

func GetInt(key string) int {
	return current().GetInt(key)
}

func GetFloat64(key string) float64 {
	return current().GetFloat64(key)
}

func GetStringSlice(key string) []string {
	return current().GetStringSlice(key)
}

// UnmarshalKey decodes the subtree under key into out.
func UnmarshalKey(key string, out any) error {
	return current().UnmarshalKey(key, out)
}
