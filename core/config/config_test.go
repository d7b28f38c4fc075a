package config

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v2"
)

func TestBuiltinConfig(t *testing.T) {
	rawConfig := make(map[string]interface{})
	assert.Nil(t, yaml.Unmarshal(defaultConfigData, &rawConfig))

	knownFields := make(map[string]bool)
	rt := reflect.TypeOf(Configuration{})
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		assert.NotEmpty(t, jsonTag)
		jsonField := strings.Split(jsonTag, ",")[0]
		knownFields[jsonField] = true

		if _, ok := rawConfig[jsonField]; !ok {
			assert.False(t, true, "default config missing field: %q", jsonField)
		}
	}

	for k := range rawConfig {
		_, ok := knownFields[k]
		assert.True(t, ok, "default config contains invalid field: %q", k)
	}
}

func TestDefaultConfig(t *testing.T) {
	// Will panic() on load failure because it should never happen at runtime.
	cfg := defaultConfig()
	assert.NotNil(t, cfg)
	assert.Nil(t, cfg.Validate())
	assert.Equal(t, "sh", cfg.ShellName)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Configuration){
		"zero tick rate":     func(c *Configuration) { c.TickRate = 0 },
		"huge tick rate":     func(c *Configuration) { c.TickRate = 1000 },
		"bad port":           func(c *Configuration) { c.SSHPort = 70000 },
		"no shell name":      func(c *Configuration) { c.ShellName = "" },
		"relative home":      func(c *Configuration) { c.Users[0].Home = "root" },
		"relative directory": func(c *Configuration) { c.Directories = []string{"tmp"} },
		"relative file":      func(c *Configuration) { c.Files = map[string]string{"a.txt": ""} },
		"duplicate user": func(c *Configuration) {
			c.Users = append(c.Users, c.Users[0])
		},
	}

	for tn, mutate := range cases {
		t.Run(tn, func(t *testing.T) {
			cfg := defaultConfig()
			mutate(cfg)
			assert.NotNil(t, cfg.Validate())
		})
	}
}

func TestGetPasswords(t *testing.T) {
	cfg := &Configuration{
		GlobalPasswords: []string{"global"},
		Users: []User{
			{Username: "root", Home: "/root", Passwords: []string{"toor"}},
		},
	}

	assert.Equal(t, []string{"toor", "global"}, cfg.GetPasswords("root"))
	assert.Equal(t, []string{"global"}, cfg.GetPasswords("nobody"))
}

func TestLookupUser(t *testing.T) {
	cfg := defaultConfig()

	assert.Equal(t, "/home/player", cfg.LookupUser("player").Home)
	assert.Equal(t, "/home/guest", cfg.LookupUser("guest").Home)

	cfg.Users = nil
	assert.Equal(t, "/root", cfg.LookupUser("root").Home)
}
