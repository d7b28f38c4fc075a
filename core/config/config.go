package config

import (
	_ "embed"
	"fmt"
	"os"
	"path"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
	PrivateKeyName    = "private_key"
	RootFSName        = "root_fs.tar.gz"
	AppLogName        = "app.log"
	RecordingsDir     = "recordings"
)

type Configuration struct {
	configFs afero.Fs

	ShellName string `json:"shell_name" validate:"required,alphanum"`
	Motd      string `json:"motd"`
	// TickRate is the number of shell ticks per second.
	TickRate int `json:"tick_rate" validate:"gte=1,lte=240"`

	SSHPort int `json:"ssh_port" validate:"gte=0,lte=65535"`
	// OutputRate limits SSH output in bytes per second, 0 is unlimited.
	OutputRate       int  `json:"output_rate" validate:"gte=0"`
	AllowAnyPassword bool `json:"allow_any_password"`
	// RecordSessions saves an asciicast recording of every SSH session.
	RecordSessions bool `json:"record_sessions"`

	GlobalPasswords []string `json:"global_passwords"`

	Users []User `json:"users" validate:"unique=Username,dive"`

	// Directories are created in the world filesystem at startup.
	Directories []string `json:"directories" validate:"dive,startswith=/"`
	// Files maps absolute paths to the text they're seeded with.
	Files map[string]string `json:"files" validate:"dive,keys,startswith=/,endkeys"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

type User struct {
	Username  string   `json:"username" validate:"required"`
	Home      string   `json:"home" validate:"required,startswith=/"`
	Passwords []string `json:"passwords" validate:"unique"`
}

func (c *Configuration) fs() afero.Fs {
	if c.configFs == nil {
		return afero.NewReadOnlyFs(afero.NewMemMapFs())
	}
	return c.configFs
}

// PrivateKeyPem returns the bytes of the SSH host key.
func (c *Configuration) PrivateKeyPem() ([]byte, error) {
	return afero.ReadFile(c.fs(), PrivateKeyName)
}

// OpenAppLog opens the application log in an append only state.
func (c *Configuration) OpenAppLog() (afero.File, error) {
	return c.fs().OpenFile(AppLogName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// ReadAppLog opens the application log for reading.
func (c *Configuration) ReadAppLog() (afero.File, error) {
	return c.fs().Open(AppLogName)
}

// CreateSessionRecording creates a new file in the recordings directory.
func (c *Configuration) CreateSessionRecording(name string) (afero.File, error) {
	if err := c.fs().MkdirAll(RecordingsDir, 0700); err != nil {
		return nil, err
	}
	return c.fs().OpenFile(path.Join(RecordingsDir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
}

// OpenRootFsTarGz opens the optional root filesystem image. The error wraps
// fs.ErrNotExist if there's none.
func (c *Configuration) OpenRootFsTarGz() (afero.File, error) {
	return c.fs().Open(RootFSName)
}

// GetPasswords returns allowable passwords for the given username.
func (c *Configuration) GetPasswords(username string) []string {
	var out []string
	for _, v := range c.Users {
		if v.Username == username {
			out = append(out, v.Passwords...)
		}
	}

	out = append(out, c.GlobalPasswords...)
	return out
}

// LookupUser returns the configured user with the given name. Unknown users
// get a default home directory.
func (c *Configuration) LookupUser(username string) User {
	for _, v := range c.Users {
		if v.Username == username {
			return v
		}
	}

	home := fmt.Sprintf("/home/%s", username)
	if username == "root" {
		home = "/root"
	}
	return User{Username: username, Home: home}
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

// Default returns the built in configuration with no backing directory.
func Default() *Configuration {
	return defaultConfig()
}
