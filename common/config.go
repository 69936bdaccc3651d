package common

import (
	"encoding/json"
	"io"
	"io/ioutil"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Config is representation of the configuration data
type Config struct {
	ListenAddress  string
	Repository     Repository
	AllowedOrigins []string
	Token          string
	LogLevel       string
	Org            string
	Version        Version
}

// Repository is the configuration for the repo storage backend.  Type selects
// the backend (memory, sqlite or s3) and Config is passed to its constructor.
type Repository struct {
	Type   string
	Config map[string]interface{}
}

// Version carries around the API version information
type Version struct {
	Version           string
	VersionPrerelease string
	BuildStamp        string
	GitHash           string
}

// ReadConfig decodes the configuration from an io Reader
func ReadConfig(r io.Reader) (Config, error) {
	var c Config

	log.Infoln("Reading configuration")

	raw, err := ioutil.ReadAll(r)
	if err != nil {
		return c, errors.Wrap(err, "unable to read configuration from reader")
	}

	if err := json.Unmarshal(raw, &c); err != nil {
		return c, errors.Wrap(err, "unable to parse configuration")
	}

	return c, nil
}
