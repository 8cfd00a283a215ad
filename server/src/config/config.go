package config

import (
	"encoding/json"
	"log"

	"github.com/BurntSushi/toml"
	"github.com/jessevdk/go-flags"
)

type General struct {
	Config  string `long:"config" default:"" env:"CONFIG" description:"path to config file (toml)"`
	Host    string `long:"host" default:"" env:"HOST" description:"host name (e.g. 0.0.0.0). If left empty (= ''), listens on all IPs of the machine"`
	Port    uint16 `long:"port" default:"15230" env:"PORT" description:"port (range from 0 to 65535) to listen on"`
	Cert    string `long:"cert" default:"" env:"CERT" description:"path to TLS certificate file. If none is given, plain TCP is used"`
	Key     string `long:"key" default:"" env:"KEY" description:"path to TLS key corresponding to the TLS certificate. If none is given, plain TCP is used"`
	WebRoot string `long:"webroot" default:"" env:"WEBROOT" description:"directory of static client assets to serve. If none is given, no assets are served"`
	Debug   bool   `long:"debug" env:"DEBUG" description:"whether to log debugging entries"`
}

type ServerConfig struct {
	General General
}

// fromConfigFile overlays the config file onto the command line values.
// Fields the file sets win; fields it omits keep their flag values.
func fromConfigFile(general General, serverConfig *ServerConfig) {
	serverConfig.General = general
	_, err := toml.DecodeFile(general.Config, serverConfig)
	if err != nil {
		log.Panicf("Failed to load config file. Given: %s. Make sure the correct file format (toml) is used and the file exists.\nError:%s", general.Config, err)
	}
}

func printConfig(serverConfig ServerConfig) {
	s, _ := json.MarshalIndent(serverConfig, "", "\t")
	log.Printf("Configurations successfully set:\n%s", string(s))
}

func GetConfig() ServerConfig {
	var general General
	parser := flags.NewParser(&general, 0)
	parser.Parse()

	var serverConfig ServerConfig
	if general.Config != "" {
		fromConfigFile(general, &serverConfig)
	} else {
		serverConfig.General = general
	}

	printConfig(serverConfig)
	return serverConfig
}
