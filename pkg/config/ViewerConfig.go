// Package config with the global thingview configuration struct and methods
package config

import (
	"crypto/x509"
	"os"
	"path"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/wostzone/thingview-go/pkg/certsclient"
)

// DefaultViewerConfigName with the configuration file name of the viewer
const DefaultViewerConfigName = "thingview.yaml"

// DefaultCertsFolder with the location of certificates
const DefaultCertsFolder = "./certs"

// DefaultConfigFolder is the location of config files wrt installation folder
const DefaultConfigFolder = "./config"

// DefaultLogFolder is the location of log files wrt installation folder
const DefaultLogFolder = "./log"

// DefaultStatusPort is the port the connection status endpoint listens on
const DefaultStatusPort = 8443

// DefaultCaCertFile is the default CA certificate file name
const DefaultCaCertFile = "caCert.pem"

// ViewerConfig contains the global configuration of the thingview service.
//
// The viewer connects to one or more Hubs as described in the accounts store.
// This configuration holds the local settings: where files live, logging, and
// the address and port of the status endpoint the dashboard polls.
type ViewerConfig struct {

	// Address the status endpoint listens on. The default is localhost.
	Address string `yaml:"address,omitempty"`
	// StatusPort is the listening port of the status endpoint. Default is DefaultStatusPort
	StatusPort int `yaml:"statusPort,omitempty"`
	// CorsOrigins with the allowed CORS origins of the status endpoint.
	// The default allows any origin as the dashboard runs in the browser.
	CorsOrigins []string `yaml:"corsOrigins,omitempty"`

	// DiscoveryTimeoutSec is the DNS-SD search time for accounts without an
	// address. 0 to disable discovery. Default is 3 seconds.
	DiscoveryTimeoutSec int `yaml:"discoveryTimeoutSec,omitempty"`

	// Files and Folders
	Loglevel     string `yaml:"logLevel"`     // debug, info, warning, error. Default is warning
	LogFolder    string `yaml:"logFolder"`    // location of thingview log files
	LogFile      string `yaml:"logFile"`      // log filename. Default is {clientID}.log
	HomeFolder   string `yaml:"homeFolder"`   // folder containing the application installation
	CertsFolder  string `yaml:"certsFolder"`  // folder containing certificates, default is {homeFolder}/certs
	ConfigFolder string `yaml:"configFolder"` // location of configuration files. Default is {homeFolder}/config

	// path to CA certificate in PEM format. Default is {certsFolder}/caCert.pem
	CaCertFile string `yaml:"caCertFile"`

	// path to the accounts store. Default is {configFolder}/accounts.json
	AccountsFile string `yaml:"accountsFile"`

	// CaCert contains the loaded CA certificate needed for establishing trusted
	// connections to the Hub services. Loading takes place in Load()
	CaCert *x509.Certificate
}

// AsMap returns a key-value map of the ViewerConfig
// This simply converts the yaml to a map
func (viewerConfig *ViewerConfig) AsMap() map[string]interface{} {
	kvMap := make(map[string]interface{})
	encoded, _ := yaml.Marshal(viewerConfig)
	_ = yaml.Unmarshal(encoded, &kvMap)
	return kvMap
}

// Load loads and validates the configuration from file.
//
// The following variables can be used in this file:
//    {clientID}  is the application instance ID. Used for the logfile
//    {homeFolder} is the default application folder (parent of application binary)
//    {certsFolder} is the default certificate folder
//    {configFolder} is the default configuration folder
//    {logFolder} is the default logging folder
//
//  configFile is optional. The default is thingview.yaml in the default config folder.
//  clientID is the application instance ID, used for the logfile name.
//
// Returns an error if the configuration is invalid
func (viewerConfig *ViewerConfig) Load(configFile string, clientID string) error {

	substituteMap := make(map[string]string)
	substituteMap["{clientID}"] = clientID
	substituteMap["{homeFolder}"] = viewerConfig.HomeFolder
	substituteMap["{configFolder}"] = viewerConfig.ConfigFolder
	substituteMap["{logFolder}"] = viewerConfig.LogFolder
	substituteMap["{certsFolder}"] = viewerConfig.CertsFolder

	// make sure the config file path is absolute
	if configFile == "" {
		configFile = path.Join(viewerConfig.ConfigFolder, DefaultViewerConfigName)
	} else if !path.IsAbs(configFile) {
		configFile = path.Join(viewerConfig.ConfigFolder, configFile)
	}

	logrus.Infof("Using %s as viewer config file", configFile)
	err := LoadYamlConfig(configFile, viewerConfig, substituteMap)
	if err != nil {
		return err
	}

	// make sure files and folders have an absolute path
	if !path.IsAbs(viewerConfig.CertsFolder) {
		viewerConfig.CertsFolder = path.Join(viewerConfig.HomeFolder, viewerConfig.CertsFolder)
	}

	if !path.IsAbs(viewerConfig.LogFolder) {
		viewerConfig.LogFolder = path.Join(viewerConfig.HomeFolder, viewerConfig.LogFolder)
	}

	if viewerConfig.LogFile == "" {
		viewerConfig.LogFile = path.Join(viewerConfig.LogFolder, clientID+".log")
	} else if !path.IsAbs(viewerConfig.LogFile) {
		viewerConfig.LogFile = path.Join(viewerConfig.LogFolder, viewerConfig.LogFile)
	}

	if !path.IsAbs(viewerConfig.ConfigFolder) {
		viewerConfig.ConfigFolder = path.Join(viewerConfig.HomeFolder, viewerConfig.ConfigFolder)
	}

	if viewerConfig.CaCertFile == "" {
		viewerConfig.CaCertFile = path.Join(viewerConfig.CertsFolder, DefaultCaCertFile)
	} else if !path.IsAbs(viewerConfig.CaCertFile) {
		viewerConfig.CaCertFile = path.Join(viewerConfig.CertsFolder, viewerConfig.CaCertFile)
	}

	if viewerConfig.AccountsFile == "" {
		viewerConfig.AccountsFile = path.Join(viewerConfig.ConfigFolder, "accounts.json")
	} else if !path.IsAbs(viewerConfig.AccountsFile) {
		viewerConfig.AccountsFile = path.Join(viewerConfig.ConfigFolder, viewerConfig.AccountsFile)
	}

	// The CA certificate is optional. Without it server verification is skipped.
	viewerConfig.CaCert, err = certsclient.LoadX509CertFromPEM(viewerConfig.CaCertFile)
	if err != nil {
		logrus.Warningf("Unable to load the CA Certificate: %s. Continuing without server verification.", err)
	}

	// validate the result
	err = viewerConfig.Validate()
	return err
}

// Validate checks if the home, config and log folders in the configuration exist.
// Returns an error if the config is invalid
func (viewerConfig *ViewerConfig) Validate() error {
	if _, err := os.Stat(viewerConfig.HomeFolder); os.IsNotExist(err) {
		logrus.Errorf("Home folder '%s' not found\n", viewerConfig.HomeFolder)
		return err
	}
	if _, err := os.Stat(viewerConfig.ConfigFolder); os.IsNotExist(err) {
		logrus.Errorf("Configuration folder '%s' not found\n", viewerConfig.ConfigFolder)
		return err
	}

	if _, err := os.Stat(viewerConfig.LogFolder); os.IsNotExist(err) {
		logrus.Errorf("Logging folder '%s' not found\n", viewerConfig.LogFolder)
		return err
	}

	return nil
}

// CreateViewerConfig creates the ViewerConfig with default values
//
//  homeFolder is the application installation folder with the config, certs and
// log folders. Use "" for default: parent of application binary.
// When relative path is given, it is relative to the current working directory.
//
// See also Load to load the actual configuration including the CA certificate.
func CreateViewerConfig(homeFolder string) *ViewerConfig {
	appBin, _ := os.Executable()
	binFolder := path.Dir(appBin)
	if homeFolder == "" {
		homeFolder = path.Dir(binFolder)
	} else if !path.IsAbs(homeFolder) {
		// turn relative home folder in absolute path
		cwd, _ := os.Getwd()
		homeFolder = path.Join(cwd, homeFolder)
	}
	logrus.Infof("AppBin is: %s; Home is: %s", appBin, homeFolder)
	viewerConfig := &ViewerConfig{
		HomeFolder:   homeFolder,
		CertsFolder:  path.Join(homeFolder, DefaultCertsFolder),
		ConfigFolder: path.Join(homeFolder, DefaultConfigFolder),
		LogFolder:    path.Join(homeFolder, DefaultLogFolder),
		Loglevel:     "warning",

		Address:             "localhost",
		StatusPort:          DefaultStatusPort,
		CorsOrigins:         []string{"*"},
		DiscoveryTimeoutSec: 3,
	}
	return viewerConfig
}
