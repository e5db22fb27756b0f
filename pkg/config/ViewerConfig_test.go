package config_test

import (
	"io/ioutil"
	"os"
	"path"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wostzone/thingview-go/pkg/config"
	"github.com/wostzone/thingview-go/pkg/logging"
)

var testHomeFolder string

// TestMain creates a test home folder with config, certs and log subfolders
func TestMain(m *testing.M) {
	logging.SetLogging("info", "")
	testHomeFolder, _ = ioutil.TempDir("", "thingview-")
	_ = os.MkdirAll(path.Join(testHomeFolder, "config"), 0700)
	_ = os.MkdirAll(path.Join(testHomeFolder, "certs"), 0700)
	_ = os.MkdirAll(path.Join(testHomeFolder, "log"), 0700)

	res := m.Run()
	_ = os.RemoveAll(testHomeFolder)
	os.Exit(res)
}

func writeConfigFile(t *testing.T, contents string) {
	configFile := path.Join(testHomeFolder, "config", config.DefaultViewerConfigName)
	err := ioutil.WriteFile(configFile, []byte(contents), 0600)
	require.NoError(t, err)
}

func TestLoadViewerConfig(t *testing.T) {
	logrus.Infof("--- TestLoadViewerConfig ---")
	writeConfigFile(t, "logLevel: debug\nstatusPort: 9443\naccountsFile: myaccounts.json\n")

	viewerConfig := config.CreateViewerConfig(testHomeFolder)
	err := viewerConfig.Load("", "thingview-test")
	assert.NoError(t, err)
	assert.Equal(t, "debug", viewerConfig.Loglevel)
	assert.Equal(t, 9443, viewerConfig.StatusPort)

	// relative paths are anchored on the home folder
	assert.Equal(t, path.Join(testHomeFolder, "config", "myaccounts.json"), viewerConfig.AccountsFile)
	assert.True(t, path.IsAbs(viewerConfig.LogFile))
	assert.True(t, path.IsAbs(viewerConfig.CaCertFile))
}

func TestLoadConfigWithSubstitution(t *testing.T) {
	logrus.Infof("--- TestLoadConfigWithSubstitution ---")
	writeConfigFile(t, "logFile: \"{logFolder}/{clientID}.log\"\n")

	viewerConfig := config.CreateViewerConfig(testHomeFolder)
	err := viewerConfig.Load("", "viewer1")
	assert.NoError(t, err)
	assert.Equal(t, path.Join(testHomeFolder, "log", "viewer1.log"), viewerConfig.LogFile)
}

func TestLoadConfigDefaults(t *testing.T) {
	logrus.Infof("--- TestLoadConfigDefaults ---")
	viewerConfig := config.CreateViewerConfig(testHomeFolder)
	assert.Equal(t, "localhost", viewerConfig.Address)
	assert.Equal(t, config.DefaultStatusPort, viewerConfig.StatusPort)
	assert.Equal(t, "warning", viewerConfig.Loglevel)
	assert.Equal(t, path.Join(testHomeFolder, "config"), viewerConfig.ConfigFolder)
}

func TestLoadConfigFileNotFound(t *testing.T) {
	logrus.Infof("--- TestLoadConfigFileNotFound ---")
	viewerConfig := config.CreateViewerConfig(testHomeFolder)
	err := viewerConfig.Load("notaconfigfile.yaml", "thingview-test")
	assert.Error(t, err)
}

func TestLoadConfigBadYaml(t *testing.T) {
	logrus.Infof("--- TestLoadConfigBadYaml ---")
	writeConfigFile(t, "logLevel: [this is not\n  valid: yaml\n")

	viewerConfig := config.CreateViewerConfig(testHomeFolder)
	err := viewerConfig.Load("", "thingview-test")
	assert.Error(t, err)
}

func TestValidateMissingFolder(t *testing.T) {
	logrus.Infof("--- TestValidateMissingFolder ---")
	viewerConfig := config.CreateViewerConfig(testHomeFolder)
	viewerConfig.ConfigFolder = "/not/an/existing/folder"
	err := viewerConfig.Validate()
	assert.Error(t, err)
}
