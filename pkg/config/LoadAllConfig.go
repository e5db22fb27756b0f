package config

import (
	"flag"
	"os"
	"path"

	"github.com/sirupsen/logrus"
)

// LoadAllConfig is a helper to load the viewer configuration from commandline and config file
// This:
//  1. Determine application defaults
//  2. parse commandline arguments for options -c thingview.yaml -a appFolder or -h
//  3. Load the viewer configuration file thingview.yaml, if found
//
//  args is the os.Args list. Use nil to ignore commandline args
//  homeFolder is the installation folder, "" for default parent folder of app binary
//  clientID is the application instance ID. Used for the logfile name
// This returns the viewer configuration with an error if something went wrong
func LoadAllConfig(args []string, homeFolder string, clientID string) (*ViewerConfig, error) {
	viewerConfigFile := DefaultViewerConfigName

	// Determine the default application installation folder
	if homeFolder == "" {
		appBin, _ := os.Executable()
		binFolder := path.Dir(appBin)
		homeFolder = path.Dir(binFolder)
	}

	// Parse commandline arguments for options -c configFile and -a homeFolder
	if args != nil {
		flag.StringVar(&viewerConfigFile, "c", viewerConfigFile, "Change the viewer configuration file")
		flag.StringVar(&homeFolder, "a", homeFolder, "Change the application home folder with config and cert subfolders")
		flag.Parse()
	}
	viewerConfig := CreateViewerConfig(homeFolder)
	err := viewerConfig.Load(viewerConfigFile, clientID)
	if err != nil {
		logrus.Errorf("LoadAllConfig: config file '%s' failed to load: %s", viewerConfigFile, err)
		return viewerConfig, err
	}
	return viewerConfig, nil
}
