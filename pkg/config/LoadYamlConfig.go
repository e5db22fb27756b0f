package config

import (
	"io/ioutil"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// LoadYamlConfig loads a yaml configuration file into the given configuration object.
//
// Before parsing, the placeholders from the substitute map are replaced by their
// values, eg "{configFolder}" with the location of the configuration folder.
//
//  path is the location of the yaml file to load
//  config is the object to unmarshal the configuration into
//  substituteMap is an optional map with {placeholder}:value pairs. Use nil to ignore.
//
// Returns an error if loading or parsing the file fails.
func LoadYamlConfig(path string, config interface{}, substituteMap map[string]string) error {
	rawConfig, err := ioutil.ReadFile(path)
	if err != nil {
		logrus.Warningf("Unable to load configuration file: %s", err)
		return err
	}
	text := string(rawConfig)
	for placeholder, value := range substituteMap {
		text = strings.ReplaceAll(text, placeholder, value)
	}
	err = yaml.Unmarshal([]byte(text), config)
	if err != nil {
		logrus.Errorf("Error parsing configuration file '%s': %s", path, err)
		return err
	}
	return nil
}
