// Package vocab with the WoST vocabulary used in Thing Description documents.
// This must be kept in sync with the Hub's vocabulary definitions.
package vocab

// DeviceType identifying the purpose of the device
type DeviceType string

// Various types of devices.
const (
	DeviceTypeAlarm          DeviceType = "alarm"          // an alarm emitter
	DeviceTypeAVControl      DeviceType = "avControl"      // Audio/Video controller
	DeviceTypeAVReceiver     DeviceType = "avReceiver"     // Node is a (not so) smart radio/receiver/amp (eg, denon)
	DeviceTypeBeacon         DeviceType = "beacon"         // device is a location beacon
	DeviceTypeButton         DeviceType = "button"         // device is a physical button device with one or more buttons
	DeviceTypeAdapter        DeviceType = "adapter"        // software adapter or service, eg virtual device
	DeviceTypePhone          DeviceType = "phone"          // device is a phone
	DeviceTypeCamera         DeviceType = "camera"         // Node with camera
	DeviceTypeComputer       DeviceType = "computer"       // General purpose computer
	DeviceTypeDimmer         DeviceType = "dimmer"         // light dimmer
	DeviceTypeGateway        DeviceType = "gateway"        // Node is a gateway for other nodes (onewire, zwave, etc)
	DeviceTypeKeypad         DeviceType = "keypad"         // Entry key pad
	DeviceTypeLock           DeviceType = "lock"           // Electronic door lock
	DeviceTypeMultisensor    DeviceType = "multisensor"    // Node with multiple sensors
	DeviceTypeNetRepeater    DeviceType = "netRepeater"    // Node is a zwave or other network repeater
	DeviceTypeNetRouter      DeviceType = "netRouter"      // Node is a network router
	DeviceTypeNetSwitch      DeviceType = "netSwitch"      // Node is a network switch
	DeviceTypeNetWifiAP      DeviceType = "wifiAP"         // Node is a wifi access point
	DeviceTypeOnOffSwitch    DeviceType = "onOffSwitch"    // Node is a physical on/off switch
	DeviceTypePowerMeter     DeviceType = "powerMeter"     // Node is a power meter
	DeviceTypeSensor         DeviceType = "sensor"         // Node is a single sensor (volt,...)
	DeviceTypeService        DeviceType = "service"        // Node provides a service
	DeviceTypeSmartlight     DeviceType = "smartlight"     // Node is a smart light, eg philips hue
	DeviceTypeThermometer    DeviceType = "thermometer"    // Node is a temperature meter
	DeviceTypeThermostat     DeviceType = "thermostat"     // Node is a thermostat control unit
	DeviceTypeTV             DeviceType = "tv"             // Node is a (not so) smart TV
	DeviceTypeUnknown        DeviceType = "unknown"        // type not identified
	DeviceTypeWallpaper      DeviceType = "wallpaper"      // Node is a wallpaper montage of multiple images
	DeviceTypeWaterValve     DeviceType = "waterValve"     // Water valve control unit
	DeviceTypeWeatherService DeviceType = "weatherService" // Node is a service providing current and forecasted weather
	DeviceTypeWeatherStation DeviceType = "weatherStation" // Node is a weatherstation device
	DeviceTypeWeighScale     DeviceType = "weighScale"     // Node is an electronic weight scale
)

// WoT data types used in affordance schemas
const (
	WoTDataTypeAnyURI      = "anyURI"
	WoTDataTypeArray       = "array"
	WoTDataTypeBool        = "boolean"
	WoTDataTypeDateTime    = "dateTime" // ISO8601: YYYY-MM-DDTHH:MM:SS.sss[-TZ|+TZ|z]
	WoTDataTypeInteger     = "integer"
	WoTDataTypeUnsignedInt = "unsignedInt"
	WoTDataTypeNumber      = "number"
	WoTDataTypeObject      = "object"
	WoTDataTypeString      = "string"
	WoTDataTypeNone        = ""
)

// Standardized property names found in TD property affordances.
// These are the properties the dashboard knows how to present.
const (
	PropNameAddress         string = "address" // device domain or ip address
	PropNameAlarm           string = "alarm"
	PropNameBattery         string = "battery"
	PropNameDateTime        string = "dateTime"
	PropNameDescription     string = "description" // device description
	PropNameDeviceType      string = "deviceType"
	PropNameDimmer          string = "dimmer"
	PropNameHumidity        string = "humidity"
	PropNameLatency         string = "latency"
	PropNameManufacturer    string = "manufacturer"
	PropNameMotion          string = "motion"
	PropNameName            string = "name" // name of device or service
	PropNameOnOffSwitch     string = "switch"
	PropNameSignalStrength  string = "signalstrength"
	PropNameSoftwareVersion string = "softwareVersion" // application software version
	PropNameTemperature     string = "temperature"
	PropNameValue           string = "value" // generic value
)

// WoTNoSecurityScheme for TDs. In WoST security is handled by the Hub, not individual Things.
const WoTNoSecurityScheme = "NoSecurityScheme"

// TimeFormat is the ISO8601 format used in TD created/modified timestamps
const TimeFormat = "2006-01-02T15:04:05.000-0700"
