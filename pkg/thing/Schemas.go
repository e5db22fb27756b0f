// Package thing with Thing Description document definitions as described in
// https://www.w3.org/TR/wot-thing-description/
package thing

// DataSchema with metadata that describes the data format used. It can be used for validation.
// based on https://www.w3.org/TR/wot-thing-description/#dataschema
type DataSchema struct {
	// JSON-LD keyword to label the object with semantic tags (or types)
	AtType string `json:"@type,omitempty"`
	// Provides a human-readable title in the default language
	Title string `json:"title,omitempty"`
	// Provides additional (human-readable) information based on a default language
	Description string `json:"description,omitempty"`
	// Provides a constant value of any type as per data schema
	Const interface{} `json:"const,omitempty"`
	// Provides a default value of any type as per data schema
	Default interface{} `json:"default,omitempty"`
	// Unit as used in international science, engineering, and business.
	Unit string `json:"unit,omitempty"`
	// Restricted set of values provided as an array, for example: ["option1", "option2"]
	Enum []interface{} `json:"enum,omitempty"`
	// Indicates the property value is read-only
	ReadOnly bool `json:"readOnly,omitempty"`
	// Indicates the property value is write-only
	WriteOnly bool `json:"writeOnly,omitempty"`
	// Allows validation based on a format pattern such as "date-time", "email", "uri"
	Format string `json:"format,omitempty"`
	// Type with the JSON based data type, one of object, array, string, number, integer, boolean or null
	Type string `json:"type,omitempty"`
}

// Form describes how an operation can be performed. Forms are serializations of
// protocol bindings.
// NOTE: in WoST interactions are always routed via the Hub's message bus, so
// forms are normally not used.
type Form struct {
	Href        string `json:"href"`
	ContentType string `json:"contentType,omitempty"`
	Op          string `json:"op,omitempty"`
}

// PropertyAffordance with the metadata of a Thing property.
// See https://www.w3.org/TR/wot-thing-description/#propertyaffordance
type PropertyAffordance struct {
	DataSchema

	// Indicates the property value can be observed through an event
	Observable bool `json:"observable,omitempty"`
}

// EventAffordance with the metadata of a Thing event.
// See https://www.w3.org/TR/wot-thing-description/#eventaffordance
type EventAffordance struct {
	// JSON-LD keyword to label the object with semantic tags
	AtType string `json:"@type,omitempty"`
	// Human-readable title in the default language
	Title string `json:"title,omitempty"`
	// Additional human-readable information
	Description string `json:"description,omitempty"`
	// Data schema of the event payload
	Data DataSchema `json:"data,omitempty"`
}

// ActionAffordance with the metadata of a Thing action.
// See https://www.w3.org/TR/wot-thing-description/#actionaffordance
type ActionAffordance struct {
	// JSON-LD keyword to label the object with semantic tags
	AtType string `json:"@type,omitempty"`
	// Human-readable title in the default language
	Title string `json:"title,omitempty"`
	// Additional human-readable information
	Description string `json:"description,omitempty"`
	// Data schema of the action input
	Input DataSchema `json:"input,omitempty"`
	// Data schema of the action output, if any
	Output DataSchema `json:"output,omitempty"`
	// The action does not change the state of the Thing
	Safe bool `json:"safe,omitempty"`
	// Repeated invocations with the same input have the same effect
	Idempotent bool `json:"idempotent,omitempty"`
}
