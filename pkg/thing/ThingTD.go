package thing

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/wostzone/thingview-go/pkg/vocab"
)

// ThingTD contains a Thing Description document.
// Its structure is:
// {
//      @context: "http://www.w3.org/ns/td",
//      @type: <deviceType>,
//      id: <thingID>,              // required in WoST. See CreateThingID for the format
//      title: <human description>,
//      created: <iso8601>,
//      modified: <iso8601>,
//      actions: {name: ActionAffordance, ...},
//      events:  {name: EventAffordance, ...},
//      properties: {name: PropertyAffordance, ...}
// }
type ThingTD struct {
	// JSON-LD keyword to define short-hand names called terms that are used throughout a TD document. Required.
	AtContext []string `json:"@context"`

	// JSON-LD keyword to label the object with semantic tags (or types).
	// In WoST this holds the device type from the vocabulary.
	AtType string `json:"@type,omitempty"`

	// Identifier of the Thing in form of a URI (RFC3986)
	// Optional in WoT but required in WoST in order to reach the device or service
	ID string `json:"id"`

	// Human-readable title in the default language. Required.
	Title string `json:"title"`

	// Provides additional (human-readable) information based on a default language
	Description string `json:"description,omitempty"`

	// ISO8601 timestamp this document was first created
	Created string `json:"created,omitempty"`
	// ISO8601 timestamp this document was last modified
	Modified string `json:"modified,omitempty"`

	// All properties-based interaction affordances of the thing
	Properties map[string]*PropertyAffordance `json:"properties,omitempty"`
	// All action-based interaction affordances of the thing
	Actions map[string]*ActionAffordance `json:"actions,omitempty"`
	// All event-based interaction affordances of the thing
	Events map[string]*EventAffordance `json:"events,omitempty"`

	// Form hypermedia controls to describe how an operation can be performed
	Forms []Form `json:"forms,omitempty"`

	// Set of security definition names.
	// In WoST security is handled by the Hub. WoST Things use the NoSecurityScheme type
	Security string `json:"security"`

	// Thing ID parts filled in by the directory loader for ease of presentation.
	// These are derived from the ID and not part of the serialized document.
	Zone       string `json:"-"`
	Publisher  string `json:"-"`
	DeviceID   string `json:"-"`
	DeviceType string `json:"-"`

	updateMutex sync.RWMutex
}

// AddAction provides a simple way to add an action affordance to the TD
// This returns the action affordance that can be augmented/modified directly
//
// name is the name under which it is stored in the action affordance map. Any existing name will be replaced.
// title is the title used in the action. It is okay to use name if not sure.
// dataType is the type of data the action holds, WoTDataTypeNumber, ..Object, ..Array, ..String, ..Integer, ..Boolean or null
func (tdoc *ThingTD) AddAction(name string, title string, dataType string) *ActionAffordance {
	actionAff := &ActionAffordance{
		Title: title,
		Input: DataSchema{
			Title:    title,
			Type:     dataType,
			ReadOnly: true,
		},
	}
	tdoc.UpdateAction(name, actionAff)
	return actionAff
}

// AddProperty provides a simple way to add a property to the TD
// This returns the property affordance that can be augmented/modified directly
// By default the property is a read-only attribute.
//
// name is the name under which it is stored in the property affordance map. Any existing name will be replaced.
// title is the title used in the property. It is okay to use name if not sure.
// dataType is the type of data the property holds, WoTDataTypeNumber, ..Object, ..Array, ..String, ..Integer, ..Boolean or null
func (tdoc *ThingTD) AddProperty(name string, title string, dataType string) *PropertyAffordance {
	prop := &PropertyAffordance{
		DataSchema: DataSchema{
			Title:    title,
			Type:     dataType,
			ReadOnly: true,
		},
	}
	tdoc.UpdateProperty(name, prop)
	return prop
}

// AddEvent provides a simple way to add an event to the TD
// This returns the event affordance that can be augmented/modified directly
//
// name is the name under which it is stored in the event affordance map. Any existing name will be replaced.
// title is the title used in the event. It is okay to use name if not sure.
// dataType is the type of data the event holds, WoTDataTypeNumber, ..Object, ..Array, ..String, ..Integer, ..Boolean or null
func (tdoc *ThingTD) AddEvent(name string, title string, dataType string) *EventAffordance {
	evAff := &EventAffordance{
		Title: title,
		Data: DataSchema{
			Title: title,
			Type:  dataType,
		},
	}
	tdoc.UpdateEvent(name, evAff)
	return evAff
}

// AsMap returns the TD document as a map
func (tdoc *ThingTD) AsMap() map[string]interface{} {
	tdoc.updateMutex.RLock()
	defer tdoc.updateMutex.RUnlock()

	var asMap map[string]interface{}
	asJSON, _ := json.Marshal(tdoc)
	json.Unmarshal(asJSON, &asMap)
	return asMap
}

// GetAction returns the action affordance of the given name.
// Returns nil if name is not an action or no affordance is defined.
func (tdoc *ThingTD) GetAction(name string) *ActionAffordance {
	tdoc.updateMutex.RLock()
	defer tdoc.updateMutex.RUnlock()

	actionAffordance, found := tdoc.Actions[name]
	if !found {
		return nil
	}
	return actionAffordance
}

// GetEvent returns the affordance for the event or nil if the event doesn't exist
func (tdoc *ThingTD) GetEvent(name string) *EventAffordance {
	tdoc.updateMutex.RLock()
	defer tdoc.updateMutex.RUnlock()

	eventAffordance, found := tdoc.Events[name]
	if !found {
		return nil
	}
	return eventAffordance
}

// GetProperty returns the affordance for the property or nil if name is not a property
func (tdoc *ThingTD) GetProperty(name string) *PropertyAffordance {
	tdoc.updateMutex.RLock()
	defer tdoc.updateMutex.RUnlock()
	propAffordance, found := tdoc.Properties[name]
	if !found {
		return nil
	}
	return propAffordance
}

// GetID returns the ID of the thing TD
func (tdoc *ThingTD) GetID() string {
	return tdoc.ID
}

// UpdateAction adds a new or replaces an existing action affordance of name. Intended for creating TDs
// Use UpdateProperty if name is a property name.
// Returns the added affordance to support chaining
func (tdoc *ThingTD) UpdateAction(name string, affordance *ActionAffordance) *ActionAffordance {
	tdoc.updateMutex.Lock()
	defer tdoc.updateMutex.Unlock()
	tdoc.Actions[name] = affordance
	return affordance
}

// UpdateEvent adds a new or replaces an existing event affordance of name. Intended for creating TDs
// Returns the added affordance to support chaining
func (tdoc *ThingTD) UpdateEvent(name string, affordance *EventAffordance) *EventAffordance {
	tdoc.updateMutex.Lock()
	defer tdoc.updateMutex.Unlock()
	tdoc.Events[name] = affordance
	return affordance
}

// UpdateForms sets the top level forms section of the TD
// Forms are optional as the WoST Hub provides the protocol binding for all Things.
func (tdoc *ThingTD) UpdateForms(formList []Form) {
	tdoc.updateMutex.Lock()
	defer tdoc.updateMutex.Unlock()
	tdoc.Forms = formList
}

// UpdateProperty adds or replaces a property affordance in the TD. Intended for creating TDs
// Returns the added affordance to support chaining
func (tdoc *ThingTD) UpdateProperty(name string, affordance *PropertyAffordance) *PropertyAffordance {
	tdoc.updateMutex.Lock()
	defer tdoc.updateMutex.Unlock()
	tdoc.Properties[name] = affordance
	return affordance
}

// UpdateTitleDescription sets the title and description of the Thing in the default language
func (tdoc *ThingTD) UpdateTitleDescription(title string, description string) {
	tdoc.updateMutex.Lock()
	defer tdoc.updateMutex.Unlock()
	tdoc.Title = title
	tdoc.Description = description
}

// CreateTD creates a new Thing Description document with properties, events and actions
func CreateTD(thingID string, title string, deviceType vocab.DeviceType) *ThingTD {
	td := ThingTD{
		AtContext:  []string{"http://www.w3.org/ns/thing"},
		Actions:    map[string]*ActionAffordance{},
		Created:    time.Now().Format(vocab.TimeFormat),
		Events:     map[string]*EventAffordance{},
		Forms:      nil,
		ID:         thingID,
		Modified:   time.Now().Format(vocab.TimeFormat),
		Properties: map[string]*PropertyAffordance{},
		// security schemas don't apply to WoST devices, except services exposed by the hub itself
		Security: vocab.WoTNoSecurityScheme,
		Title:    title,
	}
	if deviceType != "" {
		// deviceType must be a string for serialization and querying
		td.AtType = string(deviceType)
	}
	return &td
}
