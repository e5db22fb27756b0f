// Package vocab with message bus topics used by the Hub
package vocab

// TopicRoot with the root of Thing topics on the message bus
const TopicRoot = "things"

// Topics of Thing messages. The "{thingID}" placeholder is replaced with the
// publishing Thing's ID.
const (
	// TopicThingTD for publishing the Thing Description document
	TopicThingTD = TopicRoot + "/{thingID}/td"
	// TopicThingEvent for publishing events emitted by a Thing
	TopicThingEvent = TopicRoot + "/{thingID}/event"
	// TopicThingPropertyValues for publishing updates of property values
	TopicThingPropertyValues = TopicRoot + "/{thingID}/properties"
	// TopicAction for invoking an action on a Thing
	TopicAction = TopicRoot + "/{thingID}/action"
	// TopicSubscribeAll for subscribing to all Thing messages
	TopicSubscribeAll = TopicRoot + "/#"
)

// Message types as used in the last part of the Thing topics
const (
	MessageTypeTD             = "td"
	MessageTypeEvent          = "event"
	MessageTypePropertyValues = "properties"
	MessageTypeAction         = "action"
)
