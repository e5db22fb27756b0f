// Package consumedthing that implements the ConsumedThing API
// Consumed Things are remote representations of Things used by consumers.
package consumedthing

import "github.com/wostzone/thingview-go/pkg/thing"

// Subscription types of consumed thing users
const (
	SubscriptionTypeEvent    = "event"
	SubscriptionTypeProperty = "property"
)

// Subscription describes an observed property or subscribed event
type Subscription struct {
	SubType string // SubscriptionTypeEvent or SubscriptionTypeProperty
	Name    string // property or event name
	Handler func(name string, message *thing.InteractionOutput)
}
