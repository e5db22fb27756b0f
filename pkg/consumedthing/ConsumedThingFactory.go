package consumedthing

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wostzone/thingview-go/pkg/thing"
	"github.com/wostzone/thingview-go/pkg/vocab"
)

// MessageBus with the publish side of the account's message bus session.
// The connection manager owns the session and the subscriptions; the factory
// only publishes requests and receives messages through HandleMessage.
type MessageBus interface {
	Publish(topic string, payload []byte)
}

// ConsumedThingFactory manages the consumed thing instances of one account.
// ConsumedThing's are created using the 'Consume' method.
//
// The factory installs the interaction hooks of each instance: action and
// property write requests are published on the account's message bus session.
// Incoming event and property messages are routed here by the connection
// manager and dispatched to the consumed thing they belong to.
type ConsumedThingFactory struct {
	// account whose things are consumed
	accountID string

	// messageBus for publishing interaction requests
	messageBus MessageBus

	// store of TD documents of the account
	thingStore *thing.ThingStore

	// Consumed things by thing ID
	ctMap map[string]*ConsumedThing
	// mutex for safe concurrent access to the ctMap
	ctMapMutex sync.RWMutex
}

// Consume returns the 'Consumed Thing' instance for interacting with the
// remote (exposed) thing. This is the only method allowed to create consumed
// thing instances.
//
// If a consumed thing already exists then simply return it.
//
//  td is the Thing TD whose interaction instance to create
func (ctFactory *ConsumedThingFactory) Consume(td *thing.ThingTD) *ConsumedThing {
	ctFactory.ctMapMutex.Lock()
	defer ctFactory.ctMapMutex.Unlock()

	cThing, found := ctFactory.ctMap[td.ID]
	if !found {
		logrus.Infof("ConsumedThingFactory.Consume: new instance of thing %s", td.ID)
		cThing = CreateConsumedThing(td)
		cThing.InvokeActionHook = func(name string, params interface{}) error {
			return ctFactory.publishActionRequest(td.ID, name, params)
		}
		cThing.WritePropertyHook = func(propName string, propValue interface{}) error {
			return ctFactory.publishActionRequest(td.ID, propName, propValue)
		}
		ctFactory.ctMap[td.ID] = cThing
	}
	return cThing
}

// ConsumeWithID returns the consumed thing of the thing with the given ID.
// The TD is looked up in the account's thing store. Returns nil if the
// directory holds no TD with this ID.
func (ctFactory *ConsumedThingFactory) ConsumeWithID(thingID string) *ConsumedThing {
	td := ctFactory.thingStore.GetByID(thingID)
	if td == nil {
		logrus.Warningf("ConsumedThingFactory.ConsumeWithID: thing '%s' is not in the directory of account '%s'",
			thingID, ctFactory.accountID)
		return nil
	}
	return ctFactory.Consume(td)
}

// Destroy stops and removes the consumed thing.
// This stops delivery of events to the consumed thing's subscribers.
func (ctFactory *ConsumedThingFactory) Destroy(cThing *ConsumedThing) {
	logrus.Infof("ConsumedThingFactory.Destroy: thing %s", cThing.TD.ID)
	ctFactory.ctMapMutex.Lock()
	defer ctFactory.ctMapMutex.Unlock()

	cThing.Stop()
	delete(ctFactory.ctMap, cThing.TD.ID)
}

// HandleMessage dispatches a message bus message to the consumed thing it
// belongs to. Messages of things that are not consumed are ignored.
//
// The topic format is things/{thingID}/{messageType}[/{name}]:
//  things/{thingID}/event/{eventName} with an event or property value
//  things/{thingID}/properties with a map of property values
func (ctFactory *ConsumedThingFactory) HandleMessage(topic string, payload []byte) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[0] != vocab.TopicRoot {
		logrus.Warningf("ConsumedThingFactory.HandleMessage: unexpected topic '%s'", topic)
		return
	}
	thingID := parts[1]
	messageType := parts[2]

	ctFactory.ctMapMutex.RLock()
	cThing := ctFactory.ctMap[thingID]
	ctFactory.ctMapMutex.RUnlock()
	if cThing == nil {
		return
	}

	switch messageType {
	case vocab.MessageTypeEvent:
		if len(parts) < 4 {
			logrus.Warningf("ConsumedThingFactory.HandleMessage: event name is missing in topic '%s'", topic)
			return
		}
		cThing.HandleEvent(parts[3], payload)
	case vocab.MessageTypePropertyValues:
		cThing.HandleProperties(payload)
	}
}

// Stop the factory and remove all consumed thing instances
func (ctFactory *ConsumedThingFactory) Stop() {
	ctFactory.ctMapMutex.Lock()
	defer ctFactory.ctMapMutex.Unlock()

	for thingID, cThing := range ctFactory.ctMap {
		cThing.Stop()
		delete(ctFactory.ctMap, thingID)
	}
}

// publishActionRequest publishes an action or property write request on the
// topic things/{thingID}/action/{name}
func (ctFactory *ConsumedThingFactory) publishActionRequest(
	thingID string, name string, params interface{}) error {

	payload, err := json.Marshal(params)
	if err != nil {
		logrus.Errorf("ConsumedThingFactory.publishActionRequest: unable to marshal params of action '%s': %s",
			name, err)
		return err
	}
	topic := strings.ReplaceAll(vocab.TopicAction, "{thingID}", thingID) + "/" + name
	ctFactory.messageBus.Publish(topic, payload)
	return nil
}

// CreateConsumedThingFactory creates a factory instance for the consumed
// things of an account.
//
// The connection manager creates one per account connection and routes the
// account's event and property messages to HandleMessage.
//
//  accountID of the account whose things are consumed
//  messageBus with the account's message bus session for publishing requests
//  thingStore with the TD documents of the account
func CreateConsumedThingFactory(
	accountID string, messageBus MessageBus, thingStore *thing.ThingStore) *ConsumedThingFactory {

	ctFactory := &ConsumedThingFactory{
		accountID:  accountID,
		messageBus: messageBus,
		thingStore: thingStore,
		ctMap:      make(map[string]*ConsumedThing),
	}
	return ctFactory
}
