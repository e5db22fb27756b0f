package consumedthing_test

import (
	"encoding/json"
	"os"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wostzone/thingview-go/pkg/consumedthing"
	"github.com/wostzone/thingview-go/pkg/logging"
	"github.com/wostzone/thingview-go/pkg/thing"
	"github.com/wostzone/thingview-go/pkg/vocab"
)

const testThingID = "urn:zone1:device1:sensor"

// fakeBus captures published messages
type fakeBus struct {
	mutex     sync.Mutex
	published map[string][]byte
}

func (bus *fakeBus) Publish(topic string, payload []byte) {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()
	bus.published[topic] = payload
}

func (bus *fakeBus) get(topic string) []byte {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()
	return bus.published[topic]
}

func newFakeBus() *fakeBus {
	return &fakeBus{published: make(map[string][]byte)}
}

func TestMain(m *testing.M) {
	logging.SetLogging("info", "")
	res := m.Run()
	os.Exit(res)
}

// makeTestTD creates a sensor TD with a temperature property, an alarm event
// and a dimmer action
func makeTestTD() *thing.ThingTD {
	td := thing.CreateTD(testThingID, "test sensor", vocab.DeviceTypeSensor)
	td.AddProperty(vocab.PropNameTemperature, "Temperature", vocab.WoTDataTypeNumber)
	td.AddEvent(vocab.PropNameAlarm, "Alarm", vocab.WoTDataTypeString)
	td.AddAction(vocab.PropNameDimmer, "Set dim level", vocab.WoTDataTypeNumber)
	return td
}

func TestConsume(t *testing.T) {
	logrus.Infof("--- TestConsume ---")
	td := makeTestTD()
	store := thing.NewThingStore("account1")
	store.Update(td)
	ctFactory := consumedthing.CreateConsumedThingFactory("account1", newFakeBus(), store)

	cThing := ctFactory.Consume(td)
	require.NotNil(t, cThing)
	assert.Equal(t, td, cThing.GetThingDescription())

	// consuming the same thing again returns the same instance
	cThing2 := ctFactory.Consume(td)
	assert.Equal(t, cThing, cThing2)

	// lookup by ID uses the store
	cThing3 := ctFactory.ConsumeWithID(testThingID)
	assert.Equal(t, cThing, cThing3)

	// unknown things cannot be consumed
	assert.Nil(t, ctFactory.ConsumeWithID("urn:notathing"))
}

func TestReceiveEvent(t *testing.T) {
	logrus.Infof("--- TestReceiveEvent ---")
	var receivedValue string

	td := makeTestTD()
	store := thing.NewThingStore("account1")
	store.Update(td)
	ctFactory := consumedthing.CreateConsumedThingFactory("account1", newFakeBus(), store)
	cThing := ctFactory.Consume(td)

	err := cThing.SubscribeEvent(vocab.PropNameAlarm, func(name string, data *thing.InteractionOutput) {
		receivedValue = data.ValueAsString()
	})
	require.NoError(t, err)

	// a second subscription to the same event is not allowed
	err = cThing.SubscribeEvent(vocab.PropNameAlarm, func(name string, data *thing.InteractionOutput) {})
	assert.Error(t, err)

	payload, _ := json.Marshal("smoke detected")
	ctFactory.HandleMessage("things/"+testThingID+"/event/"+vocab.PropNameAlarm, payload)
	assert.Equal(t, "smoke detected", receivedValue)

	// the event value is cached
	value, err := cThing.ReadProperty(vocab.PropNameAlarm)
	require.NoError(t, err)
	assert.Equal(t, "smoke detected", value.ValueAsString())
}

func TestObserveProperty(t *testing.T) {
	logrus.Infof("--- TestObserveProperty ---")
	var observedValue float64

	td := makeTestTD()
	store := thing.NewThingStore("account1")
	store.Update(td)
	ctFactory := consumedthing.CreateConsumedThingFactory("account1", newFakeBus(), store)
	cThing := ctFactory.Consume(td)

	err := cThing.ObserveProperty(vocab.PropNameTemperature, func(name string, data *thing.InteractionOutput) {
		observedValue = data.Value().(float64)
	})
	require.NoError(t, err)

	// a property event updates the cache and notifies the observer
	ctFactory.HandleMessage("things/"+testThingID+"/event/"+vocab.PropNameTemperature, []byte("20.5"))
	assert.Equal(t, 20.5, observedValue)

	value, err := cThing.ReadProperty(vocab.PropNameTemperature)
	require.NoError(t, err)
	assert.Equal(t, 20.5, value.Value())
}

func TestReceivePropertyMap(t *testing.T) {
	logrus.Infof("--- TestReceivePropertyMap ---")
	td := makeTestTD()
	store := thing.NewThingStore("account1")
	store.Update(td)
	ctFactory := consumedthing.CreateConsumedThingFactory("account1", newFakeBus(), store)
	cThing := ctFactory.Consume(td)

	// unknown properties in the map are ignored
	payload, _ := json.Marshal(map[string]interface{}{
		vocab.PropNameTemperature: 21.5,
		"notaproperty":            "ignored",
	})
	ctFactory.HandleMessage("things/"+testThingID+"/properties", payload)

	props := cThing.ReadAllProperties()
	require.NotNil(t, props[vocab.PropNameTemperature])
	assert.Equal(t, 21.5, props[vocab.PropNameTemperature].Value())
	_, err := cThing.ReadProperty("notaproperty")
	assert.Error(t, err)
}

func TestInvokeAction(t *testing.T) {
	logrus.Infof("--- TestInvokeAction ---")
	td := makeTestTD()
	store := thing.NewThingStore("account1")
	store.Update(td)
	bus := newFakeBus()
	ctFactory := consumedthing.CreateConsumedThingFactory("account1", bus, store)
	cThing := ctFactory.Consume(td)

	err := cThing.InvokeAction(vocab.PropNameDimmer, 30)
	require.NoError(t, err)
	payload := bus.get("things/" + testThingID + "/action/" + vocab.PropNameDimmer)
	assert.Equal(t, "30", string(payload))

	// actions not in the TD are refused
	err = cThing.InvokeAction("notanaction", nil)
	assert.Error(t, err)
}

func TestWriteProperty(t *testing.T) {
	logrus.Infof("--- TestWriteProperty ---")
	td := makeTestTD()
	store := thing.NewThingStore("account1")
	store.Update(td)
	bus := newFakeBus()
	ctFactory := consumedthing.CreateConsumedThingFactory("account1", bus, store)
	cThing := ctFactory.Consume(td)

	// property writes are submitted as action requests
	err := cThing.WriteProperty(vocab.PropNameTemperature, 22.5)
	require.NoError(t, err)
	payload := bus.get("things/" + testThingID + "/action/" + vocab.PropNameTemperature)
	assert.Equal(t, "22.5", string(payload))

	err = cThing.WriteMultipleProperties(map[string]interface{}{
		vocab.PropNameTemperature: 23.5,
	})
	require.NoError(t, err)
	payload = bus.get("things/" + testThingID + "/action/" + vocab.PropNameTemperature)
	assert.Equal(t, "23.5", string(payload))
}

func TestDestroyStopsDelivery(t *testing.T) {
	logrus.Infof("--- TestDestroyStopsDelivery ---")
	var eventCount int

	td := makeTestTD()
	store := thing.NewThingStore("account1")
	store.Update(td)
	ctFactory := consumedthing.CreateConsumedThingFactory("account1", newFakeBus(), store)
	cThing := ctFactory.Consume(td)

	err := cThing.SubscribeEvent(vocab.PropNameAlarm, func(name string, data *thing.InteractionOutput) {
		eventCount++
	})
	require.NoError(t, err)

	ctFactory.Destroy(cThing)

	payload, _ := json.Marshal("smoke detected")
	ctFactory.HandleMessage("things/"+testThingID+"/event/"+vocab.PropNameAlarm, payload)
	assert.Equal(t, 0, eventCount)
}
