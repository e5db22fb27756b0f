package mqttclient

// These tests exercise the message dispatch path directly as the remaining
// behavior requires a live message bus.

import (
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/wostzone/thingview-go/pkg/logging"
)

const testAccountID = "test"

func TestMain(m *testing.M) {
	logging.SetLogging("info", "")
	res := m.Run()
	os.Exit(res)
}

func TestNewMqttClient(t *testing.T) {
	logrus.Infof("--- TestNewMqttClient ---")
	client := NewMqttClient(testAccountID, "localhost", 0, nil, nil, nil, nil)
	assert.NotNil(t, client)
	assert.False(t, client.IsConnected())
	assert.Equal(t, StateDisconnected, client.State())
	assert.True(t, client.ConnectedTime().IsZero())
}

func TestDisconnectWithoutConnect(t *testing.T) {
	logrus.Infof("--- TestDisconnectWithoutConnect ---")
	var disconnectCount int
	client := NewMqttClient(testAccountID, "localhost", 0, nil,
		nil, func(accountID string) { disconnectCount++ }, nil)

	// no session exists so this should be a no-op
	client.Disconnect()
	assert.Equal(t, 0, disconnectCount)
}

func TestSysTopicsAreCaptured(t *testing.T) {
	logrus.Infof("--- TestSysTopicsAreCaptured ---")
	var rxMutex sync.Mutex
	rxTopics := make([]string, 0)

	client := NewMqttClient(testAccountID, "localhost", 0, nil, nil, nil,
		func(accountID string, topic string, payload []byte, retained bool) {
			rxMutex.Lock()
			defer rxMutex.Unlock()
			rxTopics = append(rxTopics, topic)
		})

	client.handleMessage("$SYS/broker/clients/connected", []byte("5"), false)
	client.handleMessage("$SYS/broker/uptime", []byte("123 seconds"), false)
	client.handleMessage("things/zone1/thing1/td", []byte(`{}`), false)

	// the regular message arrives on the handler, the status messages do not
	assert.Eventually(t, func() bool {
		rxMutex.Lock()
		defer rxMutex.Unlock()
		return len(rxTopics) == 1
	}, time.Second, time.Millisecond*10)

	rxMutex.Lock()
	assert.Equal(t, "things/zone1/thing1/td", rxTopics[0])
	rxMutex.Unlock()

	sysValues := client.SysValues()
	assert.Equal(t, 2, len(sysValues))
	assert.Equal(t, "5", sysValues["$SYS/broker/clients/connected"])
	assert.Equal(t, "123 seconds", sysValues["$SYS/broker/uptime"])
}

func TestSlowHandlerDoesNotBlockDispatch(t *testing.T) {
	logrus.Infof("--- TestSlowHandlerDoesNotBlockDispatch ---")
	var rxMutex sync.Mutex
	rxCount := 0

	client := NewMqttClient(testAccountID, "localhost", 0, nil, nil, nil,
		func(accountID string, topic string, payload []byte, retained bool) {
			time.Sleep(time.Millisecond * 100)
			rxMutex.Lock()
			defer rxMutex.Unlock()
			rxCount++
		})

	// queueing the messages must not hold up the caller
	start := time.Now()
	client.handleMessage("things/zone1/thing1/td", []byte("1"), false)
	client.handleMessage("things/zone1/thing2/td", []byte("2"), false)
	client.handleMessage("things/zone1/thing3/td", []byte("3"), false)
	assert.Less(t, time.Since(start), time.Millisecond*100)

	assert.Eventually(t, func() bool {
		rxMutex.Lock()
		defer rxMutex.Unlock()
		return rxCount == 3
	}, time.Second, time.Millisecond*10)
}

func TestPanicInHandlerIsRecovered(t *testing.T) {
	logrus.Infof("--- TestPanicInHandlerIsRecovered ---")
	var rxMutex sync.Mutex
	rxCount := 0

	client := NewMqttClient(testAccountID, "localhost", 0, nil, nil, nil,
		func(accountID string, topic string, payload []byte, retained bool) {
			rxMutex.Lock()
			rxCount++
			rxMutex.Unlock()
			panic("handler gone bad")
		})

	client.handleMessage("things/zone1/thing1/td", []byte("1"), false)
	client.handleMessage("things/zone1/thing2/td", []byte("2"), false)

	// both messages are still delivered despite the panics
	assert.Eventually(t, func() bool {
		rxMutex.Lock()
		defer rxMutex.Unlock()
		return rxCount == 2
	}, time.Second, time.Millisecond*10)
}

func TestMessageOrderIsPreserved(t *testing.T) {
	logrus.Infof("--- TestMessageOrderIsPreserved ---")
	var rxMutex sync.Mutex
	rxPayloads := make([]string, 0)

	client := NewMqttClient(testAccountID, "localhost", 0, nil, nil, nil,
		func(accountID string, topic string, payload []byte, retained bool) {
			rxMutex.Lock()
			defer rxMutex.Unlock()
			rxPayloads = append(rxPayloads, string(payload))
		})

	// rapid property updates must reach the handler in their inbound order
	for i := 0; i < 100; i++ {
		client.handleMessage("things/zone1/thing1/properties", []byte(strconv.Itoa(i)), false)
	}
	assert.Eventually(t, func() bool {
		rxMutex.Lock()
		defer rxMutex.Unlock()
		return len(rxPayloads) == 100
	}, time.Second, time.Millisecond*10)

	rxMutex.Lock()
	for i, payload := range rxPayloads {
		assert.Equal(t, strconv.Itoa(i), payload)
	}
	rxMutex.Unlock()
}

func TestConnectAgainEndsPriorSession(t *testing.T) {
	logrus.Infof("--- TestConnectAgainEndsPriorSession ---")
	var countMutex sync.Mutex
	disconnectCount := 0

	// port 9999 has no broker so the first attempt keeps retrying
	client := NewMqttClient(testAccountID, "127.0.0.1", 9999, nil,
		nil, func(accountID string) {
			countMutex.Lock()
			disconnectCount++
			countMutex.Unlock()
		}, nil)
	err := client.Connect("user1", "token-1")
	assert.NoError(t, err)

	// reconnecting with a fresh token must end the previous attempt
	err = client.Connect("user1", "token-2")
	assert.NoError(t, err)
	countMutex.Lock()
	assert.Equal(t, 1, disconnectCount)
	countMutex.Unlock()

	client.Disconnect()
}

func TestPublishWhenNotConnected(t *testing.T) {
	logrus.Infof("--- TestPublishWhenNotConnected ---")
	client := NewMqttClient(testAccountID, "localhost", 0, nil, nil, nil, nil)

	// fire-and-forget operations must not fail without a session
	client.Publish("things/zone1/thing1/action", []byte("on"))
	client.Subscribe([]string{"things/#"}, 1)
	client.Unsubscribe("things/#")
}
