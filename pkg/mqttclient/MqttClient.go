// Package mqttclient with a websocket MQTT client for receiving real-time
// updates from the Hub message bus.
package mqttclient

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// DefaultPort with the websocket port of the message bus. Use 8883 for the
// MQTT TCP protocol.
const DefaultPort = 8885

// SysTopicPrefix with the reserved prefix of broker status topics. Messages on
// these topics are captured locally and not passed to the message handler.
const SysTopicPrefix = "$SYS/"

// DefaultReconnectPeriod between reconnection attempts of the underlying transport
const DefaultReconnectPeriod = 3000 * time.Millisecond

// DefaultTimeoutSec with the disconnection timeout
const DefaultTimeoutSec = 3

// messageQueueSize of the inbound message queue. The transport's receive loop
// only blocks when this many messages await the handler.
const messageQueueSize = 256

// ConnectionState of the message bus session
type ConnectionState string

// The connection states of the client.
// Reconnection is handled by the transport; the client only tracks it.
const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
)

// MqttClient maintains the message bus session of one account.
//
// The session connects over secure websocket using the account's login ID and
// access token as credentials. Reconnection after a connection loss is left to
// the transport with a fixed retry period; this client only reports the
// connection changes through its callbacks.
//
// Messages on the reserved $SYS/ status topics are captured into a local map.
// All other messages are queued and delivered to the message handler by a
// single dispatcher goroutine, so the transport's receive loop is not held up
// by a slow handler while messages still arrive in their inbound order. A
// panic in the handler is recovered and logged, as an escaping panic would
// take down the dispatcher.
type MqttClient struct {
	accountID string
	hostPort  string
	loginID   string
	caCert    *x509.Certificate

	// invoked with the account ID after the session is (re)established
	onConnected func(accountID string)
	// invoked with the account ID after the session is lost or ended
	onDisconnected func(accountID string)
	// invoked with each received message, except those on $SYS/ topics
	onMessage func(accountID string, topic string, payload []byte, retained bool)

	pahoClient pahomqtt.Client
	state      ConnectionState
	// queue feeding the message dispatcher
	messageQueue chan mqttMessage
	// timestamp of the last successful connect
	connectedTime time.Time
	msgCount      int
	// topics subscribed to, for bookkeeping. Cleared on connection loss.
	subscriptions map[string]byte
	// last received value of each $SYS/ broker status topic
	sysValues   map[string]string
	updateMutex sync.Mutex
}

// mqttMessage queued for delivery to the message handler
type mqttMessage struct {
	topic    string
	payload  []byte
	retained bool
}

// ConnectedTime returns the time the current session was established, or the
// zero time when not connected.
func (mqttClient *MqttClient) ConnectedTime() time.Time {
	mqttClient.updateMutex.Lock()
	defer mqttClient.updateMutex.Unlock()
	return mqttClient.connectedTime
}

// Connect to the message bus using the account login ID and access token as
// credentials.
//
// If a previous session exists then it is ended first. The connection attempt
// and any later reconnects are retried by the transport with a fixed period;
// connection changes are reported through the connected/disconnected callbacks
// rather than the return value.
func (mqttClient *MqttClient) Connect(loginID string, accessToken string) error {
	// end any previous session, including one still connecting, so an
	// abandoned transport does not keep retrying with a stale token
	mqttClient.Disconnect()
	mqttClient.loginID = loginID

	brokerURL := fmt.Sprintf("wss://%s", mqttClient.hostPort)
	hostName := mqttClient.accountID
	clientID := fmt.Sprintf("thingview-%s-%s-%d", hostName, loginID, time.Now().UnixNano()/1000000)

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetUsername(loginID)
	opts.SetPassword(accessToken)
	// the transport owns the retry policy, with a fixed period for both the
	// initial attempt and reconnects
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(DefaultReconnectPeriod)
	opts.SetMaxReconnectInterval(DefaultReconnectPeriod)
	// the session layer restores subscriptions after a reconnect
	opts.SetCleanSession(false)
	opts.SetResumeSubs(true)

	opts.SetOnConnectHandler(func(client pahomqtt.Client) {
		mqttClient.handleConnected()
	})
	opts.SetConnectionLostHandler(func(client pahomqtt.Client, err error) {
		mqttClient.handleConnectionLost(err)
	})
	opts.SetReconnectingHandler(func(client pahomqtt.Client, options *pahomqtt.ClientOptions) {
		mqttClient.handleReconnecting()
	})
	opts.SetDefaultPublishHandler(func(client pahomqtt.Client, msg pahomqtt.Message) {
		mqttClient.handleMessage(msg.Topic(), msg.Payload(), msg.Retained())
	})

	// use TLS if a CA certificate is given
	var rootCA *x509.CertPool
	if mqttClient.caCert != nil {
		rootCA = x509.NewCertPool()
		rootCA.AddCert(mqttClient.caCert)
	}
	opts.SetTLSConfig(&tls.Config{
		InsecureSkipVerify: mqttClient.caCert == nil,
		RootCAs:            rootCA,
	})

	logrus.Infof("MqttClient.Connect: connecting to %s as '%s', clientID=%s",
		brokerURL, loginID, clientID)

	mqttClient.updateMutex.Lock()
	mqttClient.state = StateConnecting
	mqttClient.msgCount = 0
	mqttClient.pahoClient = pahomqtt.NewClient(opts)
	mqttClient.updateMutex.Unlock()

	// connection progress is reported through the handlers
	mqttClient.pahoClient.Connect()
	return nil
}

// Disconnect gracefully ends the session, if one exists.
// The disconnected callback is invoked and the session handle is cleared, so a
// followup Connect creates a fresh session.
func (mqttClient *MqttClient) Disconnect() {
	mqttClient.updateMutex.Lock()
	pahoClient := mqttClient.pahoClient
	mqttClient.pahoClient = nil
	mqttClient.state = StateDisconnected
	mqttClient.subscriptions = make(map[string]byte)
	mqttClient.updateMutex.Unlock()

	if pahoClient != nil {
		logrus.Infof("MqttClient.Disconnect: disconnecting account '%s' from %s",
			mqttClient.accountID, mqttClient.hostPort)
		pahoClient.Disconnect(1000 * DefaultTimeoutSec)
		if mqttClient.onDisconnected != nil {
			mqttClient.onDisconnected(mqttClient.accountID)
		}
	}
}

// IsConnected returns whether a live session with the message bus exists
func (mqttClient *MqttClient) IsConnected() bool {
	mqttClient.updateMutex.Lock()
	defer mqttClient.updateMutex.Unlock()
	return mqttClient.pahoClient != nil && mqttClient.pahoClient.IsConnected()
}

// State returns the current connection state of the client
func (mqttClient *MqttClient) State() ConnectionState {
	mqttClient.updateMutex.Lock()
	defer mqttClient.updateMutex.Unlock()
	return mqttClient.state
}

// SysValues returns a copy of the last received broker status values, keyed by
// their $SYS/ topic.
func (mqttClient *MqttClient) SysValues() map[string]string {
	mqttClient.updateMutex.Lock()
	defer mqttClient.updateMutex.Unlock()
	values := make(map[string]string, len(mqttClient.sysValues))
	for topic, value := range mqttClient.sysValues {
		values[topic] = value
	}
	return values
}

// handleConnected is invoked by the transport after the session is established,
// both on the initial connect and after an automatic reconnect.
func (mqttClient *MqttClient) handleConnected() {
	logrus.Infof("MqttClient.handleConnected: account '%s' connected to message bus %s",
		mqttClient.accountID, mqttClient.hostPort)
	mqttClient.updateMutex.Lock()
	mqttClient.state = StateConnected
	mqttClient.connectedTime = time.Now()
	mqttClient.updateMutex.Unlock()

	if mqttClient.onConnected != nil {
		mqttClient.onConnected(mqttClient.accountID)
	}
}

// handleConnectionLost is invoked by the transport when the session is lost.
// The transport keeps retrying by itself; no retry timer is started here as
// that would double up on reconnection attempts.
func (mqttClient *MqttClient) handleConnectionLost(err error) {
	logrus.Warningf("MqttClient.handleConnectionLost: account '%s' lost connection to message bus: %s",
		mqttClient.accountID, err)
	mqttClient.updateMutex.Lock()
	mqttClient.state = StateDisconnected
	mqttClient.subscriptions = make(map[string]byte)
	mqttClient.updateMutex.Unlock()

	if mqttClient.onDisconnected != nil {
		mqttClient.onDisconnected(mqttClient.accountID)
	}
}

// handleMessage dispatches a received message.
//
// Broker status messages on $SYS/ topics are captured into the sysValues map
// and not passed on. Other messages are queued for the dispatcher so the
// transport's receive loop is not blocked by the message handler.
func (mqttClient *MqttClient) handleMessage(topic string, payload []byte, retained bool) {
	logrus.Debugf("MqttClient.handleMessage: topic '%s', size %d", topic, len(payload))

	mqttClient.updateMutex.Lock()
	mqttClient.msgCount++
	mqttClient.updateMutex.Unlock()

	if strings.HasPrefix(topic, SysTopicPrefix) {
		mqttClient.updateMutex.Lock()
		mqttClient.sysValues[topic] = string(payload)
		mqttClient.updateMutex.Unlock()
		return
	}
	if mqttClient.onMessage != nil {
		mqttClient.messageQueue <- mqttMessage{topic: topic, payload: payload, retained: retained}
	}
}

// dispatchMessages delivers queued messages to the message handler one at a
// time, in the order they arrived. A panic in the handler is recovered and
// logged so it cannot end the dispatcher or the session.
// This runs on its own goroutine for the lifetime of the client.
func (mqttClient *MqttClient) dispatchMessages() {
	for msg := range mqttClient.messageQueue {
		mqttClient.deliverMessage(msg)
	}
}

// deliverMessage invokes the message handler with a recover
func (mqttClient *MqttClient) deliverMessage(msg mqttMessage) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("MqttClient.deliverMessage: panic in message handler of topic '%s': %v",
				msg.topic, r)
		}
	}()
	mqttClient.onMessage(mqttClient.accountID, msg.topic, msg.payload, msg.retained)
}

// handleReconnecting is invoked when the transport starts a reconnect attempt.
// Nothing to do; the session layer retains the subscriptions.
func (mqttClient *MqttClient) handleReconnecting() {
	logrus.Infof("MqttClient.handleReconnecting: account '%s' trying to reconnect", mqttClient.accountID)
	mqttClient.updateMutex.Lock()
	mqttClient.state = StateReconnecting
	mqttClient.updateMutex.Unlock()
}

// Publish a message on the message bus.
// This is fire-and-forget; a failure is logged but not returned as publishing
// can simply be retried by the caller once the connection is restored.
func (mqttClient *MqttClient) Publish(topic string, payload []byte) {
	mqttClient.updateMutex.Lock()
	pahoClient := mqttClient.pahoClient
	mqttClient.updateMutex.Unlock()

	if pahoClient == nil {
		logrus.Warningf("MqttClient.Publish: not connected, dropping message on topic '%s'", topic)
		return
	}
	token := pahoClient.Publish(topic, 1, false, payload)
	go func() {
		token.Wait()
		if token.Error() != nil {
			logrus.Errorf("MqttClient.Publish: error publishing on topic '%s': %s", topic, token.Error())
		}
	}()
}

// Subscribe to one or more topics. Topics support the mqtt wildcards + and #.
// This is fire-and-forget; a failure is logged but not returned.
func (mqttClient *MqttClient) Subscribe(topics []string, qos byte) {
	mqttClient.updateMutex.Lock()
	pahoClient := mqttClient.pahoClient
	filters := make(map[string]byte, len(topics))
	for _, topic := range topics {
		filters[topic] = qos
		mqttClient.subscriptions[topic] = qos
	}
	mqttClient.updateMutex.Unlock()

	if pahoClient == nil {
		logrus.Warningf("MqttClient.Subscribe: not connected, subscription to %s is not made",
			strings.Join(topics, ","))
		return
	}
	logrus.Infof("MqttClient.Subscribe: qos=%d topics=%s", qos, strings.Join(topics, ","))
	token := pahoClient.SubscribeMultiple(filters, func(client pahomqtt.Client, msg pahomqtt.Message) {
		mqttClient.handleMessage(msg.Topic(), msg.Payload(), msg.Retained())
	})
	go func() {
		token.Wait()
		if token.Error() != nil {
			logrus.Errorf("MqttClient.Subscribe: error subscribing to %s: %s",
				strings.Join(topics, ","), token.Error())
		}
	}()
}

// Unsubscribe from a topic.
// This is fire-and-forget; a failure is logged but not returned.
func (mqttClient *MqttClient) Unsubscribe(topic string) {
	mqttClient.updateMutex.Lock()
	pahoClient := mqttClient.pahoClient
	delete(mqttClient.subscriptions, topic)
	mqttClient.updateMutex.Unlock()

	if pahoClient == nil {
		return
	}
	token := pahoClient.Unsubscribe(topic)
	go func() {
		token.Wait()
		if token.Error() != nil {
			logrus.Errorf("MqttClient.Unsubscribe: error unsubscribing from '%s': %s", topic, token.Error())
		}
	}()
}

// NewMqttClient creates a message bus client for one Hub account.
// Use Connect with the account's access token to establish the session.
//
//  accountID identifying the account in the callbacks
//  address of the message bus
//  port of the websocket listener, 0 to use the default port
//  caCert with the CA certificate to verify the server, nil to skip verification
//  onConnected invoked after the session is (re)established
//  onDisconnected invoked after the session is lost or ended
//  onMessage invoked for received messages, excluding the $SYS/ status topics
func NewMqttClient(
	accountID string, address string, port int, caCert *x509.Certificate,
	onConnected func(accountID string),
	onDisconnected func(accountID string),
	onMessage func(accountID string, topic string, payload []byte, retained bool),
) *MqttClient {

	if port == 0 {
		port = DefaultPort
	}
	mqttClient := &MqttClient{
		accountID:      accountID,
		hostPort:       fmt.Sprintf("%s:%d", address, port),
		caCert:         caCert,
		onConnected:    onConnected,
		onDisconnected: onDisconnected,
		onMessage:      onMessage,
		state:          StateDisconnected,
		messageQueue:   make(chan mqttMessage, messageQueueSize),
		subscriptions:  make(map[string]byte),
		sysValues:      make(map[string]string),
	}
	go mqttClient.dispatchMessages()
	return mqttClient
}
