package connections

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wostzone/thingview-go/pkg/accounts"
	"github.com/wostzone/thingview-go/pkg/consumedthing"
	"github.com/wostzone/thingview-go/pkg/thing"
	"github.com/wostzone/thingview-go/pkg/vocab"
)

// reuse the held access token when it remains valid for longer than this
const tokenReuseMarginSec = 1

// ConnectionManager drives the Hub sessions of each account.
//
// For each account it authenticates with the authentication service, loads the
// directory of Things from the directory service, and establishes a message
// bus session for real-time updates. Connection progress is published through
// the observable per-account status and the aggregate status over all
// accounts.
//
// Authentication failures are returned to the caller as they need a user
// decision, for example to re-enter the password. Message bus and directory
// failures after authentication are only reflected in the connection status;
// the message bus transport keeps reconnecting by itself.
type ConnectionManager struct {
	// factory creating the service clients of each account
	factory ClientFactory

	// account connections by account ID
	connections map[string]*AccountConnection
	// guards the connections map
	connectionsMutex sync.Mutex

	// aggregate connection status over all accounts
	status *ObservableStatus
}

// Authenticate the account with the authentication service using the given
// password, and hold on to the obtained access token for Connect.
//
// On failure the account's status message describes the error and the error is
// returned, so the caller can prompt for the password again.
func (cm *ConnectionManager) Authenticate(account *accounts.AccountRecord, password string) error {
	connection := cm.getAccountConnection(account)
	connection.opMutex.Lock()
	defer connection.opMutex.Unlock()

	logrus.Infof("ConnectionManager.Authenticate: authenticate as '%s' with %s",
		account.LoginName, account.Address)

	_, err := connection.authClient.AuthenticateWithLoginID(
		account.LoginName, password, account.RememberMe)
	if err != nil {
		logrus.Errorf("ConnectionManager.Authenticate: failed to authenticate account '%s': %s",
			account.ID, err)
		connection.status.update(func(status *ConnectionStatus) {
			status.Authenticated = false
			status.StatusMessage = "Failed to authenticate: " + err.Error()
		})
		cm.updateStatus()
		return err
	}
	connection.status.update(func(status *ConnectionStatus) {
		status.Authenticated = true
		status.StatusMessage = "Authentication successful"
	})
	cm.updateStatus()
	return nil
}

// AuthenticationRefresh renews the account's token pair using the refresh
// token held in a secure cookie. This only succeeds for accounts that
// authenticated with 'rememberMe' set.
//
// A failure means a silent reconnect is not possible and the caller has to
// fall back to Authenticate with a password.
func (cm *ConnectionManager) AuthenticationRefresh(account *accounts.AccountRecord) (accessToken string, err error) {
	connection := cm.getAccountConnection(account)
	connection.opMutex.Lock()
	defer connection.opMutex.Unlock()
	return cm.refresh(connection)
}

// Connect the account to the Hub services. This is the primary entry point.
//
// Any existing session of the account is ended first. If the held access token
// remains valid it is reused, otherwise the token pair is refreshed. A refresh
// failure fails the whole call as no password is available at this point.
// With a valid token the directory of Things is loaded and the message bus
// session is established; their completion is reported through the connection
// status rather than this call, which returns once the token is settled.
//
//  account to connect with
//  onConnectChanged optional callback invoked with the account status before this call returns.
//  Use GetConnectionStatus().Subscribe() to track later status changes.
//
// Returns the access token used for the session.
func (cm *ConnectionManager) Connect(account *accounts.AccountRecord,
	onConnectChanged func(account *accounts.AccountRecord, status ConnectionStatus)) (accessToken string, err error) {

	cm.Disconnect(account.ID)
	connection := cm.getAccountConnection(account)
	connection.opMutex.Lock()
	defer connection.opMutex.Unlock()

	logrus.Infof("ConnectionManager.Connect: address '%s' as '%s'",
		account.Address, account.LoginName)

	// reuse the held token if it remains valid, otherwise refresh
	expiry := connection.authClient.Expiry()
	if expiry > tokenReuseMarginSec {
		logrus.Infof("ConnectionManager.Connect: previous authentication still valid for %d seconds", expiry)
	} else {
		logrus.Infof("ConnectionManager.Connect: refreshing authentication")
		_, err = cm.refresh(connection)
		if err != nil {
			return "", err
		}
	}
	connection.status.update(func(status *ConnectionStatus) {
		status.Authenticated = true
		status.StatusMessage = "Authentication is valid"
	})
	cm.updateStatus()

	// with a valid token, load the directory and connect to the message bus.
	// Completion is reported through the connection status.
	accessToken = connection.authClient.AccessToken()
	if accessToken != "" {
		connection.mqttClient.Connect(account.LoginName, accessToken)

		dirClient := connection.dirClient
		go func() {
			dirErr := dirClient.Connect(accessToken)
			if dirErr != nil {
				logrus.Warningf("ConnectionManager.Connect: directory load of account '%s' failed: %s",
					account.ID, dirErr)
				return
			}
			connection.status.update(func(status *ConnectionStatus) {
				status.Directory = true
				status.Connected = true
			})
			cm.updateStatus()
		}()
	}
	if onConnectChanged != nil {
		onConnectChanged(account, connection.status.Get())
	}
	return accessToken, nil
}

// ConnectionCount returns the number of authenticated account connections
func (cm *ConnectionManager) ConnectionCount() int {
	cm.connectionsMutex.Lock()
	defer cm.connectionsMutex.Unlock()
	count := 0
	for _, connection := range cm.connections {
		if connection.authClient != nil && connection.authClient.Expiry() > 0 {
			count++
		}
	}
	return count
}

// Disconnect the account from the directory and message bus services.
//
// The authentication client is left untouched so its token can be reused on
// reconnect. Disconnecting an unknown or not connected account is a no-op.
func (cm *ConnectionManager) Disconnect(accountID string) {
	cm.connectionsMutex.Lock()
	connection := cm.connections[accountID]
	cm.connectionsMutex.Unlock()
	if connection == nil {
		return
	}
	connection.opMutex.Lock()
	defer connection.opMutex.Unlock()

	logrus.Infof("ConnectionManager.Disconnect: disconnecting account '%s'", connection.name)
	if connection.dirClient != nil {
		connection.dirClient.Disconnect()
	}
	if connection.mqttClient != nil {
		connection.mqttClient.Disconnect()
	}
}

// GetConnectionStatus returns the observable connection status of the account,
// creating the account connection if it doesn't exist yet.
func (cm *ConnectionManager) GetConnectionStatus(account *accounts.AccountRecord) *ObservableStatus {
	connection := cm.getAccountConnection(account)
	return connection.status
}

// GetConsumedThingFactory returns the factory with the consumed thing
// instances of the account, or nil if the account is unknown.
func (cm *ConnectionManager) GetConsumedThingFactory(accountID string) *consumedthing.ConsumedThingFactory {
	cm.connectionsMutex.Lock()
	defer cm.connectionsMutex.Unlock()
	connection := cm.connections[accountID]
	if connection == nil {
		return nil
	}
	return connection.ctFactory
}

// GetThingStore returns the store with the Thing descriptions of the account,
// or nil if the account is unknown.
func (cm *ConnectionManager) GetThingStore(accountID string) *thing.ThingStore {
	cm.connectionsMutex.Lock()
	defer cm.connectionsMutex.Unlock()
	connection := cm.connections[accountID]
	if connection == nil || connection.dirClient == nil {
		return nil
	}
	return connection.dirClient.Store()
}

// Status returns the observable aggregate connection status over all accounts
func (cm *ConnectionManager) Status() *ObservableStatus {
	return cm.status
}

// getAccountConnection returns the connection of the account, creating it
// along with its service clients if it doesn't exist yet.
func (cm *ConnectionManager) getAccountConnection(account *accounts.AccountRecord) *AccountConnection {
	cm.connectionsMutex.Lock()
	defer cm.connectionsMutex.Unlock()

	connection := cm.connections[account.ID]
	if connection == nil {
		logrus.Infof("ConnectionManager.getAccountConnection: creating clients of account '%s' for address '%s'",
			account.ID, account.Address)
		connection = &AccountConnection{
			accountID:  account.ID,
			name:       account.DisplayName,
			authClient: cm.factory.NewAuthClient(account.ID, account.Address, account.AuthPort),
			mqttClient: cm.factory.NewMqttClient(account.ID, account.Address, account.MqttPort,
				cm.handleMqttConnected, cm.handleMqttDisconnected, cm.handleMqttMessage),
			dirClient: cm.factory.NewDirClient(account.ID, account.Address, account.DirectoryPort),
			status:    NewObservableStatus(account.ID),
		}
		connection.ctFactory = consumedthing.CreateConsumedThingFactory(
			account.ID, connection.mqttClient, connection.dirClient.Store())
		cm.connections[account.ID] = connection
	}
	return connection
}

// handleMqttConnected updates the connection status after the account's
// message bus session is established and subscribes to the Thing topics.
// This is also invoked after an automatic reconnect.
func (cm *ConnectionManager) handleMqttConnected(accountID string) {
	cm.connectionsMutex.Lock()
	connection := cm.connections[accountID]
	cm.connectionsMutex.Unlock()
	if connection != nil {
		connection.mqttClient.Subscribe([]string{vocab.TopicSubscribeAll}, 1)
		connection.status.update(func(status *ConnectionStatus) {
			status.Messaging = true
			status.Connected = true
			status.StatusMessage = "Connected to message bus"
		})
	}
	cm.updateStatus()
}

// handleMqttDisconnected updates the connection status after the account's
// message bus session ended or was lost.
func (cm *ConnectionManager) handleMqttDisconnected(accountID string) {
	cm.connectionsMutex.Lock()
	connection := cm.connections[accountID]
	cm.connectionsMutex.Unlock()
	if connection != nil {
		connection.status.update(func(status *ConnectionStatus) {
			status.Messaging = false
			status.Connected = false
			status.StatusMessage = "Disconnected from messaging"
		})
	}
	cm.updateStatus()
}

// handleMqttMessage processes a message received on the account's message bus
// session. Published Thing description documents update the account's store.
// Event and property value messages are handed to the account's consumed thing
// factory which dispatches them to the thing they belong to.
func (cm *ConnectionManager) handleMqttMessage(accountID string, topic string, payload []byte, retained bool) {
	logrus.Debugf("ConnectionManager.handleMqttMessage: account '%s', topic '%s', size %d",
		accountID, topic, len(payload))

	// topic format is things/{thingID}/{messageType}[/{name}]
	parts := strings.Split(topic, "/")
	if len(parts) < 3 || parts[0] != vocab.TopicRoot {
		return
	}
	messageType := parts[2]
	switch messageType {
	case vocab.MessageTypeTD:
		td := &thing.ThingTD{}
		err := json.Unmarshal(payload, td)
		if err != nil {
			logrus.Warningf("ConnectionManager.handleMqttMessage: account '%s' received unparseable TD on topic '%s': %s",
				accountID, topic, err)
			return
		}
		store := cm.GetThingStore(accountID)
		if store != nil {
			store.Update(td)
		}
	case vocab.MessageTypeEvent, vocab.MessageTypePropertyValues:
		ctFactory := cm.GetConsumedThingFactory(accountID)
		if ctFactory != nil {
			ctFactory.HandleMessage(topic, payload)
		}
	}
}

// refresh renews the account's token pair and updates the connection status.
// The caller must hold the connection's operation mutex.
func (cm *ConnectionManager) refresh(connection *AccountConnection) (accessToken string, err error) {
	logrus.Infof("ConnectionManager.refresh: refresh authentication of account '%s'", connection.accountID)

	accessToken, err = connection.authClient.Refresh()
	if err != nil {
		logrus.Errorf("ConnectionManager.refresh: failed to refresh tokens of account '%s': %s",
			connection.accountID, err)
		connection.status.update(func(status *ConnectionStatus) {
			status.Authenticated = false
			status.StatusMessage = "Failed to refresh authentication token: " + err.Error()
		})
		cm.updateStatus()
		return "", err
	}
	connection.status.update(func(status *ConnectionStatus) {
		status.Authenticated = true
		status.StatusMessage = "Authentication refresh successful"
	})
	cm.updateStatus()
	return accessToken, nil
}

// updateStatus recomputes the aggregate connection status as the logical OR
// over the accounts, with a human readable description of the result.
func (cm *ConnectionManager) updateStatus() {
	var authenticated, connected, directory, messaging bool

	cm.connectionsMutex.Lock()
	for _, connection := range cm.connections {
		status := connection.status.Get()
		authenticated = authenticated || status.Authenticated
		connected = connected || status.Connected
		directory = directory || status.Directory
		messaging = messaging || status.Messaging
	}
	cm.connectionsMutex.Unlock()

	newMessage := StatusMessageNotAuthenticated
	if authenticated {
		newMessage = StatusMessageAuthenticated
		if directory {
			newMessage += StatusMessageDirectoryPart
		}
		if messaging {
			newMessage += StatusMessageMessagingPart
		}
		if !directory && !messaging {
			newMessage = StatusMessageAuthNotConnected
		}
	}
	cm.status.update(func(status *ConnectionStatus) {
		status.Authenticated = authenticated
		status.Connected = connected
		status.Directory = directory
		status.Messaging = messaging
		status.StatusMessage = newMessage
	})
}

// NewConnectionManager creates the manager of the Hub account connections.
// Service clients are created through the given factory the first time an
// account is used.
func NewConnectionManager(factory ClientFactory) *ConnectionManager {
	cm := &ConnectionManager{
		factory:     factory,
		connections: make(map[string]*AccountConnection),
		status:      NewObservableStatus(""),
	}
	return cm
}
