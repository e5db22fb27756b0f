package connections

import (
	"crypto/x509"

	"github.com/wostzone/thingview-go/pkg/authclient"
	"github.com/wostzone/thingview-go/pkg/dirclient"
	"github.com/wostzone/thingview-go/pkg/mqttclient"
	"github.com/wostzone/thingview-go/pkg/thing"
)

// IAuthClient with the authentication service client of an account
type IAuthClient interface {
	// AccessToken returns the current access token, or "" if not authenticated
	AccessToken() string
	// AuthenticateWithLoginID obtains a new token pair using a password
	AuthenticateWithLoginID(loginID string, password string, rememberMe bool) (accessToken string, err error)
	// Expiry returns the seconds until the access token expires, 0 without a valid token
	Expiry() int
	// Refresh renews the token pair using the refresh token cookie
	Refresh() (accessToken string, err error)
}

// IMqttClient with the message bus client of an account
type IMqttClient interface {
	// Connect to the message bus using the access token as credentials
	Connect(loginID string, accessToken string) error
	// Disconnect ends the message bus session
	Disconnect()
	// IsConnected returns whether a live session exists
	IsConnected() bool
	// Publish a message on the message bus
	Publish(topic string, payload []byte)
	// Subscribe to one or more topics, with support for the + and # wildcards
	Subscribe(topics []string, qos byte)
}

// IDirClient with the directory service client of an account
type IDirClient interface {
	// Connect to the directory service and load the directory of Things
	Connect(accessToken string) error
	// Disconnect ends the directory session
	Disconnect()
	// Store returns the Thing description store of this account
	Store() *thing.ThingStore
}

// ClientFactory creates the service clients of an account connection.
// The connection manager uses it to lazily construct clients the first time an
// account is used. Tests substitute a factory producing fakes.
type ClientFactory interface {
	NewAuthClient(accountID string, address string, port int) IAuthClient
	NewMqttClient(accountID string, address string, port int,
		onConnected func(accountID string),
		onDisconnected func(accountID string),
		onMessage func(accountID string, topic string, payload []byte, retained bool),
	) IMqttClient
	NewDirClient(accountID string, address string, port int) IDirClient
}

// HubClientFactory creates clients for the Hub's authentication, message bus
// and directory services. All clients of an account share the CA certificate
// used to verify the services, and the token cache that carries access tokens
// across reconnects.
type HubClientFactory struct {
	caCert     *x509.Certificate
	tokenCache *authclient.TokenCache
}

func (factory *HubClientFactory) NewAuthClient(
	accountID string, address string, port int) IAuthClient {
	return authclient.NewAuthClient(accountID, address, port, factory.caCert, factory.tokenCache)
}

func (factory *HubClientFactory) NewMqttClient(
	accountID string, address string, port int,
	onConnected func(accountID string),
	onDisconnected func(accountID string),
	onMessage func(accountID string, topic string, payload []byte, retained bool),
) IMqttClient {
	return mqttclient.NewMqttClient(accountID, address, port, factory.caCert,
		onConnected, onDisconnected, onMessage)
}

func (factory *HubClientFactory) NewDirClient(
	accountID string, address string, port int) IDirClient {
	return dirclient.NewDirClient(accountID, address, port, factory.caCert)
}

// NewHubClientFactory creates the factory of Hub service clients.
//
//  caCert with the CA certificate to verify the Hub services, nil to not verify
func NewHubClientFactory(caCert *x509.Certificate) *HubClientFactory {
	return &HubClientFactory{
		caCert:     caCert,
		tokenCache: authclient.NewTokenCache(),
	}
}
