package connections

import (
	"sync"

	"github.com/wostzone/thingview-go/pkg/consumedthing"
)

// AccountConnection holds the service clients and connection status of one
// Hub account.
//
// The clients are created lazily the first time the account is used and are
// kept for the lifetime of the connection, so an existing access token can be
// reused on reconnect. The operation mutex serializes Authenticate, Refresh,
// Connect and Disconnect for the account; operations on different accounts do
// not block each other.
type AccountConnection struct {
	// ID of the account this connection belongs to
	accountID string
	// friendly name of the account, for logging
	name string

	authClient IAuthClient
	mqttClient IMqttClient
	dirClient  IDirClient

	// ctFactory holds the consumed thing instances of this account
	ctFactory *consumedthing.ConsumedThingFactory

	// observable connection status of this account
	status *ObservableStatus

	// serializes the connection operations of this account
	opMutex sync.Mutex
}

// Status returns the observable connection status of the account
func (connection *AccountConnection) Status() *ObservableStatus {
	return connection.status
}

// ConsumedThingFactory returns the factory with the consumed thing instances
// of this account.
func (connection *AccountConnection) ConsumedThingFactory() *consumedthing.ConsumedThingFactory {
	return connection.ctFactory
}
