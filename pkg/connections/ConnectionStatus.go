// Package connections manages the Hub service sessions of each account.
package connections

import "sync"

// Status messages of the connection status
const (
	StatusMessageNotConnected     = "Not connected"
	StatusMessageNotAuthenticated = "Not authenticated"
	StatusMessageAuthNotConnected = "Authenticated but not connected"
	StatusMessageAuthenticated    = "The user is authenticated"
	// appended to StatusMessageAuthenticated when the directory is loaded
	StatusMessageDirectoryPart = ", the directory of Things is retrieved"
	// appended to StatusMessageAuthenticated when the message bus is connected
	StatusMessageMessagingPart = " and message bus connection is established"
)

// ConnectionStatus with the connection status of an account, or the aggregate
// over all accounts.
type ConnectionStatus struct {
	// AccountID of the account this status belongs to, "" for the aggregate
	AccountID string `json:"accountID"`
	// Connected when authenticated and at least one service session is up
	Connected bool `json:"connected"`
	// Authenticated when authentication was successful
	Authenticated bool `json:"authenticated"`
	// Directory when the directory of Things was retrieved
	Directory bool `json:"directory"`
	// Messaging when the message bus session is established
	Messaging bool `json:"messaging"`
	// StatusMessage with the human description of the connection status
	StatusMessage string `json:"statusMessage"`
}

// ObservableStatus wraps a ConnectionStatus and notifies subscribers of each
// change, so a UI can track connection health without polling. Listeners are
// invoked synchronously, before the call that caused the change returns.
type ObservableStatus struct {
	status      ConnectionStatus
	listeners   []func(status ConnectionStatus)
	updateMutex sync.Mutex
}

// Get returns a copy of the current status
func (observable *ObservableStatus) Get() ConnectionStatus {
	observable.updateMutex.Lock()
	defer observable.updateMutex.Unlock()
	return observable.status
}

// Subscribe adds a listener that is invoked with a copy of the status after
// each change. Listeners cannot be removed; the status object lives as long as
// its account connection.
func (observable *ObservableStatus) Subscribe(listener func(status ConnectionStatus)) {
	observable.updateMutex.Lock()
	defer observable.updateMutex.Unlock()
	observable.listeners = append(observable.listeners, listener)
}

// update applies the given mutation and notifies the subscribers.
// Listeners are invoked outside the lock so they can read the status.
func (observable *ObservableStatus) update(mutate func(status *ConnectionStatus)) {
	observable.updateMutex.Lock()
	mutate(&observable.status)
	updated := observable.status
	listeners := observable.listeners
	observable.updateMutex.Unlock()

	for _, listener := range listeners {
		listener(updated)
	}
}

// NewObservableStatus creates the connection status of the given account.
// Use accountID "" for the aggregate status over all accounts.
func NewObservableStatus(accountID string) *ObservableStatus {
	observable := &ObservableStatus{
		status: ConnectionStatus{
			AccountID:     accountID,
			StatusMessage: StatusMessageNotConnected,
		},
		listeners: make([]func(status ConnectionStatus), 0),
	}
	return observable
}
