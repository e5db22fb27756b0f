// Package accounts with the persistent store of Hub account definitions
package accounts

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultAccountsFile recommended filename of the accounts store
const DefaultAccountsFile = "accounts.json"

// accountData with the serialized form of the store
type accountData struct {
	Accounts []AccountRecord `json:"accounts"`
}

// AccountStore holds the Hub accounts, persisted to a JSON file.
//
// The file is watched for changes so edits made outside the application, for
// example with a text editor, are picked up while running. Mutations through
// the store are saved immediately.
type AccountStore struct {
	storePath string
	accounts  []AccountRecord
	// invoked after the store was reloaded due to an external file change
	onChange func(accounts []AccountRecord)
	watcher   *fsnotify.Watcher
	mutex     sync.RWMutex
}

// Add the account to the store and save.
// A new unique ID is always assigned to the record. The stored record is
// returned.
func (store *AccountStore) Add(record AccountRecord) AccountRecord {
	record.ID = uuid.New().String()
	store.mutex.Lock()
	store.accounts = append(store.accounts, record)
	store.mutex.Unlock()

	logrus.Infof("AccountStore.Add: added account '%s' (%s)", record.DisplayName, record.ID)
	store.Save()
	return record
}

// Close the store and stop watching the store file
func (store *AccountStore) Close() {
	logrus.Infof("AccountStore.Close: %s", store.storePath)
	store.mutex.Lock()
	defer store.mutex.Unlock()
	if store.watcher != nil {
		store.watcher.Close()
		store.watcher = nil
	}
}

// GetAccountByID returns the account with the given ID
func (store *AccountStore) GetAccountByID(id string) (record AccountRecord, found bool) {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	for _, account := range store.accounts {
		if account.ID == id {
			return account, true
		}
	}
	return record, false
}

// GetAccounts returns a copy of the list of accounts
func (store *AccountStore) GetAccounts() []AccountRecord {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	accounts := make([]AccountRecord, len(store.accounts))
	copy(accounts, store.accounts)
	return accounts
}

// GetEnabledAccounts returns the accounts that are enabled for connecting
func (store *AccountStore) GetEnabledAccounts() []AccountRecord {
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	accounts := make([]AccountRecord, 0)
	for _, account := range store.accounts {
		if account.Enabled {
			accounts = append(accounts, account)
		}
	}
	return accounts
}

// Load the accounts from the store file.
// A missing file is not an error; the store then starts with a single default
// account to give the user something to edit.
func (store *AccountStore) Load() error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	raw, err := os.ReadFile(store.storePath)
	if err == nil {
		data := accountData{}
		err = json.Unmarshal(raw, &data)
		if err != nil {
			logrus.Errorf("AccountStore.Load: file '%s': %s", store.storePath, err)
			return fmt.Errorf("failed loading accounts from '%s': %s", store.storePath, err)
		}
		if len(data.Accounts) > 0 {
			store.accounts = data.Accounts
			logrus.Infof("AccountStore.Load: loaded %d accounts from %s",
				len(store.accounts), store.storePath)
		} else {
			logrus.Infof("AccountStore.Load: no accounts in %s. Keeping existing accounts",
				store.storePath)
		}
	} else {
		logrus.Infof("AccountStore.Load: no accounts file at %s, starting with defaults",
			store.storePath)
	}
	// make sure there is at least one account to display
	if len(store.accounts) == 0 {
		defaultAccount := NewAccountRecord()
		defaultAccount.ID = "default"
		defaultAccount.DisplayName = "Hub server"
		store.accounts = append(store.accounts, defaultAccount)
	}
	return nil
}

// Open the store.
// This loads the accounts file and watches it for changes.
func (store *AccountStore) Open() error {
	logrus.Infof("AccountStore.Open: %s", store.storePath)
	err := store.Load()
	if err != nil {
		return err
	}
	return store.watch()
}

// Remove the account with the given ID and save
func (store *AccountStore) Remove(id string) {
	store.mutex.Lock()
	remaining := make([]AccountRecord, 0, len(store.accounts))
	for _, account := range store.accounts {
		if account.ID != id {
			remaining = append(remaining, account)
		}
	}
	store.accounts = remaining
	store.mutex.Unlock()

	logrus.Infof("AccountStore.Remove: removed account with ID '%s'", id)
	store.Save()
}

// Save the accounts to the store file
func (store *AccountStore) Save() error {
	store.mutex.RLock()
	data := accountData{Accounts: store.accounts}
	raw, _ := json.MarshalIndent(data, "", "  ")
	store.mutex.RUnlock()

	logrus.Infof("AccountStore.Save: saving %d accounts to %s", len(data.Accounts), store.storePath)
	err := os.WriteFile(store.storePath, raw, 0600)
	if err != nil {
		logrus.Errorf("AccountStore.Save: failed saving to '%s': %s", store.storePath, err)
	}
	return err
}

// SetEnabled enables or disables the account and saves.
// When enabled, the application attempts to connect the account to the Hub.
func (store *AccountStore) SetEnabled(id string, enabled bool) error {
	store.mutex.Lock()
	var account *AccountRecord
	for index := range store.accounts {
		if store.accounts[index].ID == id {
			account = &store.accounts[index]
			break
		}
	}
	if account == nil {
		store.mutex.Unlock()
		return fmt.Errorf("account with ID '%s' not found", id)
	}
	account.Enabled = enabled
	name := account.DisplayName
	store.mutex.Unlock()

	logrus.Infof("AccountStore.SetEnabled: account '%s': %v", name, enabled)
	return store.Save()
}

// SetOnChange sets the callback invoked after the store was reloaded because
// the file changed on disk.
func (store *AccountStore) SetOnChange(onChange func(accounts []AccountRecord)) {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.onChange = onChange
}

// Update the account with the given record and save.
// If the record ID is unknown the record is added, otherwise it is replaced.
func (store *AccountStore) Update(record AccountRecord) {
	store.mutex.Lock()
	found := false
	for index := range store.accounts {
		if store.accounts[index].ID == record.ID {
			store.accounts[index] = record
			found = true
			break
		}
	}
	if !found {
		store.accounts = append(store.accounts, record)
	}
	store.mutex.Unlock()

	logrus.Infof("AccountStore.Update: account '%s' (%s)", record.DisplayName, record.ID)
	store.Save()
}

// watch the store file and reload on changes.
// Multiple successive changes are debounced before reloading.
func (store *AccountStore) watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// the callback timer debounces a burst of change events
	reloadTimer := time.AfterFunc(0, func() {
		logrus.Infof("AccountStore.watch: accounts file changed, reloading")
		loadErr := store.Load()
		if loadErr != nil {
			return
		}
		store.mutex.RLock()
		onChange := store.onChange
		store.mutex.RUnlock()
		if onChange != nil {
			onChange(store.GetAccounts())
		}
	})
	reloadTimer.Stop()

	err = watcher.Add(store.storePath)
	if err != nil {
		// the file doesn't have to exist yet; watch its directory instead
		logrus.Warningf("AccountStore.watch: unable to watch '%s': %s", store.storePath, err)
		watcher.Close()
		return nil
	}
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				logrus.Debugf("AccountStore.watch: event %s on %s", event.Op, event.Name)
				reloadTimer.Reset(time.Millisecond * 100)
			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logrus.Errorf("AccountStore.watch: %s", watchErr)
			}
		}
	}()
	store.mutex.Lock()
	store.watcher = watcher
	store.mutex.Unlock()
	return nil
}

// NewAccountStore creates the account store that persists to the given file.
// Call Open to load the accounts and start watching the file.
func NewAccountStore(storePath string) *AccountStore {
	store := &AccountStore{
		storePath: storePath,
		accounts:  make([]AccountRecord, 0),
	}
	return store
}
