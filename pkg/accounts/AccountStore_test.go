package accounts_test

import (
	"encoding/json"
	"os"
	"path"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wostzone/thingview-go/pkg/accounts"
	"github.com/wostzone/thingview-go/pkg/logging"
)

func TestMain(m *testing.M) {
	logging.SetLogging("info", "")
	res := m.Run()
	os.Exit(res)
}

func TestOpenWithoutFileHasDefaultAccount(t *testing.T) {
	logrus.Infof("--- TestOpenWithoutFileHasDefaultAccount ---")
	storePath := path.Join(t.TempDir(), accounts.DefaultAccountsFile)
	store := accounts.NewAccountStore(storePath)
	err := store.Open()
	require.NoError(t, err)
	defer store.Close()

	accList := store.GetAccounts()
	require.Equal(t, 1, len(accList))
	assert.Equal(t, "default", accList[0].ID)
	assert.Equal(t, accounts.DefaultAuthPort, accList[0].AuthPort)
	assert.False(t, accList[0].Enabled)
}

func TestAddRemoveAccount(t *testing.T) {
	logrus.Infof("--- TestAddRemoveAccount ---")
	storePath := path.Join(t.TempDir(), accounts.DefaultAccountsFile)
	store := accounts.NewAccountStore(storePath)
	err := store.Open()
	require.NoError(t, err)
	defer store.Close()

	record := accounts.NewAccountRecord()
	record.DisplayName = "Test hub"
	record.LoginName = "user1"
	added := store.Add(record)
	assert.NotEmpty(t, added.ID)

	found, ok := store.GetAccountByID(added.ID)
	require.True(t, ok)
	assert.Equal(t, "Test hub", found.DisplayName)

	store.Remove(added.ID)
	_, ok = store.GetAccountByID(added.ID)
	assert.False(t, ok)
}

func TestUpdateAccount(t *testing.T) {
	logrus.Infof("--- TestUpdateAccount ---")
	storePath := path.Join(t.TempDir(), accounts.DefaultAccountsFile)
	store := accounts.NewAccountStore(storePath)
	require.NoError(t, store.Open())
	defer store.Close()

	record := store.Add(accounts.NewAccountRecord())
	record.Address = "hub.local"
	store.Update(record)

	found, ok := store.GetAccountByID(record.ID)
	require.True(t, ok)
	assert.Equal(t, "hub.local", found.Address)

	// updating an unknown record adds it
	other := accounts.NewAccountRecord()
	other.ID = "other-account"
	store.Update(other)
	_, ok = store.GetAccountByID("other-account")
	assert.True(t, ok)
}

func TestSetEnabled(t *testing.T) {
	logrus.Infof("--- TestSetEnabled ---")
	storePath := path.Join(t.TempDir(), accounts.DefaultAccountsFile)
	store := accounts.NewAccountStore(storePath)
	require.NoError(t, store.Open())
	defer store.Close()

	record := store.Add(accounts.NewAccountRecord())
	err := store.SetEnabled(record.ID, true)
	require.NoError(t, err)

	enabled := store.GetEnabledAccounts()
	require.Equal(t, 1, len(enabled))
	assert.Equal(t, record.ID, enabled[0].ID)

	err = store.SetEnabled("not-an-account", true)
	assert.Error(t, err)
}

func TestAccountsPersist(t *testing.T) {
	logrus.Infof("--- TestAccountsPersist ---")
	storePath := path.Join(t.TempDir(), accounts.DefaultAccountsFile)
	store := accounts.NewAccountStore(storePath)
	require.NoError(t, store.Open())
	record := accounts.NewAccountRecord()
	record.DisplayName = "Persisted hub"
	added := store.Add(record)
	store.Close()

	// a second store instance reads the same accounts back
	store2 := accounts.NewAccountStore(storePath)
	require.NoError(t, store2.Load())
	found, ok := store2.GetAccountByID(added.ID)
	require.True(t, ok)
	assert.Equal(t, "Persisted hub", found.DisplayName)
}

func TestExternalEditReloadsStore(t *testing.T) {
	logrus.Infof("--- TestExternalEditReloadsStore ---")
	storePath := path.Join(t.TempDir(), accounts.DefaultAccountsFile)
	store := accounts.NewAccountStore(storePath)
	require.NoError(t, store.Open())
	// create the file so it can be watched
	require.NoError(t, store.Save())
	store.Close()

	store = accounts.NewAccountStore(storePath)
	require.NoError(t, store.Open())
	defer store.Close()

	var changeCount int32
	store.SetOnChange(func(accountList []accounts.AccountRecord) {
		atomic.AddInt32(&changeCount, 1)
	})

	// edit the file the way an external editor would
	record := accounts.NewAccountRecord()
	record.ID = "external-edit"
	record.DisplayName = "Edited outside"
	raw, _ := json.Marshal(map[string][]accounts.AccountRecord{"accounts": {record}})
	require.NoError(t, os.WriteFile(storePath, raw, 0600))

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&changeCount) > 0
	}, time.Second*3, time.Millisecond*50)

	found, ok := store.GetAccountByID("external-edit")
	require.True(t, ok)
	assert.Equal(t, "Edited outside", found.DisplayName)
}
