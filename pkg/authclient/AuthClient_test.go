package authclient_test

import (
	"os"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wostzone/thingview-go/pkg/authclient"
	"github.com/wostzone/thingview-go/pkg/logging"
	"github.com/wostzone/thingview-go/pkg/testenv"
	"github.com/wostzone/thingview-go/pkg/tlsclient"
)

const testAccountID = "test"

var testCerts testenv.TestCerts
var testServices *testenv.TestServices

// TestMain runs the simulated authentication service
func TestMain(m *testing.M) {
	logging.SetLogging("info", "")
	testCerts = testenv.CreateCertBundle()
	testServices = testenv.StartServices(&testCerts)

	res := m.Run()

	testServices.Stop()
	os.Exit(res)
}

func TestAuthenticateWithLoginID(t *testing.T) {
	logrus.Infof("--- TestAuthenticateWithLoginID ---")
	cache := authclient.NewTokenCache()
	client := authclient.NewAuthClient(testAccountID,
		testenv.TestAddress, testenv.TestPort, testCerts.CaCert, cache)

	accessToken, err := client.AuthenticateWithLoginID(
		testenv.TestLoginID, testenv.TestPassword, true)
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)
	assert.Equal(t, accessToken, client.AccessToken())

	// the token is valid for 15 minutes
	expiry := client.Expiry()
	assert.Greater(t, expiry, 1)
	assert.LessOrEqual(t, expiry, 15*60)
}

func TestAuthenticateBadPassword(t *testing.T) {
	logrus.Infof("--- TestAuthenticateBadPassword ---")
	client := authclient.NewAuthClient(testAccountID,
		testenv.TestAddress, testenv.TestPort, testCerts.CaCert, nil)

	_, err := client.AuthenticateWithLoginID(testenv.TestLoginID, "wrongpassword", false)
	require.Error(t, err)

	// invalid credentials yield an unauthorized error so the UI can re-prompt
	var unauthorizedErr *tlsclient.UnauthorizedError
	assert.ErrorAs(t, err, &unauthorizedErr)
	assert.Empty(t, client.AccessToken())
	assert.Equal(t, 0, client.Expiry())
}

func TestRefresh(t *testing.T) {
	logrus.Infof("--- TestRefresh ---")
	client := authclient.NewAuthClient(testAccountID,
		testenv.TestAddress, testenv.TestPort, testCerts.CaCert, nil)

	// login with rememberMe sets the refresh token cookie
	_, err := client.AuthenticateWithLoginID(testenv.TestLoginID, testenv.TestPassword, true)
	require.NoError(t, err)

	accessToken, err := client.Refresh()
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)
	assert.Greater(t, client.Expiry(), 1)
}

func TestRefreshWithoutLogin(t *testing.T) {
	logrus.Infof("--- TestRefreshWithoutLogin ---")
	client := authclient.NewAuthClient(testAccountID,
		testenv.TestAddress, testenv.TestPort, testCerts.CaCert, nil)

	// without a refresh cookie the refresh is not authorized
	_, err := client.Refresh()
	require.Error(t, err)
	var unauthorizedErr *tlsclient.UnauthorizedError
	assert.ErrorAs(t, err, &unauthorizedErr)
}

func TestConcurrentTokenAccess(t *testing.T) {
	logrus.Infof("--- TestConcurrentTokenAccess ---")
	client := authclient.NewAuthClient(testAccountID,
		testenv.TestAddress, testenv.TestPort, testCerts.CaCert, nil)

	_, err := client.AuthenticateWithLoginID(testenv.TestLoginID, testenv.TestPassword, true)
	require.NoError(t, err)

	// read the token while refreshes replace it, as the connection manager
	// does when counting connections during a connect
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			assert.NotEmpty(t, client.AccessToken())
			assert.Greater(t, client.Expiry(), 0)
		}
	}()
	for i := 0; i < 10; i++ {
		_, err = client.Refresh()
		require.NoError(t, err)
	}
	wg.Wait()
}

func TestExpiryWithoutToken(t *testing.T) {
	logrus.Infof("--- TestExpiryWithoutToken ---")
	client := authclient.NewAuthClient(testAccountID,
		testenv.TestAddress, testenv.TestPort, testCerts.CaCert, nil)
	assert.Equal(t, 0, client.Expiry())
}

func TestInvalidTokenHasNoExpiry(t *testing.T) {
	logrus.Infof("--- TestInvalidTokenHasNoExpiry ---")
	cache := authclient.NewTokenCache()
	cache.Put(testAccountID, "not-a-jwt-token")

	// the cached garbage token is restored but reports no validity
	client := authclient.NewAuthClient(testAccountID,
		testenv.TestAddress, testenv.TestPort, testCerts.CaCert, cache)
	assert.Equal(t, 0, client.Expiry())
}

func TestTokenSurvivesClientRecreate(t *testing.T) {
	logrus.Infof("--- TestTokenSurvivesClientRecreate ---")
	cache := authclient.NewTokenCache()
	client := authclient.NewAuthClient(testAccountID,
		testenv.TestAddress, testenv.TestPort, testCerts.CaCert, cache)

	accessToken, err := client.AuthenticateWithLoginID(
		testenv.TestLoginID, testenv.TestPassword, false)
	require.NoError(t, err)

	// a new client with the same cache picks up the token without a login
	client2 := authclient.NewAuthClient(testAccountID,
		testenv.TestAddress, testenv.TestPort, testCerts.CaCert, cache)
	assert.Equal(t, accessToken, client2.AccessToken())
	assert.Greater(t, client2.Expiry(), 1)
}

func TestTokenCache(t *testing.T) {
	logrus.Infof("--- TestTokenCache ---")
	cache := authclient.NewTokenCache()
	cache.Put("account1", "token1")

	token, found := cache.Get("account1")
	assert.True(t, found)
	assert.Equal(t, "token1", token)

	cache.Remove("account1")
	_, found = cache.Get("account1")
	assert.False(t, found)
}
