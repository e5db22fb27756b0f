// Command thingview runs the connection manager for the WoST dashboard.
//
// It loads the viewer configuration and account store, connects the enabled
// accounts to their Hub and serves the connection status for the dashboard.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/wostzone/thingview-go/pkg/accounts"
	"github.com/wostzone/thingview-go/pkg/config"
	"github.com/wostzone/thingview-go/pkg/connections"
	"github.com/wostzone/thingview-go/pkg/discovery"
	"github.com/wostzone/thingview-go/pkg/logging"
	"github.com/wostzone/thingview-go/pkg/statusserver"
)

// AppID is used for the logfile name
const AppID = "thingview"

func main() {
	viewerConfig, err := config.LoadAllConfig(os.Args, "", AppID)
	if err != nil {
		logrus.Errorf("thingview: failed to load configuration: %s", err)
		os.Exit(1)
	}
	_ = logging.SetLogging(viewerConfig.Loglevel, viewerConfig.LogFile)

	accountStore := accounts.NewAccountStore(viewerConfig.AccountsFile)
	err = accountStore.Open()
	if err != nil {
		logrus.Errorf("thingview: failed to open the account store: %s", err)
		os.Exit(1)
	}
	defer accountStore.Close()

	factory := connections.NewHubClientFactory(viewerConfig.CaCert)
	connectionMgr := connections.NewConnectionManager(factory)

	connectAccounts(viewerConfig, accountStore, connectionMgr)

	// accounts can be edited while running
	accountStore.SetOnChange(func(accountList []accounts.AccountRecord) {
		logrus.Infof("thingview: account store has changed, reconnecting")
		connectAccounts(viewerConfig, accountStore, connectionMgr)
	})

	statusSrv := statusserver.NewStatusServer(
		viewerConfig.Address, viewerConfig.StatusPort, viewerConfig.CorsOrigins,
		accountStore, connectionMgr)
	err = statusSrv.Start()
	if err != nil {
		logrus.Errorf("thingview: failed to start the status server: %s", err)
		os.Exit(1)
	}

	// wait for signal to end
	exitChannel := make(chan os.Signal, 1)
	signal.Notify(exitChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-exitChannel
	logrus.Warningf("thingview: received signal %s, shutting down", sig)

	statusSrv.Stop()
	for _, account := range accountStore.GetAccounts() {
		connectionMgr.Disconnect(account.ID)
	}
}

// connectAccounts connects each enabled account to its Hub.
// Accounts without an address use DNS-SD discovery to locate the Hub.
// Passwords are not stored so this relies on a valid refresh token from a
// previous authentication. Accounts that fail remain visible in the status.
func connectAccounts(viewerConfig *config.ViewerConfig,
	accountStore *accounts.AccountStore, connectionMgr *connections.ConnectionManager) {

	for _, account := range accountStore.GetEnabledAccounts() {
		if account.Address == "" && viewerConfig.DiscoveryTimeoutSec > 0 {
			address, _, err := discovery.DiscoverHub(viewerConfig.DiscoveryTimeoutSec)
			if err != nil {
				logrus.Warningf("thingview: no Hub found for account '%s': %s", account.ID, err)
				continue
			}
			account.Address = address
		}
		accountInfo := account
		_, err := connectionMgr.Connect(&accountInfo, nil)
		if err != nil {
			logrus.Warningf("thingview: unable to connect account '%s': %s", account.ID, err)
		}
	}
}
