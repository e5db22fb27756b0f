// Package statusserver with the http endpoint serving connection status to the dashboard
package statusserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/wostzone/thingview-go/pkg/accounts"
	"github.com/wostzone/thingview-go/pkg/connections"
)

// Routes of the status endpoint
const (
	RouteStatus        = "/status"
	RouteAccountStatus = "/status/{accountID}"
)

// StatusInfo is the payload of a GET /status request
type StatusInfo struct {
	// Status aggregates the connection status over all accounts
	Status connections.ConnectionStatus `json:"status"`
	// Accounts holds the connection status per account
	Accounts []connections.ConnectionStatus `json:"accounts"`
}

// StatusServer serves the connection status of the viewer's accounts over http.
//
// The dashboard runs in the browser and polls this endpoint, hence the CORS
// handling. The server binds to localhost by default.
type StatusServer struct {
	address     string
	port        int
	corsOrigins []string

	accountStore  *accounts.AccountStore
	connectionMgr *connections.ConnectionManager

	httpServer *http.Server
	router     *mux.Router
}

// handleGetStatus returns the aggregate status and the status of each account
func (srv *StatusServer) handleGetStatus(resp http.ResponseWriter, req *http.Request) {
	statusInfo := StatusInfo{
		Status:   srv.connectionMgr.Status().Get(),
		Accounts: make([]connections.ConnectionStatus, 0),
	}
	for _, account := range srv.accountStore.GetAccounts() {
		accountInfo := account
		accountStatus := srv.connectionMgr.GetConnectionStatus(&accountInfo)
		statusInfo.Accounts = append(statusInfo.Accounts, accountStatus.Get())
	}
	resp.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(resp).Encode(statusInfo)
}

// handleGetAccountStatus returns the connection status of a single account
func (srv *StatusServer) handleGetAccountStatus(resp http.ResponseWriter, req *http.Request) {
	accountID := mux.Vars(req)["accountID"]
	account, found := srv.accountStore.GetAccountByID(accountID)
	if !found {
		resp.WriteHeader(http.StatusNotFound)
		return
	}
	accountStatus := srv.connectionMgr.GetConnectionStatus(&account)
	resp.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(resp).Encode(accountStatus.Get())
}

// Start the status server. This returns after the server is listening.
func (srv *StatusServer) Start() error {
	logrus.Infof("StatusServer.Start: listening on %s:%d", srv.address, srv.port)

	c := cors.New(cors.Options{
		AllowedOrigins:   srv.corsOrigins,
		AllowedHeaders:   []string{"Origin", "Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	handler := c.Handler(srv.router)

	srv.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", srv.address, srv.port),
		Handler: handler,
	}
	go func() {
		err := srv.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			logrus.Errorf("StatusServer.Start: ListenAndServe: %s", err)
		}
	}()
	// make sure the server is listening before continuing
	time.Sleep(100 * time.Millisecond)
	return nil
}

// Stop the status server and close all connections
func (srv *StatusServer) Stop() {
	logrus.Infof("StatusServer.Stop: stopping status server")
	if srv.httpServer != nil {
		_ = srv.httpServer.Shutdown(context.Background())
	}
}

// NewStatusServer creates the status endpoint server.
//
//  address to listen on, eg localhost
//  port to listen on
//  corsOrigins with the allowed CORS origins. Use ["*"] to allow any.
//  accountStore with the configured accounts
//  connectionMgr that tracks the account connections
func NewStatusServer(address string, port int, corsOrigins []string,
	accountStore *accounts.AccountStore, connectionMgr *connections.ConnectionManager) *StatusServer {

	srv := &StatusServer{
		address:       address,
		port:          port,
		corsOrigins:   corsOrigins,
		accountStore:  accountStore,
		connectionMgr: connectionMgr,
		router:        mux.NewRouter(),
	}
	srv.router.HandleFunc(RouteStatus, srv.handleGetStatus).Methods(http.MethodGet, http.MethodOptions)
	srv.router.HandleFunc(RouteAccountStatus, srv.handleGetAccountStatus).Methods(http.MethodGet, http.MethodOptions)
	return srv
}
