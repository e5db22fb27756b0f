// Package testenv with a simulated Hub authentication and directory service
package testenv

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/wostzone/thingview-go/pkg/authclient"
	"github.com/wostzone/thingview-go/pkg/dirclient"
	"github.com/wostzone/thingview-go/pkg/thing"
	"github.com/wostzone/thingview-go/pkg/tlsclient"
)

// address and port the test services listen on
const TestAddress = "127.0.0.1"
const TestPort = 9882

// credentials accepted by the test authentication service
const TestLoginID = "user1"
const TestPassword = "password1"

// JwtRefreshCookieName with the name of the refresh token cookie, as set by
// the Hub authentication service.
const JwtRefreshCookieName = "authtoken"

// TestServices simulates the Hub authentication and directory services on a
// single TLS server, for testing clients against without a running Hub.
//
// Login and refresh issue real ES256 signed JWT tokens so token expiry
// handling can be tested. The directory route serves the TDs placed in the
// Things list, honoring the offset and limit query parameters.
type TestServices struct {
	certs *TestCerts

	// validity of issued tokens. Modify before starting.
	AccessTokenValidity  time.Duration
	RefreshTokenValidity time.Duration

	// TDs served by the directory route
	Things []*thing.ThingTD

	httpServer *http.Server
	mutex      sync.Mutex
}

// createTokens issues a signed JWT access and refresh token pair for the user
func (srv *TestServices) createTokens(userID string) (accessToken string, refreshToken string, err error) {
	accessClaims := &jwt.StandardClaims{
		Id:        userID,
		Subject:   "accessToken",
		ExpiresAt: time.Now().Add(srv.AccessTokenValidity).Unix(),
		IssuedAt:  time.Now().Unix(),
	}
	jwtAccessToken := jwt.NewWithClaims(jwt.SigningMethodES256, accessClaims)
	accessToken, err = jwtAccessToken.SignedString(srv.certs.ServerKey)
	if err != nil {
		return "", "", err
	}
	refreshClaims := &jwt.StandardClaims{
		Id:        userID,
		Subject:   "refreshToken",
		ExpiresAt: time.Now().Add(srv.RefreshTokenValidity).Unix(),
		IssuedAt:  time.Now().Unix(),
	}
	jwtRefreshToken := jwt.NewWithClaims(jwt.SigningMethodES256, refreshClaims)
	refreshToken, err = jwtRefreshToken.SignedString(srv.certs.ServerKey)
	return accessToken, refreshToken, err
}

// handleLogin issues a token pair when the test credentials are posted
func (srv *TestServices) handleLogin(resp http.ResponseWriter, req *http.Request) {
	loginCred := authclient.JwtAuthLogin{}
	err := json.NewDecoder(req.Body).Decode(&loginCred)
	if err != nil {
		resp.WriteHeader(http.StatusBadRequest)
		return
	}
	if loginCred.LoginID != TestLoginID || loginCred.Password != TestPassword {
		logrus.Infof("TestServices.handleLogin: invalid credentials of user '%s'", loginCred.LoginID)
		resp.WriteHeader(http.StatusUnauthorized)
		return
	}
	srv.writeTokens(loginCred.LoginID, resp)
}

// handleRefresh issues a new token pair when a valid refresh cookie is provided
func (srv *TestServices) handleRefresh(resp http.ResponseWriter, req *http.Request) {
	cookie, err := req.Cookie(JwtRefreshCookieName)
	if err != nil || cookie.Value == "" {
		resp.WriteHeader(http.StatusUnauthorized)
		return
	}
	claims := &jwt.StandardClaims{}
	jwtToken, err := jwt.ParseWithClaims(cookie.Value, claims,
		func(token *jwt.Token) (interface{}, error) {
			return &srv.certs.ServerKey.PublicKey, nil
		})
	if err != nil || !jwtToken.Valid || claims.Id == "" {
		logrus.Infof("TestServices.handleRefresh: invalid refresh token")
		resp.WriteHeader(http.StatusUnauthorized)
		return
	}
	srv.writeTokens(claims.Id, resp)
}

// handleGetThing serves one TD of the Things list by its ID
func (srv *TestServices) handleGetThing(resp http.ResponseWriter, req *http.Request) {
	thingID := mux.Vars(req)["thingID"]
	srv.mutex.Lock()
	defer srv.mutex.Unlock()
	for _, td := range srv.Things {
		if td.ID == thingID {
			responseMsg, _ := json.Marshal(td)
			resp.Header().Set("Content-Type", "application/json")
			_, _ = resp.Write(responseMsg)
			return
		}
	}
	resp.WriteHeader(http.StatusNotFound)
}

// handleListThings serves the TDs of the Things list
func (srv *TestServices) handleListThings(resp http.ResponseWriter, req *http.Request) {
	offset, _ := strconv.Atoi(req.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = dirclient.DefaultLimit
	}
	srv.mutex.Lock()
	things := srv.Things
	srv.mutex.Unlock()

	if offset >= len(things) {
		things = nil
	} else if offset+limit > len(things) {
		things = things[offset:]
	} else {
		things = things[offset : offset+limit]
	}
	responseMsg, _ := json.Marshal(things)
	resp.Header().Set("Content-Type", "application/json")
	_, _ = resp.Write(responseMsg)
}

// writeTokens writes the token pair response and sets the refresh cookie
func (srv *TestServices) writeTokens(userID string, resp http.ResponseWriter) {
	accessToken, refreshToken, err := srv.createTokens(userID)
	if err != nil {
		resp.WriteHeader(http.StatusInternalServerError)
		return
	}
	http.SetCookie(resp, &http.Cookie{
		Name:     JwtRefreshCookieName,
		Value:    refreshToken,
		Expires:  time.Now().Add(srv.RefreshTokenValidity),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	response := authclient.JwtAuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}
	responseMsg, _ := json.Marshal(response)
	_, _ = resp.Write(responseMsg)
}

// Stop the test services
func (srv *TestServices) Stop() {
	if srv.httpServer != nil {
		_ = srv.httpServer.Close()
		srv.httpServer = nil
	}
}

// StartServices starts a TLS server serving the Hub authentication and
// directory routes. Use Stop when done.
func StartServices(certs *TestCerts) *TestServices {
	srv := &TestServices{
		certs:                certs,
		AccessTokenValidity:  15 * time.Minute,
		RefreshTokenValidity: time.Hour,
		Things:               make([]*thing.ThingTD, 0),
	}
	router := mux.NewRouter()
	router.HandleFunc(tlsclient.DefaultJWTLoginPath, srv.handleLogin).Methods("POST")
	router.HandleFunc(tlsclient.DefaultJWTRefreshPath, srv.handleRefresh).Methods("POST")
	router.HandleFunc(dirclient.RouteThings, srv.handleListThings).Methods("GET")
	router.HandleFunc(dirclient.RouteThingID, srv.handleGetThing).Methods("GET")

	// the service has the CA certificate for client cert authentication
	caCertPool := x509.NewCertPool()
	caCertPool.AddCert(certs.CaCert)

	tlsConf := &tls.Config{
		Certificates:       []tls.Certificate{*certs.ServerCert},
		ClientAuth:         tls.VerifyClientCertIfGiven,
		ClientCAs:          caCertPool,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: false,
	}
	srv.httpServer = &http.Server{
		Addr:      fmt.Sprintf("%s:%d", TestAddress, TestPort),
		Handler:   router,
		TLSConfig: tlsConf,
	}
	go func() {
		// the TLS config contains certificate and key
		_ = srv.httpServer.ListenAndServeTLS("", "")
	}()
	// give the listener a moment to start
	time.Sleep(time.Millisecond * 100)
	return srv
}
