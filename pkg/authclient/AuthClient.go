// Package authclient with a client to obtain and refresh JWT access tokens
// from the Hub authentication service.
package authclient

import (
	"crypto/x509"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/sirupsen/logrus"

	"github.com/wostzone/thingview-go/pkg/tlsclient"
)

// DefaultPort of the Hub authentication service
const DefaultPort = 8881

// JwtAuthLogin defines the login request message. Must match that of the auth
// service authenticator.
type JwtAuthLogin struct {
	LoginID    string `json:"login"` // typically the email
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"` // persist the refresh token in a secure cookie
}

// JwtAuthResponse defines the login or refresh response
type JwtAuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	RefreshURL   string `json:"refreshURL"`
}

// AuthClient obtains and refreshes the JWT access token of exactly one account.
//
// The access token is held in memory and in the session token cache keyed by
// account ID, so a client recreated during the session can pick up the token
// without a new login. The refresh token never reaches the client; the server
// keeps it in a secure cookie that the underlying TLS client returns on refresh.
//
// This performs no retry. Retry and backoff policy is up to the connection manager.
type AuthClient struct {
	accountID string
	hostPort  string
	loginID   string

	// the current access token, or "" if not authenticated.
	// Guarded by tokenMutex; the connection manager reads the token while a
	// login or refresh on another goroutine replaces it.
	accessToken string
	tokenMutex  sync.Mutex

	// session-scoped token cache shared between clients, optional
	cache *TokenCache

	// tlsClient handles the https requests and the refresh token cookie
	tlsClient *tlsclient.TLSClient
}

// AccessToken returns the currently held access token or "" if no token is held
func (authClient *AuthClient) AccessToken() string {
	authClient.tokenMutex.Lock()
	defer authClient.tokenMutex.Unlock()
	return authClient.accessToken
}

// AuthenticateWithLoginID requests JWT access and refresh tokens using
// loginID/password authentication.
//
// This posts a JSON encoded JwtAuthLogin message to the login path. The server
// responds with a JwtAuthResponse message holding the access token, and if
// rememberMe is set it also sets a secure cookie with a refresh token for use
// by Refresh.
//
// On HTTP 401 this returns an *tlsclient.UnauthorizedError (invalid credentials).
// Other responses of 400 or higher return an *tlsclient.ResponseError.
//
//  loginID to login with, for example the user's email
//  password to login with. The password is only used to obtain the tokens.
//  rememberMe stores the refresh token in a secure cookie for use with Refresh
// Returns the access token, also used as default bearer token on this client.
func (authClient *AuthClient) AuthenticateWithLoginID(
	loginID string, password string, rememberMe bool) (accessToken string, err error) {

	authClient.loginID = loginID
	loginMessage := JwtAuthLogin{
		LoginID:    loginID,
		Password:   password,
		RememberMe: rememberMe,
	}
	resp, err := authClient.tlsClient.Post(tlsclient.DefaultJWTLoginPath, loginMessage)
	if err != nil {
		logrus.Errorf("AuthClient.AuthenticateWithLoginID: login of '%s' failed: %s", loginID, err)
		return "", err
	}
	var authResp JwtAuthResponse
	err = json.Unmarshal(resp, &authResp)
	if err != nil {
		return "", fmt.Errorf("login of '%s' has unexpected response message: %s", loginID, err)
	}
	logrus.Infof("AuthClient.AuthenticateWithLoginID: authentication as '%s' successful", loginID)
	authClient.setAccessToken(authResp.AccessToken)
	return authResp.AccessToken, nil
}

// Expiry returns the remaining validity of the access token in seconds.
//
// This decodes the expiry claim of the held token. It is a local computation
// that does not contact the server, so server side revocation is not detected.
// Returns 0 if no token is held or the token has expired. Never negative.
func (authClient *AuthClient) Expiry() int {
	accessToken := authClient.AccessToken()
	if accessToken == "" {
		return 0
	}
	claims := jwt.MapClaims{}
	_, _, err := new(jwt.Parser).ParseUnverified(accessToken, claims)
	if err != nil {
		logrus.Warningf("AuthClient.Expiry: held token of account '%s' cannot be parsed: %s",
			authClient.accountID, err)
		return 0
	}
	exp, found := claims["exp"]
	if !found {
		return 0
	}
	expTime, _ := exp.(float64)
	remaining := int(int64(expTime) - time.Now().Unix())
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Refresh renews the access and refresh tokens.
//
// This posts to the refresh path without a body. It relies on the secure cookie
// holding the refresh token, set by a previous login with rememberMe. If no
// valid refresh token is available the request fails with an
// *tlsclient.UnauthorizedError or *tlsclient.ResponseError, and
// AuthenticateWithLoginID must be called to renew the tokens interactively.
func (authClient *AuthClient) Refresh() (accessToken string, err error) {
	resp, err := authClient.tlsClient.Post(tlsclient.DefaultJWTRefreshPath, nil)
	if err != nil {
		logrus.Warningf("AuthClient.Refresh: token refresh of account '%s' failed: %s",
			authClient.accountID, err)
		return "", err
	}
	var authResp JwtAuthResponse
	err = json.Unmarshal(resp, &authResp)
	if err != nil {
		return "", fmt.Errorf("token refresh has unexpected response message: %s", err)
	}
	logrus.Infof("AuthClient.Refresh: token refresh for user '%s'", authClient.loginID)
	authClient.setAccessToken(authResp.AccessToken)
	return authResp.AccessToken, nil
}

// setAccessToken stores the token in memory and in the session cache, and uses
// it as the bearer token for followup requests on this client.
func (authClient *AuthClient) setAccessToken(accessToken string) {
	authClient.tokenMutex.Lock()
	authClient.accessToken = accessToken
	authClient.tokenMutex.Unlock()
	authClient.tlsClient.SetBearerToken(accessToken)
	if authClient.cache != nil {
		authClient.cache.Put(authClient.accountID, accessToken)
	}
}

// NewAuthClient creates an authentication client for one Hub account.
//
// If a session token cache is provided and holds a token for the account then
// that token is restored, so a page-reload style reconstruction does not force
// a new login.
//
//  accountID of the account, used for the session cache and in callbacks
//  address of the auth service to connect to
//  port of the auth service, 0 to use the default port
//  caCert with the CA certificate to verify the server, nil to skip verification
//  cache with the session token cache, nil to not use a cache
func NewAuthClient(accountID string, address string, port int,
	caCert *x509.Certificate, cache *TokenCache) *AuthClient {

	if port == 0 {
		port = DefaultPort
	}
	hostPort := fmt.Sprintf("%s:%d", address, port)
	authClient := &AuthClient{
		accountID: accountID,
		hostPort:  hostPort,
		cache:     cache,
		tlsClient: tlsclient.NewTLSClient(hostPort, caCert),
	}
	authClient.tlsClient.ConnectNoAuth()
	if cache != nil {
		if token, found := cache.Get(accountID); found {
			authClient.accessToken = token
			authClient.tlsClient.SetBearerToken(token)
		}
	}
	return authClient
}
