// Package tlsclient with a TLS client helper for connecting to Hub services
package tlsclient

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
)

// The default paths for user authentication
const (
	// DefaultJWTLoginPath for obtaining access & refresh tokens
	DefaultJWTLoginPath = "/auth/login"
	// DefaultJWTRefreshPath for refreshing tokens with the auth service
	DefaultJWTRefreshPath = "/auth/refresh"
)

// TLSClient is a simple TLS client with JWT bearer token or no authentication.
//
// The auth and directory clients share this helper. A cookiejar is included as
// the auth service sets the refresh token in a secure cookie which must be
// returned on the refresh request.
type TLSClient struct {
	// host and port of the server to connect to
	hostPort        string
	caCert          *x509.Certificate
	caCertPool      *x509.CertPool
	httpClient      *http.Client
	timeout         time.Duration
	checkServerCert bool

	// User ID to identify as, intended for logging
	userID string

	// JWT access token passed as bearer token with each request, if set
	bearerToken string
}

// Close the connection with the server
func (cl *TLSClient) Close() {
	logrus.Infof("TLSClient.Close: Closing connection to %s", cl.hostPort)

	if cl.httpClient != nil {
		cl.httpClient.CloseIdleConnections()
		cl.httpClient = nil
	}
}

// connect sets-up the http client with TLS transport and a cookiejar for the
// refresh token cookie.
func (cl *TLSClient) connect() *http.Client {
	tlsConfig := &tls.Config{
		RootCAs:            cl.caCertPool,
		InsecureSkipVerify: !cl.checkServerCert,
	}
	tlsTransport := &http.Transport{
		TLSClientConfig: tlsConfig,
	}

	cjarOpts := &cookiejar.Options{PublicSuffixList: publicsuffix.List}
	cjar, err := cookiejar.New(cjarOpts)
	if err != nil {
		logrus.Errorf("TLSClient.connect: error setting cookiejar. Token refresh will not work: %s", err)
	}

	return &http.Client{
		Transport: tlsTransport,
		Timeout:   cl.timeout,
		Jar:       cjar,
	}
}

// ConnectNoAuth creates a connection with the server without client authentication
// Only requests that do not require authentication will succeed
func (cl *TLSClient) ConnectNoAuth() {
	cl.httpClient = cl.connect()
}

// ConnectWithJwtAccessToken sets the login ID and access token obtained elsewhere.
// The access token is included as bearer token in the authorization header of
// each request.
func (cl *TLSClient) ConnectWithJwtAccessToken(loginID string, accessToken string) {
	cl.userID = loginID
	cl.bearerToken = accessToken

	cl.httpClient = cl.connect()
}

// SetBearerToken updates the bearer token used on subsequent requests, for
// example after the token was refreshed.
func (cl *TLSClient) SetBearerToken(accessToken string) {
	cl.bearerToken = accessToken
}

// Get is a convenience function to send a GET request
//  path to invoke
func (cl *TLSClient) Get(path string) ([]byte, error) {
	url := fmt.Sprintf("https://%s%s", cl.hostPort, path)
	return cl.Invoke("GET", url, nil)
}

// Post a message with json payload
//  path to invoke
//  msg message object to include. Non strings will be marshalled to json
func (cl *TLSClient) Post(path string, msg interface{}) ([]byte, error) {
	// careful, a double // in the path causes a 301 and changes POST to GET
	url := fmt.Sprintf("https://%s%s", cl.hostPort, path)
	return cl.Invoke("POST", url, msg)
}

// Invoke a HTTPS method and read the response.
// If a bearer token is set then it is added to the authorization header.
//
// Failures are distinguished by error type: a 401 response returns an
// *UnauthorizedError, other responses of 400 or higher return a
// *ResponseError, and transport level failures return a *NetworkError.
//
//  method: GET, PUT, POST, ...
//  url: full URL to invoke
//  msg message object to include. Non strings will be marshalled to json
func (cl *TLSClient) Invoke(method string, url string, msg interface{}) ([]byte, error) {
	var body io.Reader = http.NoBody
	var err error
	var req *http.Request

	if cl == nil || cl.httpClient == nil {
		logrus.Errorf("TLSClient.Invoke: '%s'. Client is not started", url)
		return nil, errors.New("error on Invoke: client is not started")
	}
	logrus.Infof("TLSClient.Invoke: %s: %s", method, url)

	if msg != nil {
		switch msgWithType := msg.(type) {
		case string:
			body = bytes.NewReader([]byte(msgWithType))
		case []byte:
			body = bytes.NewReader(msgWithType)
		default:
			bodyBytes, _ := json.Marshal(msg)
			body = bytes.NewReader(bodyBytes)
		}
	}
	req, err = http.NewRequest(method, url, body)
	if err != nil {
		return nil, err
	}

	if cl.bearerToken != "" {
		req.Header.Add("Authorization", "bearer "+cl.bearerToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := cl.httpClient.Do(req)
	if err != nil {
		logrus.Errorf("TLSClient.Invoke: %s %s: %s", method, url, err)
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusUnauthorized {
		err = &UnauthorizedError{URL: url, Status: resp.Status}
	} else if resp.StatusCode >= 400 {
		err = &ResponseError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if err != nil {
		logrus.Errorf("TLSClient.Invoke: Error %s %s: %s", method, url, err)
		return nil, err
	}
	return respBody, nil
}

// NewTLSClient creates a new TLS Client instance.
// Use one of the Connect methods before invoking requests.
//  hostPort is the server hostname or IP address and port to connect to
//  caCert with the x509 CA certificate, nil if not available
// returns TLS client for submitting requests
func NewTLSClient(hostPort string, caCert *x509.Certificate) *TLSClient {
	var checkServerCert bool
	caCertPool := x509.NewCertPool()

	// Use CA certificate for server authentication if it exists
	if caCert == nil {
		logrus.Infof("NewTLSClient: destination '%s'. No CA certificate. InsecureSkipVerify used", hostPort)
		checkServerCert = false
	} else {
		logrus.Infof("NewTLSClient: destination '%s'. CA certificate '%s'",
			hostPort, caCert.Subject.CommonName)
		caCertPool.AddCert(caCert)
		checkServerCert = true
	}

	cl := &TLSClient{
		hostPort:        hostPort,
		timeout:         time.Second * 10,
		caCertPool:      caCertPool,
		caCert:          caCert,
		checkServerCert: checkServerCert,
	}
	return cl
}
