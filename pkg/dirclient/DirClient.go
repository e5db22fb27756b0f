// Package dirclient with a client to read the Thing directory of a Hub
package dirclient

import (
	"crypto/x509"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/wostzone/thingview-go/pkg/thing"
	"github.com/wostzone/thingview-go/pkg/tlsclient"
)

// DefaultPort of the Hub directory service
const DefaultPort = 8886

// paths with REST commands
const (
	// RouteThings is the list or query path
	RouteThings = "/things"
	// RouteThingID for methods get, post, patch, delete of a single TD
	RouteThingID = "/things/{thingID}"
)

// DefaultLimit of TDs per request when listing the directory
const DefaultLimit = 100

// MaxLimit of TDs per request the server accepts
const MaxLimit = 1000

// DirClient is a client of the Hub directory service of one account.
//
// It loads the directory of Thing Description documents into the account's
// Thing store using the access token obtained by the auth client.
type DirClient struct {
	accountID string
	hostPort  string
	store     *thing.ThingStore
	tlsClient *tlsclient.TLSClient
}

// Connect to the directory service using the given access token and load the
// directory content into the Thing store.
//
// Authentication must have completed first; the access token is used as bearer
// token on all directory requests.
func (dirClient *DirClient) Connect(accessToken string) error {
	dirClient.tlsClient.ConnectWithJwtAccessToken(dirClient.accountID, accessToken)
	return dirClient.LoadDirectory()
}

// Disconnect from the directory service
func (dirClient *DirClient) Disconnect() {
	dirClient.tlsClient.Close()
}

// GetTD returns the TD with the given thing ID
func (dirClient *DirClient) GetTD(thingID string) (*thing.ThingTD, error) {
	var td thing.ThingTD
	path := strings.Replace(RouteThingID, "{thingID}", thingID, 1)
	resp, err := dirClient.tlsClient.Get(path)
	if err != nil {
		return nil, err
	}
	err = json.Unmarshal(resp, &td)
	return &td, err
}

// ListTDs loads a page of TDs from the directory.
// Returns a list of TDs starting at the offset. The server can choose to apply
// its own limit, in which case the lowest value is used.
//  offset of the list to query from
//  limit result to nr of TDs. Use 0 for default.
func (dirClient *DirClient) ListTDs(offset int, limit int) ([]*thing.ThingTD, error) {
	var tdList []*thing.ThingTD
	if limit == 0 {
		limit = DefaultLimit
	}
	path := fmt.Sprintf("%s?offset=%d&limit=%d", RouteThings, offset, limit)
	response, err := dirClient.tlsClient.Get(path)
	if err != nil {
		return nil, err
	}
	err = json.Unmarshal(response, &tdList)
	logrus.Infof("DirClient.ListTDs: Returned %d TD(s)", len(tdList))
	return tdList, err
}

// LoadDirectory reads all TDs from the directory and updates the Thing store.
// Pages through the directory until a page returns fewer results than requested.
func (dirClient *DirClient) LoadDirectory() error {
	offset := 0
	for {
		tds, err := dirClient.ListTDs(offset, DefaultLimit)
		if err != nil {
			logrus.Warningf("DirClient.LoadDirectory: failed retrieving directory of account '%s': %s",
				dirClient.accountID, err)
			return err
		}
		for _, td := range tds {
			dirClient.store.Update(td)
		}
		if len(tds) < DefaultLimit {
			break
		}
		offset += len(tds)
	}
	logrus.Infof("DirClient.LoadDirectory: directory of account '%s' holds %d Things",
		dirClient.accountID, dirClient.store.Len())
	return nil
}

// QueryTDs returns the TDs matching the given jsonpath query expression.
//  jsonPath with the query expression
//  offset is the start index of the list to query from
//  limit limits the result to nr of TDs. Use 0 for default.
func (dirClient *DirClient) QueryTDs(jsonPath string, offset int, limit int) ([]*thing.ThingTD, error) {
	var tdList []*thing.ThingTD
	if limit == 0 {
		limit = DefaultLimit
	}
	path := fmt.Sprintf("%s?queryparams=%s&offset=%d&limit=%d", RouteThings, jsonPath, offset, limit)
	response, err := dirClient.tlsClient.Get(path)
	if err != nil {
		return nil, err
	}
	err = json.Unmarshal(response, &tdList)
	logrus.Infof("DirClient.QueryTDs: Returned %d TD(s)", len(tdList))
	return tdList, err
}

// Store returns the Thing store this client loads the directory into
func (dirClient *DirClient) Store() *thing.ThingStore {
	return dirClient.store
}

// NewDirClient creates a directory service client for one Hub account.
//  accountID whose directory to load
//  address of the directory service
//  port of the directory service, 0 to use the default port
//  caCert with the CA certificate to verify the server, nil to skip verification
func NewDirClient(accountID string, address string, port int, caCert *x509.Certificate) *DirClient {
	if port == 0 {
		port = DefaultPort
	}
	hostPort := fmt.Sprintf("%s:%d", address, port)
	dirClient := &DirClient{
		accountID: accountID,
		hostPort:  hostPort,
		store:     thing.NewThingStore(accountID),
		tlsClient: tlsclient.NewTLSClient(hostPort, caCert),
	}
	return dirClient
}
