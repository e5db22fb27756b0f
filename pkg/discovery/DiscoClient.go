// Package discovery to locate the WoST Hub on the local network
package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/sirupsen/logrus"
)

// WostServiceName is the DNS-SD service name the Hub directory publishes
// itself under, as _thingdir._tcp.
const WostServiceName = "thingdir"

// DefaultSearchTimeSec to wait for DNS-SD responses
const DefaultSearchTimeSec = 3

// DnsSDScan scans the local domain for services of the given protocol, for
// example "_thingdir._tcp". An empty protocol scans for all DNS-SD services.
//
//  protocol of the services to scan for
//  waitSec is the duration of the scan
//
// Returns the service records received within the scan window.
func DnsSDScan(protocol string, waitSec int) ([]*zeroconf.ServiceEntry, error) {
	if waitSec <= 0 {
		waitSec = DefaultSearchTimeSec
	}
	if protocol == "" {
		protocol = "_services._dns-sd._udp"
	}
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create DNS-SD resolver: %s", err)
	}

	records := make([]*zeroconf.ServiceEntry, 0)
	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan bool)
	go func() {
		for entry := range entries {
			logrus.Infof("DnsSDScan: found service instance '%s' at %s:%d",
				entry.Instance, entry.HostName, entry.Port)
			records = append(records, entry)
		}
		done <- true
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(waitSec)*time.Second)
	defer cancel()
	err = resolver.Browse(ctx, protocol, "local.", entries)
	if err != nil {
		return nil, fmt.Errorf("DNS-SD scan of '%s' failed: %s", protocol, err)
	}
	<-ctx.Done()
	<-done
	return records, nil
}

// DiscoverService searches the local domain for instances of the named
// service and returns the first one found.
//
// The service name is the short name without the "_" and "._tcp" decorations,
// for example "thingdir" for the Hub directory published as _thingdir._tcp.
// The key-value pairs of the instance's TXT record are returned as parameters.
//
//  serviceName of the service to discover
//  waitSec is the time to wait for responses
//
// Returns the address, port and TXT parameters of the first instance, plus
// all discovered records, or an error if nothing was found.
func DiscoverService(serviceName string, waitSec int) (
	address string, port int, params map[string]string,
	records []*zeroconf.ServiceEntry, err error) {

	params = make(map[string]string)
	protocol := "_" + serviceName + "._tcp"

	records, err = DnsSDScan(protocol, waitSec)
	if err != nil {
		return "", 0, nil, nil, err
	}
	if len(records) == 0 {
		err = fmt.Errorf("no service of type '%s' found after %d seconds", protocol, waitSec)
		return "", 0, nil, nil, err
	}
	rec0 := records[0]

	// prefer the IP address, fall back to the hostname
	if len(rec0.AddrIPv4) > 0 {
		address = rec0.AddrIPv4[0].String()
	} else if len(rec0.AddrIPv6) > 0 {
		address = rec0.AddrIPv6[0].String()
	} else {
		address = rec0.HostName
	}

	for _, txtRecord := range rec0.Text {
		kv := strings.Split(txtRecord, "=")
		if len(kv) != 2 {
			logrus.Infof("DiscoverService: ignoring non key-value '%s' in TXT record", txtRecord)
		} else {
			params[kv[0]] = kv[1]
		}
	}
	return address, rec0.Port, params, records, nil
}

// DiscoverHub locates the WoST Hub on the local network.
// Intended for accounts with an empty address, which stands for auto-discovery.
//
//  searchTimeSec is the time to wait for a response, 0 for the default
//
// Returns the address and directory service port of the Hub.
func DiscoverHub(searchTimeSec int) (address string, port int, err error) {
	address, port, _, _, err = DiscoverService(WostServiceName, searchTimeSec)
	if err != nil {
		logrus.Warningf("DiscoverHub: no Hub found on the local network: %s", err)
		return "", 0, err
	}
	logrus.Infof("DiscoverHub: found Hub directory at %s:%d", address, port)
	return address, port, nil
}
