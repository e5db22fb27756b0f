package testenv

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wostzone/thingview-go/pkg/certsclient"
)

// ServerAddress the TLS test server is valid for
const ServerAddress = "127.0.0.1"

// TestCerts with the certificates for testing CA, server and client
type TestCerts struct {
	CaCert    *x509.Certificate
	CaKey     *ecdsa.PrivateKey
	ServerKey *ecdsa.PrivateKey
	ClientKey *ecdsa.PrivateKey

	ServerCert *tls.Certificate
	ClientCert *tls.Certificate
}

// CreateCertBundle creates new certificates for CA, server and client testing.
// The server cert is valid for 127.0.0.1 and localhost only.
func CreateCertBundle() TestCerts {
	testCerts := TestCerts{}
	testCerts.CaCert, testCerts.CaKey = CreateCA()
	testCerts.ServerKey = certsclient.CreateECDSAKeys()
	testCerts.ClientKey = certsclient.CreateECDSAKeys()
	testCerts.ServerCert = CreateTlsCert("Server", certsclient.OUService, true,
		testCerts.ServerKey, testCerts.CaCert, testCerts.CaKey)
	testCerts.ClientCert = CreateTlsCert("Client", certsclient.OUClient, false,
		testCerts.ClientKey, testCerts.CaCert, testCerts.CaKey)
	return testCerts
}

// CreateCA generates the CA keys with certificate for testing.
// Not intended for production.
func CreateCA() (caCert *x509.Certificate, caKey *ecdsa.PrivateKey) {
	validity := time.Hour

	caKey = certsclient.CreateECDSAKeys()

	template := &x509.Certificate{
		SerialNumber: big.NewInt(2022),
		Subject: pkix.Name{
			Country:      []string{"CA"},
			Organization: []string{"Testing"},
			Province:     []string{"BC"},
			Locality:     []string{"wostzone"},
			CommonName:   "WoST CA",
		},
		NotBefore: time.Now().Add(-10 * time.Second),
		NotAfter:  time.Now().Add(validity),
		// the CA cert can be used to sign certificates and revocation lists
		KeyUsage:    x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},

		// this cert is the only CA, no intermediates
		BasicConstraintsValid: true,
		IsCA:                  true,
		MaxPathLen:            0,
		MaxPathLenZero:        true,
	}

	certDerBytes, _ := x509.CreateCertificate(rand.Reader, template, template, &caKey.PublicKey, caKey)
	caCert, _ = x509.ParseCertificate(certDerBytes)
	return caCert, caKey
}

// CreateTlsCert generates a TLS certificate, signed by the CA, valid for 127.0.0.1.
// Intended for testing, not for production.
//  cn is the certificate common name, usually the client ID or server hostname
//  ou the organizational unit
//  isServer to allow key usage of ServerAuth instead of ClientAuth
//  privKey is the owner private key for this certificate
//  caCert and caKey is the signing CA
func CreateTlsCert(cn string, ou string, isServer bool, privKey *ecdsa.PrivateKey,
	caCert *x509.Certificate, caKey *ecdsa.PrivateKey) (tlscert *tls.Certificate) {

	_, derBytes, err := CreateX509Cert(cn, ou, isServer, &privKey.PublicKey, caCert, caKey)
	if err != nil {
		logrus.Errorf("CreateTlsCert: failed creating certificate: %s", err)
		return nil
	}
	// a TLS certificate is a wrapper around x509 with private key
	tlscert = &tls.Certificate{}
	tlscert.Certificate = append(tlscert.Certificate, derBytes)
	tlscert.PrivateKey = privKey
	return tlscert
}

// CreateX509Cert generates a x509 certificate, signed by the CA, valid for 127.0.0.1.
// Intended for testing, not for production.
func CreateX509Cert(cn string, ou string, isServer bool, pubKey *ecdsa.PublicKey,
	caCert *x509.Certificate, caKey *ecdsa.PrivateKey) (cert *x509.Certificate, derBytes []byte, err error) {
	validity := time.Hour

	extkeyUsage := x509.ExtKeyUsageClientAuth
	keyUsage := x509.KeyUsageDigitalSignature
	if isServer {
		extkeyUsage = x509.ExtKeyUsageServerAuth
		keyUsage = x509.KeyUsageCertSign | x509.KeyUsageCRLSign
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(2022),
		Subject: pkix.Name{
			Country:            []string{"CA"},
			Organization:       []string{"Testing"},
			Province:           []string{"BC"},
			Locality:           []string{"wostzone"},
			CommonName:         cn,
			OrganizationalUnit: []string{ou},
			Names:              make([]pkix.AttributeTypeAndValue, 0),
		},
		NotBefore:   time.Now().Add(-10 * time.Second),
		NotAfter:    time.Now().Add(validity),
		KeyUsage:    keyUsage,
		ExtKeyUsage: []x509.ExtKeyUsage{extkeyUsage},

		BasicConstraintsValid: true,
		IsCA:                  false,
		IPAddresses:           []net.IP{net.ParseIP(ServerAddress)},
		DNSNames:              []string{"localhost"},
	}

	certDerBytes, err := x509.CreateCertificate(rand.Reader, template, caCert, pubKey, caKey)
	if err != nil {
		logrus.Panicf("CreateX509Cert: failed creating certificate: %s", err)
	}
	certPEMBuffer := new(bytes.Buffer)
	_ = pem.Encode(certPEMBuffer, &pem.Block{Type: "CERTIFICATE", Bytes: certDerBytes})
	cert, _ = x509.ParseCertificate(certDerBytes)
	return cert, certDerBytes, err
}
