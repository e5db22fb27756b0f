package certsclient

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io/ioutil"
)

// CreateECDSAKeys creates a asymmetric key set.
// Returns a private key that contains its associated public key.
func CreateECDSAKeys() *ecdsa.PrivateKey {
	rng := rand.Reader
	curve := elliptic.P256()
	privKey, _ := ecdsa.GenerateKey(curve, rng)
	return privKey
}

// LoadKeysFromPEM loads ECDSA public/private key pair from a PEM file
func LoadKeysFromPEM(pemPath string) (privateKey *ecdsa.PrivateKey, err error) {
	pemEncodedPriv, err := ioutil.ReadFile(pemPath)
	if err != nil {
		return nil, err
	}
	return PrivateKeyFromPEM(string(pemEncodedPriv))
}

// SaveKeysToPEM saves the private key to a PEM file.
// The key file permissions are restricted to the current user.
func SaveKeysToPEM(privateKey crypto.PrivateKey, pemPath string) error {
	pemEncoded, err := PrivateKeyToPEM(privateKey)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(pemPath, []byte(pemEncoded), 0600)
}

// PrivateKeyFromPEM converts a PEM encoded private key into a ECDSA private key object.
func PrivateKeyFromPEM(pemEncodedKey string) (privateKey *ecdsa.PrivateKey, err error) {
	blockPriv, _ := pem.Decode([]byte(pemEncodedKey))
	if blockPriv == nil {
		return nil, errors.New("PrivateKeyFromPEM: not a valid private key PEM string")
	}
	derBytes := blockPriv.Bytes
	rawPrivateKey, err := x509.ParsePKCS8PrivateKey(derBytes)
	if err != nil {
		return nil, err
	}
	ecdsaKey, ok := rawPrivateKey.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.New("PrivateKeyFromPEM: not an ECDSA private key")
	}
	return ecdsaKey, nil
}

// PrivateKeyToPEM converts the private key to a PEM encoded string.
func PrivateKeyToPEM(privateKey crypto.PrivateKey) (string, error) {
	x509Encoded, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return "", err
	}
	pemEncoded := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: x509Encoded})
	return string(pemEncoded), nil
}

// PublicKeyFromPEM converts a PEM encoded public key into a ECDSA public key object.
func PublicKeyFromPEM(pemEncodedKey string) (publicKey *ecdsa.PublicKey, err error) {
	blockPub, _ := pem.Decode([]byte(pemEncodedKey))
	if blockPub == nil {
		return nil, errors.New("PublicKeyFromPEM: not a valid public key PEM string")
	}
	derBytes := blockPub.Bytes
	rawPublicKey, err := x509.ParsePKIXPublicKey(derBytes)
	if err != nil {
		return nil, err
	}
	ecdsaKey, ok := rawPublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("PublicKeyFromPEM: not an ECDSA public key")
	}
	return ecdsaKey, nil
}

// PublicKeyToPEM converts a public key into a PEM encoded string.
func PublicKeyToPEM(publicKey crypto.PublicKey) (string, error) {
	x509EncodedPub, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return "", err
	}
	pemEncodedPub := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: x509EncodedPub})
	return string(pemEncodedPub), nil
}
