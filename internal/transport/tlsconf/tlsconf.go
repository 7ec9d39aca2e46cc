// Package tlsconf builds the mutually-authenticated tls.Config every
// tier needs: each side presents a certificate issued by the shared CA
// and requires the other side to present one too.
package tlsconf

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/DanielPopoola/multibank-gateway/internal/config"
)

// ServerConfig builds a tls.Config for a gRPC server that requires and
// verifies a client certificate signed by the shared CA.
func ServerConfig(cfg config.TLSConfig) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("loading server keypair: %w", err)
	}

	pool, err := loadCA(cfg.CAFile)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientCAs:    pool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// ClientConfig builds a tls.Config for a gRPC client connection that
// presents its own certificate and verifies the server's against the
// shared CA.
func ClientConfig(cfg config.TLSConfig, serverName string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("loading client keypair: %w", err)
	}

	pool, err := loadCA(cfg.CAFile)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		ServerName:   serverName,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

func loadCA(caFile string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("reading CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no valid CA certificates found in %s", caFile)
	}
	return pool, nil
}
