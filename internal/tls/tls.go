// Package tls builds the server TLS configuration of the signal bridge.
package tls

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	tlsCaCrt = "tls_ca.crt"
	tlsCrt   = "tls.crt"
	tlsKey   = "tls.key"
)

// Options selects the certificate source. Explicit files win over Dir.
type Options struct {
	CertFile     string
	KeyFile      string
	Dir          string
	AutoGenerate bool     // create a self-signed pair in Dir when missing
	Hosts        []string // DNS names or IPs of a generated certificate
	MinVersion   string   // "1.2" or "1.3" (default)
}

// parseTLSVersion parses TLS version string and returns the corresponding constant
func parseTLSVersion(ver string) (uint16, error) {
	switch strings.ToLower(ver) {
	case "", "default", "1.3", "tls1.3":
		return tls.VersionTLS13, nil
	case "1.2", "tls1.2":
		return tls.VersionTLS12, nil
	}
	return 0, fmt.Errorf("unsupported TLS version %q", ver)
}

// safeReadFile reads file content safely within base directory
func safeReadFile(baseDir, p string) ([]byte, error) {
	clean := filepath.Clean(p)
	if baseDir != "" {
		absBase, _ := filepath.Abs(baseDir)
		absFile, _ := filepath.Abs(clean)
		if !strings.HasPrefix(absFile, absBase+string(filepath.Separator)) && absFile != absBase {
			return nil, errors.New("file path outside of allowed directory")
		}
	}
	return os.ReadFile(clean)
}

// certificateLoader reloads the pair on every handshake so rotated files are
// picked up without a restart.
func certificateLoader(certFile, keyFile string) func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	baseDir := filepath.Dir(certFile)
	return func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
		readCert, err := safeReadFile(baseDir, certFile)
		if err != nil {
			return nil, err
		}
		readKey, err := safeReadFile(filepath.Dir(keyFile), keyFile)
		if err != nil {
			return nil, err
		}
		certificate, err := tls.X509KeyPair(readCert, readKey)
		return &certificate, err
	}
}

// Server returns the TLS configuration for o.
func Server(o Options) (*tls.Config, error) {
	minVer, err := parseTLSVersion(o.MinVersion)
	if err != nil {
		return nil, err
	}

	certPath, keyPath := o.CertFile, o.KeyFile
	switch {
	case certPath != "" && keyPath != "":
	case o.Dir != "":
		certPath = filepath.Join(o.Dir, tlsCrt)
		keyPath = filepath.Join(o.Dir, tlsKey)
		if o.AutoGenerate && !certificatesExist(certPath, keyPath) {
			if err := generateCertificate(o); err != nil {
				return nil, fmt.Errorf("certificate generation failed: %w", err)
			}
		}
	default:
		return nil, errors.New("TLS enabled but no certificate configured")
	}
	if !certificatesExist(certPath, keyPath) {
		return nil, fmt.Errorf("certificate %s or key %s not found", certPath, keyPath)
	}

	return &tls.Config{
		GetCertificate: certificateLoader(certPath, keyPath),
		MinVersion:     minVer,
	}, nil
}

// certificatesExist checks if both certificate files exist
func certificatesExist(certPath, keyPath string) bool {
	_, certErr := os.Stat(certPath)
	_, keyErr := os.Stat(keyPath)
	return certErr == nil && keyErr == nil
}

func generateCertificate(o Options) error {
	if err := os.MkdirAll(o.Dir, 0o750); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}
	hosts := o.Hosts
	if len(hosts) == 0 {
		hosts = []string{"localhost", "127.0.0.1"}
	}
	return GenerateSelfSignedCert(CertConfig{
		CommonName:   hosts[0],
		Organization: "tracker",
		Hosts:        hosts,
		NotAfter:     time.Now().AddDate(1, 0, 0),
		CertPath:     filepath.Join(o.Dir, tlsCrt),
		KeyPath:      filepath.Join(o.Dir, tlsKey),
		CACertPath:   filepath.Join(o.Dir, tlsCaCrt),
	})
}
