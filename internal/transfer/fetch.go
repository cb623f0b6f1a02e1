// Package transfer pulls previously produced backups from a remote host
// into the local working directory over SSH.
package transfer

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"site-backup/internal/logging"
)

// Endpoint identifies the remote side of a fetch: a user@host pair and the
// directory to copy from.
type Endpoint struct {
	User      string
	Host      string
	RemoteDir string
}

// ParseEndpoint splits a user@host token. The port defaults to 22.
func ParseEndpoint(token, remoteDir string) (Endpoint, error) {
	user, host, ok := strings.Cut(strings.TrimSpace(token), "@")
	if !ok || user == "" || host == "" {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q, expected user@host", token)
	}

	return Endpoint{User: user, Host: host, RemoteDir: remoteDir}, nil
}

// Fetcher copies the contents of a remote directory into a local directory
type Fetcher struct {
	logger *logging.Logger

	// dial is injectable for tests
	dial func(network, addr string, config *ssh.ClientConfig) (*ssh.Client, error)
}

// NewFetcher creates a fetcher
func NewFetcher(logger *logging.Logger) *Fetcher {
	return &Fetcher{
		logger: logger,
		dial:   ssh.Dial,
	}
}

// Fetch connects to the endpoint and recursively copies the remote
// directory's contents into localDir. The remote side streams a tar of the
// directory over the SSH session; the local side unpacks it. The overall
// success or failure of the transfer is returned as a single error.
func (f *Fetcher) Fetch(endpoint Endpoint, localDir, password string) error {
	done := f.logger.LogOperationStart("remote_fetch", map[string]interface{}{
		"host":       endpoint.Host,
		"remote_dir": endpoint.RemoteDir,
	})

	err := f.fetch(endpoint, localDir, password)
	done(err)
	return err
}

func (f *Fetcher) fetch(endpoint Endpoint, localDir, password string) error {
	// The remote path is single-quoted; reject quotes rather than trying
	// to escape them.
	if strings.ContainsAny(endpoint.RemoteDir, "'") {
		return fmt.Errorf("remote directory %q contains unsupported characters", endpoint.RemoteDir)
	}

	config := &ssh.ClientConfig{
		User:            endpoint.User,
		Auth:            []ssh.AuthMethod{ssh.Password(password)},
		HostKeyCallback: hostKeyCallback(),
		Timeout:         30 * time.Second,
	}

	addr := endpoint.Host
	if !strings.Contains(addr, ":") {
		addr += ":22"
	}

	client, err := f.dial("tcp", addr, config)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", endpoint.Host, err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to open SSH session: %w", err)
	}
	defer session.Close()

	stdout, err := session.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to attach to session output: %w", err)
	}

	cmd := fmt.Sprintf("tar -cf - -C '%s' .", endpoint.RemoteDir)
	if err := session.Start(cmd); err != nil {
		return fmt.Errorf("failed to start remote archiver: %w", err)
	}

	if err := extractTar(stdout, localDir); err != nil {
		return err
	}

	if err := session.Wait(); err != nil {
		return fmt.Errorf("remote archiver failed: %w", err)
	}

	return nil
}

// hostKeyCallback verifies against ~/.ssh/known_hosts when available and
// otherwise accepts any key, matching the behavior of a plain scp from a
// fresh account.
func hostKeyCallback() ssh.HostKeyCallback {
	home, err := os.UserHomeDir()
	if err == nil {
		knownHostsPath := filepath.Join(home, ".ssh", "known_hosts")
		if _, statErr := os.Stat(knownHostsPath); statErr == nil {
			if callback, khErr := knownhosts.New(knownHostsPath); khErr == nil {
				return callback
			}
		}
	}

	return ssh.InsecureIgnoreHostKey()
}

// extractTar unpacks a tar stream into dir, refusing entries that would
// escape it
func extractTar(r io.Reader, dir string) error {
	tr := tar.NewReader(r)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read transfer stream: %w", err)
		}

		name := filepath.Clean(header.Name)
		if name == "." {
			continue
		}
		if strings.HasPrefix(name, "..") || filepath.IsAbs(name) {
			return fmt.Errorf("transfer stream contains unsafe path %q", header.Name)
		}
		target := filepath.Join(dir, name)

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, header.FileInfo().Mode().Perm()); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("failed to create directory for %s: %w", target, err)
			}
			if err := writeFile(target, tr, header.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		default:
			// Symlinks and special files are skipped; backup artifacts
			// are regular files.
		}
	}
}

// writeFile writes one regular file from the stream
func writeFile(target string, r io.Reader, mode os.FileMode) error {
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(target)
		return fmt.Errorf("failed to write %s: %w", target, err)
	}

	return out.Close()
}
