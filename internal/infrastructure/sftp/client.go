// Package sftp moves interchange files to and from the warehouse SFTP
// drop site.
package sftp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/golfdiscount/wsi-automation-api/internal/domain"
	apperrors "github.com/golfdiscount/wsi-automation-api/pkg/errors"
	"github.com/golfdiscount/wsi-automation-api/pkg/metrics"
)

const systemName = "wsi_sftp"

// Config holds SFTP connection settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
	Metrics  *metrics.Metrics
}

// DefaultConfig returns default SFTP settings
func DefaultConfig() Config {
	return Config{
		Port:    22,
		Timeout: 30 * time.Second,
	}
}

// Client implements domain.Transport over SFTP. Connections are opened
// per call; the warehouse drop site drops idle sessions aggressively,
// so holding one open buys nothing.
type Client struct {
	config Config
}

// NewClient creates an SFTP transport
func NewClient(config Config) *Client {
	if config.Port == 0 {
		config.Port = 22
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	return &Client{config: config}
}

// Upload writes contents to path on the remote host, creating the file
// or truncating an existing one.
func (c *Client) Upload(ctx context.Context, remotePath string, contents []byte) error {
	return c.withSession(ctx, "upload", func(client *sftp.Client) error {
		f, err := client.Create(remotePath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", remotePath, err)
		}
		defer f.Close()

		if _, err := io.Copy(f, bytes.NewReader(contents)); err != nil {
			return fmt.Errorf("failed to write %s: %w", remotePath, err)
		}
		return nil
	})
}

// ListFiles returns the regular files in a remote directory
func (c *Client) ListFiles(ctx context.Context, dir string) ([]domain.RemoteFile, error) {
	var files []domain.RemoteFile

	err := c.withSession(ctx, "list_files", func(client *sftp.Client) error {
		entries, err := client.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			files = append(files, domain.RemoteFile{
				Name:     entry.Name(),
				FullPath: path.Join(dir, entry.Name()),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ReadAllLines reads a remote file and splits it into lines
func (c *Client) ReadAllLines(ctx context.Context, remotePath string) ([]string, error) {
	var lines []string

	err := c.withSession(ctx, "read_file", func(client *sftp.Client) error {
		f, err := client.Open(remotePath)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", remotePath, err)
		}
		defer f.Close()

		contents, err := io.ReadAll(f)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", remotePath, err)
		}

		for _, line := range strings.Split(string(contents), "\n") {
			line = strings.TrimRight(line, "\r")
			if line != "" {
				lines = append(lines, line)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (c *Client) withSession(ctx context.Context, operation string, fn func(client *sftp.Client) error) (err error) {
	start := time.Now()
	defer func() {
		if c.config.Metrics != nil {
			c.config.Metrics.ObserveExternalCall(systemName, operation, start, err)
		}
	}()

	sshConfig := &ssh.ClientConfig{
		User: c.config.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(c.config.Password),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // host key pinning handled at the network layer
		Timeout:         c.config.Timeout,
	}

	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)
	conn, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return apperrors.ErrTransport(fmt.Sprintf("failed to connect to %s", addr), err)
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return apperrors.ErrTransport("failed to open sftp session", err)
	}
	defer client.Close()

	done := make(chan error, 1)
	go func() { done <- fn(client) }()

	select {
	case err := <-done:
		if err != nil {
			return apperrors.ErrTransport("sftp operation failed", err)
		}
		return nil
	case <-ctx.Done():
		return apperrors.ErrTransport("sftp operation cancelled", ctx.Err())
	}
}
