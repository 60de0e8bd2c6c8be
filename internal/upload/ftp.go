package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

// ftpConn is the slice of the FTP client used here, extracted so tests can
// run without a live server.
type ftpConn interface {
	Login(user, password string) error
	FileSize(path string) (int64, error)
	Stor(path string, r io.Reader) error
	Append(path string, r io.Reader) error
	Quit() error
}

type dialFunc func(ctx context.Context, addr string, timeout time.Duration) (ftpConn, error)

func dialFTP(ctx context.Context, addr string, timeout time.Duration) (ftpConn, error) {
	return ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(timeout))
}

// FTPUploader implements the Uploader contract over FTP append.
type FTPUploader struct {
	host   string
	port   int
	user   string
	pass   string
	header string

	timeout time.Duration
	logger  *slog.Logger
	dial    dialFunc
}

// NewFTP creates an uploader that writes header as the first row of any file
// it has to create.
func NewFTP(header string, logger *slog.Logger) *FTPUploader {
	return &FTPUploader{
		header:  header,
		timeout: 15 * time.Second,
		logger:  logger,
		dial:    dialFTP,
	}
}

func (u *FTPUploader) SetServer(host string, port int) {
	u.host = host
	u.port = port
}

func (u *FTPUploader) SetCredentials(user, pass string) {
	u.user = user
	u.pass = pass
}

func (u *FTPUploader) Upload(ctx context.Context, basePath, filename, payload string, createHeaderIfAbsent bool) error {
	addr := net.JoinHostPort(u.host, strconv.Itoa(u.port))
	remote := path.Join(basePath, filename)

	u.logger.Info("uploading", "server", addr, "file", remote)

	conn, err := u.dial(ctx, addr, u.timeout)
	if err != nil {
		return fmt.Errorf("ftp dial %s: %w", addr, err)
	}
	defer func() {
		if err := conn.Quit(); err != nil {
			u.logger.Warn("ftp quit failed", "error", err)
		}
	}()

	if err := conn.Login(u.user, u.pass); err != nil {
		return fmt.Errorf("ftp login: %w", err)
	}

	// SIZE failing is taken as "file absent"; a transport-level failure
	// would surface again on the write below.
	_, sizeErr := conn.FileSize(remote)
	exists := sizeErr == nil

	if exists {
		if err := conn.Append(remote, strings.NewReader(payload)); err != nil {
			return fmt.Errorf("ftp append %s: %w", remote, err)
		}
		return nil
	}

	body := payload
	if createHeaderIfAbsent {
		body = u.header + payload
	}
	if err := conn.Stor(remote, strings.NewReader(body)); err != nil {
		return fmt.Errorf("ftp create %s: %w", remote, err)
	}
	return nil
}
