package raster

import (
	"context"
	"errors"
	"io"
	"net"
	"net/textproto"
	"net/url"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/glad-clusters/internal/resilience"
	"github.com/sells-group/glad-clusters/internal/tile"
)

// FTPSource reads tiles from an FTP mirror laid out as {root}/{z}/{x}/{y}.png.
// Each fetch opens its own control connection.
type FTPSource struct {
	host    string
	root    string
	user    string
	pass    string
	timeout time.Duration
	retry   resilience.RetryConfig
}

// NewFTPSource parses an ftp:// URL. Credentials in the URL are used when
// present; otherwise the login is anonymous.
func NewFTPSource(rawURL string, timeout time.Duration, retry resilience.RetryConfig) (*FTPSource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "raster: parse ftp url")
	}
	if u.Scheme != "ftp" {
		return nil, eris.Errorf("raster: expected ftp scheme, got %q", u.Scheme)
	}

	host := u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}
	user, pass := "anonymous", "anonymous@"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FTPSource{host: host, root: u.Path, user: user, pass: pass, timeout: timeout, retry: retry}, nil
}

func (s *FTPSource) Name() string { return "ftp" }

// Path is the remote file a tile is read from.
func (s *FTPSource) Path(c tile.Coord) string {
	return path.Join("/", s.root, c.FileName())
}

func (s *FTPSource) Fetch(ctx context.Context, c tile.Coord) ([]byte, error) {
	retry := s.retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger(s.Name(), c.String())
	}
	return resilience.DoVal(ctx, retry, func(ctx context.Context) ([]byte, error) {
		return s.retrieve(ctx, s.Path(c))
	})
}

func (s *FTPSource) retrieve(ctx context.Context, p string) ([]byte, error) {
	conn, err := ftp.Dial(s.host, ftp.DialWithTimeout(s.timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "raster: ftp dial")
	}
	defer func() { _ = conn.Quit() }()

	if err := conn.Login(s.user, s.pass); err != nil {
		return nil, eris.Wrap(err, "raster: ftp login")
	}

	resp, err := conn.Retr(p)
	if err != nil {
		if isFileUnavailable(err) {
			return nil, eris.Wrapf(ErrNotFound, "raster: ftp %s", p)
		}
		return nil, eris.Wrapf(err, "raster: ftp retrieve %s", p)
	}
	defer func() { _ = resp.Close() }()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: ftp read %s", p)
	}
	zap.L().Debug("raster: fetched tile over ftp", zap.String("host", s.host), zap.String("path", p), zap.Int("bytes", len(data)))
	return data, nil
}

func isFileUnavailable(err error) bool {
	var tpErr *textproto.Error
	return errors.As(err, &tpErr) && tpErr.Code == ftp.StatusFileUnavailable
}
