package fetcher

import (
	"context"
	"crypto/tls"
	"net"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// TLS modes for FTPOptions.TLS.
const (
	TLSNone     = "none"
	TLSExplicit = "explicit"
	TLSImplicit = "implicit"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Host               string
	Port               int
	Username           string
	Password           string
	TLS                string
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// FTPFetcher retrieves files from the distributor's FTP(S) drop. Each
// call opens its own session.
type FTPFetcher struct {
	opts FTPOptions
	log  *zap.Logger
}

// NewFTPFetcher creates a new FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Port == 0 {
		opts.Port = 21
	}
	if opts.TLS == "" {
		opts.TLS = TLSExplicit
	}
	return &FTPFetcher{
		opts: opts,
		log:  zap.L().With(zap.String("component", "fetcher.ftp")),
	}
}

func (f *FTPFetcher) addr() string {
	return net.JoinHostPort(f.opts.Host, strconv.Itoa(f.opts.Port))
}

func (f *FTPFetcher) dialOptions(ctx context.Context) ([]ftp.DialOption, error) {
	opts := []ftp.DialOption{ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx)}
	tlsCfg := &tls.Config{
		ServerName:         f.opts.Host,
		InsecureSkipVerify: f.opts.InsecureSkipVerify, //nolint:gosec
		MinVersion:         tls.VersionTLS12,
	}
	switch strings.ToLower(f.opts.TLS) {
	case TLSNone:
	case TLSExplicit:
		opts = append(opts, ftp.DialWithExplicitTLS(tlsCfg))
	case TLSImplicit:
		opts = append(opts, ftp.DialWithTLS(tlsCfg))
	default:
		return nil, eris.Errorf("fetcher: unknown tls mode %q", f.opts.TLS)
	}
	return opts, nil
}

// Connect dials and logs in. The caller must Quit the connection.
func (f *FTPFetcher) Connect(ctx context.Context) (*ftp.ServerConn, error) {
	opts, err := f.dialOptions(ctx)
	if err != nil {
		return nil, err
	}

	f.log.Debug("ftp: connecting", zap.String("addr", f.addr()), zap.String("tls", f.opts.TLS))

	conn, err := ftp.Dial(f.addr(), opts...)
	if err != nil {
		return nil, eris.Wrap(err, "ftp dial")
	}

	user, pass := f.opts.Username, f.opts.Password
	if user == "" {
		user, pass = "anonymous", "anonymous@"
	}
	if err := conn.Login(user, pass); err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrap(err, "ftp login")
	}
	return conn, nil
}

// List implements Source.
func (f *FTPFetcher) List(ctx context.Context, dir string) ([]Entry, error) {
	conn, err := f.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit() //nolint:errcheck

	entries, err := conn.List(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "ftp list %s", dir)
	}
	var out []Entry
	for _, e := range entries {
		if e.Type != ftp.EntryTypeFile {
			continue
		}
		out = append(out, Entry{Name: path.Base(e.Name), Size: int64(e.Size), ModTime: e.Time})
	}
	return out, nil
}

// Fetch implements Source.
func (f *FTPFetcher) Fetch(ctx context.Context, remotePath, localPath string, progress ProgressFunc) (int64, error) {
	conn, err := f.Connect(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Quit() //nolint:errcheck

	resp, err := conn.Retr(remotePath)
	if err != nil {
		return 0, eris.Wrap(err, "ftp retrieve")
	}

	n, err := writeAtomic(ctx, localPath, resp, progress)
	closeErr := resp.Close()
	if err != nil {
		return n, err
	}
	if closeErr != nil {
		return n, eris.Wrap(closeErr, "close ftp response")
	}

	f.log.Info("ftp: downloaded", zap.String("remote", remotePath), zap.Int64("bytes", n))
	return n, nil
}

// DownloadToFile fetches remotePath into localPath. Returns bytes written.
func (f *FTPFetcher) DownloadToFile(ctx context.Context, remotePath, localPath string) (int64, error) {
	return f.Fetch(ctx, remotePath, localPath, nil)
}
