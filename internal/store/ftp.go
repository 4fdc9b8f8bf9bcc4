package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/textproto"
	"net/url"
	"path"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/brand-media/internal/model"
)

// FTPOptions configures the FTP store.
type FTPOptions struct {
	Addr     string
	User     string
	Password string
	Root     string
	Timeout  time.Duration
}

// FTPStore implements Store on an FTP server. Each namespace is a directory
// under Root and each key is a file in it. FTP keeps no content types, so
// they are sniffed from the bytes on read.
type FTPStore struct {
	opts     FTPOptions
	pageSize int
}

// NewFTP creates an FTPStore. No connection is made until the first call.
func NewFTP(opts FTPOptions) (*FTPStore, error) {
	if opts.Addr == "" {
		return nil, eris.New("ftp: empty address")
	}
	if _, _, err := net.SplitHostPort(opts.Addr); err != nil {
		opts.Addr = net.JoinHostPort(opts.Addr, "21")
	}
	if opts.User == "" {
		opts.User = "anonymous"
		if opts.Password == "" {
			opts.Password = "anonymous@"
		}
	}
	if opts.Root == "" {
		opts.Root = "/"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &FTPStore{opts: opts, pageSize: DefaultPageSize}, nil
}

func (s *FTPStore) connect(ctx context.Context) (*ftp.ServerConn, error) {
	zap.L().Debug("ftp: connecting", zap.String("addr", s.opts.Addr))

	conn, err := ftp.Dial(s.opts.Addr, ftp.DialWithTimeout(s.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "ftp: dial")
	}
	if err := conn.Login(s.opts.User, s.opts.Password); err != nil {
		conn.Quit() //nolint:errcheck
		return nil, eris.Wrap(err, "ftp: login")
	}
	return conn, nil
}

func (s *FTPStore) dir(namespace string) string {
	return path.Join(s.opts.Root, url.PathEscape(namespace))
}

func (s *FTPStore) file(namespace, key string) string {
	return path.Join(s.dir(namespace), url.PathEscape(key))
}

// Migrate creates the root directory when it is missing.
func (s *FTPStore) Migrate(ctx context.Context) error {
	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Quit() //nolint:errcheck

	if s.opts.Root != "/" {
		if err := conn.MakeDir(s.opts.Root); err != nil && !isUnavailable(err) {
			return eris.Wrap(err, "ftp: make root dir")
		}
	}
	return nil
}

func (s *FTPStore) Close() error {
	return nil
}

func (s *FTPStore) PutRecord(ctx context.Context, namespace, key string, data []byte, _ string) error {
	if err := validateKey(namespace, key); err != nil {
		return err
	}
	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Quit() //nolint:errcheck

	// MKD fails with 550 when the directory exists.
	if err := conn.MakeDir(s.dir(namespace)); err != nil && !isUnavailable(err) {
		return eris.Wrapf(err, "ftp: make dir %s", namespace)
	}
	if err := conn.Stor(s.file(namespace, key), bytes.NewReader(data)); err != nil {
		return eris.Wrapf(err, "ftp: put record %s/%s", namespace, key)
	}
	return nil
}

func (s *FTPStore) GetRecord(ctx context.Context, namespace, key string) (*model.BlobRecord, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit() //nolint:errcheck

	resp, err := conn.Retr(s.file(namespace, key))
	if isUnavailable(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "ftp: get record %s/%s", namespace, key)
	}
	data, err := io.ReadAll(resp)
	resp.Close() //nolint:errcheck
	if err != nil {
		return nil, eris.Wrapf(err, "ftp: read record %s/%s", namespace, key)
	}

	return &model.BlobRecord{
		Key:         key,
		ContentType: contentTypeOf(key, data),
		Data:        data,
	}, nil
}

func (s *FTPStore) ListKeys(ctx context.Context, namespace, exclusiveStartKey string) (*model.KeyPage, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Quit() //nolint:errcheck

	names, err := conn.NameList(s.dir(namespace))
	if isUnavailable(err) {
		return pageOf(nil, s.pageSize), nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "ftp: list keys %s", namespace)
	}

	keys := make([]string, 0, len(names))
	for _, n := range names {
		base := path.Base(n)
		if base == "." || base == ".." || base == "/" {
			continue
		}
		k, err := url.PathUnescape(base)
		if err != nil {
			k = base
		}
		keys = append(keys, k)
	}
	return pageAfter(keys, exclusiveStartKey, s.pageSize), nil
}

// isUnavailable reports a 550 reply: missing file or directory, or a
// directory that already exists on MKD.
func isUnavailable(err error) bool {
	var tpErr *textproto.Error
	return errors.As(err, &tpErr) && tpErr.Code == ftp.StatusFileUnavailable
}

func contentTypeOf(key string, data []byte) string {
	switch path.Ext(key) {
	case ".json":
		return "application/json"
	case ".zip":
		return "application/zip"
	}
	if key == "OUTPUT" {
		return "application/json"
	}
	return mimetype.Detect(data).String()
}
