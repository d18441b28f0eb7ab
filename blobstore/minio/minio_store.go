package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/tilestore/blobstore"
)

// Store keeps blobs as objects under a root prefix of one bucket.
type Store struct {
	client *minio.Client
	bucket string
	root   string
}

var _ blobstore.BlobStore = (*Store)(nil)

type options struct {
	creds  *credentials.Credentials
	secure bool
	region string
	root   string
}

// Option configures New.
type Option func(*options)

// WithStaticCredentials signs requests with a fixed key pair.
func WithStaticCredentials(accessKey, secretKey string) Option {
	return func(o *options) {
		o.creds = credentials.NewStaticV4(accessKey, secretKey, "")
	}
}

// WithSecure selects HTTPS. It is on by default.
func WithSecure(secure bool) Option {
	return func(o *options) {
		o.secure = secure
	}
}

// WithRegion sets the bucket region and skips region discovery.
func WithRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}

// WithRootPrefix stores all blobs below prefix, e.g. "arrays/dense".
func WithRootPrefix(prefix string) Option {
	return func(o *options) {
		o.root = prefix
	}
}

// New connects to endpoint ("host:port"). Without WithStaticCredentials
// the MINIO_ and AWS_ environment variables are consulted.
func New(endpoint, bucket string, optFns ...Option) (*Store, error) {
	opts := options{secure: true}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.creds == nil {
		opts.creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvMinio{},
			&credentials.EnvAWS{},
		})
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  opts.creds,
		Secure: opts.secure,
		Region: opts.region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: %w", err)
	}
	return NewStore(client, bucket, opts.root), nil
}

// NewStore wraps an existing client.
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		root:   strings.Trim(rootPrefix, "/"),
	}
}

func (s *Store) object(name string) string {
	if s.root == "" {
		return name
	}
	return path.Join(s.root, name)
}

func (s *Store) blobName(object string) string {
	if s.root == "" {
		return object
	}
	return strings.TrimPrefix(object, s.root+"/")
}

// translateError maps missing keys and buckets to blobstore.ErrNotFound.
func translateError(op, name string, err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchKey", resp.Code == "NoSuchBucket", resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("minio: %s %s: %w", op, name, blobstore.ErrNotFound)
	case resp.Code == "PreconditionFailed":
		return fmt.Errorf("minio: %s %s: %w", op, name, ErrModified)
	}
	return fmt.Errorf("minio: %s %s: %w", op, name, err)
}

// ErrModified is returned when an object is replaced while a handle to it
// is open.
var ErrModified = errors.New("minio: object modified since open")

// Open stats the object. Reads through the handle fail with ErrModified
// once the object is overwritten.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	info, err := s.client.StatObject(ctx, s.bucket, s.object(name), minio.StatObjectOptions{})
	if err != nil {
		return nil, translateError("open", name, err)
	}
	return &object{s: s, name: name, size: info.Size, etag: info.ETag}, nil
}

// Put uploads data in one request.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.object(name), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{SendContentMd5: true})
	return translateError("put", name, err)
}

// Create streams writes into a multipart upload of unknown size. The
// object appears when Close returns nil.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	u := &upload{pw: pw, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(u.done)
		_, err := s.client.PutObject(ctx, s.bucket, s.object(name), pr, -1, minio.PutObjectOptions{})
		u.err = translateError("create", name, err)
		pr.CloseWithError(u.err)
	}()
	return u, nil
}

// Delete removes the object. A missing object is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := translateError("delete", name,
		s.client.RemoveObject(ctx, s.bucket, s.object(name), minio.RemoveObjectOptions{}))
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.object(prefix),
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, translateError("list", prefix, info.Err)
		}
		names = append(names, s.blobName(info.Key))
	}
	slices.Sort(names)
	return names, nil
}

// object is an opened blob pinned to the ETag seen by Open.
type object struct {
	s    *Store
	name string
	size int64
	etag string
}

func (o *object) Size() int64  { return o.size }
func (o *object) Close() error { return nil }

func (o *object) fetch(ctx context.Context, off, n int64) (*minio.Object, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, off+n-1); err != nil {
		return nil, err
	}
	if o.etag != "" {
		if err := opts.SetMatchETag(o.etag); err != nil {
			return nil, err
		}
	}
	obj, err := o.s.client.GetObject(ctx, o.s.bucket, o.s.object(o.name), opts)
	if err != nil {
		return nil, translateError("read", o.name, err)
	}
	return obj, nil
}

func (o *object) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if off < 0 || off >= o.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	n := min(int64(len(p)), o.size-off)
	obj, err := o.fetch(ctx, off, n)
	if err != nil {
		return 0, err
	}
	defer obj.Close()

	read, err := io.ReadFull(obj, p[:n])
	if err != nil {
		return read, translateError("read", o.name, err)
	}
	if read < len(p) {
		return read, io.EOF
	}
	return read, nil
}

func (o *object) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if off < 0 || off >= o.size {
		return nil, io.EOF
	}
	if length <= 0 {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	return o.fetch(ctx, off, min(length, o.size-off))
}

// upload feeds a PutObject running in its own goroutine.
type upload struct {
	pw     *io.PipeWriter
	cancel context.CancelFunc
	done   chan struct{}
	err    error

	once     sync.Once
	closeErr error
}

func (u *upload) Write(p []byte) (int, error) {
	return u.pw.Write(p)
}

// Sync does nothing; the object is durable once Close returns.
func (u *upload) Sync() error { return nil }

func (u *upload) Close() error {
	u.once.Do(func() {
		u.pw.Close()
		<-u.done
		u.cancel()
		u.closeErr = u.err
	})
	return u.closeErr
}

// Abort cancels the upload before it completes, so no object is created.
func (u *upload) Abort() error {
	u.once.Do(func() {
		u.cancel()
		u.pw.CloseWithError(context.Canceled)
		<-u.done
		u.closeErr = io.ErrClosedPipe
	})
	return nil
}
