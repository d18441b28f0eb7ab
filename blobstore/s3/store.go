package s3

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/hupe1980/tilestore/blobstore"
	"github.com/hupe1980/tilestore/internal/hash"
)

// Client is the part of the S3 API used by Store. *s3.Client satisfies it.
type Client interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient

	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var _ Client = (*s3.Client)(nil)

// ErrModified is returned when an object is replaced while a handle to it
// is open.
var ErrModified = errors.New("s3: object modified since open")

// Store keeps blobs as objects under a root prefix of one bucket.
type Store struct {
	client   Client
	bucket   string
	root     string
	checksum bool
	uploader *manager.Uploader
}

var _ blobstore.BlobStore = (*Store)(nil)

type options struct {
	prefix       string
	region       string
	endpoint     string
	usePathStyle bool
	upload       UploadConfig
}

// Option configures New and NewStore.
type Option func(*options)

// WithPrefix stores all blobs below prefix, e.g. "arrays/dense".
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithRegion overrides the region of the default AWS config.
func WithRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}

// WithEndpoint targets an S3 compatible service instead of AWS.
func WithEndpoint(endpoint string, usePathStyle bool) Option {
	return func(o *options) {
		o.endpoint = endpoint
		o.usePathStyle = usePathStyle
	}
}

// WithUploadConfig tunes streaming uploads.
func WithUploadConfig(cfg UploadConfig) Option {
	return func(o *options) {
		o.upload = cfg
	}
}

// New builds a client from the default AWS credential chain.
func New(ctx context.Context, bucket string, optFns ...Option) (*Store, error) {
	if bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	o := options{upload: DefaultUploadConfig()}
	for _, fn := range optFns {
		fn(&o)
	}

	var loadOpts []func(*config.LoadOptions) error
	if o.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(o.region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.endpoint != "" {
			so.BaseEndpoint = aws.String(o.endpoint)
		}
		so.UsePathStyle = o.usePathStyle
	})
	return NewStore(client, bucket, o.prefix, WithUploadConfig(o.upload)), nil
}

// NewStore wraps an existing client. Blobs live below rootPrefix.
func NewStore(client Client, bucket, rootPrefix string, optFns ...Option) *Store {
	o := options{upload: DefaultUploadConfig()}
	for _, fn := range optFns {
		fn(&o)
	}
	return &Store{
		client:   client,
		bucket:   bucket,
		root:     strings.Trim(rootPrefix, "/"),
		checksum: o.upload.Checksum,
		uploader: o.upload.uploader(client),
	}
}

func (s *Store) key(name string) string {
	if s.root == "" {
		return name
	}
	return path.Join(s.root, name)
}

// listKey keeps the trailing slash of prefix so "frag-1/" never matches
// "frag-10/".
func (s *Store) listKey(prefix string) string {
	if s.root == "" {
		return prefix
	}
	return s.root + "/" + prefix
}

func (s *Store) blobName(key string) string {
	if s.root == "" {
		return key
	}
	return strings.TrimPrefix(key, s.root+"/")
}

// Open issues a HEAD request and pins the returned ETag. Reads are ranged
// GETs.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translateError("open", name, err)
	}
	return &object{
		client: s.client,
		bucket: s.bucket,
		key:    key,
		name:   name,
		size:   aws.ToInt64(head.ContentLength),
		etag:   aws.ToString(head.ETag),
	}, nil
}

// Put uploads data in one request with a CRC32C the service verifies.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:         aws.String(s.bucket),
		Key:            aws.String(s.key(name)),
		Body:           bytes.NewReader(data),
		ContentLength:  aws.Int64(int64(len(data))),
		ChecksumCRC32C: aws.String(crc32cBase64(data)),
	})
	return translateError("put", name, err)
}

// Create streams writes through the upload manager, which switches to a
// multipart upload once a part fills.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	}
	if s.checksum {
		in.ChecksumAlgorithm = types.ChecksumAlgorithmCrc32c
	}
	return startUpload(ctx, s.uploader, in, name), nil
}

// Delete removes the object. A missing object is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	err = translateError("delete", name, err)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	pages := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.listKey(prefix)),
	})

	var names []string
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, translateError("list", prefix, err)
		}
		for _, obj := range page.Contents {
			names = append(names, s.blobName(aws.ToString(obj.Key)))
		}
	}
	slices.Sort(names)
	return names, nil
}

// translateError maps missing objects to blobstore.ErrNotFound and failed
// If-Match preconditions to ErrModified.
func translateError(op, name string, err error) error {
	if err == nil {
		return nil
	}
	var (
		nf  *types.NotFound
		nsk *types.NoSuchKey
		api smithy.APIError
	)
	switch {
	case errors.As(err, &nf), errors.As(err, &nsk):
		return fmt.Errorf("s3: %s %s: %w", op, name, blobstore.ErrNotFound)
	case errors.As(err, &api) && api.ErrorCode() == "PreconditionFailed":
		return fmt.Errorf("s3: %s %s: %w", op, name, ErrModified)
	}
	return fmt.Errorf("s3: %s %s: %w", op, name, err)
}

// crc32cBase64 encodes the big-endian CRC32C of data the way S3 expects.
func crc32cBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(binary.BigEndian.AppendUint32(nil, hash.CRC32C(data)))
}
