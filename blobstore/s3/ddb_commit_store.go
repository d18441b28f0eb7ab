package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/tilestore/blobstore"
)

// CurrentName is the blob name routed through DynamoDB.
const CurrentName = "CURRENT"

// Item attributes of the commit table.
const (
	attrBaseURI     = "base_uri"
	attrVersion     = "version"
	attrFragment    = "fragment"
	attrCommittedAt = "committed_at"
)

// ErrConcurrentModification is returned when another writer committed the
// same version first.
var ErrConcurrentModification = errors.New("s3: concurrent modification detected")

// DDBClient is the subset of the DynamoDB API used by DDBCommitStore.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

var _ DDBClient = (*dynamodb.Client)(nil)

// Commit is one version of the CURRENT pointer.
type Commit struct {
	Version     uint64
	Fragment    string
	CommittedAt time.Time
}

// DDBCommitStore serves fragments from S3 and versions the CURRENT pointer
// in DynamoDB, where a conditional put detects two writers racing for the
// same version.
//
// Every array owns one partition of the table:
//   - base_uri (S, partition key): the array location, e.g. s3://bucket/prefix
//   - version (N, sort key): 1 for the first commit, then +1 per commit
//
// A matching table is created with:
//
//	aws dynamodb create-table --table-name tilestore-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type DDBCommitStore struct {
	blobs   *Store
	ddb     DDBClient
	table   string
	baseURI string
	now     func() time.Time
}

var _ blobstore.BlobStore = (*DDBCommitStore)(nil)

// NewDDBCommitStore wraps blobs so that CURRENT lives in table under the
// partition baseURI.
func NewDDBCommitStore(blobs *Store, ddb DDBClient, table, baseURI string) *DDBCommitStore {
	return &DDBCommitStore{
		blobs:   blobs,
		ddb:     ddb,
		table:   table,
		baseURI: baseURI,
		now:     time.Now,
	}
}

// Open returns the newest committed pointer for CURRENT and opens any other
// name in S3.
func (s *DDBCommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if name != CurrentName {
		return s.blobs.Open(ctx, name)
	}
	c, err := s.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return blobstore.Bytes(c.Fragment), nil
}

// Put records CURRENT as the next version. Other names go to S3.
func (s *DDBCommitStore) Put(ctx context.Context, name string, data []byte) error {
	if name != CurrentName {
		return s.blobs.Put(ctx, name, data)
	}
	next := uint64(1)
	switch c, err := s.Latest(ctx); {
	case err == nil:
		next = c.Version + 1
	case !errors.Is(err, blobstore.ErrNotFound):
		return err
	}
	return s.put(ctx, Commit{Version: next, Fragment: string(data), CommittedAt: s.now().UTC()})
}

func (s *DDBCommitStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return s.blobs.Create(ctx, name)
}

// Delete of CURRENT drops the newest version, so the previous commit
// becomes current again.
func (s *DDBCommitStore) Delete(ctx context.Context, name string) error {
	if name != CurrentName {
		return s.blobs.Delete(ctx, name)
	}
	c, err := s.Latest(ctx)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := s.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(c.Version),
	}); err != nil {
		return fmt.Errorf("s3: drop commit %d: %w", c.Version, err)
	}
	return nil
}

func (s *DDBCommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.blobs.List(ctx, prefix)
}

// Latest returns the newest commit.
func (s *DDBCommitStore) Latest(ctx context.Context) (Commit, error) {
	h, err := s.History(ctx, 1)
	if err != nil {
		return Commit{}, err
	}
	if len(h) == 0 {
		return Commit{}, fmt.Errorf("s3: %s of %s: %w", CurrentName, s.baseURI, blobstore.ErrNotFound)
	}
	return h[0], nil
}

// Version returns the commit with the given version number.
func (s *DDBCommitStore) Version(ctx context.Context, version uint64) (Commit, error) {
	out, err := s.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(version),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Commit{}, fmt.Errorf("s3: get commit %d: %w", version, err)
	}
	if len(out.Item) == 0 {
		return Commit{}, fmt.Errorf("s3: commit %d: %w", version, blobstore.ErrNotFound)
	}
	return decodeCommit(out.Item)
}

// History returns up to limit commits, newest first. A limit of zero or
// less returns every commit.
func (s *DDBCommitStore) History(ctx context.Context, limit int) ([]Commit, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String(attrBaseURI + " = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		ConsistentRead:   aws.Bool(true),
	}

	var commits []Commit
	for {
		if limit > 0 {
			in.Limit = aws.Int32(int32(min(limit-len(commits), 1000)))
		}
		out, err := s.ddb.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("s3: query commits of %s: %w", s.baseURI, err)
		}
		for _, item := range out.Items {
			c, err := decodeCommit(item)
			if err != nil {
				return nil, err
			}
			commits = append(commits, c)
		}
		if len(out.LastEvaluatedKey) == 0 || (limit > 0 && len(commits) >= limit) {
			return commits, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (s *DDBCommitStore) key(version uint64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrBaseURI: &types.AttributeValueMemberS{Value: s.baseURI},
		attrVersion: &types.AttributeValueMemberN{Value: strconv.FormatUint(version, 10)},
	}
}

func (s *DDBCommitStore) put(ctx context.Context, c Commit) error {
	item := s.key(c.Version)
	item[attrFragment] = &types.AttributeValueMemberS{Value: c.Fragment}
	item[attrCommittedAt] = &types.AttributeValueMemberS{Value: c.CommittedAt.Format(time.RFC3339Nano)}

	_, err := s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(" + attrVersion + ")"),
	})
	var condErr *types.ConditionalCheckFailedException
	switch {
	case errors.As(err, &condErr):
		return fmt.Errorf("%w: version %d", ErrConcurrentModification, c.Version)
	case err != nil:
		return fmt.Errorf("s3: put commit %d: %w", c.Version, err)
	}
	return nil
}

func decodeCommit(item map[string]types.AttributeValue) (Commit, error) {
	var c Commit

	v, ok := item[attrVersion].(*types.AttributeValueMemberN)
	if !ok {
		return c, fmt.Errorf("s3: commit item without %s", attrVersion)
	}
	version, err := strconv.ParseUint(v.Value, 10, 64)
	if err != nil {
		return c, fmt.Errorf("s3: commit %s %q: %w", attrVersion, v.Value, err)
	}
	c.Version = version

	f, ok := item[attrFragment].(*types.AttributeValueMemberS)
	if !ok {
		return c, fmt.Errorf("s3: commit %d without %s", version, attrFragment)
	}
	c.Fragment = f.Value

	// committed_at is optional.
	if at, ok := item[attrCommittedAt].(*types.AttributeValueMemberS); ok {
		if c.CommittedAt, err = time.Parse(time.RFC3339Nano, at.Value); err != nil {
			return c, fmt.Errorf("s3: commit %d %s: %w", version, attrCommittedAt, err)
		}
	}
	return c, nil
}
