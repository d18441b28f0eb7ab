package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"

	"github.com/hupe1980/tilestore"
	"github.com/hupe1980/tilestore/blobstore"
	"github.com/hupe1980/tilestore/blobstore/minio"
	"github.com/hupe1980/tilestore/blobstore/s3"
)

type globalFlags struct {
	store    string
	endpoint string
	region   string
	ddbTable string
	insecure bool
	keyHex   string
	logLevel string
}

func newRootCommand() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "tilectl",
		Short: "Inspect and maintain a tile store",
		Args:  cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.store, "store", "s", ".", "store location: a directory, s3://bucket/prefix or minio://host/bucket/prefix (credentials from the MINIO_ or AWS_ environment)")
	pf.StringVar(&g.endpoint, "endpoint", "", "S3 compatible endpoint URL")
	pf.StringVar(&g.region, "region", "", "AWS region, overriding the default config")
	pf.StringVar(&g.ddbTable, "ddb-table", "", "DynamoDB table committing CURRENT for s3:// stores")
	pf.BoolVar(&g.insecure, "insecure", false, "use plain HTTP for minio:// stores")
	pf.StringVar(&g.keyHex, "key", "", "hex encoded XChaCha20-Poly1305 key for encrypted tiles")
	pf.StringVar(&g.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	cmd.AddCommand(
		newCurrentCommand(g),
		newListCommand(g),
		newInfoCommand(g),
		newCatCommand(g),
		newPutCommand(g),
		newGetCommand(g),
		newGCCommand(g),
	)
	return cmd
}

func (g *globalFlags) openBlobs(ctx context.Context) (blobstore.BlobStore, error) {
	if !strings.Contains(g.store, "://") {
		return blobstore.NewLocalStore(g.store), nil
	}
	u, err := url.Parse(g.store)
	if err != nil {
		return nil, fmt.Errorf("store %q: %w", g.store, err)
	}
	prefix := strings.TrimPrefix(u.Path, "/")

	switch u.Scheme {
	case "file":
		return blobstore.NewLocalStore(u.Path), nil
	case "s3":
		opts := []s3.Option{s3.WithPrefix(prefix)}
		if g.region != "" {
			opts = append(opts, s3.WithRegion(g.region))
		}
		if g.endpoint != "" {
			opts = append(opts, s3.WithEndpoint(g.endpoint, true))
		}
		st, err := s3.New(ctx, u.Host, opts...)
		if err != nil {
			return nil, err
		}
		if g.ddbTable == "" {
			return st, nil
		}
		var loadOpts []func(*config.LoadOptions) error
		if g.region != "" {
			loadOpts = append(loadOpts, config.WithRegion(g.region))
		}
		cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return s3.NewDDBCommitStore(st, dynamodb.NewFromConfig(cfg), g.ddbTable, g.store), nil
	case "minio":
		bucket, rootPrefix, _ := strings.Cut(prefix, "/")
		opts := []minio.Option{minio.WithRootPrefix(rootPrefix), minio.WithSecure(!g.insecure)}
		if g.region != "" {
			opts = append(opts, minio.WithRegion(g.region))
		}
		return minio.New(u.Host, bucket, opts...)
	default:
		return nil, fmt.Errorf("store %q: unsupported scheme %q", g.store, u.Scheme)
	}
}

func (g *globalFlags) openStore(cmd *cobra.Command, extra ...tilestore.Option) (*tilestore.Store, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(g.logLevel)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	blobs, err := g.openBlobs(cmd.Context())
	if err != nil {
		return nil, err
	}

	opts := []tilestore.Option{
		tilestore.WithLogger(tilestore.NewTextLogger(cmd.ErrOrStderr(), level)),
	}
	if g.keyHex != "" {
		key, err := hex.DecodeString(g.keyHex)
		if err != nil {
			return nil, fmt.Errorf("key: %w", err)
		}
		opts = append(opts, tilestore.WithKey(key))
	}
	return tilestore.Open(cmd.Context(), blobs, append(opts, extra...)...)
}

func closeStore(st *tilestore.Store, err *error) {
	if cerr := st.Close(); *err == nil {
		*err = cerr
	}
}

func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}
