package s3

import (
	"context"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// UploadConfig tunes streaming uploads started by Create.
type UploadConfig struct {
	// PartSize is the multipart part size in bytes. Zero keeps the
	// manager default of 5 MiB.
	PartSize int64

	// Concurrency is the number of parts in flight per upload.
	Concurrency int

	// Checksum asks S3 to verify a CRC32C of every part.
	Checksum bool

	// KeepPartsOnError leaves the parts of a failed multipart upload for
	// inspection. Bucket lifecycle rules must clean them up.
	KeepPartsOnError bool
}

// DefaultUploadConfig uses 8 MiB parts, five in flight, with checksums.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		PartSize:    8 << 20,
		Concurrency: 5,
		Checksum:    true,
	}
}

func (c UploadConfig) uploader(client Client) *manager.Uploader {
	return manager.NewUploader(client, func(u *manager.Uploader) {
		if c.PartSize > 0 {
			u.PartSize = c.PartSize
		}
		if c.Concurrency > 0 {
			u.Concurrency = c.Concurrency
		}
		u.LeavePartsOnError = c.KeepPartsOnError
	})
}

// upload pipes writes into a manager upload running in its own goroutine.
type upload struct {
	pw     *io.PipeWriter
	cancel context.CancelFunc
	done   chan struct{}
	err    error

	once     sync.Once
	closeErr error
}

func startUpload(ctx context.Context, up *manager.Uploader, in *s3.PutObjectInput, name string) *upload {
	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	in.Body = pr

	u := &upload{pw: pw, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(u.done)
		_, err := up.Upload(ctx, in)
		u.err = translateError("create", name, err)
		pr.CloseWithError(u.err)
	}()
	return u
}

func (u *upload) Write(p []byte) (int, error) {
	return u.pw.Write(p)
}

// Sync does nothing; the object is durable once Close returns.
func (u *upload) Sync() error { return nil }

// Close finishes the upload and reports its result. Later calls return the
// same result.
func (u *upload) Close() error {
	u.once.Do(func() {
		u.pw.Close()
		<-u.done
		u.cancel()
		u.closeErr = u.err
	})
	return u.closeErr
}

// Abort cancels the upload. A started multipart upload is aborted unless
// KeepPartsOnError is set.
func (u *upload) Abort() error {
	u.once.Do(func() {
		u.cancel()
		u.pw.CloseWithError(context.Canceled)
		<-u.done
		u.closeErr = io.ErrClosedPipe
	})
	return nil
}
