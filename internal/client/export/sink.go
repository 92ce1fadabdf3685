package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/schooldesk/internal/client/config"
	"github.com/dmitrijs2005/schooldesk/internal/client/models"
	"github.com/dmitrijs2005/schooldesk/internal/logging"
)

// Sink stores a finished export under name and returns where it ended up
// (a file path or a URL).
type Sink interface {
	Put(ctx context.Context, name string, r io.Reader) (string, error)
}

// FileSink writes exports into Dir, creating it if needed.
type FileSink struct {
	Dir string
}

func (s FileSink) Put(_ context.Context, name string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(s.Dir, filepath.Base(name))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("write export file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}

// objectStore is the part of *s3.Client used by S3Sink.
type objectStore interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads exports to a bucket and returns a presigned download URL.
type S3Sink struct {
	bucket  string
	prefix  string
	store   objectStore
	presign *s3.PresignClient
	expires time.Duration
}

// S3Options configures NewS3Sink. Empty AccessKey selects the default AWS
// credential chain; a non-empty Endpoint points at an S3-compatible server
// such as MinIO, addressed path-style.
type S3Options struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// URLExpiry bounds the presigned download URL; 15 minutes by default.
	URLExpiry time.Duration
}

func NewS3Sink(ctx context.Context, opts S3Options) (*S3Sink, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	expires := opts.URLExpiry
	if expires <= 0 {
		expires = 15 * time.Minute
	}
	return &S3Sink{
		bucket:  opts.Bucket,
		prefix:  opts.Prefix,
		store:   client,
		presign: s3.NewPresignClient(client),
		expires: expires,
	}, nil
}

func (s *S3Sink) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *S3Sink) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read export: %w", err)
	}
	key := s.key(name)

	_, err = s.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("text/csv; charset=utf-8"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to s3: %w", key, err)
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expires))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}

// NewSink picks the sink configured in cfg: S3 when a bucket is set,
// otherwise the export directory.
func NewSink(ctx context.Context, cfg *config.Config) (Sink, error) {
	if !cfg.UsesS3Export() {
		return FileSink{Dir: cfg.ExportDir}, nil
	}
	return NewS3Sink(ctx, S3Options{
		Bucket:    cfg.ExportBucket,
		Region:    cfg.ExportRegion,
		Endpoint:  cfg.ExportEndpoint,
		AccessKey: cfg.ExportAccessKey,
		SecretKey: cfg.ExportSecretKey,
	})
}

// Exporter renders lists to CSV and hands them to a Sink.
type Exporter struct {
	sink Sink
	log  logging.Logger
	now  func() time.Time
}

func NewExporter(sink Sink, log logging.Logger) *Exporter {
	if log == nil {
		log = logging.Discard()
	}
	return &Exporter{sink: sink, log: log.With("component", "export"), now: time.Now}
}

// SaveStudents exports students and returns the location of the file.
func (e *Exporter) SaveStudents(ctx context.Context, students []models.Student) (string, error) {
	var buf bytes.Buffer
	if err := Students(&buf, students); err != nil {
		return "", err
	}
	return e.save(ctx, KindStudents, len(students), &buf)
}

// SaveStaff exports staff members and returns the location of the file.
func (e *Exporter) SaveStaff(ctx context.Context, staff []models.Staff) (string, error) {
	var buf bytes.Buffer
	if err := Staff(&buf, staff); err != nil {
		return "", err
	}
	return e.save(ctx, KindStaff, len(staff), &buf)
}

func (e *Exporter) save(ctx context.Context, kind Kind, rows int, r io.Reader) (string, error) {
	name := FileName(kind, e.now())
	loc, err := e.sink.Put(ctx, name, r)
	if err != nil {
		e.log.Error(ctx, "export failed", "kind", kind, "error", err)
		return "", err
	}
	e.log.Info(ctx, "export written", "kind", kind, "rows", rows, "location", loc)
	return loc, nil
}
