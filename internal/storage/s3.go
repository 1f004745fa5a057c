package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// MaxUploadSize is the maximum accepted object size (50MB)
const MaxUploadSize = 50 << 20

// sniffLen is how many leading bytes filetype needs to recognise a format
const sniffLen = 262

var (
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrTooLarge        = errors.New("media exceeds maximum upload size")
	ErrEmptyUpload     = errors.New("media is empty")
)

// allowedExtensions are the formats both LinkedIn and X accept as post media
var allowedExtensions = map[string]struct{}{
	"jpg": {}, "png": {}, "gif": {}, "webp": {}, "mp4": {}, "mov": {},
}

// S3Config holds S3/MinIO configuration
type S3Config struct {
	Endpoint        string // e.g., "http://localhost:9000" for MinIO
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	PublicURL       string // base URL objects are served from
}

// objectAPI is the subset of the S3 client used for media
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Storage stores post media in an S3-compatible bucket
type S3Storage struct {
	client    objectAPI
	bucket    string
	publicURL string
	now       func() time.Time
}

// NewS3Storage creates a new S3 storage client
func NewS3Storage(cfg S3Config) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	client := s3.New(s3.Options{
		Region:       cfg.Region,
		BaseEndpoint: aws.String(cfg.Endpoint),
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
		UsePathStyle: true, // Required for MinIO
	})

	return newS3Storage(client, cfg), nil
}

func newS3Storage(client objectAPI, cfg S3Config) *S3Storage {
	return &S3Storage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		now:       time.Now,
	}
}

// UploadInput represents input for uploading a file
type UploadInput struct {
	Reader io.Reader
	Size   int64
}

// UploadOutput represents output from uploading a file
type UploadOutput struct {
	Key         string // Object key in S3
	URL         string // Public URL to access the file
	ContentType string
	Size        int64
	UploadedAt  time.Time
}

// Upload detects the media type from the content, rejects formats the platforms
// cannot take and stores the object under YYYY/MM/DD/<nanoid>.<ext>
func (s *S3Storage) Upload(ctx context.Context, in UploadInput) (*UploadOutput, error) {
	if in.Size > MaxUploadSize {
		return nil, ErrTooLarge
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(in.Reader, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading media header: %w", err)
	}
	if n == 0 {
		return nil, ErrEmptyUpload
	}
	head = head[:n]

	ext, mime, err := DetectType(head)
	if err != nil {
		return nil, err
	}

	key, err := s.objectKey(ext)
	if err != nil {
		return nil, err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          io.MultiReader(bytes.NewReader(head), in.Reader),
		ContentType:   aws.String(mime),
		ContentLength: aws.Int64(in.Size),
	})
	if err != nil {
		return nil, fmt.Errorf("uploading to s3: %w", err)
	}

	return &UploadOutput{
		Key:         key,
		URL:         fmt.Sprintf("%s/%s", s.publicURL, key),
		ContentType: mime,
		Size:        in.Size,
		UploadedAt:  s.now(),
	}, nil
}

// Delete removes a file from S3
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting from s3: %w", err)
	}
	return nil
}

// DetectType returns the extension and MIME type of an allowed media format
func DetectType(head []byte) (ext, mime string, err error) {
	kind, err := filetype.Match(head)
	if err != nil || kind == types.Unknown {
		return "", "", ErrUnsupportedType
	}
	if _, ok := allowedExtensions[kind.Extension]; !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedType, kind.MIME.Value)
	}
	return kind.Extension, kind.MIME.Value, nil
}

func (s *S3Storage) objectKey(ext string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generating object key: %w", err)
	}
	return fmt.Sprintf("%s/%s.%s", s.now().UTC().Format("2006/01/02"), id, ext), nil
}
