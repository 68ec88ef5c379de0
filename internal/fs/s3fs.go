package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/CageChen/syntaxia/internal/metrics"
)

// S3Options configures an S3-compatible bucket as the repository root.
type S3Options struct {
	Bucket    string `yaml:"bucket" json:"bucket"`
	Prefix    string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Region    string `yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	AccessKey string `yaml:"access_key,omitempty" json:"-"`
	SecretKey string `yaml:"secret_key,omitempty" json:"-"`
}

// s3API is the subset of the S3 client used by S3FS.
type s3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3FS implements FileSystem over objects in a bucket. "Directories" are key
// prefixes ending in "/".
type S3FS struct {
	client  s3API
	bucket  string
	prefix  string
	timeout time.Duration
}

// NewS3FS creates an S3FS from opts using the default AWS credential chain,
// or static credentials when both keys are set. A custom endpoint switches the
// client to path-style addressing for S3-compatible stores.
func NewS3FS(ctx context.Context, opts S3Options) (*S3FS, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 backend requires a bucket")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3FS(client, opts.Bucket, opts.Prefix), nil
}

func newS3FS(client s3API, bucket, prefix string) *S3FS {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3FS{client: client, bucket: bucket, prefix: prefix, timeout: 30 * time.Second}
}

func (s *S3FS) key(path string) string {
	return s.prefix + strings.Trim(path, "/")
}

func (s *S3FS) dirKey(path string) string {
	if path == "" || path == "." {
		return s.prefix
	}
	return s.key(path) + "/"
}

// ReadFile downloads the object at path.
func (s *S3FS) ReadFile(path string) ([]byte, error) {
	if path == "" || path == "." {
		return nil, fmt.Errorf("cannot read directory as file: %w", os.ErrInvalid)
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		metrics.RecordStorageOperation("s3", "read", time.Since(start), err)
		return nil, mapS3Error(err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	metrics.RecordStorageOperation("s3", "read", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", path, err)
	}
	return data, nil
}

// Stat returns object metadata, or directory metadata when path is a prefix
// holding at least one object.
func (s *S3FS) Stat(path string) (FileInfo, error) {
	if path == "" || path == "." {
		return FileInfo{Name: s.bucket, IsDir: true}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	metrics.RecordStorageOperation("s3", "stat", time.Since(start), err)
	if err == nil {
		return FileInfo{
			Name:    baseName(path),
			Size:    aws.ToInt64(head.ContentLength),
			ModTime: aws.ToTime(head.LastModified),
		}, nil
	}
	if mapped := mapS3Error(err); !errors.Is(mapped, os.ErrNotExist) {
		return FileInfo{}, mapped
	}

	start = time.Now()
	list, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(s.dirKey(path)),
		MaxKeys: aws.Int32(1),
	})
	metrics.RecordStorageOperation("s3", "stat", time.Since(start), err)
	if err != nil {
		return FileInfo{}, mapS3Error(err)
	}
	if aws.ToInt32(list.KeyCount) == 0 && len(list.Contents) == 0 {
		return FileInfo{}, os.ErrNotExist
	}
	return FileInfo{Name: baseName(path), IsDir: true}, nil
}

// ReadDir lists the objects and common prefixes directly below path.
func (s *S3FS) ReadDir(path string) ([]DirEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	prefix := s.dirKey(path)
	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	}

	var entries []DirEntry
	found := path == "" || path == "."
	start := time.Now()
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			metrics.RecordStorageOperation("s3", "readdir", time.Since(start), err)
			return nil, mapS3Error(err)
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/")
			if name == "" {
				continue
			}
			found = true
			entries = append(entries, DirEntry{Name: name, IsDir: true})
		}
		for _, obj := range page.Contents {
			found = true
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" {
				// directory marker object
				continue
			}
			entries = append(entries, DirEntry{
				Name:    name,
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}
	metrics.RecordStorageOperation("s3", "readdir", time.Since(start), nil)

	if !found {
		return nil, os.ErrNotExist
	}
	return entries, nil
}

// mapS3Error translates missing-object and access errors to io/fs sentinels.
func mapS3Error(err error) error {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return fmt.Errorf("%v: %w", err, os.ErrNotExist)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return fmt.Errorf("%v: %w", err, os.ErrNotExist)
		case "AccessDenied", "Forbidden":
			return fmt.Errorf("%v: %w", err, os.ErrPermission)
		}
	}
	return err
}
