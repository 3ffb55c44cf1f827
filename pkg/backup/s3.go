package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures access to an S3-compatible object store. The zero
// value uses the default AWS credential chain and region us-east-1.
type S3Options struct {
	Region          string
	Endpoint        string // custom endpoint for MinIO or localstack; empty means AWS
	AccessKeyID     string
	SecretAccessKey string
}

// Location is a parsed backup source or destination: an s3://bucket/key
// object or a local path.
type Location struct {
	Bucket string
	Key    string
	Path   string
}

// IsS3 reports whether the location names an S3 object.
func (l Location) IsS3() bool {
	return l.Bucket != ""
}

// String renders the location the way the user wrote it.
func (l Location) String() string {
	if l.IsS3() {
		return "s3://" + l.Bucket + "/" + l.Key
	}
	return l.Path
}

// ParseLocation classifies dest as an s3:// URI or a local path.
func ParseLocation(dest string) (Location, error) {
	if strings.HasPrefix(dest, "s3://") {
		rest := strings.TrimPrefix(dest, "s3://")
		bucket, key, ok := strings.Cut(rest, "/")
		if !ok || bucket == "" || key == "" {
			return Location{}, fmt.Errorf("malformed S3 URI %q, want s3://bucket/key", dest)
		}
		return Location{Bucket: bucket, Key: key}, nil
	}
	if dest == "" {
		return Location{}, errors.New("empty backup location")
	}
	return Location{Path: dest}, nil
}

// Upload writes the snapshot to the S3 object at loc.
func Upload(ctx context.Context, snap *Snapshot, loc Location, opts S3Options) error {
	client, err := newS3Client(ctx, opts)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(loc.Bucket),
		Key:         aws.String(loc.Key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot to %s: %w", loc, err)
	}
	return nil
}

// Download fetches a snapshot from the S3 object at loc.
func Download(ctx context.Context, loc Location, opts S3Options) (*Snapshot, error) {
	client, err := newS3Client(ctx, opts)
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download snapshot from %s: %w", loc, err)
	}
	defer func() { _ = out.Body.Close() }()

	var snap Snapshot
	if err := json.NewDecoder(out.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot from %s: %w", loc, err)
	}
	return &snap, nil
}

func newS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if opts.Endpoint != "" {
		return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true // Required for localstack/MinIO
		}), nil
	}
	return s3.NewFromConfig(awsCfg), nil
}
