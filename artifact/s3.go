package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/sirupsen/logrus"
)

// S3Store keeps one object per record under Bucket/Prefix.
type S3Store struct {
	Client s3iface.S3API
	Bucket string
	Prefix string
}

// NewS3Store creates an S3Store using the default credential chain.
func NewS3Store(region, bucket, prefix string) (*S3Store, error) {
	cfg := aws.NewConfig()
	if region != "" {
		cfg.WithRegion(region)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating AWS session: %w", err)
	}
	return &S3Store{Client: s3.New(sess), Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, nil
}

func (s *S3Store) objectKey(key string) string {
	return path.Join(s.Prefix, key+recordExt)
}

// Put uploads the record.
func (s *S3Store) Put(ctx context.Context, key string, r *Record) error {
	if err := validKey(key); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, r); err != nil {
		return err
	}
	_, err := s.Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/yaml"),
	})
	if err != nil {
		return fmt.Errorf("uploading record %q to s3://%s: %w", key, s.Bucket, err)
	}
	logrus.Debugf("stored model record s3://%s/%s", s.Bucket, s.objectKey(key))
	return nil
}

// Get downloads the record stored under key.
func (s *S3Store) Get(ctx context.Context, key string) (*Record, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	out, err := s.Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		return nil, fmt.Errorf("downloading record %q from s3://%s: %w", key, s.Bucket, err)
	}
	defer func() { _ = out.Body.Close() }()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading record %q: %w", key, err)
	}
	return Decode(data)
}

// List returns the keys under Prefix in lexical order.
func (s *S3Store) List(ctx context.Context) ([]string, error) {
	prefix := s.Prefix
	if prefix != "" {
		prefix += "/"
	}
	var keys []string
	err := s.Client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.StringValue(obj.Key), prefix)
			if strings.Contains(name, "/") || !strings.HasSuffix(name, recordExt) {
				continue
			}
			keys = append(keys, strings.TrimSuffix(name, recordExt))
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("listing s3://%s/%s: %w", s.Bucket, prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}
