// Package publish uploads nested stack templates to the asset bucket the
// root template points CloudFormation at.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lex00/wetwire-atlas-go/internal/synth"
)

// DefaultConcurrency bounds parallel uploads.
const DefaultConcurrency = 4

// ErrUnresolvedBucket is returned when the bucket name still holds a
// CloudFormation pseudo parameter after substitution.
var ErrUnresolvedBucket = errors.New("asset bucket name has unresolved parameters")

// S3API is the subset of the S3 client used for publishing.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewClient creates an S3 client from the default AWS credential chain.
func NewClient(ctx context.Context, region string) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// Options configures a publish run.
type Options struct {
	// Region and AccountID substitute ${AWS::Region} and ${AWS::AccountId}
	// in the assembly's bucket name.
	Region    string
	AccountID string
	// Bucket overrides the assembly's bucket name.
	Bucket      string
	Concurrency int
	// Force uploads objects that already exist.
	Force  bool
	Logger *zap.Logger
}

// Object is one published template.
type Object struct {
	Stack   string `json:"stack"`
	Bucket  string `json:"bucket"`
	Key     string `json:"key"`
	Skipped bool   `json:"skipped,omitempty"`
}

// Result lists the objects a publish run handled, in assembly order.
type Result struct {
	Bucket  string   `json:"bucket"`
	Objects []Object `json:"objects"`
}

// Uploaded counts objects that were written.
func (r *Result) Uploaded() int {
	n := 0
	for _, o := range r.Objects {
		if !o.Skipped {
			n++
		}
	}
	return n
}

// BucketName substitutes the pseudo parameters of an asset bucket name.
func BucketName(bucket, region, accountID string) (string, error) {
	name := strings.NewReplacer(
		"${AWS::Region}", region,
		"${AWS::AccountId}", accountID,
	).Replace(bucket)
	if strings.Contains(name, "${") {
		return "", fmt.Errorf("%w: %s", ErrUnresolvedBucket, name)
	}
	return name, nil
}

// Publish uploads every nested template of the assembly under its object
// key. Objects already present are skipped since keys are content hashes.
func Publish(ctx context.Context, client S3API, assembly *synth.Assembly, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bucket := opts.Bucket
	if bucket == "" {
		bucket = assembly.AssetBucket
	}
	bucket, err := BucketName(bucket, opts.Region, opts.AccountID)
	if err != nil {
		return nil, err
	}

	nested := assembly.Nested()
	result := &Result{Bucket: bucket, Objects: make([]Object, len(nested))}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, artifact := range nested {
		g.Go(func() error {
			obj, err := upload(ctx, client, bucket, artifact, opts.Force, logger)
			if err != nil {
				return err
			}
			result.Objects[i] = obj
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info("published nested templates",
		zap.String("bucket", bucket),
		zap.Int("uploaded", result.Uploaded()),
		zap.Int("total", len(result.Objects)))
	return result, nil
}

func upload(ctx context.Context, client S3API, bucket string, artifact *synth.StackArtifact, force bool, logger *zap.Logger) (Object, error) {
	obj := Object{Stack: artifact.Path, Bucket: bucket, Key: artifact.ObjectKey}
	if artifact.ObjectKey == "" {
		return obj, fmt.Errorf("%s: missing object key", artifact.Path)
	}

	if !force {
		exists, err := objectExists(ctx, client, bucket, artifact.ObjectKey)
		if err != nil {
			return obj, err
		}
		if exists {
			logger.Debug("template already published",
				zap.String("stack", artifact.Path),
				zap.String("key", artifact.ObjectKey))
			obj.Skipped = true
			return obj, nil
		}
	}

	data, err := artifact.Data()
	if err != nil {
		return obj, err
	}
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(artifact.ObjectKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return obj, fmt.Errorf("failed to put object %s in bucket %s: %w", artifact.ObjectKey, bucket, err)
	}

	logger.Debug("uploaded template",
		zap.String("stack", artifact.Path),
		zap.String("key", artifact.ObjectKey),
		zap.Int("bytes", len(data)))
	return obj, nil
}

func objectExists(ctx context.Context, client S3API, bucket, key string) (bool, error) {
	_, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object %s in bucket %s: %w", key, bucket, err)
	}
	return true, nil
}

// isNotFoundError checks if the error is a not found error.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	// HeadObject carries no body, so some endpoints only surface the code
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey" || code == "404"
	}

	return false
}
