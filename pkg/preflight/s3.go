// Package preflight checks that the staged sources exist before the schema is
// reset, so a bad location does not leave the warehouse empty.
package preflight

import (
	"context"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/sparkify/dwhetl/config"
	"go.uber.org/zap"
)

// ErrSourceMissing is returned when a configured location holds no data.
var ErrSourceMissing = errors.Normalize("no staged data found at %s",
	errors.RFCCodeText("DWH:Preflight:ErrSourceMissing"))

type Checker struct {
	client s3iface.S3API
}

func NewChecker(client s3iface.S3API) *Checker {
	return &Checker{client: client}
}

// NewS3Client builds a client from the default AWS credential chain.
func NewS3Client(region string) (s3iface.S3API, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            aws.Config{Region: aws.String(region)},
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, errors.Annotate(err, "failed to create AWS session")
	}
	return s3.New(sess), nil
}

// CheckSources verifies the log prefix, the song prefix and the log JSONPaths file.
func (c *Checker) CheckSources(ctx context.Context, src *config.SourceConfig) error {
	for _, prefix := range []string{src.LogData, src.SongData} {
		if err := c.checkPrefix(ctx, prefix); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(c.checkObject(ctx, src.LogJSONPath))
}

func (c *Checker) checkPrefix(ctx context.Context, uri string) error {
	bucket, key, err := splitS3URI(uri)
	if err != nil {
		return errors.Trace(err)
	}
	out, err := c.client.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(key),
		MaxKeys: aws.Int64(1),
	})
	if err != nil {
		return errors.Annotatef(err, "failed to list %s", uri)
	}
	if len(out.Contents) == 0 {
		return ErrSourceMissing.GenWithStackByArgs(uri)
	}
	log.Info("Found staged data", zap.String("location", uri))
	return nil
}

func (c *Checker) checkObject(ctx context.Context, uri string) error {
	bucket, key, err := splitS3URI(uri)
	if err != nil {
		return errors.Trace(err)
	}
	_, err = c.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.RequestFailure); ok && aerr.StatusCode() == 404 {
			return ErrSourceMissing.GenWithStackByArgs(uri)
		}
		return errors.Annotatef(err, "failed to head %s", uri)
	}
	log.Info("Found staged object", zap.String("location", uri))
	return nil
}

func splitS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", errors.Annotatef(err, "failed to parse %s", uri)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", errors.Errorf("not a s3 uri: %s", uri)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}
