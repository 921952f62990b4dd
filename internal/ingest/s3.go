package ingest

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/qualitygate/pkg/errors"
	"github.com/inferloop/qualitygate/pkg/models"
)

// S3Config holds the settings for s3:// sources. Without static keys the
// default AWS credential chain is used.
type S3Config struct {
	Region          string `json:"region" yaml:"region" mapstructure:"region"`
	Endpoint        string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" mapstructure:"endpoint"`
	ForcePathStyle  bool   `json:"force_path_style" yaml:"force_path_style" mapstructure:"force_path_style"`
	DisableSSL      bool   `json:"disable_ssl" yaml:"disable_ssl" mapstructure:"disable_ssl"`
	MaxRetries      int    `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
	AccessKeyID     string `json:"-" yaml:"-" mapstructure:"access_key_id"`
	SecretAccessKey string `json:"-" yaml:"-" mapstructure:"secret_access_key"`
	SessionToken    string `json:"-" yaml:"-" mapstructure:"session_token"`
}

// IsS3URL reports whether source names an S3 object
func IsS3URL(source string) bool {
	return strings.HasPrefix(strings.ToLower(source), "s3://")
}

// parseS3URL splits s3://bucket/key
func parseS3URL(source string) (string, string, error) {
	u, err := url.Parse(source)
	if err != nil {
		return "", "", err
	}
	if !strings.EqualFold(u.Scheme, "s3") {
		return "", "", fmt.Errorf("not an s3 URL: %s", source)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("s3 URL needs a bucket and a key: %s", source)
	}
	return u.Host, key, nil
}

// LoadObject downloads the object at an s3://bucket/key URL and decodes it
// like a local file, using the key's extensions.
func (fl *FileLoader) LoadObject(ctx context.Context, source string) (*models.Dataset, error) {
	bucket, key, err := parseS3URL(source)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeValidation, errors.CodeInvalidInput, "invalid S3 location")
	}

	client, err := fl.objectClient()
	if err != nil {
		return nil, err
	}

	out, err := client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, errors.WrapError(err, errors.ErrorTypeValidation, errors.CodeFileOpenFailed,
				fmt.Sprintf("object not found: %s", source))
		}
		return nil, errors.WrapError(err, errors.ErrorTypeValidation, errors.CodeObjectFetchFailed,
			fmt.Sprintf("failed to download %s", source))
	}
	defer out.Body.Close()

	ds, err := fl.decode(out.Body, key)
	if err != nil {
		return nil, err
	}

	fl.logger.WithFields(logrus.Fields{
		"source":  source,
		"columns": len(ds.Columns),
		"rows":    ds.RowCount(),
	}).Debug("Dataset loaded")

	return ds, nil
}

// objectClient creates the S3 client on first use
func (fl *FileLoader) objectClient() (s3iface.S3API, error) {
	fl.s3Once.Do(func() {
		if fl.s3 != nil {
			return
		}

		cfg := fl.config.S3
		awsConfig := &aws.Config{
			Region:     aws.String(cfg.Region),
			MaxRetries: aws.Int(cfg.MaxRetries),
		}
		if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
			awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
		}
		if cfg.Endpoint != "" {
			awsConfig.Endpoint = aws.String(cfg.Endpoint)
			awsConfig.S3ForcePathStyle = aws.Bool(cfg.ForcePathStyle)
		}
		if cfg.DisableSSL {
			awsConfig.DisableSSL = aws.Bool(true)
		}

		sess, err := session.NewSession(awsConfig)
		if err != nil {
			fl.s3Err = errors.WrapError(err, errors.ErrorTypeConfiguration, errors.CodeInvalidConfiguration,
				"failed to create AWS session")
			return
		}
		fl.s3 = s3.New(sess)
	})
	return fl.s3, fl.s3Err
}
