package media

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"pinboard-backend/internal/models"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// S3 stores uploads in an S3 (or S3-compatible) bucket with public-read ACL.
type S3 struct {
	Client    s3iface.S3API
	Bucket    string
	PublicURL string
}

// NewS3 creates an S3 store. Credentials come from the default AWS chain.
func NewS3(bucket, region, endpoint, publicURL string) (*S3, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	cfg := &aws.Config{Region: aws.String(region)}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create aws session: %w", err)
	}

	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}

	return &S3{
		Client:    s3.New(sess),
		Bucket:    bucket,
		PublicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

func (s *S3) Upload(ctx context.Context, folder, filename string, data []byte) (*models.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}

	key := objectKey(folder, filename)
	size := int64(len(data))
	params := &s3.PutObjectInput{
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(key),
		ACL:           aws.String(s3.ObjectCannedACLPublicRead),
		Body:          bytes.NewReader(data),
		ContentLength: &size,
		ContentType:   aws.String(contentType(data)),
	}
	if _, err := s.Client.PutObjectWithContext(ctx, params); err != nil {
		logAWSError("PutObject", err)
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	return &models.Image{ID: key, URL: s.PublicURL + "/" + key}, nil
}

func (s *S3) Delete(ctx context.Context, id string) error {
	_, err := s.Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		logAWSError("DeleteObject", err)
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

func logAWSError(op string, err error) {
	if awsErr, ok := err.(awserr.Error); ok {
		if reqErr, ok := err.(awserr.RequestFailure); ok {
			// A service error occurred
			log.Printf("[MEDIA] s3.%s: %s %s (status %d, request %s)", op, reqErr.Code(), reqErr.Message(), reqErr.StatusCode(), reqErr.RequestID())
			return
		}
		log.Printf("[MEDIA] s3.%s: %s %s %v", op, awsErr.Code(), awsErr.Message(), awsErr.OrigErr())
		return
	}
	log.Printf("[MEDIA] s3.%s err: %v", op, err)
}
