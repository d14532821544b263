package ceph

import (
	"os"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// CephClient archives benchmark records to an S3 compatible object store
// such as a Ceph RADOS gateway.
type CephClient struct {
	S3Client   *s3.S3
	S3Endpoint string
}

func NewCephClient(region string, S3Endpoint string, accessKey string, accessSecret string) (*CephClient, error) {
	s3client, err := newS3Client(region, S3Endpoint, accessKey, accessSecret)
	if err != nil {
		return nil, err
	}

	manager := CephClient{S3Client: s3client, S3Endpoint: S3Endpoint}
	return &manager, nil
}

func newS3Client(region string, endpoint string, accessKey string, accessSecret string) (*s3.S3, error) {
	config := &aws.Config{
		Region:                        aws.String(region),
		Endpoint:                      aws.String(endpoint),
		CredentialsChainVerboseErrors: aws.Bool(true),
		DisableSSL:                    aws.Bool(true),
		S3ForcePathStyle:              aws.Bool(true),
		Credentials:                   credentials.NewStaticCredentials(accessKey, accessSecret, ""),
		S3Disable100Continue:          aws.Bool(true),
	}
	sess, err := session.NewSession(config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create s3 session")
	}
	return s3.New(sess), nil
}

// ObjectName joins prefix and the base name of a local file.
func ObjectName(prefix string, localPath string) string {
	return path.Join(prefix, path.Base(localPath))
}

// UploadFileToS3ObjectStore stores the file at localPath as bucket/objectName.
func (manager *CephClient) UploadFileToS3ObjectStore(localPath string, bucket string, objectName string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", localPath)
	}
	defer file.Close()

	_, err = manager.S3Client.PutObject(
		(&s3.PutObjectInput{}).SetBucket(bucket).
			SetKey(objectName).
			SetBody(file).
			SetContentType("text/csv"))
	if err != nil {
		log.Warn("Failed to put object, error: ", err.Error())
		return errors.Wrapf(err, "failed to upload %s to %s/%s", localPath, bucket, objectName)
	}
	log.Infof("uploaded %s to %s/%s", localPath, bucket, objectName)
	return nil
}
