package intake

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"clerk/pkg/platform/sentinel"
)

// ObjectClient is the subset of the minio client the snapshot store needs.
type ObjectClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// MinioConfig describes the object storage holding snapshots.
type MinioConfig struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	Region         string
	Bucket         string
	Prefix         string
	TimeoutSeconds int
}

// NewMinioClient builds an ObjectClient with bounded transport timeouts.
func NewMinioClient(cfg MinioConfig) (ObjectClient, error) {
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ExpectContinueTimeout: time.Second,
		ResponseHeaderTimeout: timeout,
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &minioClient{Client: client}, nil
}

type minioClient struct {
	*minio.Client
}

func (c *minioClient) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return c.Client.GetObject(ctx, bucketName, objectName, opts)
}

// MinioStore keeps snapshots as "<prefix><id>.json" objects in one bucket.
type MinioStore struct {
	client ObjectClient
	bucket string
	prefix string
}

func NewMinioStore(client ObjectClient, bucket, prefix string) *MinioStore {
	return &MinioStore{client: client, bucket: bucket, prefix: prefix}
}

// EnsureBucket creates the bucket when it is missing.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w: %w", s.bucket, sentinel.ErrUnavailable, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *MinioStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list snapshots: %w", obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, s.prefix)
		if strings.Contains(name, "/") || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MinioStore) Get(ctx context.Context, id string) (Snapshot, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectName(id), minio.GetObjectOptions{})
	if err != nil {
		return Snapshot{}, s.objectError(id, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return Snapshot{}, s.objectError(id, err)
	}
	return decodeSnapshot(id, data)
}

func (s *MinioStore) Save(ctx context.Context, snapshot Snapshot) error {
	if snapshot.ID == "" || strings.Contains(snapshot.ID, "/") {
		return fmt.Errorf("snapshot id %q: %w", snapshot.ID, sentinel.ErrInvalidInput)
	}
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucket, s.objectName(snapshot.ID), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", snapshot.ID, err)
	}
	return nil
}

func (s *MinioStore) objectName(id string) string {
	return s.prefix + id + ".json"
}

func (s *MinioStore) objectError(id string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("snapshot %s: %w", id, sentinel.ErrNotFound)
	}
	return fmt.Errorf("get snapshot %s: %w", id, err)
}
