package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wgdzlh/rockmask/log"
)

const s3Scheme = "s3://"

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidURI = errors.New("invalid s3 uri")
)

// 将S3上的波段文件下载到本地缓存目录，已缓存且大小一致的不再下载
type S3Stager struct {
	api          s3iface.S3API
	downloader   *s3manager.Downloader
	cacheDir     string
	requestPayer bool
	logTag       string
}

func NewS3Stager(api s3iface.S3API, cacheDir string, requestPayer bool) *S3Stager {
	return &S3Stager{
		api:          api,
		downloader:   s3manager.NewDownloaderWithClient(api),
		cacheDir:     cacheDir,
		requestPayer: requestPayer,
		logTag:       "S3Stager:",
	}
}

// 使用默认凭证链创建
func NewDefaultS3Stager(region, cacheDir string, requestPayer bool) (*S3Stager, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, err
	}
	return NewS3Stager(s3.New(sess), cacheDir, requestPayer), nil
}

func ParseURI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, s3Scheme)
	if !ok {
		err = fmt.Errorf("%w: %s", ErrInvalidURI, uri)
		return
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		err = fmt.Errorf("%w: %s", ErrInvalidURI, uri)
	}
	return
}

func (s *S3Stager) LocalPath(bucket, key string) string {
	return filepath.Join(s.cacheDir, bucket, filepath.FromSlash(key))
}

func (s *S3Stager) Stage(ctx context.Context, uri string) (path string, err error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return
	}
	path = s.LocalPath(bucket, key)
	head := &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}
	if s.requestPayer {
		head.RequestPayer = aws.String(s3.RequestPayerRequester)
	}
	obj, err := s.api.HeadObjectWithContext(ctx, head)
	if err != nil {
		if isNotFound(err) {
			err = fmt.Errorf("%w: %s", ErrNotFound, uri)
		}
		return
	}
	if info, e := os.Stat(path); e == nil && obj.ContentLength != nil && info.Size() == *obj.ContentLength {
		log.Debug(s.logTag+"cache hit", zap.String("uri", uri), zap.String("path", path))
		return
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	tmp := path + "." + uuid.NewString()
	f, err := os.Create(tmp)
	if err != nil {
		return
	}
	get := &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}
	if s.requestPayer {
		get.RequestPayer = aws.String(s3.RequestPayerRequester)
	}
	n, err := s.downloader.DownloadWithContext(ctx, f, get)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		if isNotFound(err) {
			err = fmt.Errorf("%w: %s", ErrNotFound, uri)
		}
		return
	}
	if err = os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return
	}
	log.Info(s.logTag+"staged", zap.String("uri", uri), zap.String("path", path), zap.Int64("bytes", n))
	return
}

func isNotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
			return true
		}
	}
	return false
}
