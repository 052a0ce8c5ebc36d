package gcs

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/borealisconf/borealis-backend/internal/platform/logger"
)

// Category prefixes object keys inside the single asset bucket.
type Category string

const (
	CategoryAvatar Category = "avatar" // generated account avatars
	CategoryPhoto  Category = "photo"  // speaker photos
	CategorySlide  Category = "slide"  // CFP slide uploads
	CategoryCard   Category = "card"   // rendered session share cards
)

type BucketService interface {
	Upload(ctx context.Context, category Category, key string, r io.Reader) error
	Delete(ctx context.Context, category Category, key string) error
	Download(ctx context.Context, category Category, key string) (io.ReadCloser, error)
	PublicURL(category Category, key string) string
}

type bucketService struct {
	log          *logger.Logger
	client       *storage.Client
	bucket       string
	cdnDomain    string
	emulatorHost string
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	serviceLog := log.With("service", "BucketService")

	bucket := strings.TrimSpace(os.Getenv("ASSET_GCS_BUCKET_NAME"))
	if bucket == "" {
		return nil, fmt.Errorf("missing env var ASSET_GCS_BUCKET_NAME")
	}
	cdnDomain := strings.TrimSpace(os.Getenv("ASSET_CDN_DOMAIN"))
	emulatorHost := strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")), "/")

	ctx := context.Background()
	var client *storage.Client
	var err error
	if emulatorHost != "" {
		client, err = storage.NewClient(ctx, option.WithoutAuthentication())
	} else {
		opts := clientOptionsFromEnv()
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
		client, err = storage.NewClient(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	serviceLog.Info("Object storage initialized",
		"bucket", bucket,
		"cdn_domain", cdnDomain,
		"emulator_host", emulatorHost,
	)

	return &bucketService{
		log:          serviceLog,
		client:       client,
		bucket:       bucket,
		cdnDomain:    cdnDomain,
		emulatorHost: emulatorHost,
	}, nil
}

func objectKey(category Category, key string) string {
	return string(category) + "/" + strings.TrimLeft(key, "/")
}

func (bs *bucketService) Upload(ctx context.Context, category Category, key string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := bs.client.Bucket(bs.bucket).Object(objectKey(category, key)).NewWriter(ctx)
	if ct := contentTypeForKey(key); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close GCS writer: %w", err)
	}
	return nil
}

func (bs *bucketService) Delete(ctx context.Context, category Category, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := bs.client.Bucket(bs.bucket).Object(objectKey(category, key)).Delete(ctx); err != nil {
		return fmt.Errorf("delete object from GCS: %w", err)
	}
	return nil
}

func (bs *bucketService) Download(ctx context.Context, category Category, key string) (io.ReadCloser, error) {
	rc, err := bs.client.Bucket(bs.bucket).Object(objectKey(category, key)).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open object reader: %w", err)
	}
	return rc, nil
}

func (bs *bucketService) PublicURL(category Category, key string) string {
	obj := objectKey(category, key)
	if bs.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", strings.TrimRight(bs.cdnDomain, "/"), obj)
	}
	if bs.emulatorHost != "" {
		return fmt.Sprintf("%s/storage/v1/b/%s/o/%s?alt=media", bs.emulatorHost, bs.bucket, url.PathEscape(obj))
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bs.bucket, obj)
}

func clientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".pdf"):
		return "application/pdf"
	default:
		return ""
	}
}
