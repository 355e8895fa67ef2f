// Package r2 uploads local images to a Cloudflare R2 bucket through
// presigned URLs and returns a presigned download link for them.
package r2

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v3/client"
	"github.com/google/uuid"

	"github.com/meikuraledutech/whiteboard"
)

const (
	Region = "auto"

	PutExpiry = 10 * time.Minute
	GetExpiry = 24 * time.Hour
)

// Config holds the bucket credentials. Endpoint overrides the account
// endpoint derived from AccountID.
type Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Endpoint        string
}

// Client implements whiteboard.Uploader.
type Client struct {
	cfg     Config
	http    *client.Client
	presign *s3.PresignClient
	now     func() time.Time
}

// New returns a client for cfg.
func New(cfg Config) *Client {
	c := &Client{cfg: cfg, http: client.New(), now: time.Now}
	api := s3.New(s3.Options{
		Region:                     Region,
		BaseEndpoint:               aws.String(c.Endpoint()),
		UsePathStyle:               true,
		Credentials:                credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
	})
	c.presign = s3.NewPresignClient(api, func(o *s3.PresignOptions) {
		o.Presigner = clockedSigner{signer: v4.NewSigner(), now: func() time.Time { return c.now() }}
	})
	return c
}

// Endpoint returns the base URL requests are signed for.
func (c *Client) Endpoint() string {
	if c.cfg.Endpoint != "" {
		return strings.TrimRight(c.cfg.Endpoint, "/")
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.cfg.AccountID)
}

// Upload stores the image of a data URI under a fresh key and returns a
// presigned GET URL valid for GetExpiry.
func (c *Client) Upload(ctx context.Context, dataURI string) (string, error) {
	mimeType, data, err := ParseDataURI(dataURI)
	if err != nil {
		return "", fmt.Errorf("image upload failed: %w", err)
	}
	ext := mimeType[strings.LastIndex(mimeType, "/")+1:]
	key := fmt.Sprintf("upload-%s.%s", uuid.NewString(), ext)

	put, err := c.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(mimeType),
	}, s3.WithPresignExpires(PutExpiry))
	if err != nil {
		return "", fmt.Errorf("image upload failed: presign: %w", err)
	}

	req := c.http.R().SetContext(ctx).SetRawBody(data)
	for name, values := range put.SignedHeader {
		if strings.EqualFold(name, "Host") || len(values) == 0 {
			continue
		}
		req.SetHeader(name, values[0])
	}
	req.SetHeader("Content-Type", mimeType)

	resp, err := req.Put(put.URL)
	if err != nil {
		return "", fmt.Errorf("image upload failed: %w", err)
	}
	defer resp.Close()
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return "", fmt.Errorf("image upload failed: R2 response: %d %s", resp.StatusCode(), resp.Status())
	}

	return c.presignGet(ctx, key, GetExpiry)
}

func (c *Client) presignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	get, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("r2: presign get %s: %w", key, err)
	}
	return get.URL, nil
}

// clockedSigner signs with the client's clock instead of the SDK's.
type clockedSigner struct {
	signer *v4.Signer
	now    func() time.Time
}

func (s clockedSigner) PresignHTTP(
	ctx context.Context, creds aws.Credentials, r *http.Request,
	payloadHash, service, region string, _ time.Time,
	optFns ...func(*v4.SignerOptions),
) (string, http.Header, error) {
	return s.signer.PresignHTTP(ctx, creds, r, payloadHash, service, region, s.now(), optFns...)
}

// FromSettings selects the R2 adapter at call time from the credentials in
// s. It returns whiteboard.ErrNoHosting when they are incomplete. endpoint
// may be empty.
func FromSettings(s whiteboard.Settings, endpoint string) whiteboard.UploaderSource {
	return func(ctx context.Context) (whiteboard.Uploader, error) {
		var cfg Config
		fields := []struct {
			key string
			dst *string
		}{
			{whiteboard.SettingR2AccountID, &cfg.AccountID},
			{whiteboard.SettingR2AccessKeyID, &cfg.AccessKeyID},
			{whiteboard.SettingR2SecretKey, &cfg.SecretAccessKey},
			{whiteboard.SettingR2Bucket, &cfg.Bucket},
		}
		for _, f := range fields {
			v, err := whiteboard.SettingOrEmpty(ctx, s, f.key)
			if err != nil {
				return nil, fmt.Errorf("r2: read %s: %w", f.key, err)
			}
			*f.dst = strings.TrimSpace(v)
		}
		cfg.Endpoint = endpoint
		if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.Bucket == "" {
			return nil, whiteboard.ErrNoHosting
		}
		if cfg.AccountID == "" && cfg.Endpoint == "" {
			return nil, whiteboard.ErrNoHosting
		}
		return New(cfg), nil
	}
}
