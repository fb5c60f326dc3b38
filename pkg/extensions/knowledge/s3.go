package knowledge

import (
	"context"
	"fmt"
	"io"
	"strings"

	kb "github.com/aretw0/conduit/internal/knowledge"
	"github.com/aretw0/conduit/internal/runtime"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/extensions/extkit"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// AWSConnectionType is the static key credential schema used by s3Bucket.
const AWSConnectionType = "aws"

var awsConnection = domain.ConnectionSchema{
	Type:  AWSConnectionType,
	Label: "AWS access key",
	Fields: []domain.ConnectionField{
		{Name: "accessKeyId", Required: true},
		{Name: "secretAccessKey", Required: true},
		{Name: "sessionToken"},
	},
}

type s3Config struct {
	Bucket    string  `json:"bucket"`
	Prefix    string  `json:"prefix"`
	Region    string  `json:"region"`
	Endpoint  string  `json:"endpoint"`
	PathStyle bool    `json:"pathStyle"`
	MaxSizeMB float64 `json:"maxSizeMB"`
}

func s3Bucket() domain.KnowledgeConnector {
	return domain.KnowledgeConnector{
		Type:    "s3Bucket",
		Label:   "S3 Bucket",
		Summary: "Imports supported objects under a prefix, one source per object",
		Fields: []domain.Field{
			extkit.ConnectionField("AWS Connection"),
			{Key: "bucket", Type: domain.FieldText, Label: "Bucket", Required: true},
			{Key: "prefix", Type: domain.FieldText, Label: "Key prefix"},
			{Key: "region", Type: domain.FieldText, Label: "Region", Default: "us-east-1"},
			{Key: "endpoint", Type: domain.FieldText, Label: "Endpoint", Description: "S3 compatible endpoint such as MinIO"},
			{Key: "pathStyle", Type: domain.FieldToggle, Label: "Path style addressing", Default: false},
			{Key: "maxSizeMB", Type: domain.FieldNumber, Label: "Largest object to import (MB)", Default: 10},
		},
		Connection: extkit.Ref(AWSConnectionType),
		Function: func(ctx context.Context, run *domain.ConnectorRun) error {
			var cfg s3Config
			if err := runtime.Decode(run.Config, &cfg); err != nil {
				return err
			}
			client := newS3Client(cfg, run.Connection)
			limit := int64(cfg.MaxSizeMB * 1024 * 1024)

			pages := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
				Bucket: aws.String(cfg.Bucket),
				Prefix: aws.String(cfg.Prefix),
			})
			for pages.HasMorePages() {
				page, err := pages.NextPage(ctx)
				if err != nil {
					return fmt.Errorf("failed to list s3://%s/%s: %w", cfg.Bucket, cfg.Prefix, err)
				}
				for _, obj := range page.Contents {
					key := aws.ToString(obj.Key)
					if strings.HasSuffix(key, "/") || !kb.Supported(key) {
						continue
					}
					if limit > 0 && aws.ToInt64(obj.Size) > limit {
						run.Skip(key, fmt.Errorf("object is %d bytes, limit is %d", aws.ToInt64(obj.Size), limit))
						continue
					}
					if err := ingestObject(ctx, run, client, cfg.Bucket, key); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
}

func newS3Client(cfg s3Config, conn map[string]string) *s3.Client {
	return s3.NewFromConfig(aws.Config{Region: cfg.Region}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
		o.Credentials = credentials.NewStaticCredentialsProvider(conn["accessKeyId"], conn["secretAccessKey"], conn["sessionToken"])
	})
}

// ingestObject downloads one object. Download failures skip the object; only a
// cancelled context or a sink failure stops the run.
func ingestObject(ctx context.Context, run *domain.ConnectorRun, client *s3.Client, bucket, key string) error {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		run.Skip(key, err)
		return nil
	}
	data, err := io.ReadAll(out.Body)
	_ = out.Body.Close()
	if err != nil {
		run.Skip(key, err)
		return nil
	}

	uri := "s3://" + bucket + "/" + key
	src := domain.KnowledgeSource{
		Name:       key,
		ExternalID: uri,
		Metadata:   map[string]any{"uri": uri, "etag": strings.Trim(aws.ToString(out.ETag), `"`)},
	}
	doc := domain.Document{Name: key, Data: data, Metadata: map[string]any{"uri": uri}}
	return run.Ingest(ctx, src, []domain.Document{doc})
}
