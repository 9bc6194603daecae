package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"

	"objectvault/internal/config"
)

// azureProvider implements Provider on Azure Blob Storage. Buckets map to
// containers and object names to blob names.
type azureProvider struct {
	client *azblob.Client
	cred   *azblob.SharedKeyCredential
}

// NewAzure creates the Azure Blob Storage provider.
// The shared key credential signs SAS URLs, so account and key are required at
// construction. Endpoint overrides the default account URL (useful for
// Azurite).
func NewAzure(cfg config.AzureConfig) (Provider, error) {
	if cfg.Account == "" || cfg.Key == "" {
		return nil, fmt.Errorf("azure storage account and key are required")
	}

	cred, err := azblob.NewSharedKeyCredential(cfg.Account, cfg.Key)
	if err != nil {
		return nil, fmt.Errorf("create azure credential: %w", err)
	}

	serviceURL := cfg.Endpoint
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.Account)
	}

	cli, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create azure client: %w", err)
	}

	return &azureProvider{client: cli, cred: cred}, nil
}

func (p *azureProvider) Name() string { return "azure" }

func (p *azureProvider) blobClient(bucket, name string) *blob.Client {
	return p.client.ServiceClient().NewContainerClient(bucket).NewBlobClient(name)
}

func (p *azureProvider) Object(bucket, name string) ObjectFile {
	return &azureObject{client: p.blobClient(bucket, name), bucket: bucket, name: name}
}

// SignedURL builds a SAS token scoped to the one blob and the permission set
// implied by the method, signed with the shared key.
func (p *azureProvider) SignedURL(ctx context.Context, bucket, name string, req SignedURLRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	var perms sas.BlobPermissions
	switch req.Method {
	case "GET", "HEAD":
		perms.Read = true
	case "PUT":
		perms.Create = true
		perms.Write = true
	case "DELETE":
		perms.Delete = true
	}

	now := time.Now().UTC()
	vals := sas.BlobSignatureValues{
		Protocol:      sas.ProtocolHTTPS,
		StartTime:     now.Add(-10 * time.Second),
		ExpiryTime:    now.Add(req.ExpiresIn),
		ContainerName: bucket,
		BlobName:      name,
		Permissions:   perms.String(),
	}
	q, err := vals.SignWithSharedKey(p.cred)
	if err != nil {
		return "", fmt.Errorf("sign %s /%s/%s: %w", req.Method, bucket, name, err)
	}
	return p.blobClient(bucket, name).URL() + "?" + q.Encode(), nil
}

func (p *azureProvider) ParsePath(path string) (string, string, error) {
	return ParseObjectPath(path)
}

// azureObject is the per-object handle for the Azure backend.
type azureObject struct {
	client *blob.Client
	bucket string
	name   string
}

func (o *azureObject) Path() string {
	return "/" + o.bucket + "/" + o.name
}

func (o *azureObject) Exists(ctx context.Context) (bool, error) {
	_, err := o.client.GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("properties %s: %w", o.Path(), err)
	}
	return true, nil
}

func (o *azureObject) Metadata(ctx context.Context) (ObjectMetadata, error) {
	props, err := o.client.GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return ObjectMetadata{}, ErrObjectNotFound
		}
		return ObjectMetadata{}, fmt.Errorf("properties %s: %w", o.Path(), err)
	}

	// Azure metadata keys are case-insensitive and come back re-cased; fold
	// them to lower case so lookups behave the same on every backend.
	custom := make(map[string]string, len(props.Metadata))
	for k, v := range props.Metadata {
		if v != nil {
			custom[strings.ToLower(k)] = *v
		}
	}

	meta := ObjectMetadata{Custom: custom}
	if props.ContentType != nil {
		meta.ContentType = *props.ContentType
	}
	if props.ContentLength != nil {
		meta.Size = *props.ContentLength
	}
	return meta, nil
}

// SetMetadata merges patch over the current metadata; Azure's SetMetadata
// replaces the whole map, so the union is computed here first.
func (o *azureObject) SetMetadata(ctx context.Context, patch map[string]string) error {
	current, err := o.Metadata(ctx)
	if err != nil {
		return err
	}
	merged := mergeMetadata(current.Custom, patch)
	md := make(map[string]*string, len(merged))
	for k, v := range merged {
		v := v
		md[k] = &v
	}
	if _, err := o.client.SetMetadata(ctx, md, nil); err != nil {
		return fmt.Errorf("set metadata on %s: %w", o.Path(), err)
	}
	return nil
}

func (o *azureObject) Download(ctx context.Context, sink DownloadSink, cacheTTL time.Duration) error {
	meta, err := o.Metadata(ctx)
	if err != nil {
		return err
	}
	resp, err := o.client.DownloadStream(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("download %s: %w", o.Path(), err)
	}
	return streamTo(sink, o.Path(), meta, cacheTTL, resp.Body)
}

func (o *azureObject) Delete(ctx context.Context) error {
	if _, err := o.client.Delete(ctx, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("delete %s: %w", o.Path(), err)
	}
	return nil
}
