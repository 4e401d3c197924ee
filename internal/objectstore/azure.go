package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// Azure reads blobs from one Azure Blob Storage container.
type Azure struct {
	client    *azblob.Client
	container string
}

// NewAzure connects with a storage account connection string.
func NewAzure(connectionString, container string) (*Azure, error) {
	if connectionString == "" {
		return nil, errors.New("objectstore: azure connection string is required")
	}
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("objectstore: azure client: %w", err)
	}
	return &Azure{client: client, container: container}, nil
}

func (a *Azure) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := a.client.DownloadStream(ctx, a.container, key, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("azure download %s: %w", key, err)
	}
	return resp.Body, nil
}

func (a *Azure) Exists(ctx context.Context, key string) (bool, error) {
	blob := a.client.ServiceClient().NewContainerClient(a.container).NewBlobClient(key)
	if _, err := blob.GetProperties(ctx, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("azure properties %s: %w", key, err)
	}
	return true, nil
}

func (a *Azure) Location() string {
	return "azure://" + a.container
}
