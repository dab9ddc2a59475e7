// Package media implements the photo ingestion pipeline. Two paths converge
// on one storage contract: remote-URL ingestion (fetch then store) and direct
// multipart ingestion (store each uploaded file). Both return public
// stored-object references and never leak local paths.
package media

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/patric-chuzhbe/staybook/internal/mediastore"
	"github.com/patric-chuzhbe/staybook/internal/models"
)

// MaxUploadFiles caps the number of files a single multipart request may
// carry.
const MaxUploadFiles = 100

// Upload is one file received via multipart ingestion.
type Upload struct {
	Data             []byte
	OriginalFilename string
	ContentType      string
}

// Ingestor normalizes both ingestion paths into stored-object references.
type Ingestor struct {
	store      mediastore.Store
	httpClient *resty.Client
	timeout    time.Duration
}

// New builds an Ingestor over the given backend. timeout bounds the remote
// fetch and every backend write, the only externally latent operations.
func New(store mediastore.Store, timeout time.Duration) *Ingestor {
	return &Ingestor{
		store:      store,
		httpClient: resty.New().SetTimeout(timeout),
		timeout:    timeout,
	}
}

// IngestFromURL downloads the photo behind link and stores it. The stored
// name is derived from the current timestamp with a fixed .jpg extension;
// non-JPEG sources are knowingly mislabeled (content sniffing is out of
// scope for this path).
func (i *Ingestor) IngestFromURL(ctx context.Context, link string) (string, error) {
	response, err := i.httpClient.R().SetContext(ctx).Get(link)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrUpstreamFetch, err)
	}
	if response.IsError() {
		return "", fmt.Errorf("%w: status %d", models.ErrUpstreamFetch, response.StatusCode())
	}

	name := fmt.Sprintf("photo%d.jpg", time.Now().UnixMilli())

	saveCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	return i.store.Save(saveCtx, response.Body(), name, "image/jpeg")
}

// IngestUploads stores every uploaded file and returns their public
// references in input order.
func (i *Ingestor) IngestUploads(ctx context.Context, uploads []Upload) ([]string, error) {
	if len(uploads) > MaxUploadFiles {
		return nil, fmt.Errorf("at most %d files per upload", MaxUploadFiles)
	}

	references := make([]string, 0, len(uploads))
	for _, upload := range uploads {
		reference, err := i.saveUpload(ctx, upload)
		if err != nil {
			return nil, err
		}
		references = append(references, reference)
	}

	return references, nil
}

func (i *Ingestor) saveUpload(ctx context.Context, upload Upload) (string, error) {
	saveCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	return i.store.Save(saveCtx, upload.Data, DeriveStoredName(upload.OriginalFilename), upload.ContentType)
}

// DeriveStoredName builds a collision-resistant stored name from the current
// timestamp, a random fragment and the original file extension. The original
// extension is always preserved.
func DeriveStoredName(originalFilename string) string {
	return fmt.Sprintf(
		"%d-%s%s",
		time.Now().UnixMilli(),
		uuid.New().String()[:8],
		filepath.Ext(originalFilename),
	)
}
