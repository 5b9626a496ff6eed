// Package google implements document editors on top of Google Drive, Docs and Slides.
package google

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dukex/docflow/pkg/documents"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/slides/v1"
)

const pdfMimeType = "application/pdf"

// Services groups the Google API clients shared by the editors.
type Services struct {
	Drive  *drive.Service
	Docs   *docs.Service
	Slides *slides.Service
}

// NewServices builds API clients from service account or authorized user credentials.
// timeout bounds every outbound request.
func NewServices(ctx context.Context, credentialsJSON []byte, timeout time.Duration) (*Services, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON,
		drive.DriveScope, docs.DocumentsScope, slides.PresentationsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse google credentials: %w", err)
	}

	client := oauth2.NewClient(ctx, creds.TokenSource)
	client.Timeout = timeout

	return NewServicesWithOptions(ctx, option.WithHTTPClient(client))
}

// NewServicesWithOptions builds API clients with explicit client options.
func NewServicesWithOptions(ctx context.Context, opts ...option.ClientOption) (*Services, error) {
	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	docsService, err := docs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docs service: %w", err)
	}

	slidesService, err := slides.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create slides service: %w", err)
	}

	return &Services{Drive: driveService, Docs: docsService, Slides: slidesService}, nil
}

// driveFiles holds the Drive operations common to every Google editor.
type driveFiles struct {
	files *drive.FilesService
	// editURL formats the edit link of a copied file.
	editURL string
}

func (d *driveFiles) CopyTemplate(ctx context.Context, templateFileID, name, folderID string) (*documents.File, error) {
	body := &drive.File{Name: name}
	if folderID != "" {
		body.Parents = []string{folderID}
	}

	copied, err := d.files.Copy(templateFileID, body).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return nil, backendError("CopyTemplate", templateFileID, err)
	}

	return &documents.File{ID: copied.Id, URL: fmt.Sprintf(d.editURL, copied.Id)}, nil
}

func (d *driveFiles) ExportPDF(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := d.files.Export(fileID, pdfMimeType).Context(ctx).Download()
	if err != nil {
		return nil, backendError("ExportPDF", fileID, err)
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, backendError("ExportPDF", fileID, err)
	}

	return content, nil
}

func (d *driveFiles) UploadPDF(ctx context.Context, name, folderID string, content []byte) (*documents.File, error) {
	body := &drive.File{Name: name, MimeType: pdfMimeType}
	if folderID != "" {
		body.Parents = []string{folderID}
	}

	created, err := d.files.Create(body).
		Media(bytes.NewReader(content), googleapi.ContentType(pdfMimeType)).
		SupportsAllDrives(true).
		Fields("id", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return nil, backendError("UploadPDF", "", err)
	}

	url := created.WebViewLink
	if url == "" {
		url = fmt.Sprintf("https://drive.google.com/file/d/%s/view", created.Id)
	}

	return &documents.File{ID: created.Id, URL: url}, nil
}

func backendError(op, fileID string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		err = fmt.Errorf("%w: %s", documents.ErrNotFound, apiErr.Message)
	}

	return documents.NewBackendError(op, fileID, err)
}
