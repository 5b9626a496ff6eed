package mocks

import (
	"context"

	"github.com/dukex/docflow/pkg/documents"
	"github.com/dukex/docflow/pkg/tags"
	"github.com/stretchr/testify/mock"
)

// MockEditor is a mock implementation of documents.Editor interface.
type MockEditor struct {
	mock.Mock
}

func (m *MockEditor) CopyTemplate(ctx context.Context, templateFileID, name, folderID string) (*documents.File, error) {
	args := m.Called(ctx, templateFileID, name, folderID)

	file, _ := args.Get(0).(*documents.File)

	return file, args.Error(1)
}

func (m *MockEditor) ExtractTags(ctx context.Context, fileID string) ([]string, error) {
	args := m.Called(ctx, fileID)

	found, _ := args.Get(0).([]string)

	return found, args.Error(1)
}

func (m *MockEditor) SubstituteTags(ctx context.Context, fileID string, binding *tags.Binding) error {
	args := m.Called(ctx, fileID, binding)

	return args.Error(0)
}

func (m *MockEditor) ExportPDF(ctx context.Context, fileID string) ([]byte, error) {
	args := m.Called(ctx, fileID)

	content, _ := args.Get(0).([]byte)

	return content, args.Error(1)
}

func (m *MockEditor) UploadPDF(ctx context.Context, name, folderID string, content []byte) (*documents.File, error) {
	args := m.Called(ctx, name, folderID, content)

	file, _ := args.Get(0).(*documents.File)

	return file, args.Error(1)
}
