package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dukex/docflow/pkg/documents"
	"github.com/dukex/docflow/pkg/tags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditor_CopyAndSubstitute(t *testing.T) {
	ctx := context.Background()
	editor := NewEditor("")
	editor.PutTemplate("tpl-1", "Proposal for {{client_name}}\nOwner: {{ owner }}\nTotal: {{total}}")

	copied, err := editor.CopyTemplate(ctx, "tpl-1", "Proposal - Acme", "folder-9")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(copied.URL, "memory://files/"))

	name, folder, ok := editor.Name(copied.ID)
	require.True(t, ok)
	assert.Equal(t, "Proposal - Acme", name)
	assert.Equal(t, "folder-9", folder)

	found, err := editor.ExtractTags(ctx, copied.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{" owner ", "client_name", "total"}, found)

	binding := tags.NewBinding(
		map[string]any{"contact": map[string]any{"name": "Acme"}, "owner": "Ana"},
		[]tags.Mapping{{Tag: "client_name", Field: "contact.name"}},
	)
	require.NoError(t, editor.SubstituteTags(ctx, copied.ID, binding))

	content, _ := editor.Content(copied.ID)
	assert.Equal(t, "Proposal for Acme\nOwner: Ana\nTotal: ", content)

	tmpl, _ := editor.Content("tpl-1")
	assert.Contains(t, tmpl, "{{client_name}}")
}

func TestEditor_Failures(t *testing.T) {
	ctx := context.Background()
	editor := NewEditor("")

	_, err := editor.CopyTemplate(ctx, "missing", "x", "")
	require.Error(t, err)
	assert.True(t, documents.IsNotFound(err))
	assert.True(t, documents.IsBackendError(err))

	editor.PutTemplate("tpl", "{{a}}")
	boom := errors.New("quota exceeded upstream")
	editor.FailOn(OpCopyTemplate, boom)

	_, err = editor.CopyTemplate(ctx, "tpl", "x", "")
	require.ErrorIs(t, err, boom)

	editor.FailOn(OpCopyTemplate, nil)
	_, err = editor.CopyTemplate(ctx, "tpl", "x", "")
	require.NoError(t, err)
	assert.Equal(t, 3, editor.Calls())
}

func TestEditor_PDF(t *testing.T) {
	ctx := context.Background()
	editor := NewEditor("https://files.test/")
	editor.PutTemplate("tpl", "hello")

	pdf, err := editor.ExportPDF(ctx, "tpl")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF-1.4"))

	uploaded, err := editor.UploadPDF(ctx, "hello.pdf", "folder", pdf)
	require.NoError(t, err)
	assert.Equal(t, "https://files.test/"+uploaded.ID, uploaded.URL)
}

func TestRegistry(t *testing.T) {
	registry := documents.NewRegistry()
	editor := NewEditor("")
	registry.Register("document", editor)

	got, err := registry.Get("")
	require.NoError(t, err)
	assert.Same(t, editor, got)

	_, err = registry.Get("spreadsheet")
	assert.ErrorIs(t, err, documents.ErrUnsupportedKind)
}
