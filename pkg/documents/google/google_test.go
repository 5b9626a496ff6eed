package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukex/docflow/pkg/documents"
	"github.com/dukex/docflow/pkg/tags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/slides/v1"
)

func testServices(t *testing.T, handler http.Handler) *Services {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	services, err := NewServicesWithOptions(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)

	return services
}

func TestDocumentText(t *testing.T) {
	doc := &docs.Document{
		Body: &docs.Body{Content: []*docs.StructuralElement{
			{Paragraph: &docs.Paragraph{Elements: []*docs.ParagraphElement{
				{TextRun: &docs.TextRun{Content: "Hello {{client_name}}\n"}},
			}}},
			{Table: &docs.Table{TableRows: []*docs.TableRow{{
				TableCells: []*docs.TableCell{{Content: []*docs.StructuralElement{
					{Paragraph: &docs.Paragraph{Elements: []*docs.ParagraphElement{
						{TextRun: &docs.TextRun{Content: "{{total}}"}},
					}}},
				}}},
			}}}},
		}},
	}

	assert.Equal(t, []string{"client_name", "total"}, tags.Extract(documentText(doc)))
}

func TestReplaceRequests(t *testing.T) {
	binding := tags.NewBinding(map[string]any{"name": "Acme"}, nil)

	requests := replaceRequests([]string{"name", "missing"}, binding)
	require.Len(t, requests, 2)

	assert.Equal(t, "{{missing}}", requests[0].ReplaceAllText.ContainsText.Text)
	assert.Equal(t, "", requests[0].ReplaceAllText.ReplaceText)
	assert.True(t, requests[0].ReplaceAllText.ContainsText.MatchCase)
	assert.Equal(t, "{{name}}", requests[1].ReplaceAllText.ContainsText.Text)
	assert.Equal(t, "Acme", requests[1].ReplaceAllText.ReplaceText)

	body, err := json.Marshal(requests[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), `"replaceText":""`)
}

// applyReplaceAll runs ReplaceAllText requests over text in order, the way Docs does.
func applyReplaceAll(text string, requests []*docs.Request) string {
	for _, request := range requests {
		replace := request.ReplaceAllText
		text = strings.ReplaceAll(text, replace.ContainsText.Text, replace.ReplaceText)
	}

	return text
}

func TestReplaceRequests_ValueHoldingAnotherToken(t *testing.T) {
	template := "Client: {{client}} Total: {{total}}"
	binding := tags.NewBinding(map[string]any{"client": "ACME {{total}} Ltd", "total": "100"}, nil)

	requests := replaceRequests(tags.Extract(template), binding)
	require.Len(t, requests, 4)

	assert.Equal(t, binding.Apply(template), applyReplaceAll(template, requests))
	assert.Equal(t, "Client: ACME {{total}} Ltd Total: 100", applyReplaceAll(template, requests))
}

func TestReplaceRequests_PlainValuesUseOnePass(t *testing.T) {
	template := "{{a}} {{b}} {{c}}"
	binding := tags.NewBinding(map[string]any{"a": "x", "b": "{{unknown}}", "c": ""}, nil)

	requests := replaceRequests(tags.Extract(template), binding)
	require.Len(t, requests, 3)
	assert.Equal(t, "x {{unknown}} ", applyReplaceAll(template, requests))
}

func TestRewriteRequests(t *testing.T) {
	presentation := &slides.Presentation{Slides: []*slides.Page{{
		PageElements: []*slides.PageElement{
			{ObjectId: "title", Shape: &slides.Shape{Text: &slides.TextContent{TextElements: []*slides.TextElement{
				{TextRun: &slides.TextRun{Content: "Proposal for "}},
				{TextRun: &slides.TextRun{Content: "{{client_name}}\n"}},
			}}}},
			{ObjectId: "plain", Shape: &slides.Shape{Text: &slides.TextContent{TextElements: []*slides.TextElement{
				{TextRun: &slides.TextRun{Content: "No tags\n"}},
			}}}},
			{ObjectId: "group", ElementGroup: &slides.Group{Children: []*slides.PageElement{
				{ObjectId: "grid", Table: &slides.Table{TableRows: []*slides.TableRow{{
					TableCells: []*slides.TableCell{{
						Location: &slides.TableCellLocation{RowIndex: 1, ColumnIndex: 2},
						Text: &slides.TextContent{TextElements: []*slides.TextElement{
							{TextRun: &slides.TextRun{Content: "{{missing}}\n"}},
						}},
					}},
				}}}},
			}}},
		},
	}}}

	binding := tags.NewBinding(map[string]any{"client": "Acme"}, []tags.Mapping{{Tag: "client_name", Field: "client"}})
	requests := rewriteRequests(textBoxes(presentation), binding)

	require.Len(t, requests, 3)
	assert.Equal(t, "title", requests[0].DeleteText.ObjectId)
	assert.Equal(t, "ALL", requests[0].DeleteText.TextRange.Type)
	assert.Equal(t, "Proposal for Acme", requests[1].InsertText.Text)
	assert.Equal(t, "grid", requests[2].DeleteText.ObjectId)
	assert.Equal(t, int64(2), requests[2].DeleteText.CellLocation.ColumnIndex)
}

func TestDocsEditor_SubstituteTags(t *testing.T) {
	var batch docs.BatchUpdateDocumentRequest

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/documents/doc-1", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(&docs.Document{
			DocumentId: "doc-1",
			Body: &docs.Body{Content: []*docs.StructuralElement{
				{Paragraph: &docs.Paragraph{Elements: []*docs.ParagraphElement{
					{TextRun: &docs.TextRun{Content: "Dear {{client_name}}"}},
				}}},
			}},
		})
	})
	mux.HandleFunc("/v1/documents/doc-1:batchUpdate", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &batch)
		_, _ = w.Write([]byte(`{"documentId":"doc-1"}`))
	})
	mux.HandleFunc("/v1/documents/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found."}}`))
	})

	editor := NewDocsEditor(testServices(t, mux))
	binding := tags.NewBinding(map[string]any{"contact": map[string]any{"name": "Acme"}},
		[]tags.Mapping{{Tag: "client_name", Field: "contact.name"}})

	require.NoError(t, editor.SubstituteTags(context.Background(), "doc-1", binding))
	require.Len(t, batch.Requests, 1)
	assert.Equal(t, "Acme", batch.Requests[0].ReplaceAllText.ReplaceText)

	err := editor.SubstituteTags(context.Background(), "missing", binding)
	require.Error(t, err)
	assert.True(t, documents.IsNotFound(err))
	assert.True(t, strings.Contains(err.Error(), "SubstituteTags"))
}

func TestBoxTags(t *testing.T) {
	boxes := []textBox{
		{objectID: "a", text: "Total {{"},
		{objectID: "b", text: "amount}} for {{client}}"},
		{objectID: "c", text: "{{client}} and {{date}}\n"},
	}

	assert.Equal(t, []string{"client", "date"}, boxTags(boxes))
}

func TestSlidesEditor_ExtractTags(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/presentations/deck-1", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(&slides.Presentation{
			PresentationId: "deck-1",
			Slides: []*slides.Page{{PageElements: []*slides.PageElement{
				{ObjectId: "left", Shape: &slides.Shape{Text: &slides.TextContent{TextElements: []*slides.TextElement{
					{TextRun: &slides.TextRun{Content: "{{client"}},
				}}}},
				{ObjectId: "right", Shape: &slides.Shape{Text: &slides.TextContent{TextElements: []*slides.TextElement{
					{TextRun: &slides.TextRun{Content: "}} owes {{total}}\n"}},
				}}}},
			}}},
		})
	})

	editor := NewSlidesEditor(testServices(t, mux))

	found, err := editor.ExtractTags(context.Background(), "deck-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"total"}, found)
}
