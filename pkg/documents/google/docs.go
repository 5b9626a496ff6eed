package google

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/dukex/docflow/pkg/documents"
	"github.com/dukex/docflow/pkg/tags"
	"google.golang.org/api/docs/v1"
)

// DocsEditor edits Google Docs documents.
type DocsEditor struct {
	driveFiles

	documents *docs.DocumentsService
}

// NewDocsEditor creates an editor for Google Docs files.
func NewDocsEditor(services *Services) *DocsEditor {
	return &DocsEditor{
		driveFiles: driveFiles{
			files:   services.Drive.Files,
			editURL: "https://docs.google.com/document/d/%s/edit",
		},
		documents: services.Docs.Documents,
	}
}

func (e *DocsEditor) ExtractTags(ctx context.Context, fileID string) ([]string, error) {
	doc, err := e.documents.Get(fileID).Context(ctx).Do()
	if err != nil {
		return nil, backendError("ExtractTags", fileID, err)
	}

	return tags.Extract(documentText(doc)), nil
}

// SubstituteTags issues one batchUpdate with a ReplaceAllText request per tag.
func (e *DocsEditor) SubstituteTags(ctx context.Context, fileID string, binding *tags.Binding) error {
	doc, err := e.documents.Get(fileID).Context(ctx).Do()
	if err != nil {
		return backendError("SubstituteTags", fileID, err)
	}

	requests := replaceRequests(tags.Extract(documentText(doc)), binding)
	if len(requests) == 0 {
		return nil
	}

	_, err = e.documents.BatchUpdate(fileID, &docs.BatchUpdateDocumentRequest{Requests: requests}).
		Context(ctx).
		Do()
	if err != nil {
		return backendError("SubstituteTags", fileID, err)
	}

	return nil
}

// replaceRequests builds the ReplaceAllText requests of a binding. Docs applies them in
// order, so when a value holds another tag's token every token is first swapped for a
// placeholder and the values are written in a second pass.
func replaceRequests(rawTags []string, binding *tags.Binding) []*docs.Request {
	replacements := binding.Replacements(rawTags)

	tokens := make([]string, 0, len(replacements))
	for token := range replacements {
		tokens = append(tokens, token)
	}

	slices.Sort(tokens)

	if !reinjectsTokens(tokens, replacements) {
		requests := make([]*docs.Request, 0, len(tokens))
		for _, token := range tokens {
			requests = append(requests, replaceAllText(token, replacements[token]))
		}

		return requests
	}

	requests := make([]*docs.Request, 0, 2*len(tokens))
	for i, token := range tokens {
		requests = append(requests, replaceAllText(token, placeholder(i)))
	}

	for i, token := range tokens {
		requests = append(requests, replaceAllText(placeholder(i), replacements[token]))
	}

	return requests
}

func reinjectsTokens(tokens []string, replacements map[string]string) bool {
	for _, value := range replacements {
		for _, token := range tokens {
			if strings.Contains(value, token) {
				return true
			}
		}
	}

	return false
}

// placeholder is built from private-use code points.
func placeholder(i int) string {
	return "\uE000" + strconv.Itoa(i) + "\uE001"
}

func replaceAllText(text, replacement string) *docs.Request {
	return &docs.Request{
		ReplaceAllText: &docs.ReplaceAllTextRequest{
			ContainsText: &docs.SubstringMatchCriteria{Text: text, MatchCase: true},
			ReplaceText:  replacement,
			// empty replacements must still be sent
			ForceSendFields: []string{"ReplaceText"},
		},
	}
}

// documentText flattens body, headers, footers and footnotes, recursing into tables.
func documentText(doc *docs.Document) string {
	var b strings.Builder

	if doc.Body != nil {
		writeElements(&b, doc.Body.Content)
	}

	for _, header := range doc.Headers {
		writeElements(&b, header.Content)
	}

	for _, footer := range doc.Footers {
		writeElements(&b, footer.Content)
	}

	for _, footnote := range doc.Footnotes {
		writeElements(&b, footnote.Content)
	}

	return b.String()
}

func writeElements(b *strings.Builder, elements []*docs.StructuralElement) {
	for _, element := range elements {
		switch {
		case element.Paragraph != nil:
			for _, pe := range element.Paragraph.Elements {
				if pe.TextRun != nil {
					b.WriteString(pe.TextRun.Content)
				}
			}
		case element.Table != nil:
			for _, row := range element.Table.TableRows {
				for _, cell := range row.TableCells {
					writeElements(b, cell.Content)
				}
			}
		case element.TableOfContents != nil:
			writeElements(b, element.TableOfContents.Content)
		}
	}
}

var _ documents.Editor = (*DocsEditor)(nil)
