package google

import (
	"context"
	"slices"
	"strings"

	"github.com/dukex/docflow/pkg/documents"
	"github.com/dukex/docflow/pkg/tags"
	"google.golang.org/api/slides/v1"
)

// SlidesEditor edits Google Slides presentations.
type SlidesEditor struct {
	driveFiles

	presentations *slides.PresentationsService
}

// NewSlidesEditor creates an editor for Google Slides files.
func NewSlidesEditor(services *Services) *SlidesEditor {
	return &SlidesEditor{
		driveFiles: driveFiles{
			files:   services.Drive.Files,
			editURL: "https://docs.google.com/presentation/d/%s/edit",
		},
		presentations: services.Slides.Presentations,
	}
}

func (e *SlidesEditor) ExtractTags(ctx context.Context, fileID string) ([]string, error) {
	presentation, err := e.presentations.Get(fileID).Context(ctx).Do()
	if err != nil {
		return nil, backendError("ExtractTags", fileID, err)
	}

	return boxTags(textBoxes(presentation)), nil
}

// boxTags extracts tags box by box. A token split across two boxes is not a tag,
// since substitution rewrites each box on its own.
func boxTags(boxes []textBox) []string {
	var found []string
	for _, box := range boxes {
		found = append(found, tags.Extract(box.text)...)
	}

	slices.Sort(found)

	return slices.Compact(found)
}

// SubstituteTags rewrites every text box containing tags. Slides addresses text by
// index, so all requests are computed from the fetched snapshot and sent in one batch.
func (e *SlidesEditor) SubstituteTags(ctx context.Context, fileID string, binding *tags.Binding) error {
	presentation, err := e.presentations.Get(fileID).Context(ctx).Do()
	if err != nil {
		return backendError("SubstituteTags", fileID, err)
	}

	requests := rewriteRequests(textBoxes(presentation), binding)
	if len(requests) == 0 {
		return nil
	}

	_, err = e.presentations.BatchUpdate(fileID, &slides.BatchUpdatePresentationRequest{Requests: requests}).
		Context(ctx).
		Do()
	if err != nil {
		return backendError("SubstituteTags", fileID, err)
	}

	return nil
}

// textBox is the full text of a shape or table cell.
type textBox struct {
	objectID string
	cell     *slides.TableCellLocation
	text     string
}

func textBoxes(presentation *slides.Presentation) []textBox {
	var boxes []textBox

	for _, page := range presentation.Slides {
		boxes = appendElementBoxes(boxes, page.PageElements)
	}

	return boxes
}

func appendElementBoxes(boxes []textBox, elements []*slides.PageElement) []textBox {
	for _, element := range elements {
		switch {
		case element.Shape != nil && element.Shape.Text != nil:
			boxes = append(boxes, textBox{objectID: element.ObjectId, text: joinRuns(element.Shape.Text)})
		case element.Table != nil:
			for _, row := range element.Table.TableRows {
				for _, cell := range row.TableCells {
					if cell.Text == nil {
						continue
					}

					boxes = append(boxes, textBox{
						objectID: element.ObjectId,
						cell:     cell.Location,
						text:     joinRuns(cell.Text),
					})
				}
			}
		case element.ElementGroup != nil:
			boxes = appendElementBoxes(boxes, element.ElementGroup.Children)
		}
	}

	return boxes
}

func joinRuns(content *slides.TextContent) string {
	var b strings.Builder

	for _, te := range content.TextElements {
		if te.TextRun != nil {
			b.WriteString(te.TextRun.Content)
		}
	}

	return b.String()
}

// rewriteRequests replaces the text of each box holding tags with its rendered text.
// The trailing newline Slides keeps at the end of every text box is not reinserted.
func rewriteRequests(boxes []textBox, binding *tags.Binding) []*slides.Request {
	var requests []*slides.Request

	for _, box := range boxes {
		if len(tags.Extract(box.text)) == 0 {
			continue
		}

		rendered := strings.TrimSuffix(binding.Apply(box.text), "\n")

		requests = append(requests, &slides.Request{
			DeleteText: &slides.DeleteTextRequest{
				ObjectId:     box.objectID,
				CellLocation: box.cell,
				TextRange:    &slides.Range{Type: "ALL"},
			},
		})

		if rendered == "" {
			continue
		}

		requests = append(requests, &slides.Request{
			InsertText: &slides.InsertTextRequest{
				ObjectId:        box.objectID,
				CellLocation:    box.cell,
				InsertionIndex:  0,
				Text:            rendered,
				ForceSendFields: []string{"InsertionIndex"},
			},
		})
	}

	return requests
}

var _ documents.Editor = (*SlidesEditor)(nil)
