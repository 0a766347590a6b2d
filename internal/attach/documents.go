package attach

import (
	"fmt"
	"strings"

	"rsc.io/pdf"
)

// LoadDocument extracts the text of every page of the PDF at path.
func LoadDocument(path string) (string, error) {
	file, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}

	var text strings.Builder
	for i := 1; i <= file.NumPage(); i++ {
		page := file.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, t := range page.Content().Text {
			text.WriteString(t.S)
		}
		text.WriteString("\n")
	}

	return text.String(), nil
}

// WrapInXMLTags wraps text in <tag></tag> so the model can tell the document
// apart from the instructions around it.
func WrapInXMLTags(text, tag string) string {
	return fmt.Sprintf("<%s>%s</%s>", tag, text, tag)
}
