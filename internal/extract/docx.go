package extract

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"strings"

	"parafile/internal/services"
)

// extractDOCX reads word/document.xml out of the docx archive and joins the
// paragraph texts with newlines. Runs inside a paragraph concatenate without
// separators, matching how word processors display them.
func extractDOCX(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", services.Wrap(services.ErrExtraction, "extract", "open docx", "not a valid docx archive", err)
	}
	defer archive.Close()

	var document *zip.File
	for _, file := range archive.File {
		if file.Name == "word/document.xml" {
			document = file
			break
		}
	}
	if document == nil {
		return "", services.Wrap(services.ErrExtraction, "extract", "open docx", "archive missing word/document.xml", nil)
	}

	reader, err := document.Open()
	if err != nil {
		return "", services.Wrap(services.ErrExtraction, "extract", "read docx", "unreadable document part", err)
	}
	defer reader.Close()

	text, err := docxParagraphs(reader)
	if err != nil {
		return "", services.Wrap(services.ErrExtraction, "extract", "parse docx", "malformed document xml", err)
	}
	return text, nil
}

func docxParagraphs(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)

	var (
		out       strings.Builder
		paragraph strings.Builder
		inText    bool
		wrote     bool
	)

	flush := func() {
		if paragraph.Len() == 0 {
			return
		}
		if wrote {
			out.WriteByte('\n')
		}
		out.WriteString(paragraph.String())
		paragraph.Reset()
		wrote = true
	}

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch tok := token.(type) {
		case xml.StartElement:
			switch tok.Name.Local {
			case "t":
				inText = true
			case "tab":
				paragraph.WriteByte('\t')
			case "br":
				paragraph.WriteByte('\n')
			}
		case xml.EndElement:
			switch tok.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				paragraph.Write(tok)
			}
		}
	}
	flush()
	return out.String(), nil
}
