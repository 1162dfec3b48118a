package materials

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/sales-consultant/pkg/logger"
)

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

	packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

	documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`
)

// writeDOCX writes a minimal WordprocessingML package with one w:p per paragraph.
func writeDOCX(t *testing.T, dir, name string, paragraphs ...string) string {
	t.Helper()

	var body bytes.Buffer
	for _, p := range paragraphs {
		fmt.Fprintf(&body, `<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, p)
	}
	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, part := range []struct{ name, content string }{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", packageRelsXML},
		{"word/_rels/document.xml.rels", documentRelsXML},
		{"word/document.xml", document},
	} {
		w, err := zw.Create(part.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(part.content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// writePDF writes a single-page PDF that draws text in Helvetica.
func writePDF(t *testing.T, dir, name, text string) string {
	t.Helper()

	stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestExtractDOCX(t *testing.T) {
	path := writeDOCX(t, t.TempDir(), "guia.docx", "Método de vendas", "Ouça o cliente")

	text, err := ExtractDOCX(path)
	require.NoError(t, err)
	assert.Equal(t, "Método de vendas\nOuça o cliente", text)
}

func TestExtractDOCX_NotAZip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "quebrado.docx", "plain text")

	_, err := ExtractDOCX(filepath.Join(dir, "quebrado.docx"))
	assert.Error(t, err)
}

func TestDocumentText_TabsAndBreaks(t *testing.T) {
	text, err := documentText(`<w:document xmlns:w="w"><w:body>` +
		`<w:p><w:r><w:t>Preço</w:t><w:tab/><w:t>R$ 10</w:t><w:br/><w:t>à vista</w:t></w:r></w:p>` +
		`</w:body></w:document>`)
	require.NoError(t, err)
	assert.Equal(t, "Preço\tR$ 10\nà vista", text)
}

func TestExtractPDF(t *testing.T) {
	path := writePDF(t, t.TempDir(), "manual.pdf", "Metodo de vendas")

	text, err := ExtractPDF(path)
	require.NoError(t, err)
	assert.Contains(t, text, "Metodo de vendas")
}

func TestLoader_ReadsDOCXAndPDF(t *testing.T) {
	dir := t.TempDir()
	writeDOCX(t, dir, "a_guia.docx", "Método de vendas consultivas")
	writePDF(t, dir, "b_manual.pdf", "Metodo de vendas")

	corpus := NewLoader(logger.NewNop()).Load(context.Background(), dir)

	assert.Empty(t, corpus.Skipped)
	require.Len(t, corpus.Files, 2)
	assert.Contains(t, corpus.Text, "Método de vendas consultivas")
	assert.Contains(t, corpus.Text, "Metodo de vendas")
	assert.Positive(t, corpus.Tokens)
}
