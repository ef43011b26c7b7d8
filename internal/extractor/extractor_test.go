package extractor

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_PlainText(t *testing.T) {
	e := New(5)
	text, err := e.Extract([]byte("Hello world, this is a document."), "txt")
	require.NoError(t, err)
	assert.Equal(t, "Hello world, this is a document.", text)
}

func TestExtract_FormatAliases(t *testing.T) {
	e := New(5)
	for _, format := range []string{"txt", ".txt", "TXT", " .TXT "} {
		text, err := e.Extract([]byte("Aliased format content."), format)
		require.NoError(t, err, "format %q", format)
		assert.Equal(t, "Aliased format content.", text)
	}
}

func TestExtract_NormalizesLineEndings(t *testing.T) {
	e := New(5)
	text, err := e.Extract([]byte("line one\r\nline two\r\n\r\n\r\n\r\nline three"), "txt")
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n\nline three", text)
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	e := New(5)
	_, err := e.Extract([]byte("binary stuff"), "exe")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtract_EmptyContent(t *testing.T) {
	e := New(10)
	_, err := e.Extract([]byte("   \n  "), "txt")
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = e.Extract([]byte("tiny"), "txt")
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestExtract_Markdown(t *testing.T) {
	e := New(5)
	src := "# Getting Started\n\nInstall the *service* and run `make`.\n\n```\ngo run .\n```\n"
	text, err := e.Extract([]byte(src), "md")
	require.NoError(t, err)

	assert.Contains(t, text, "Getting Started")
	assert.Contains(t, text, "Install the service and run make.")
	assert.Contains(t, text, "go run .")
	assert.NotContains(t, text, "#")
	assert.NotContains(t, text, "*")
	assert.NotContains(t, text, "```")
}

func TestExtract_CodeFilesAsPlainText(t *testing.T) {
	e := New(5)
	for _, format := range []string{"json", "py", "go", "ts"} {
		require.True(t, e.Supported(format), "format %q", format)
	}
	text, err := e.Extract([]byte("func main() { println(42) }"), "go")
	require.NoError(t, err)
	assert.Equal(t, "func main() { println(42) }", text)
}

func TestExtract_PPTX(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	slide, err := w.Create("ppt/slides/slide1.xml")
	require.NoError(t, err)
	_, err = slide.Write([]byte(`<p:sp><a:t>Quarterly</a:t><a:t>results overview</a:t></p:sp>`))
	require.NoError(t, err)
	other, err := w.Create("ppt/theme/theme1.xml")
	require.NoError(t, err)
	_, err = other.Write([]byte(`<a:t>ignored theme text</a:t>`))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	e := New(5)
	text, err := e.Extract(buf.Bytes(), "pptx")
	require.NoError(t, err)
	assert.Equal(t, "Quarterly results overview", text)
}

func TestSupported(t *testing.T) {
	e := New(5)
	assert.True(t, e.Supported("pdf"))
	assert.True(t, e.Supported(".DOCX"))
	assert.True(t, e.Supported("md"))
	assert.False(t, e.Supported("mp4"))
	assert.False(t, e.Supported(""))
}

func TestXMLTagText(t *testing.T) {
	xml := `<w:p><w:t>Hello</w:t><w:t xml:space="preserve"> world</w:t></w:p>`
	assert.Equal(t, "Hello  world", xmlTagText(xml, "w:t"))
	assert.Equal(t, "", xmlTagText("<none/>", "w:t"))
}

func TestSplitXMLText(t *testing.T) {
	xml := `<w:p><w:t>one</w:t></w:p><w:p><w:t>two</w:t></w:p>`
	parts := splitXMLText(xml, "w:p")
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0], "one")
	assert.Contains(t, parts[1], "two")
}
