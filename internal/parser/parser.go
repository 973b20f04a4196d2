package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/tmc/langchaingo/textsplitter"

	"pdf-rag/internal/models"
)

const (
	defaultChunkSize    = 1000 // runes
	defaultChunkOverlap = 200  // runes
	pageSeparator       = "\n\n"
)

// ParsedDocument is the plain text of a PDF plus what the registry needs to know about it
type ParsedDocument struct {
	Text  string
	Pages int
}

// Loader turns raw upload bytes into text
type Loader interface {
	Load(data []byte) (ParsedDocument, error)
}

// PDFLoader extracts text with ledongthuc/pdf
type PDFLoader struct{}

func (PDFLoader) Load(data []byte) (ParsedDocument, error) {
	return ParsePDF(bytes.NewReader(data), int64(len(data)))
}

// ParsePDF extracts the text of every page. The pdf reader panics on some
// malformed inputs, so panics are turned into ErrDocumentParse as well.
func ParsePDF(r io.ReaderAt, size int64) (doc ParsedDocument, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			doc = ParsedDocument{}
			err = fmt.Errorf("%w: malformed pdf: %v", models.ErrDocumentParse, rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return ParsedDocument{}, fmt.Errorf("%w: failed to open pdf: %v", models.ErrDocumentParse, err)
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return ParsedDocument{}, fmt.Errorf("%w: pdf has no pages", models.ErrDocumentParse)
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return ParsedDocument{}, fmt.Errorf("%w: failed to read page %d: %v", models.ErrDocumentParse, i, err)
		}
		if text := strings.TrimSpace(pageText); text != "" {
			pages = append(pages, text)
		}
	}

	text := strings.Join(pages, pageSeparator)
	if text == "" {
		return ParsedDocument{}, fmt.Errorf("%w: pdf contains no extractable text", models.ErrDocumentParse)
	}
	return ParsedDocument{Text: text, Pages: numPages}, nil
}

// Splitter cuts document text into overlapping chunks
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	splitter     textsplitter.RecursiveCharacter
}

func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = defaultChunkOverlap
		if chunkOverlap >= chunkSize {
			chunkOverlap = chunkSize / 5
		}
	}
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(models.ChunkSeparators),
			// separators count toward chunk length
			textsplitter.WithKeepSeparator(true),
		),
	}
}

func (s *Splitter) ChunkSize() int    { return s.chunkSize }
func (s *Splitter) ChunkOverlap() int { return s.chunkOverlap }

// Split returns the chunk sequence for text. The same text always yields the same chunks.
func (s *Splitter) Split(documentID, text string) ([]models.Chunk, error) {
	parts, err := s.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split %s: %v", documentID, err)
	}

	chunks := make([]models.Chunk, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{
			DocumentID: documentID,
			Index:      len(chunks),
			Content:    part,
		})
	}
	return chunks, nil
}

// ListPDFs returns the .pdf files directly inside dir, sorted by name
func ListPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}
