package parser

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"document-qa/internal/config"
)

const (
	defaultChunkSize    = config.DefaultChunkSize
	defaultChunkOverlap = config.DefaultChunkOverlap
)

// Splitter turns extracted text into ordered chunks.
type Splitter interface {
	Split(content string) ([]string, error)
	// Signature identifies the splitter configuration; chunks produced under
	// different signatures are not interchangeable.
	Signature() string
}

// NewSplitter builds the splitter named in the RAG config.
func NewSplitter(cfg config.RAGConfig) (Splitter, error) {
	size, overlap := normalize(cfg.ChunkSize, cfg.ChunkOverlap)
	switch cfg.Splitter {
	case "", "window":
		return WindowSplitter{Size: size, Overlap: overlap}, nil
	case "recursive":
		return RecursiveSplitter{Size: size, Overlap: overlap}, nil
	default:
		return nil, fmt.Errorf("unknown splitter %q", cfg.Splitter)
	}
}

func normalize(size, overlap int) (int, int) {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return size, overlap
}

// WindowSplitter cuts fixed windows of Size runes, each starting Size-Overlap
// runes after the previous one. It ignores sentence and word boundaries.
type WindowSplitter struct {
	Size    int
	Overlap int
}

func (s WindowSplitter) Split(content string) ([]string, error) {
	return chunkContent(content, s.Size, s.Overlap), nil
}

func (s WindowSplitter) Signature() string {
	return fmt.Sprintf("window:%d:%d", s.Size, s.Overlap)
}

// RecursiveSplitter prefers paragraph, line and word boundaries.
type RecursiveSplitter struct {
	Size    int
	Overlap int
}

func (s RecursiveSplitter) Split(content string) ([]string, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(s.Size),
		textsplitter.WithChunkOverlap(s.Overlap),
	)
	chunks, err := splitter.SplitText(content)
	if err != nil {
		return nil, fmt.Errorf("splitting text: %w", err)
	}
	return chunks, nil
}

func (s RecursiveSplitter) Signature() string {
	return fmt.Sprintf("recursive:%d:%d", s.Size, s.Overlap)
}

// chunk content into windows of maxChars runes overlapping by overlapChars
func chunkContent(content string, maxChars, overlapChars int) []string {
	maxChars, overlapChars = normalize(maxChars, overlapChars)
	if strings.TrimSpace(content) == "" {
		return nil
	}

	runes := []rune(content)
	contentLen := len(runes)

	// If content is shorter than maxChars, return it as a single chunk
	if contentLen <= maxChars {
		return []string{content}
	}

	stride := maxChars - overlapChars
	chunks := make([]string, 0, (contentLen-overlapChars+stride-1)/stride)
	for start := 0; ; start += stride {
		end := min(start+maxChars, contentLen)
		chunks = append(chunks, string(runes[start:end]))
		if end == contentLen {
			break
		}
	}
	return chunks
}

// getCompleteContent rebuilds the text a window splitter consumed: the first
// chunk whole, then every later chunk without its leading overlapChars runes.
func getCompleteContent(chunks []string, overlapChars int) string {
	var content strings.Builder
	for i, chunk := range chunks {
		if i == 0 {
			content.WriteString(chunk)
			continue
		}
		runes := []rune(chunk)
		if len(runes) > overlapChars {
			content.WriteString(string(runes[overlapChars:]))
		}
	}
	return content.String()
}
