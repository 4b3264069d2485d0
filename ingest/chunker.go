package ingest

import "strings"

// ChunkerOption configures a Chunker.
type ChunkerOption func(*chunkerConfig)

type chunkerConfig struct {
	maxChars     int
	overlapChars int
}

func defaultChunkerConfig() chunkerConfig {
	return chunkerConfig{maxChars: 2048, overlapChars: 200}
}

// WithMaxChars sets the maximum characters per chunk. Default: 2048.
func WithMaxChars(n int) ChunkerOption {
	return func(c *chunkerConfig) { c.maxChars = n }
}

// WithOverlapChars sets the overlap between adjacent chunks. Default: 200.
func WithOverlapChars(n int) ChunkerOption {
	return func(c *chunkerConfig) { c.overlapChars = n }
}

// Chunker splits extracted text into overlapping chunks for keyword
// search. It splits on paragraph boundaries first, then sentences, then
// words, so chunks end at natural breaks whenever the text allows it.
type Chunker struct {
	maxChars     int
	overlapChars int
}

// NewChunker creates a Chunker with the given options.
func NewChunker(opts ...ChunkerOption) *Chunker {
	cfg := defaultChunkerConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Chunker{maxChars: cfg.maxChars, overlapChars: cfg.overlapChars}
}

// Chunk splits text into overlapping chunks.
func (c *Chunker) Chunk(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= c.maxChars {
		return []string{text}
	}
	segments := splitRecursive(text, c.maxChars)
	return mergeWithOverlap(segments, c.maxChars, c.overlapChars)
}

// splitRecursive breaks text into segments no longer than maxChars,
// preferring paragraph boundaries, then sentence ends, then spaces.
func splitRecursive(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= maxChars {
		return []string{text}
	}

	// Level 1: paragraph boundaries
	if paragraphs := strings.Split(text, "\n\n"); len(paragraphs) > 1 {
		var segments []string
		for _, p := range paragraphs {
			segments = append(segments, splitRecursive(p, maxChars)...)
		}
		return segments
	}

	// Level 2: sentence boundaries
	if sentences := splitSentences(text); len(sentences) > 1 {
		var segments []string
		for _, s := range sentences {
			segments = append(segments, splitRecursive(s, maxChars)...)
		}
		return segments
	}

	// Level 3: word boundaries, hard cut as a last resort
	var segments []string
	for len(text) > maxChars {
		cut := strings.LastIndexByte(text[:maxChars], ' ')
		if cut <= 0 {
			cut = maxChars
		}
		segments = append(segments, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		segments = append(segments, text)
	}
	return segments
}

// splitSentences splits on sentence-ending punctuation followed by a space.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		if (text[i] == '.' || text[i] == '!' || text[i] == '?') && text[i+1] == ' ' {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				sentences = append(sentences, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// mergeWithOverlap packs segments into chunks up to maxChars, carrying the
// tail of each chunk into the next for context continuity.
func mergeWithOverlap(segments []string, maxChars, overlapChars int) []string {
	var chunks []string
	var current strings.Builder
	for _, seg := range segments {
		if current.Len() > 0 && current.Len()+1+len(seg) > maxChars {
			chunk := current.String()
			chunks = append(chunks, chunk)
			current.Reset()
			if overlapChars > 0 && len(chunk) > overlapChars {
				tail := chunk[len(chunk)-overlapChars:]
				if cut := strings.IndexByte(tail, ' '); cut >= 0 {
					tail = tail[cut+1:]
				}
				current.WriteString(tail)
			}
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(seg)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
