// Package speech turns article text into sentence-sized chunks and
// defines the synthesizer contract the playback engine drives.
package speech

import (
	"strings"
	"time"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// Chunk is one sentence-sized unit of synthesis. Offset and Duration
// are estimates derived from the word rate; together they place the
// chunk on the source's virtual timeline.
type Chunk struct {
	Index    int
	Text     string
	Words    int
	Offset   time.Duration
	Duration time.Duration
}

// Chunker splits markdown or plain text into chunks and estimates
// speaking time.
type Chunker struct {
	wordsPerMinute int
	minLength      int
	abbreviations  map[string]bool
	md             goldmark.Markdown
}

// NewChunker creates a chunker estimating at wordsPerMinute.
func NewChunker(wordsPerMinute int) *Chunker {
	if wordsPerMinute <= 0 {
		wordsPerMinute = 150
	}
	return &Chunker{
		wordsPerMinute: wordsPerMinute,
		minLength:      3,
		abbreviations:  makeAbbreviationMap(),
		md:             goldmark.New(),
	}
}

// Chunk splits content into sentence chunks with cumulative offsets.
func (c *Chunker) Chunk(content string) []Chunk {
	plain := c.stripMarkdown(content)
	sentences := c.splitSentences(plain)

	chunks := make([]Chunk, 0, len(sentences))
	var offset time.Duration
	for _, text := range sentences {
		words := len(strings.Fields(text))
		d := c.EstimateWords(words)
		chunks = append(chunks, Chunk{
			Index:    len(chunks),
			Text:     text,
			Words:    words,
			Offset:   offset,
			Duration: d,
		})
		offset += d
	}
	return chunks
}

// Rescale returns a copy of chunks with durations divided by rate and
// offsets recomputed, placing the chunks on the timeline of audio
// spoken at that rate. Chunk estimates start at rate 1.0.
func Rescale(chunks []Chunk, rate float64) []Chunk {
	out := make([]Chunk, len(chunks))
	copy(out, chunks)
	if rate <= 0 || rate == 1.0 {
		return out
	}

	var offset time.Duration
	for i := range out {
		d := time.Duration(float64(out[i].Duration) / rate)
		out[i].Offset = offset
		out[i].Duration = d
		offset += d
	}
	return out
}

// TotalDuration returns the estimated duration of all chunks.
func TotalDuration(chunks []Chunk) time.Duration {
	if len(chunks) == 0 {
		return 0
	}
	last := chunks[len(chunks)-1]
	return last.Offset + last.Duration
}

// ChunkAt returns the index of the chunk whose time span contains t.
// Times past the end map to the last chunk; an empty slice yields -1.
func ChunkAt(chunks []Chunk, t time.Duration) int {
	if len(chunks) == 0 {
		return -1
	}
	for i, ch := range chunks {
		if t < ch.Offset+ch.Duration {
			return i
		}
	}
	return len(chunks) - 1
}

// EstimateDuration estimates the speaking time of text at the
// configured word rate.
func (c *Chunker) EstimateDuration(text string) time.Duration {
	return c.EstimateWords(len(strings.Fields(text)))
}

// EstimateWords estimates the speaking time of a word count.
func (c *Chunker) EstimateWords(words int) time.Duration {
	if words <= 0 {
		return 0
	}
	seconds := float64(words) * 60.0 / float64(c.wordsPerMinute)
	return time.Duration(seconds * float64(time.Second))
}

// stripMarkdown renders content down to readable plain text by walking
// the markdown AST, dropping code blocks, images and raw HTML and
// keeping link text.
func (c *Chunker) stripMarkdown(content string) string {
	source := []byte(content)
	doc := c.md.Parser().Parse(gmtext.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.Image, *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.Blockquote:
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})

	return strings.Join(strings.Fields(b.String()), " ")
}

// splitSentences finds sentence boundaries in plain text, skipping
// abbreviations, decimal numbers and ellipses.
func (c *Chunker) splitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	lastStart := 0

	flush := func(end int) {
		s := strings.TrimSpace(string(runes[lastStart:end]))
		if len(s) >= c.minLength {
			sentences = append(sentences, s)
		}
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		punctEnd := i + 1
		for punctEnd < len(runes) && (runes[punctEnd] == '.' || runes[punctEnd] == '!' || runes[punctEnd] == '?') {
			punctEnd++
		}
		for punctEnd < len(runes) && (runes[punctEnd] == '"' || runes[punctEnd] == '\'' || runes[punctEnd] == ')' || runes[punctEnd] == ']') {
			punctEnd++
		}

		if !c.isSentenceEnd(runes, i) {
			continue
		}

		flush(punctEnd)
		for punctEnd < len(runes) && unicode.IsSpace(runes[punctEnd]) {
			punctEnd++
		}
		lastStart = punctEnd
		i = punctEnd - 1
	}

	if lastStart < len(runes) {
		flush(len(runes))
	}

	if len(sentences) == 0 {
		if s := strings.TrimSpace(text); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func (c *Chunker) isSentenceEnd(runes []rune, pos int) bool {
	punct := runes[pos]

	if punct == '.' {
		// Abbreviations like "Dr." or "e.g." do not end sentences.
		start := pos - 1
		for start >= 0 && !unicode.IsSpace(runes[start]) {
			start--
		}
		word := strings.ToLower(string(runes[start+1 : pos+1]))
		if c.abbreviations[word] || c.abbreviations[strings.TrimSuffix(word, ".")] {
			return false
		}
		if strings.Count(word, ".") > 1 {
			return false
		}

		// Decimal numbers.
		if pos > 0 && pos+1 < len(runes) && unicode.IsDigit(runes[pos-1]) && unicode.IsDigit(runes[pos+1]) {
			return false
		}

		// Ellipsis.
		if pos+2 < len(runes) && runes[pos+1] == '.' && runes[pos+2] == '.' {
			return false
		}
	}

	next := pos + 1
	for next < len(runes) && (runes[next] == '"' || runes[next] == '\'' || runes[next] == ')' || runes[next] == ']') {
		next++
	}
	if next >= len(runes) {
		return true
	}
	if !unicode.IsSpace(runes[next]) {
		return false
	}

	if punct == '!' || punct == '?' {
		return true
	}

	for next < len(runes) && unicode.IsSpace(runes[next]) {
		next++
	}
	return next >= len(runes) || unicode.IsUpper(runes[next])
}

func makeAbbreviationMap() map[string]bool {
	abbrevs := []string{
		"mr", "mrs", "ms", "dr", "prof", "sr", "jr",
		"i.e", "e.g", "etc", "vs", "cf", "al",
		"inc", "ltd", "co", "corp",
		"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept", "oct", "nov", "dec",
		"st", "rd", "ave", "blvd",
		"u.s", "u.k", "u.n", "e.u",
		"ft", "lbs", "oz", "kg", "km", "cm", "mm", "mi",
		"hr", "hrs", "min", "mins", "sec", "secs",
	}

	m := make(map[string]bool)
	for _, a := range abbrevs {
		m[a] = true
		if !strings.Contains(a, ".") {
			m[a+"."] = true
		}
	}
	return m
}
