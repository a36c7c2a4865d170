// Package pitchdeck loads the founder's pitch deck PDF so its content
// can season outreach drafts.
package pitchdeck

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Slide is the text of one deck page.
type Slide struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Deck is an extracted pitch deck.
type Deck struct {
	Path   string  `json:"path"`
	Title  string  `json:"title"`
	Slides []Slide `json:"slides"`
}

// Load reads and extracts a pitch deck PDF. Slides with no extractable
// text (pure-image pages) are skipped.
func Load(path string) (Deck, error) {
	f, err := os.Open(path)
	if err != nil {
		return Deck{}, fmt.Errorf("open pitch deck: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return Deck{}, fmt.Errorf("parse pitch deck: %w", err)
	}

	deck := Deck{Path: path}
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		text := pageText(ctx, pageNr)
		if text == "" {
			continue
		}
		if deck.Title == "" {
			deck.Title = firstLine(text)
		}
		deck.Slides = append(deck.Slides, Slide{Number: pageNr, Text: text})
	}

	if len(deck.Slides) == 0 {
		return Deck{}, fmt.Errorf("pitch deck %s has no extractable text", path)
	}
	return deck, nil
}

// Summary joins slide text up to maxChars for use in an LLM prompt.
func (d Deck) Summary(maxChars int) string {
	if maxChars <= 0 {
		maxChars = 2000
	}
	var b strings.Builder
	for _, slide := range d.Slides {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(slide.Text)
		if b.Len() >= maxChars {
			break
		}
	}
	out := b.String()
	if len(out) > maxChars {
		out = out[:maxChars]
	}
	return out
}

func pageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return streamText(data)
}

var literalRe = regexp.MustCompile(`\(([^)]*)\)`)

// streamText pulls show-text operators (Tj, TJ, ') out of a page
// content stream.
func streamText(data []byte) string {
	var b strings.Builder
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		showText := bytes.HasSuffix(line, []byte("Tj")) ||
			bytes.HasSuffix(line, []byte("TJ")) ||
			(bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")))
		if showText {
			for _, m := range literalRe.FindAllSubmatch(line, -1) {
				b.WriteString(decodeLiteral(m[1]))
				b.WriteByte(' ')
			}
		}
		if bytes.Equal(line, []byte("T*")) {
			b.WriteByte('\n')
		}
	}
	return collapseWhitespace(b.String())
}

// decodeLiteral handles the escape sequences valid in a PDF string
// literal, including octal byte escapes.
func decodeLiteral(raw []byte) string {
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			b.WriteByte(raw[i])
			continue
		}
		i++
		switch c := raw[i]; c {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '\\', '(', ')':
			b.WriteByte(c)
		default:
			if c >= '0' && c <= '7' {
				val := int(c - '0')
				for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				b.WriteByte(byte(val))
			} else {
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}

func collapseWhitespace(text string) string {
	var b strings.Builder
	prevSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if !prevSpace && b.Len() > 0 {
				b.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsPrint(r):
			b.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			if len(line) > 200 {
				return line[:200]
			}
			return line
		}
	}
	return ""
}
