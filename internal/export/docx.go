package export

import (
	"regexp"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
)

const (
	fontName = "Times New Roman"
	fontSize = 13
)

var (
	reBold   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBullet = regexp.MustCompile(`^[\-\*]\s+(.+)$`)
)

// WriteDocx renders doc as a styled .docx file at outputPath.
func WriteDocx(doc Document, outputPath string) error {
	d, err := godocx.NewDocument()
	if err != nil {
		return err
	}

	addStyledRun(d.AddParagraph(""), doc.title(), true, headingSize(1))

	for _, row := range doc.metadata() {
		p := d.AddParagraph("")
		p.AddText(row[0]+": ").Font(fontName).Size(fontSize).Color("000000").Bold(true)
		p.AddText(row[1]).Font(fontName).Size(fontSize).Color("000000")
	}

	addStyledRun(d.AddParagraph(""), "Transcript", true, headingSize(2))
	lines := doc.TranscriptLines()
	if len(lines) == 0 {
		addRichText(d.AddParagraph(""), "(no transcript)")
	}
	for _, line := range lines {
		addRichText(d.AddParagraph(""), line)
	}

	if doc.Summary != nil {
		addStyledRun(d.AddParagraph(""), "Summary", true, headingSize(2))
		for _, line := range strings.Split(doc.Summary.Content, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			if m := reBullet.FindStringSubmatch(trimmed); m != nil {
				trimmed = "• " + m[1]
			}
			addRichText(d.AddParagraph(""), trimmed)
		}
		addList(d, "Key Points", doc.Summary.KeyPoints)
		addList(d, "Action Items", doc.Summary.ActionItems)
		addList(d, "Topics", doc.Summary.Topics)
	}

	return d.SaveTo(outputPath)
}

func addList(d *docx.RootDoc, name string, items []string) {
	if len(items) == 0 {
		return
	}
	addStyledRun(d.AddParagraph(""), name, true, headingSize(3))
	for _, item := range items {
		addRichText(d.AddParagraph(""), "• "+item)
	}
}

func headingSize(level int) uint64 {
	switch level {
	case 1:
		return 16
	case 2:
		return 15
	case 3:
		return 14
	default:
		return fontSize
	}
}

func addStyledRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	text = cleanMarkdownInline(text)
	run := p.AddText(text).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}

func addRichText(p *docx.Paragraph, text string) {
	parts := reBold.Split(text, -1)
	matches := reBold.FindAllStringSubmatch(text, -1)

	for i, part := range parts {
		if part != "" {
			p.AddText(cleanMarkdownInline(part)).Font(fontName).Size(fontSize).Color("000000")
		}
		if i < len(matches) {
			p.AddText(cleanMarkdownInline(matches[i][1])).Font(fontName).Size(fontSize).Color("000000").Bold(true)
		}
	}
}

func cleanMarkdownInline(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	s = strings.ReplaceAll(s, "`", "")
	return s
}
