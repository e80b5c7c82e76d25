package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteText renders doc as plain text.
func WriteText(w io.Writer, doc Document) error {
	bw := bufio.NewWriter(w)

	title := doc.title()
	fmt.Fprintf(bw, "%s\n%s\n\n", title, strings.Repeat("=", len([]rune(title))))
	for _, row := range doc.metadata() {
		fmt.Fprintf(bw, "%-9s %s\n", row[0]+":", row[1])
	}

	writeSection(bw, "Transcript")
	lines := doc.TranscriptLines()
	if len(lines) == 0 {
		fmt.Fprintln(bw, "(no transcript)")
	}
	for _, line := range lines {
		fmt.Fprintln(bw, line)
	}

	if doc.Summary != nil {
		writeSection(bw, "Summary")
		fmt.Fprintln(bw, doc.Summary.Content)
		writeList(bw, "Key Points", doc.Summary.KeyPoints)
		writeList(bw, "Action Items", doc.Summary.ActionItems)
		writeList(bw, "Topics", doc.Summary.Topics)
	}

	return bw.Flush()
}

func writeSection(w io.Writer, name string) {
	fmt.Fprintf(w, "\n%s\n%s\n", name, strings.Repeat("-", len(name)))
}

func writeList(w io.Writer, name string, items []string) {
	if len(items) == 0 {
		return
	}
	writeSection(w, name)
	for _, item := range items {
		fmt.Fprintf(w, "- %s\n", item)
	}
}
