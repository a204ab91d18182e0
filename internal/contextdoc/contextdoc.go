// Package contextdoc splits a markdown document into parts small enough to
// attach to a chat turn as separate contexts.
package contextdoc

import (
	"fmt"
	"strings"

	"github.com/rcliao/chatcore/internal/ids"
	"github.com/rcliao/chatcore/internal/model"
)

const (
	DefaultTargetSize = 2000
	DefaultMaxSize    = 4000
)

// Options bounds part sizes in bytes.
type Options struct {
	TargetSize int
	MaxSize    int
}

// DefaultOptions returns the sizes used by the CLI.
func DefaultOptions() Options {
	return Options{TargetSize: DefaultTargetSize, MaxSize: DefaultMaxSize}
}

// Part is a slice of the document with the heading it falls under.
type Part struct {
	Heading   string
	Text      string
	StartLine int
	EndLine   int
}

// Split cuts doc on headings and paragraph gaps, then packs the pieces into
// parts near TargetSize. A document no larger than MaxSize stays whole.
func Split(doc string, opts Options) []Part {
	if opts.TargetSize <= 0 || opts.MaxSize <= 0 {
		opts = DefaultOptions()
	}
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return nil
	}
	if len(doc) <= opts.MaxSize {
		return []Part{{Heading: firstHeading(doc), Text: doc, StartLine: 1, EndLine: strings.Count(doc, "\n") + 1}}
	}
	return pack(sections(doc), opts)
}

// Contexts turns doc into contexts that share base's metadata. With a single
// part the base title is kept; otherwise each title names its part.
func Contexts(doc string, base model.Context, gen ids.Generator, opts Options) []model.Context {
	parts := Split(doc, opts)
	out := make([]model.Context, 0, len(parts))
	for i, p := range parts {
		c := base
		c.ID = gen.NewID()
		c.Content = p.Text
		c.Tags = append([]string(nil), base.Tags...)
		if len(parts) > 1 {
			c.Title = fmt.Sprintf("%s (%d/%d)", base.Title, i+1, len(parts))
			if p.Heading != "" {
				c.Title += ": " + p.Heading
			}
			if c.Description == "" {
				c.Description = fmt.Sprintf("lines %d-%d", p.StartLine, p.EndLine)
			}
		}
		out = append(out, c)
	}
	return out
}

func heading(line string) (string, bool) {
	t := strings.TrimSpace(line)
	if !strings.HasPrefix(t, "#") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimLeft(t, "#")), true
}

func firstHeading(doc string) string {
	for _, line := range strings.Split(doc, "\n") {
		if h, ok := heading(line); ok {
			return h
		}
	}
	return ""
}

// sections splits on heading lines and on runs of blank lines. Each section
// inherits the most recent heading.
func sections(doc string) []Part {
	lines := strings.Split(doc, "\n")
	var out []Part
	var cur []string
	start, current := 1, ""

	emit := func(end int) {
		text := strings.TrimSpace(strings.Join(cur, "\n"))
		if text != "" {
			out = append(out, Part{Heading: current, Text: text, StartLine: start, EndLine: end})
		}
		cur = nil
		start = end + 1
	}

	blank := false
	for i, line := range lines {
		n := i + 1
		if h, ok := heading(line); ok {
			if len(cur) > 0 {
				emit(n - 1)
			}
			current = h
		}
		if strings.TrimSpace(line) == "" {
			if blank && len(cur) > 0 {
				emit(n - 1)
			}
			blank = true
			cur = append(cur, line)
			continue
		}
		blank = false
		cur = append(cur, line)
	}
	emit(len(lines))
	return out
}

// pack merges neighbouring sections up to TargetSize and breaks any that are
// still over MaxSize on line boundaries.
func pack(secs []Part, opts Options) []Part {
	var out []Part
	var acc Part

	flush := func() {
		if acc.Text == "" {
			return
		}
		if len(acc.Text) > opts.MaxSize {
			out = append(out, breakLines(acc, opts)...)
		} else {
			out = append(out, acc)
		}
		acc = Part{}
	}

	for _, s := range secs {
		if acc.Text == "" {
			acc = s
			continue
		}
		if merged := acc.Text + "\n\n" + s.Text; len(merged) <= opts.TargetSize {
			acc.Text = merged
			acc.EndLine = s.EndLine
			continue
		}
		flush()
		acc = s
	}
	flush()
	return out
}

func breakLines(p Part, opts Options) []Part {
	lines := strings.Split(p.Text, "\n")
	var out []Part
	var cur []string
	start, size := p.StartLine, 0

	emit := func(end int) {
		if text := strings.TrimSpace(strings.Join(cur, "\n")); text != "" {
			out = append(out, Part{Heading: p.Heading, Text: text, StartLine: start, EndLine: end})
		}
	}

	for i, line := range lines {
		if size+len(line) > opts.TargetSize && len(cur) > 0 {
			emit(p.StartLine + i - 1)
			cur, start, size = nil, p.StartLine+i, 0
		}
		cur = append(cur, line)
		size += len(line) + 1
	}
	emit(p.StartLine + len(lines) - 1)
	return out
}
