package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const fence = "---\n"

// Note is a markdown document with optional YAML frontmatter. Generated
// sections live between named HTML comment markers so hand-written text
// around them survives regeneration.
type Note struct {
	Meta map[string]any
	Body string
}

// Parse splits content into frontmatter and body. CRLF line endings are
// normalized.
func Parse(content string) (Note, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(content, fence) {
		return Note{Meta: map[string]any{}, Body: content}, nil
	}
	rest := strings.TrimPrefix(content, fence)
	idx := strings.Index(rest, "\n"+fence)
	if idx < 0 {
		return Note{}, fmt.Errorf("invalid frontmatter: missing closing fence")
	}
	meta := map[string]any{}
	if err := yaml.Unmarshal([]byte(rest[:idx]), &meta); err != nil {
		return Note{}, fmt.Errorf("unmarshal frontmatter: %w", err)
	}
	return Note{Meta: meta, Body: rest[idx+len("\n"+fence):]}, nil
}

func (n Note) Render() (string, error) {
	buf := bytes.Buffer{}
	if len(n.Meta) > 0 {
		raw, err := yaml.Marshal(n.Meta)
		if err != nil {
			return "", fmt.Errorf("marshal frontmatter: %w", err)
		}
		buf.WriteString(fence)
		buf.Write(raw)
		buf.WriteString(fence)
		if !strings.HasPrefix(n.Body, "\n") {
			buf.WriteString("\n")
		}
	}
	buf.WriteString(n.Body)
	return buf.String(), nil
}

func markers(name string) (string, string) {
	return "<!-- cadence:" + name + ":start -->", "<!-- cadence:" + name + ":end -->"
}

// Block returns the generated content of the named block.
func (n Note) Block(name string) (string, bool) {
	start, end := markers(name)
	i := strings.Index(n.Body, start)
	j := strings.Index(n.Body, end)
	if i < 0 || j < i {
		return "", false
	}
	return strings.Trim(n.Body[i+len(start):j], "\n"), true
}

// SetBlock replaces the named block, appending it when absent.
func (n *Note) SetBlock(name, generated string) {
	start, end := markers(name)
	block := start + "\n" + strings.TrimRight(generated, "\n") + "\n" + end

	i := strings.Index(n.Body, start)
	j := strings.Index(n.Body, end)
	switch {
	case i >= 0 && j > i:
		n.Body = n.Body[:i] + block + n.Body[j+len(end):]
	case strings.TrimSpace(n.Body) == "":
		n.Body = block + "\n"
	case strings.HasSuffix(n.Body, "\n"):
		n.Body += "\n" + block + "\n"
	default:
		n.Body += "\n\n" + block + "\n"
	}
}
