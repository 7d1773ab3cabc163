// Package textfile implements the builtin BuildFilePlugin for
// free-form text files under src/files/ (spec.md §4.5's FILE kind).
// Chunking is adapted from the teacher's fixed-size line chunker
// (internal/embedding/chunker.go's chunkByLines), dropping the
// symbol-boundary path since this spec's chunks are plugin-owned text
// spans rather than AST symbols.
package textfile

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"contextengine/internal/pluginlib"
)

const (
	defaultMaxChunkLines = 30
	defaultChunkOverlap  = 15
	minChunkLines        = 5
)

// Context is the structured output of BuildFileContext: the file split
// into lines, ready for chunking and YAML export. Lines is kept in the
// exported YAML (rather than tagged "-") so a read-back re-embed
// (§4.12) can re-chunk from the exported document without re-reading
// the original file.
type Context struct {
	FileName string   `yaml:"file_name"`
	Lines    []string `yaml:"lines"`
}

// Plugin handles plain-text and markdown files.
type Plugin struct {
	MaxChunkLines int
	ChunkOverlap  int
}

// New returns a Plugin with the default chunk size and overlap.
func New() *Plugin {
	return &Plugin{MaxChunkLines: defaultMaxChunkLines, ChunkOverlap: defaultChunkOverlap}
}

var _ pluginlib.BuildFilePlugin = (*Plugin)(nil)
var _ pluginlib.ContextUnmarshaler = (*Plugin)(nil)

func (p *Plugin) ID() string   { return "builtin.textfile" }
func (p *Plugin) Name() string { return "Text File" }

func (p *Plugin) SupportedTypes() []string {
	return []string{"files/txt", "files/md", "files/markdown", "files/rst"}
}

// BuildFileContext reads content into lines; no further parsing since
// the file's text *is* its context.
func (p *Plugin) BuildFileContext(_ context.Context, _, fileName string, content io.Reader) (any, error) {
	var lines []string
	scanner := bufio.NewScanner(content)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", fileName, err)
	}
	return &Context{FileName: fileName, Lines: lines}, nil
}

// UnmarshalContext reconstructs a Context from a previously exported
// YAML document, letting a read-back re-embed re-chunk without
// re-reading the original file.
func (p *Plugin) UnmarshalContext(data []byte) (any, error) {
	var ctx Context
	if err := yaml.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("textfile plugin: unmarshaling context: %w", err)
	}
	return &ctx, nil
}

// DivideContextIntoChunks splits the file into fixed-size, overlapping
// line windows.
func (p *Plugin) DivideContextIntoChunks(built any) ([]pluginlib.EmbeddableChunk, error) {
	ctx, ok := built.(*Context)
	if !ok {
		return nil, fmt.Errorf("textfile plugin: unexpected context type %T", built)
	}
	return chunkByLines(ctx.Lines, p.MaxChunkLines, p.ChunkOverlap), nil
}

func chunkByLines(lines []string, maxLines, overlap int) []pluginlib.EmbeddableChunk {
	if len(lines) == 0 {
		return nil
	}

	var chunks []pluginlib.EmbeddableChunk
	current := 0
	prevCurrent := -1

	for current < len(lines) {
		if current == prevCurrent {
			break
		}
		prevCurrent = current

		end := current + maxLines
		if end > len(lines) {
			end = len(lines)
		}

		if end-current >= minChunkLines || len(lines) < minChunkLines {
			text := strings.Join(lines[current:end], "\n")
			chunks = append(chunks, pluginlib.EmbeddableChunk{
				EmbeddableText: text,
				Content:        text,
			})
		}

		if end >= len(lines) {
			break
		}

		next := end - overlap
		if next <= current {
			next = current + 1
		}
		current = next
	}

	if len(chunks) == 0 && len(lines) > 0 {
		text := strings.Join(lines, "\n")
		chunks = append(chunks, pluginlib.EmbeddableChunk{EmbeddableText: text, Content: text})
	}

	return chunks
}
