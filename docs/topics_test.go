package docs

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"testing"

	"github.com/etnz/taxlot"
	"github.com/etnz/taxlot/config"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

func TestTopics(t *testing.T) {
	// Every topic listed in readme.md can be loaded, and every .md file is listed in readme.md.
	file, err := os.Open("readme.md")
	require.NoError(t, err)
	defer file.Close()

	var topicsInReadme []string
	scanner := bufio.NewScanner(file)
	topicRegex := regexp.MustCompile(`^\*\s+([^:]+):.*$`)
	for scanner.Scan() {
		if matches := topicRegex.FindStringSubmatch(scanner.Text()); len(matches) > 1 {
			topicsInReadme = append(topicsInReadme, strings.TrimSpace(matches[1]))
		}
	}
	require.NoError(t, scanner.Err())

	for _, topic := range topicsInReadme {
		t.Run("load_"+topic, func(t *testing.T) {
			_, err := GetTopic(topic)
			assert.NoError(t, err)
		})
	}

	all, err := GetAllTopics()
	require.NoError(t, err)
	for _, topic := range all {
		assert.Contains(t, topicsInReadme, topic, "topic %q is not listed in docs/readme.md", topic)
	}
}

func TestGetTopic(t *testing.T) {
	got, err := GetTopic(" WashSale ")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "# Wash sales"))

	_, err = GetTopic("nope")
	assert.ErrorContains(t, err, `topic "nope" not found`)

	all, err := GetTopic("*")
	require.NoError(t, err)
	topics, err := GetAllTopics()
	require.NoError(t, err)
	assert.NotContains(t, topics, "readme")
	assert.True(t, slices.IsSorted(topics))
	for _, topic := range topics {
		content, err := GetTopic(topic)
		require.NoError(t, err)
		assert.Contains(t, all, content)
	}
}

func TestTitle(t *testing.T) {
	got, err := Title("methods")
	require.NoError(t, err)
	assert.Equal(t, "Lot selection methods", got)
}

// TestCodeBlocks checks that the examples in the documentation are accepted
// by the decoders they illustrate.
func TestCodeBlocks(t *testing.T) {
	files, err := filepath.Glob("*.md")
	require.NoError(t, err)

	for _, file := range files {
		for _, block := range parseMarkdown(t, file) {
			t.Run(file, func(t *testing.T) {
				switch block.Type {
				case "toml":
					dec := toml.NewDecoder(strings.NewReader(block.Content)).DisallowUnknownFields()
					assert.NoError(t, dec.Decode(config.NewDefaultConfig()), "%s:%d", block.File, block.Line)
				case "jsonl":
					_, err := taxlot.DecodeBook(strings.NewReader(block.Content), "")
					assert.NoError(t, err, "%s:%d", block.File, block.Line)
				}
			})
		}
	}
}

// HELPER

// Block represents a fenced code block in the markdown file.
type Block struct {
	Type    string
	Content string
	File    string
	Line    int
}

// parseMarkdown parses a markdown file and returns its fenced code blocks.
func parseMarkdown(t *testing.T, file string) []*Block {
	t.Helper()

	content, err := os.ReadFile(file)
	require.NoError(t, err)

	root := goldmark.DefaultParser().Parse(text.NewReader(content))

	var blocks []*Block
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fcb, ok := n.(*ast.FencedCodeBlock)
		if !ok || fcb.Info == nil {
			return ast.WalkContinue, nil
		}
		var blockContent strings.Builder
		for i := 0; i < fcb.Lines().Len(); i++ {
			line := fcb.Lines().At(i)
			blockContent.Write(line.Value(content))
		}
		blocks = append(blocks, &Block{
			Type:    string(fcb.Language(content)),
			Content: blockContent.String(),
			File:    file,
			Line:    lineNumber(content, fcb.Info.Segment.Start),
		})
		return ast.WalkContinue, nil
	})
	return blocks
}

// lineNumber computes the lineNumber for a given offset AST offset.
// the markdown parser we use does not support that feature so we
// have to implement it.
func lineNumber(source []byte, offset int) int {
	return bytes.Count(source[:offset], []byte{'\n'}) + 1
}
