package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/datatypes"
)

// Chunker splits lesson text into overlapping, context-prefixed chunks.
// Sentences are packed greedily up to maxChars; when a chunk closes, the
// next chunk is seeded with the trailing sentences of the previous one
// until at least overlapChars of text is carried across the boundary.
type Chunker struct {
	maxChars     int
	overlapChars int
	sentenceRe   *regexp.Regexp
}

// NewChunker creates a Chunker. Non-positive arguments fall back to sane
// values so a zero Config cannot produce a degenerate chunker.
func NewChunker(maxChars, overlapChars int) *Chunker {
	if maxChars <= 0 {
		maxChars = 800
	}
	if overlapChars < 0 || overlapChars >= maxChars {
		overlapChars = 0
	}
	return &Chunker{
		maxChars:     maxChars,
		overlapChars: overlapChars,
		sentenceRe:   regexp.MustCompile(`[^.!?]+[.!?]+(?:\s|$)|[^.!?]+$`),
	}
}

// splitSentences breaks text into trimmed sentences. A trailing fragment
// without terminal punctuation counts as a sentence.
func (c *Chunker) splitSentences(text string) []string {
	raw := c.sentenceRe.FindAllString(text, -1)
	sentences := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// ChunkText splits plain text into overlapping chunks. A text shorter than
// one chunk yields exactly one chunk. The final chunk may be shorter than
// the overlap.
func (c *Chunker) ChunkText(text string) []string {
	sentences := c.splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var cur []string
	curLen := 0

	joinLen := func(add string) int {
		if curLen == 0 {
			return len(add)
		}
		return curLen + 1 + len(add)
	}

	for _, s := range sentences {
		if curLen > 0 && joinLen(s) > c.maxChars {
			chunks = append(chunks, strings.Join(cur, " "))
			cur = c.overlapTail(cur)
			curLen = len(strings.Join(cur, " "))
		}
		if curLen == 0 {
			curLen = len(s)
		} else {
			curLen += 1 + len(s)
		}
		cur = append(cur, s)
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, " "))
	}
	return chunks
}

// overlapTail returns the trailing sentences of a closed chunk that seed
// the next one: the smallest suffix whose joined length reaches the
// configured overlap, never the entire chunk.
func (c *Chunker) overlapTail(sentences []string) []string {
	if c.overlapChars == 0 || len(sentences) < 2 {
		return nil
	}
	total := 0
	for i := len(sentences) - 1; i > 0; i-- {
		total += len(sentences[i])
		if total >= c.overlapChars {
			tail := make([]string, len(sentences)-i)
			copy(tail, sentences[i:])
			return tail
		}
		total++ // joining space
	}
	tail := make([]string, len(sentences)-1)
	copy(tail, sentences[1:])
	return tail
}

// ChunkCourse turns a parsed course document into the ordered chunk
// sequence for the content index. Each chunk's text is prefixed with a
// course/lesson context string so the embedding captures identity even
// when the raw sentence alone is ambiguous. The preamble, when present,
// becomes a single lesson-less chunk.
func (c *Chunker) ChunkCourse(doc *Document) []datatypes.CourseChunk {
	var out []datatypes.CourseChunk

	if doc.Preamble != "" {
		out = append(out, datatypes.CourseChunk{
			Text:        fmt.Sprintf("Course %s content: %s", doc.Course.Title, doc.Preamble),
			CourseTitle: doc.Course.Title,
			ChunkIndex:  0,
		})
	}

	for i, lesson := range doc.Course.Lessons {
		if i >= len(doc.Bodies) {
			break
		}
		num := lesson.Number
		for idx, text := range c.ChunkText(doc.Bodies[i]) {
			n := num
			out = append(out, datatypes.CourseChunk{
				Text: fmt.Sprintf("Course %s Lesson %d content: %s",
					doc.Course.Title, num, text),
				CourseTitle:  doc.Course.Title,
				LessonNumber: &n,
				ChunkIndex:   idx,
			})
		}
	}
	return out
}
