// Package ingest turns raw course documents into context-augmented,
// embeddable chunks. It owns the document format described in the README:
//
//	Course Title: <title>
//	Course Link: <url>
//	Course Instructor: <name>
//
//	Lesson 0: <title>
//	Lesson Link: <url>
//	<lesson body...>
//
// Parsing failures are reported per document so one malformed file never
// aborts ingestion of the rest of the corpus.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/datatypes"
)

// ParseError describes a malformed course document with enough context to
// locate the problem.
type ParseError struct {
	File    string
	Line    int
	Message string
}

// Error implements the error interface for ParseError.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s:%d: %s", e.File, e.Line, e.Message)
}

// IsParseError checks if an error is a *ParseError.
func IsParseError(err error) bool {
	_, ok := err.(*ParseError)
	return ok
}

// Document is a parsed course document: the course metadata, the preamble
// text found before the first lesson marker, and each lesson's body text
// aligned index-for-index with Course.Lessons.
type Document struct {
	Course   datatypes.Course
	Preamble string
	Bodies   []string
}

var lessonMarkerRe = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// ParseCourseFile opens and parses a single course document.
func ParseCourseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening course document: %w", err)
	}
	defer f.Close()
	return ParseCourseDocument(path, f)
}

// ParseCourseDocument parses the course document format from r. The name
// is used only for error reporting.
//
// The Lesson Link line is optional. Lesson numbering need not start at 0
// but must be a non-negative integer. Any line before the first
// "Lesson N:" marker that is not a metadata line becomes preamble text.
func ParseCourseDocument(name string, r io.Reader) (*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	doc := &Document{}
	var preamble []string
	var body []string
	inLessons := false
	expectLink := false
	lineNo := 0

	flushBody := func() {
		if inLessons {
			doc.Bodies = append(doc.Bodies, strings.TrimSpace(strings.Join(body, "\n")))
			body = body[:0]
		}
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if m := lessonMarkerRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			num, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, &ParseError{File: name, Line: lineNo, Message: fmt.Sprintf("invalid lesson number %q", m[1])}
			}
			flushBody()
			inLessons = true
			expectLink = true
			doc.Course.Lessons = append(doc.Course.Lessons, datatypes.Lesson{
				Number: num,
				Title:  strings.TrimSpace(m[2]),
			})
			continue
		}

		if !inLessons {
			switch {
			case strings.HasPrefix(line, "Course Title:"):
				doc.Course.Title = strings.TrimSpace(strings.TrimPrefix(line, "Course Title:"))
			case strings.HasPrefix(line, "Course Link:"):
				doc.Course.Link = strings.TrimSpace(strings.TrimPrefix(line, "Course Link:"))
			case strings.HasPrefix(line, "Course Instructor:"):
				doc.Course.Instructor = strings.TrimSpace(strings.TrimPrefix(line, "Course Instructor:"))
			default:
				if strings.TrimSpace(line) != "" {
					preamble = append(preamble, line)
				}
			}
			continue
		}

		// Directly after a lesson marker the link line may appear; it is
		// metadata, not body text.
		if expectLink && strings.HasPrefix(line, "Lesson Link:") {
			doc.Course.Lessons[len(doc.Course.Lessons)-1].Link =
				strings.TrimSpace(strings.TrimPrefix(line, "Lesson Link:"))
			expectLink = false
			continue
		}
		expectLink = false
		body = append(body, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading course document %s: %w", name, err)
	}
	flushBody()

	if doc.Course.Title == "" {
		return nil, &ParseError{File: name, Line: 1, Message: "missing required 'Course Title:' line"}
	}
	if err := doc.Course.Validate(); err != nil {
		return nil, &ParseError{File: name, Line: lineNo, Message: err.Error()}
	}

	doc.Preamble = strings.TrimSpace(strings.Join(preamble, "\n"))
	return doc, nil
}
