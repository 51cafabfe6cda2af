package datatypes

import "fmt"

// Lesson is a single lesson within a course. Numbers are unique within a
// course and non-negative, but need not start at zero.
type Lesson struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"lesson_title"`
	Link   string `json:"lesson_link,omitempty"`
}

// Course is one ingested course document. The title acts as the unique
// identifier across both indexes.
type Course struct {
	Title      string   `json:"title"`
	Link       string   `json:"course_link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// CourseChunk is one embeddable unit of course text. Text already carries
// the generated course/lesson context prefix. LessonNumber is nil for the
// course-level preamble chunk.
type CourseChunk struct {
	Text         string `json:"text"`
	CourseTitle  string `json:"course_title"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
	ChunkIndex   int    `json:"chunk_index"`
}

// SearchResult is one ranked hit from the content index. Constructed fresh
// per query, never persisted.
type SearchResult struct {
	Text         string  `json:"text"`
	CourseTitle  string  `json:"course_title"`
	LessonNumber *int    `json:"lesson_number,omitempty"`
	Score        float64 `json:"score"`
}

// SourceRef is the provenance of one search result used to build a tool
// response, in result order.
type SourceRef struct {
	CourseTitle  string `json:"course_title"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
}

// Label renders the reference the way it is shown to the user,
// e.g. "MCP Basics - Lesson 3".
func (s SourceRef) Label() string {
	if s.LessonNumber != nil {
		return fmt.Sprintf("%s - Lesson %d", s.CourseTitle, *s.LessonNumber)
	}
	return s.CourseTitle
}

// Exchange is one completed question/answer pair in a session.
type Exchange struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
}

// QueryRequest is the body of POST /api/query.
type QueryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// Validate checks the request for required fields.
func (r *QueryRequest) Validate() error {
	if r.Query == "" {
		return fmt.Errorf("query is required")
	}
	return nil
}

// QueryResponse is the body returned by POST /api/query.
type QueryResponse struct {
	Answer    string      `json:"answer"`
	Sources   []SourceRef `json:"sources"`
	SessionID string      `json:"session_id"`
}

// CourseStats summarises the catalog for GET /api/courses.
type CourseStats struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

// Validate checks structural invariants on a parsed course before it is
// handed to the chunker: a title must be present and lesson numbers must
// be non-negative and unique within the course.
func (c *Course) Validate() error {
	if c.Title == "" {
		return fmt.Errorf("course title is required")
	}
	seen := make(map[int]bool, len(c.Lessons))
	for _, l := range c.Lessons {
		if l.Number < 0 {
			return fmt.Errorf("lesson %q has negative number %d", l.Title, l.Number)
		}
		if seen[l.Number] {
			return fmt.Errorf("duplicate lesson number %d in course %q", l.Number, c.Title)
		}
		seen[l.Number] = true
	}
	return nil
}
