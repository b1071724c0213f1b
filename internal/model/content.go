package model

// Draft is the generated, unrendered article content handed from the
// generator to the renderer.
type Draft struct {
	Topic   string
	Body    string // markdown, section headings only (no top-level heading)
	Intent  string
	Outline []string
	Images  int
	Locale  string
}
