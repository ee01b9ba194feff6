package notion

import (
	"strings"
	"time"
)

// Page is a database row.
type Page struct {
	ID             string              `json:"id"`
	URL            string              `json:"url,omitempty"`
	CreatedTime    time.Time           `json:"created_time"`
	LastEditedTime time.Time           `json:"last_edited_time"`
	Properties     map[string]Property `json:"properties"`
}

// Property is a page property value. Only the field matching Type is set.
type Property struct {
	Type        string         `json:"type,omitempty"`
	Title       []RichText     `json:"title,omitempty"`
	RichText    []RichText     `json:"rich_text,omitempty"`
	Number      *float64       `json:"number,omitempty"`
	Select      *SelectOption  `json:"select,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
	URL         *string        `json:"url,omitempty"`
	Email       *string        `json:"email,omitempty"`
	Date        *DateValue     `json:"date,omitempty"`
	Checkbox    *bool          `json:"checkbox,omitempty"`
	Files       []File         `json:"files,omitempty"`
}

type RichText struct {
	Type      string       `json:"type,omitempty"`
	Text      *TextContent `json:"text,omitempty"`
	PlainText string       `json:"plain_text,omitempty"`
	Href      string       `json:"href,omitempty"`
}

type TextContent struct {
	Content string `json:"content"`
}

type SelectOption struct {
	Name string `json:"name"`
}

type DateValue struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

type File struct {
	Name     string        `json:"name,omitempty"`
	Type     string        `json:"type,omitempty"`
	External *FileLocation `json:"external,omitempty"`
	File     *FileLocation `json:"file,omitempty"`
}

type FileLocation struct {
	URL string `json:"url"`
}

// maxTextLength is Notion's limit for a single rich text content.
const maxTextLength = 2000

func TitleProperty(s string) Property {
	return Property{Title: textRuns(s)}
}

func TextProperty(s string) Property {
	return Property{RichText: textRuns(s)}
}

func NumberProperty(v float64) Property {
	return Property{Number: &v}
}

func SelectProperty(name string) Property {
	return Property{Select: &SelectOption{Name: name}}
}

func URLProperty(u string) Property {
	return Property{URL: &u}
}

func EmailProperty(addr string) Property {
	return Property{Email: &addr}
}

func DateProperty(t time.Time) Property {
	return Property{Date: &DateValue{Start: t.UTC().Format(time.RFC3339)}}
}

func textRuns(s string) []RichText {
	r := []rune(s)
	var runs []RichText
	for len(r) > 0 {
		n := len(r)
		if n > maxTextLength {
			n = maxTextLength
		}
		runs = append(runs, RichText{Type: "text", Text: &TextContent{Content: string(r[:n])}})
		r = r[n:]
	}
	if runs == nil {
		runs = []RichText{{Type: "text", Text: &TextContent{Content: ""}}}
	}
	return runs
}

// PlainText flattens a title or rich text property.
func (p Property) PlainText() string {
	runs := p.Title
	if len(runs) == 0 {
		runs = p.RichText
	}
	var b strings.Builder
	for _, r := range runs {
		switch {
		case r.PlainText != "":
			b.WriteString(r.PlainText)
		case r.Text != nil:
			b.WriteString(r.Text.Content)
		}
	}
	return strings.TrimSpace(b.String())
}

// SelectName returns the select option name, or "".
func (p Property) SelectName() string {
	if p.Select == nil {
		return ""
	}
	return p.Select.Name
}

// Names returns multi-select option names.
func (p Property) Names() []string {
	out := make([]string, 0, len(p.MultiSelect))
	for _, o := range p.MultiSelect {
		out = append(out, o.Name)
	}
	return out
}

// URLValue returns the url property, or "".
func (p Property) URLValue() string {
	if p.URL == nil {
		return ""
	}
	return *p.URL
}

// FirstFileURL returns the URL of the first attached file.
func (p Property) FirstFileURL() string {
	for _, f := range p.Files {
		switch {
		case f.External != nil && f.External.URL != "":
			return f.External.URL
		case f.File != nil && f.File.URL != "":
			return f.File.URL
		}
	}
	return ""
}

// DateStart parses the start of a date property.
func (p Property) DateStart() (time.Time, bool) {
	if p.Date == nil || p.Date.Start == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000Z07:00", "2006-01-02"} {
		if t, err := time.Parse(layout, p.Date.Start); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
