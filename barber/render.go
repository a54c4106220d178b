package barber

import (
	_ "embed"
	"html/template"
	"io"
	"net/url"
	"strings"

	"github.com/russross/blackfriday/v2"
)

var (
	//go:embed templates/layout.html
	layoutSource string

	TemplateFuncMap = template.FuncMap{
		"markdown": func(text string) template.HTML {
			return template.HTML(blackfriday.Run([]byte(text)))
		},
	}

	layout = template.Must(template.New("layout").Funcs(TemplateFuncMap).Parse(layoutSource))
)

// Page is a markdown document rendered inside the layout
type Page struct {
	Title   string
	Class   string
	Content string
}

func RenderPage(w io.Writer, page Page) error {
	return layout.Execute(w, page)
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", `*`, `\*`, `_`, `\_`,
	`[`, `\[`, `]`, `\]`, `<`, `&lt;`, `>`, `&gt;`, `&`, `&amp;`,
)

// escape makes text render literally in markdown
func escape(text string) string {
	return markdownEscaper.Replace(text)
}

var parenEscaper = strings.NewReplacer("(", "%28", ")", "%29")

// link joins escaped path segments, safe to use as a markdown link target
func link(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(parenEscaper.Replace(url.PathEscape(s)))
	}
	return b.String()
}

func starMark(starred bool) string {
	if starred {
		return "★"
	}
	return "☆"
}
