// Package docx describes HTTP routes and serves the description as JSON or
// as Markdown with curl examples.
package docx

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type RouterDoc struct {
	Title     string      `json:"title"`
	BasePath  string      `json:"basePath"`
	Endpoints []*Endpoint `json:"endpoints"`
}

func NewRouterDoc(title, basePath string) *RouterDoc {
	return &RouterDoc{Title: title, BasePath: basePath, Endpoints: []*Endpoint{}}
}

func (r *RouterDoc) AddEndpoint(endpoint *Endpoint) *RouterDoc {
	r.Endpoints = append(r.Endpoints, endpoint)
	return r
}

// Handler serves JSON, or Markdown when ?format=markdown
func (r *RouterDoc) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("format") == "markdown" {
			c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
			return r.WriteMarkdown(c.Response().BodyWriter(), c.BaseURL())
		}
		return c.JSON(r)
	}
}

// WriteMarkdown renders every endpoint with a curl example against baseURL
func (r *RouterDoc) WriteMarkdown(w io.Writer, baseURL string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.Title)
	for _, e := range r.Endpoints {
		fmt.Fprintf(&b, "## %s %s%s\n\n", e.Method, r.BasePath, e.Path)
		if e.Summary != "" {
			fmt.Fprintf(&b, "%s\n\n", e.Summary)
		}
		if e.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", e.Description)
		}
		fmt.Fprintf(&b, "```bash\n%s\n```\n\n", r.Curl(baseURL, e))
		if e.ResponseExample != nil {
			body, err := json.MarshalIndent(e.ResponseExample, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintf(&b, "Example response:\n\n```json\n%s\n```\n\n", body)
		}
		if len(e.Errors) > 0 {
			fmt.Fprintf(&b, "Errors: `%s`\n\n", strings.Join(e.Errors, "`, `"))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Curl builds an example invocation
func (r *RouterDoc) Curl(baseURL string, e *Endpoint) string {
	url := strings.TrimRight(baseURL, "/") + r.BasePath + e.Path
	for _, p := range e.PathParams {
		url = strings.Replace(url, ":"+p.Name, "<"+strings.ToUpper(p.Name)+">", 1)
	}
	if len(e.QueryParams) > 0 {
		query := make([]string, 0, len(e.QueryParams))
		for _, p := range e.QueryParams {
			value := "<" + strings.ToUpper(p.Name) + ">"
			if p.Default != nil {
				value = fmt.Sprintf("%v", p.Default)
			}
			query = append(query, p.Name+"="+value)
		}
		url += "?" + strings.Join(query, "&")
	}

	curl := fmt.Sprintf("curl -X %s '%s'", e.Method, url)
	if e.Auth == Bearer {
		curl += " \\\n  -H 'Authorization: Bearer <TOKEN>'"
	}

	switch {
	case strings.HasPrefix(e.ContentType, "multipart/"):
		curl += " \\\n  -F 'image=@prescription.jpg'"
	case e.RequestExample != nil:
		body, _ := json.Marshal(e.RequestExample)
		curl += " \\\n  -H 'Content-Type: application/json' \\\n  -d '" + string(body) + "'"
	}
	return curl
}
