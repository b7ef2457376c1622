package docx

import "reflect"

type HTTPMethod string

const (
	GET    HTTPMethod = "GET"
	POST   HTTPMethod = "POST"
	PATCH  HTTPMethod = "PATCH"
	DELETE HTTPMethod = "DELETE"
)

type Authentication string

const (
	None   Authentication = "none"
	Bearer Authentication = "bearer"
)

// Param is a path or query parameter
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
	Default     any    `json:"default,omitempty"`
}

// Endpoint documents one route
type Endpoint struct {
	Path        string         `json:"path"`
	Method      HTTPMethod     `json:"method"`
	Summary     string         `json:"summary,omitempty"`
	Description string         `json:"description,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Auth        Authentication `json:"auth"`

	PathParams  []Param `json:"pathParams,omitempty"`
	QueryParams []Param `json:"queryParams,omitempty"`

	ContentType     string  `json:"contentType,omitempty"`
	RequestSchema   *Schema `json:"requestSchema,omitempty"`
	ResponseSchema  *Schema `json:"responseSchema,omitempty"`
	RequestExample  any     `json:"requestExample,omitempty"`
	ResponseExample any     `json:"responseExample,omitempty"`

	// Errors lists the error codes the route can answer with
	Errors []string `json:"errors,omitempty"`
}

func NewEndpoint(path string, method HTTPMethod) *Endpoint {
	return &Endpoint{Path: path, Method: method, Auth: None}
}

func (e *Endpoint) WithSummary(summary string) *Endpoint {
	e.Summary = summary
	return e
}

func (e *Endpoint) WithDescription(desc string) *Endpoint {
	e.Description = desc
	return e
}

func (e *Endpoint) WithTags(tags ...string) *Endpoint {
	e.Tags = append(e.Tags, tags...)
	return e
}

func (e *Endpoint) WithAuth(auth Authentication) *Endpoint {
	e.Auth = auth
	return e
}

func (e *Endpoint) WithPathParam(name, paramType, description string) *Endpoint {
	e.PathParams = append(e.PathParams, Param{Name: name, Type: paramType, Description: description, Required: true})
	return e
}

func (e *Endpoint) WithQueryParam(name, paramType, description string, defaultValue any) *Endpoint {
	e.QueryParams = append(e.QueryParams, Param{Name: name, Type: paramType, Description: description, Default: defaultValue})
	return e
}

// WithContentType marks a non JSON request body such as multipart/form-data
func (e *Endpoint) WithContentType(contentType string) *Endpoint {
	e.ContentType = contentType
	return e
}

func (e *Endpoint) WithRequestDTO(dto any) *Endpoint {
	s := extractSchema(reflect.TypeOf(dto))
	e.RequestSchema = &s
	return e
}

func (e *Endpoint) WithResponseDTO(dto any) *Endpoint {
	s := extractSchema(reflect.TypeOf(dto))
	e.ResponseSchema = &s
	return e
}

func (e *Endpoint) WithRequestExample(example any) *Endpoint {
	e.RequestExample = example
	return e
}

func (e *Endpoint) WithResponseExample(example any) *Endpoint {
	e.ResponseExample = example
	return e
}

func (e *Endpoint) WithErrors(codes ...string) *Endpoint {
	e.Errors = append(e.Errors, codes...)
	return e
}
