package core

// Request is a fully prepared REST call: method, path, flattened
// parameters and headers, plus the auth tier the auth manager should
// apply before dispatch. Requests are constructed fresh per call and
// never reused, since signed parameters carry a one-shot timestamp.
type Request struct {
	Method   string            `json:"method"`
	Path     string            `json:"path"`
	Query    Params            `json:"query,omitempty"`
	Form     Params            `json:"form,omitempty"`
	Body     any               `json:"body,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
	Weight   int               `json:"weight"`
	AuthType AuthType          `json:"auth_type"`
}

// NewRequest creates a request with the given method and path.
func NewRequest(method, path string) *Request {
	return &Request{
		Method:  method,
		Path:    path,
		Query:   make(Params),
		Headers: make(map[string]string),
		Weight:  1,
	}
}

// SetQuery sets a single query parameter and returns the request for chaining.
func (r *Request) SetQuery(key string, value any) *Request {
	if r.Query == nil {
		r.Query = make(Params)
	}
	r.Query[key] = value
	return r
}

// SetQueryParams merges the given parameters into the query set.
func (r *Request) SetQueryParams(params Params) *Request {
	if r.Query == nil {
		r.Query = make(Params)
	}
	r.Query.Merge(params)
	return r
}

// SetForm merges the given parameters into the form body set.
// Form parameters are sent application/x-www-form-urlencoded.
func (r *Request) SetForm(params Params) *Request {
	if r.Form == nil {
		r.Form = make(Params)
	}
	r.Form.Merge(params)
	return r
}

// SetBody sets a JSON request body and returns the request for chaining.
func (r *Request) SetBody(body any) *Request {
	r.Body = body
	return r
}

// SetHeader sets a request header and returns the request for chaining.
func (r *Request) SetHeader(key, value string) *Request {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
	return r
}

// SetWeight sets the rate-limit weight and returns the request for chaining.
func (r *Request) SetWeight(weight int) *Request {
	r.Weight = weight
	return r
}

// SetAuthType sets the required auth tier and returns the request for chaining.
func (r *Request) SetAuthType(auth AuthType) *Request {
	r.AuthType = auth
	return r
}

// SignableParams returns the parameter set a signer operates on: the
// query for GET/DELETE style calls, the form set otherwise.
func (r *Request) SignableParams() Params {
	if len(r.Form) > 0 {
		return r.Form
	}
	return r.Query
}
