package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Credentials are the email/password pair accepted by login and register.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Profile is the account returned by whoami and register.
type Profile struct {
	ID    string
	Email string

	// Attributes holds every field of the profile object, including id and email.
	Attributes map[string]any
}

// UnmarshalJSON accepts string or numeric ids.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	out := Profile{Attributes: raw}
	switch id := raw["id"].(type) {
	case string:
		out.ID = id
	case json.Number:
		out.ID = id.String()
	case nil:
	default:
		return fmt.Errorf("profile id has unsupported type %T", id)
	}
	if email, ok := raw["email"].(string); ok {
		out.Email = email
	}

	*p = out
	return nil
}

// Request is a replayable description of an authenticated call. Body is kept as bytes so
// the same request can be sent again with a new credential.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Response is a fully-read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
}

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
	TokenType        string `json:"token_type"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func (e errorBody) text() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Detail != "":
		return e.Detail
	default:
		return e.Error
	}
}

func statusText(code int) string {
	if t := http.StatusText(code); t != "" {
		return t
	}
	return strconv.Itoa(code)
}
