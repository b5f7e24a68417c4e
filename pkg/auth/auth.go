// Package auth applies repository credentials to outgoing requests.
package auth

import (
	"fmt"
	"net/http"
	"strings"
)

// Kinds of credentials a repository may carry.
const (
	KindBasic  = "basic"
	KindBearer = "bearer"
	KindHeader = "header"
)

// Authenticator adds credentials to a request.
type Authenticator interface {
	Apply(req *http.Request)
}

// Basic is HTTP basic authentication.
type Basic struct {
	Username string
	Password string
}

func (b Basic) Apply(req *http.Request) {
	req.SetBasicAuth(b.Username, b.Password)
}

// Bearer sends a token in the Authorization header.
type Bearer struct {
	Token string
}

func (b Bearer) Apply(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+b.Token)
}

// Header sets arbitrary request headers, e.g. an API key.
type Header map[string]string

func (h Header) Apply(req *http.Request) {
	for k, v := range h {
		req.Header.Set(k, v)
	}
}

// Credentials is the configured form of an Authenticator.
type Credentials struct {
	Type     string            `yaml:"type"`
	Username string            `yaml:"username,omitempty"`
	Password string            `yaml:"password,omitempty"`
	Token    string            `yaml:"token,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty"`
}

// New returns the Authenticator described by c. A nil c yields nil.
func New(c *Credentials) (Authenticator, error) {
	if c == nil {
		return nil, nil
	}
	switch strings.ToLower(c.Type) {
	case KindBasic:
		if c.Username == "" {
			return nil, fmt.Errorf("basic credentials need a username")
		}
		return Basic{Username: c.Username, Password: c.Password}, nil
	case KindBearer:
		if c.Token == "" {
			return nil, fmt.Errorf("bearer credentials need a token")
		}
		return Bearer{Token: c.Token}, nil
	case KindHeader:
		if len(c.Headers) == 0 {
			return nil, fmt.Errorf("header credentials need at least one header")
		}
		return Header(c.Headers), nil
	default:
		return nil, fmt.Errorf("unknown credential type %q", c.Type)
	}
}
