// Package uri builds and parses the pairing URI a wallet scans to join a
// session: wc:<topic>@<version>?bridge=<url>&key=<hex>.
package uri

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	// Scheme prefixes every pairing URI.
	Scheme = "wc"
	// Version is the protocol version this package emits.
	Version = "1"
)

// ErrInvalid wraps every parse failure.
var ErrInvalid = errors.New("invalid pairing uri")

// Params are the decoded fields of a pairing URI.
type Params struct {
	Topic   string
	Version string
	Bridge  string
	Key     string
}

// String encodes p with every field percent-encoded.
func (p Params) String() string {
	var b strings.Builder
	b.WriteString(Scheme)
	b.WriteByte(':')
	b.WriteString(escape(p.Topic))
	b.WriteByte('@')
	b.WriteString(escape(p.Version))
	b.WriteString("?bridge=")
	b.WriteString(escape(p.Bridge))
	b.WriteString("&key=")
	b.WriteString(escape(p.Key))
	return b.String()
}

// Parse decodes a pairing URI.
func Parse(s string) (Params, error) {
	rest, ok := strings.CutPrefix(s, Scheme+":")
	if !ok {
		return Params{}, fmt.Errorf("%w: missing %q scheme", ErrInvalid, Scheme)
	}
	path, query, ok := strings.Cut(rest, "?")
	if !ok {
		return Params{}, fmt.Errorf("%w: missing query", ErrInvalid)
	}
	rawTopic, rawVersion, ok := strings.Cut(path, "@")
	if !ok {
		return Params{}, fmt.Errorf("%w: missing version", ErrInvalid)
	}

	topic, err := url.PathUnescape(rawTopic)
	if err != nil {
		return Params{}, fmt.Errorf("%w: topic: %v", ErrInvalid, err)
	}
	version, err := url.PathUnescape(rawVersion)
	if err != nil {
		return Params{}, fmt.Errorf("%w: version: %v", ErrInvalid, err)
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return Params{}, fmt.Errorf("%w: query: %v", ErrInvalid, err)
	}

	p := Params{
		Topic:   topic,
		Version: version,
		Bridge:  values.Get("bridge"),
		Key:     values.Get("key"),
	}
	switch {
	case p.Topic == "":
		return Params{}, fmt.Errorf("%w: empty topic", ErrInvalid)
	case p.Version == "":
		return Params{}, fmt.Errorf("%w: empty version", ErrInvalid)
	case p.Bridge == "":
		return Params{}, fmt.Errorf("%w: missing bridge", ErrInvalid)
	case p.Key == "":
		return Params{}, fmt.Errorf("%w: missing key", ErrInvalid)
	}
	return p, nil
}

// escape percent-encodes everything outside the unreserved set, spaces
// included.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
