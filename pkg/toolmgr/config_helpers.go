package toolmgr

// Lightweight helpers for narrowing and inspecting TransportSpec values
// without forcing consumers to use a type switch at every call site.

// TransportKind identifies the transport family used by a TransportSpec.
type TransportKind string

const (
	TransportStdio TransportKind = "stdio"
	TransportHTTP  TransportKind = "http"
)

// TransportOf returns the transport kind for a TransportSpec.
// Returns an empty string when the value is nil or an unknown implementation.
func TransportOf(spec TransportSpec) TransportKind {
	switch spec.(type) {
	case *StdioTransport:
		return TransportStdio
	case *HTTPTransport:
		return TransportHTTP
	default:
		return ""
	}
}

// IsStdio reports whether spec is a *StdioTransport.
func IsStdio(spec TransportSpec) bool {
	_, ok := spec.(*StdioTransport)
	return ok
}

// IsHTTP reports whether spec is a *HTTPTransport.
func IsHTTP(spec TransportSpec) bool {
	_, ok := spec.(*HTTPTransport)
	return ok
}

// AsStdio narrows spec to *StdioTransport, returning (nil, false) when it
// does not match.
func AsStdio(spec TransportSpec) (*StdioTransport, bool) {
	t, ok := spec.(*StdioTransport)
	return t, ok
}

// AsHTTP narrows spec to *HTTPTransport, returning (nil, false) when it
// does not match.
func AsHTTP(spec TransportSpec) (*HTTPTransport, bool) {
	t, ok := spec.(*HTTPTransport)
	return t, ok
}
