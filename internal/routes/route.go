package routes

import "strings"

// Kind identifies which handler serves a request.
type Kind int

const (
	NotFound Kind = iota
	Root
	Echo
	UserAgent
	File
)

func (k Kind) String() string {
	switch k {
	case Root:
		return "root"
	case Echo:
		return "echo"
	case UserAgent:
		return "user-agent"
	case File:
		return "files"
	default:
		return "not-found"
	}
}

// Match is the outcome of routing. Arg is the echo text for Echo and the
// file name for File.
type Match struct {
	Kind Kind
	Arg  string
}

const (
	echoPrefix      = "/echo/"
	userAgentPrefix = "/user-agent"
	filesPrefix     = "/files/"
)

// Route maps a request to a handler. Prefixes are checked in a fixed
// order and compared case-sensitively. The method does not take part in
// the match; the file handler looks at it itself.
func Route(method, path string) Match {
	switch {
	case path == "/":
		return Match{Kind: Root}
	case strings.HasPrefix(path, echoPrefix):
		return Match{Kind: Echo, Arg: segment(path, 2)}
	case strings.HasPrefix(path, userAgentPrefix):
		return Match{Kind: UserAgent}
	case strings.HasPrefix(path, filesPrefix):
		return Match{Kind: File, Arg: path[len(filesPrefix):]}
	default:
		return Match{Kind: NotFound}
	}
}

// segment returns the i-th "/"-separated element of path, or "".
func segment(path string, i int) string {
	parts := strings.Split(path, "/")
	if i < len(parts) {
		return parts[i]
	}
	return ""
}
