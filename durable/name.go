package durable

import (
	"path"
	"strings"

	"github.com/jmgilman/go/errors"
)

// ErrInvalidName is matched by errors for resource names that could escape the store.
var ErrInvalidName = errors.New(errors.CodeInvalidInput, "invalid resource name")

// CleanName validates an uploaded resource name and returns it in canonical slash form.
//
// Names are relative paths such as "papers/alexnet.pdf". Empty names, absolute paths,
// backslashes, NUL bytes and any ".." segment are rejected.
func CleanName(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", invalidName(name, "empty name")
	}
	if strings.ContainsAny(name, "\\\x00") {
		return "", invalidName(name, "forbidden character")
	}
	if strings.HasPrefix(name, "/") {
		return "", invalidName(name, "absolute path")
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return "", invalidName(name, "path traversal")
		}
	}

	clean := path.Clean(name)
	if clean == "." {
		return "", invalidName(name, "empty name")
	}
	return clean, nil
}

func invalidName(name, reason string) error {
	err := errors.Wrap(ErrInvalidName, errors.CodeInvalidInput, reason)
	return errors.WithContext(err, "name", name)
}
