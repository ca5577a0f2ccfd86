package urlutil

import (
	"net/url"
	"path"
	"strings"
)

// JoinPath appends path segments to a base URL, normalizing duplicate
// and missing slashes. A trailing slash on the final segment survives
// the join.
func JoinPath(base string, paths ...string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}

	allPaths := append([]string{u.Path}, paths...)
	u.Path = path.Join(allPaths...)

	if len(paths) > 0 && strings.HasSuffix(paths[len(paths)-1], "/") {
		u.Path += "/"
	}

	return u.String(), nil
}

// MustJoinPath is JoinPath for bases already validated by config
// loading; it panics instead of returning an error.
func MustJoinPath(base string, paths ...string) string {
	result, err := JoinPath(base, paths...)
	if err != nil {
		panic(err)
	}
	return result
}
