// Package string holds helpers for rendering connection strings in logs.
package string

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Mask will mask a string by replacing the second half with asterisks.
func Mask(s string) string {
	l := len(s)
	if l == 0 {
		return s
	}
	if l == 1 {
		return "*"
	}
	h := int(l / 2)
	return s[0:h] + strings.Repeat("*", l-h)
}

// MaskURL returns a masked version of the URL string attempting to hide sensitive information.
func MaskURL(urlString string) (string, error) {
	u, err := url.Parse(urlString)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	var str strings.Builder
	str.WriteString(u.Scheme)
	str.WriteString("://")
	if u.User != nil {
		str.WriteString(Mask(u.User.Username()))
		pass, ok := u.User.Password()
		if ok {
			str.WriteString(":")
			str.WriteString(Mask(pass))
		}
		str.WriteString("@")
	}
	str.WriteString(u.Host)
	p := u.Path
	if p != "/" && p != "" {
		str.WriteString("/")
		if len(p) > 1 && p[0] == '/' {
			str.WriteString(p[1:])
		}
	}
	var qs []string
	for k, v := range u.Query() {
		qs = append(qs, fmt.Sprintf("%s=%s", k, Mask(strings.Join(v, ","))))
	}
	sort.Strings(qs)
	if len(qs) > 0 {
		str.WriteString("?")
		str.WriteString(strings.Join(qs, "&"))
	}
	return str.String(), nil
}

var isURL = regexp.MustCompile(`^(\w+)://`)
var isSecretKV = regexp.MustCompile(`(?i)\b(password|sslpassword|sslkey)=('[^']*'|\S+)`)

// MaskDSN masks a database or cache connection string. URL forms go through
// MaskURL; PostgreSQL key=value forms have their secret values masked.
func MaskDSN(dsn string) string {
	if isURL.MatchString(dsn) {
		if u, err := MaskURL(dsn); err == nil {
			return u
		}
		return Mask(dsn)
	}
	return isSecretKV.ReplaceAllStringFunc(dsn, func(kv string) string {
		k, v, _ := strings.Cut(kv, "=")
		return k + "=" + Mask(strings.Trim(v, "'"))
	})
}
