package domain

import "strings"

// Token is an opaque bearer credential. The zero value means "no token".
type Token string

func (t Token) Present() bool { return strings.TrimSpace(string(t)) != "" }

func (t Token) String() string {
	v := string(t)
	if len(v) <= 8 {
		return "****"
	}
	return v[:4] + "..." + v[len(v)-4:]
}
