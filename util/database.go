// Package util provides utility functions shared by the registries, adapters and servers.
//
//revive:disable-next-line:var-naming
package util

import (
	"fmt"
	"strings"
)

// keyPunctuation lists the punctuation ArangoDB accepts in document keys, '%' aside.
const keyPunctuation = "_-:.@()+,=;$!*'"

// SanitizeKey ensures the database key is valid for ArangoDB.
// Bytes a key cannot hold, and '%' itself, are percent-encoded, so two ids never share a key
// and url.PathUnescape gives the id back.
func SanitizeKey(key string) string {
	var b strings.Builder
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			strings.IndexByte(keyPunctuation, c) >= 0:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
