package ir

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// Signature hashes the DDL a single object would emit across both the
// pre-data and post-data passes, the same way conn.go's statement
// fingerprint hashes query text: a cheap equality check standing in for
// a full catalog diff. Two calls return the same value iff EmitPreData
// and EmitPostData would render byte-identical statements for o.
func Signature(o Object) string {
	var pre, post strings.Builder
	_ = EmitPreData(&pre, []Object{o})
	_ = EmitPostData(&post, []Object{o})
	h := fnv.New64a()
	h.Write([]byte(pre.String()))
	h.Write([]byte{0})
	h.Write([]byte(post.String()))
	return strconv.FormatUint(h.Sum64(), 16)
}
