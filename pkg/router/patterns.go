package router

import (
	"regexp"

	"github.com/jellydator/ttlcache/v3"
)

// maxCompiledPatterns bounds the process-wide pattern cache. Patterns are
// declared in code, so the working set is small and stable.
const maxCompiledPatterns = 1024

type compiled struct {
	re  *regexp.Regexp
	err error
}

// patterns memoizes compiled expressions across per-request routers.
// Compile failures are cached too so a broken pattern is not recompiled;
// callers still log and count the failure on every use.
var patterns = ttlcache.New[string, compiled](
	ttlcache.WithCapacity[string, compiled](maxCompiledPatterns),
	ttlcache.WithDisableTouchOnHit[string, compiled](),
)

// anchored compiles pattern so that it must match the entire subject.
func anchored(pattern string) (*regexp.Regexp, error) {
	return compile("^(?:" + pattern + ")$")
}

func compile(expr string) (*regexp.Regexp, error) {
	if item := patterns.Get(expr); item != nil {
		c := item.Value()
		return c.re, c.err
	}

	re, err := regexp.Compile(expr)
	patterns.Set(expr, compiled{re: re, err: err}, ttlcache.NoTTL)
	return re, err
}
