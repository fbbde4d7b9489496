package nameparse

import "regexp"

// commonjsRe matches "<name>-<semver>.<tgz|tar.gz>", per the CommonJS
// packaging/1.1 convention.
var commonjsRe = regexp.MustCompile(
	`^([\w\d\-._]+)-((?:0|[1-9]\d*)\.(?:0|[1-9]\d*)\.(?:0|[1-9]\d*)(?:-[\da-z\-]+(?:\.[\da-z\-]+)*)?(?:\+[\da-z\-]+(?:\.[\da-z\-]+)*)?)\.((?:tar\.gz)|(?:tgz))$`)

// ParseCommonJS decodes a CommonJS (npm-style) tarball filename. On no
// match it returns an Unparsed Result carrying the original name.
func ParseCommonJS(name string) Result {
	m := commonjsRe.FindStringSubmatch(name)
	if m == nil {
		return Result{Parsed: false, Original: name}
	}
	return Result{Parsed: true, Package: m[1], Version: m[2], Ext: m[3], Original: name}
}
