package nameparse

import (
	"regexp"
	"strings"
)

// pypiLegacy matches the old sdist/egg naming convention, e.g.
// pytz-2016.10-py2.4.egg, pytz-2016.10.tar.bz2, pytz-2016.10.zip.
//
// group 1 = package name, group 2 = PEP-440-ish version,
// group 3 = supported python tag (unused), group 4 = extension.
var pypiLegacy = regexp.MustCompile(
	`^([\w\d.\-_]+)-((?:(?:\d+!)?(?:\d+)(?:\.\d+)*)(?:(?:a|b|rc)?\d+)?(?:\.post\d+)?(?:\.dev\d+)?(?:\+[a-zA-Z0-9.]+)?)(?:-([\w\d.]+))?\.((?:tgz)|(?:tar\.gz)|(?:zip)|(?:tar\.bz2)|(?:tbz2)|(?:egg))$`)

// pypiWheel matches PEP-491 wheel naming, e.g.
// zest.releaser-6.7.1-1buildtag-py2.py3.py27.py35-none-any.whl.
var pypiWheel = regexp.MustCompile(
	`^([\w\d.\-_]+)-((?:(?:\d+!)?(?:\d+)(?:\.\d+)*)(?:(?:a|b|rc)?\d+)?(?:\.post\d+)?(?:\.dev\d+)?(?:\+[a-zA-Z0-9.]+)?)(?:-(\d[\w\d]*))?-((?:[\w\d]+(?:\.[\w\d]+)*))-([\w\d]+)-([\w\d_]+)\.whl$`)

// pypiFallback is the permissive last resort: name, then a dotted numeric
// version, then whatever remains.
var pypiFallback = regexp.MustCompile(`^(.*)-(\d+(?:\.\d+)+)(.*)$`)

// ParsePyPI decodes a PyPI relic filename, trying the legacy sdist/egg form,
// then the PEP-491 wheel form, then a permissive fallback. On total failure
// it returns an Unparsed Result carrying the original name.
func ParsePyPI(name string) Result {
	if m := pypiLegacy.FindStringSubmatch(name); m != nil {
		return Result{Parsed: true, Package: m[1], Version: m[2], Ext: m[4], Original: name}
	}
	if m := pypiWheel.FindStringSubmatch(name); m != nil {
		return Result{Parsed: true, Package: m[1], Version: m[2], Ext: "whl", Original: name}
	}
	if m := pypiFallback.FindStringSubmatch(name); m != nil {
		return Result{Parsed: true, Package: m[1], Version: m[2], Ext: strings.Trim(m[3], "."), Original: name}
	}
	return Result{Parsed: false, Original: name}
}

// pypiNormalize collapses runs of "-", "_", "." into a single "-" and
// lowercases, per PEP-503.
var pypiNormalizeRe = regexp.MustCompile(`[-_.]+`)

// NormalizePyPIName applies the PEP-503 normalization used to build simple
// index anchors.
func NormalizePyPIName(name string) string {
	return strings.ToLower(pypiNormalizeRe.ReplaceAllString(name, "-"))
}
