package nameparse

import "regexp"

// debianRe matches "<name>_<version>[_<arch>].<ext>" where ext is one of the
// Debian source/binary artifact extensions. Absence of match is the signal
// used elsewhere to skip non-Debian files during architecture enumeration.
var debianRe = regexp.MustCompile(
	`^([A-Za-z0-9.\-+]+)_([\w\d.\-+:~]+?)(?:_([\w\d-]+))?\.((?:orig\.)?tar\.gz|diff\.gz|dsc|deb)$`)

// ParseDebian decodes a Debian relic filename into package, version, arch
// (if present), and extension.
func ParseDebian(name string) Result {
	m := debianRe.FindStringSubmatch(name)
	if m == nil {
		return Result{Parsed: false, Original: name}
	}
	return Result{Parsed: true, Package: m[1], Version: m[2], Arch: m[3], Ext: m[4], Original: name}
}
