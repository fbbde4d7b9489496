package protocol

import (
	"github.com/go-chi/chi/v5"

	"github.com/zombified/reliquary/internal/debrepo"
)

// Mount registers every protocol shim under r, matching the URL surface of
// spec.md §6 (all routes live under /api/v1/).
func (s *Service) Mount(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Put("/raw/{channel}/{index}/{relic}", s.PutRaw)
		r.Get("/raw/{channel}/{index}/{relic}", s.GetRaw)

		r.Get("/autoindex/{channel}/{index}/", s.Autoindex)

		r.Get("/python/{channel}/{index}/simple/", s.PyPISimpleRoot)
		r.Get("/python/{channel}/{index}/simple/{package}/", s.PyPISimplePackage)
		r.Get("/python/proxy/{channel}/{index}/simple/", s.PyPIProxySimpleRoot)
		r.Get("/python/proxy/{channel}/{index}/simple/{package}/", s.PyPIProxySimplePackage)
		r.Get("/python/proxy/{channel}/{index}/packages/{a}/{b}/{hash}/{package}", s.PyPIProxyPackage)

		r.Get("/commonjs/{channel}/{index}/", s.CommonJSRegistryRoot)
		r.Get("/commonjs/{channel}/{index}/{package}/", s.CommonJSPackageRoot)
		r.Get("/commonjs/{channel}/{index}/{package}/{version}/", s.CommonJSPackageVersion)
		r.Get("/commonjs/proxy/{channel}/{index}/", s.CommonJSProxyRegistryRoot)
		r.Get("/commonjs/proxy/{channel}/{index}/{package}/", s.CommonJSProxyPackageRoot)
		r.Get("/commonjs/proxy/{channel}/{index}/{package}/{version}/", s.CommonJSProxyPackageVersion)
		r.Get("/commonjs/proxy/package/{channel}/{index}/{package}/{version}", s.CommonJSProxyPackage)

		r.Get("/debian/{channel}/", s.DebianChannelIndex)
		r.Get("/debian/{channel}/dist/", s.DebianDistRootIndex)
		r.Get("/debian/{channel}/pool/", s.DebianPoolRootIndex)
		r.Get("/debian/{channel}/dist/{index}/", s.DebianDistIndex)
		r.Get("/debian/{channel}/dist/{index}/Release", s.DebianDistRelease)
		r.Get("/debian/{channel}/pool/{index}/", s.DebianPoolDistIndex)
		r.Get("/debian/{channel}/pool/{index}/{relic}", s.DebianPoolPackage)
		r.Get("/debian/{channel}/dist/{index}/main/", s.DebianCompIndex)
		r.Get("/debian/{channel}/dist/{index}/main/binary-{arch}/", s.DebianArchIndex)
		r.Get("/debian/{channel}/dist/{index}/main/binary-{arch}/Release", s.DebianArchRelease)
		r.Get("/debian/{channel}/dist/{index}/main/binary-{arch}/Packages",
			s.DebianArchPackages(debrepo.None, "text/plain; charset=utf-8"))
		r.Get("/debian/{channel}/dist/{index}/main/binary-{arch}/Packages.gz",
			s.DebianArchPackages(debrepo.Gzip, "application/gzip"))
		r.Get("/debian/{channel}/dist/{index}/main/binary-{arch}/Packages.bz2",
			s.DebianArchPackages(debrepo.Bzip2, "application/x-bzip2"))
	})
}
