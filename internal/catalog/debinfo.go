package catalog

import "github.com/zombified/reliquary/internal/debcontrol"

// GetDebInfo fetches the DebInfo for a Relic. Returns ErrNone if the relic
// has none (not a .deb, or extraction failed validation).
func (db *DB) GetDebInfo(relicID int64) (*DebInfo, error) {
	var rows []DebInfo
	err := db.Select(&rows, db.Rebind(debInfoSelect+` WHERE relic_id = ?`), relicID)
	if err != nil {
		return nil, err
	}
	return boundOne(rows)
}

// UpsertDebInfo inserts or updates the DebInfo for relicID, per spec.md
// §4.5 step 6.
func (db *DB) UpsertDebInfo(relicID int64, info *debcontrol.Info) error {
	existing, err := db.GetDebInfo(relicID)
	if err != nil && err != ErrNone {
		return err
	}

	if existing != nil {
		_, err := db.Exec(db.Rebind(`
			UPDATE deb_infos SET
				filename = ?, md5sum = ?, sha1 = ?, sha256 = ?, sha512 = ?,
				description_md5 = ?, multi_arch = ?,
				package = ?, version = ?, architecture = ?, maintainer = ?, description = ?,
				source = ?, section = ?, priority = ?, essential = ?, depends = ?,
				recommends = ?, suggests = ?, enhances = ?, pre_depends = ?,
				installed_size = ?, homepage = ?, built_using = ?
			WHERE relic_id = ?
		`),
			info.Filename, info.Hashes.MD5, info.Hashes.SHA1, info.Hashes.SHA256, info.Hashes.SHA512,
			info.DescriptionMD5, info.MultiArch,
			info.Package, info.Version, info.Architecture, info.Maintainer, info.Description,
			info.Source, info.Section, info.Priority, info.Essential, info.Depends,
			info.Recommends, info.Suggests, info.Enhances, info.PreDepends,
			info.InstalledSize, info.Homepage, info.BuiltUsing,
			relicID,
		)
		return err
	}

	_, err = db.Exec(db.Rebind(`
		INSERT INTO deb_infos (
			relic_id, filename, md5sum, sha1, sha256, sha512, description_md5, multi_arch,
			package, version, architecture, maintainer, description,
			source, section, priority, essential, depends, recommends, suggests,
			enhances, pre_depends, installed_size, homepage, built_using
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		relicID, info.Filename, info.Hashes.MD5, info.Hashes.SHA1, info.Hashes.SHA256, info.Hashes.SHA512,
		info.DescriptionMD5, info.MultiArch,
		info.Package, info.Version, info.Architecture, info.Maintainer, info.Description,
		info.Source, info.Section, info.Priority, info.Essential, info.Depends,
		info.Recommends, info.Suggests, info.Enhances, info.PreDepends,
		info.InstalledSize, info.Homepage, info.BuiltUsing,
	)
	return err
}

const debInfoSelect = `
	SELECT id, relic_id, filename, md5sum, sha1, sha256, sha512, description_md5, multi_arch,
	       package, version, architecture, maintainer, description,
	       source, section, priority, essential, depends, recommends, suggests,
	       enhances, pre_depends, installed_size, homepage, built_using
	FROM deb_infos`

// PackagesForArch joins Relic x DebInfo for an Index, filtered by an
// architecture substring per spec.md §4.6.1's ILIKE prefilter. Callers must
// apply the exact-membership post-filter themselves (see debrepo), since
// that second step is not expressible as SQL without per-dialect string
// splitting.
func (db *DB) PackagesForArch(indexID int64, archLike string) ([]DebInfoWithRelic, error) {
	var rows []DebInfoWithRelic
	query := db.Rebind(`
		SELECT d.id, d.relic_id, d.filename, d.md5sum, d.sha1, d.sha256, d.sha512,
		       d.description_md5, d.multi_arch, d.package, d.version, d.architecture,
		       d.maintainer, d.description, d.source, d.section, d.priority, d.essential,
		       d.depends, d.recommends, d.suggests, d.enhances, d.pre_depends,
		       d.installed_size, d.homepage, d.built_using,
		       r.size AS relic_size, r.name AS relic_name
		FROM deb_infos d
		JOIN relics r ON r.id = d.relic_id
		WHERE r.index_id = ? AND ` + archLikeClause(db.Driver()))
	err := db.Select(&rows, query, indexID, "%"+archLike+"%")
	return rows, err
}

func archLikeClause(driver string) string {
	if driver == "postgres" {
		return "d.architecture ILIKE ?"
	}
	return "d.architecture LIKE ? COLLATE NOCASE"
}
