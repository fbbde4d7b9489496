package debcontrol

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"
)

// hashChunkSize mirrors the 65536-byte streaming chunk of spec.md §4.5.
const hashChunkSize = 65536

// Hashes is the set of digests produced by streaming a relic once.
type Hashes struct {
	MD5    string
	SHA1   string
	SHA256 string
	SHA512 string
	Size   int64
}

// Hash streams r once through MD5, SHA1, SHA256, and SHA512 simultaneously,
// in hashChunkSize chunks, without buffering the whole file.
func Hash(r io.Reader) (Hashes, error) {
	hashes := map[string]hash.Hash{
		"md5":    md5.New(),
		"sha1":   sha1.New(),
		"sha256": sha256.New(),
		"sha512": sha512.New(),
	}
	writers := make([]io.Writer, 0, len(hashes))
	for _, h := range hashes {
		writers = append(writers, h)
	}
	mw := io.MultiWriter(writers...)

	buf := make([]byte, hashChunkSize)
	var size int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			size += int64(n)
			if _, werr := mw.Write(buf[:n]); werr != nil {
				return Hashes{}, werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Hashes{}, err
		}
	}

	return Hashes{
		MD5:    hex.EncodeToString(hashes["md5"].Sum(nil)),
		SHA1:   hex.EncodeToString(hashes["sha1"].Sum(nil)),
		SHA256: hex.EncodeToString(hashes["sha256"].Sum(nil)),
		SHA512: hex.EncodeToString(hashes["sha512"].Sum(nil)),
		Size:   size,
	}, nil
}
