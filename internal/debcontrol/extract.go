package debcontrol

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/blakesmith/ar"
)

// ErrControlNotFound is returned when no control member was found inside
// any control.tar* entry of the archive.
var ErrControlNotFound = errors.New("debcontrol: control file not found in archive")

// ExtractControl reads a .deb archive (an ar archive containing
// debian-binary, control.tar(.gz), and data.tar(.gz)) and returns the raw
// text of the "control" member inside control.tar*.
func ExtractControl(r io.Reader) (string, error) {
	arR := ar.NewReader(r)

	for {
		header, err := arR.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("debcontrol: reading ar entry: %w", err)
		}

		if !strings.HasPrefix(header.Name, "control.tar") {
			continue
		}

		tarData := make([]byte, header.Size)
		if _, err := io.ReadFull(arR, tarData); err != nil {
			return "", fmt.Errorf("debcontrol: reading control member: %w", err)
		}

		control, err := extractControlFromTar(header.Name, tarData)
		if err != nil {
			return "", err
		}
		return control, nil
	}

	return "", ErrControlNotFound
}

func extractControlFromTar(memberName string, tarData []byte) (string, error) {
	tarR := bytes.NewReader(tarData)

	var tr *tar.Reader
	if strings.HasSuffix(memberName, ".gz") {
		gzr, err := gzip.NewReader(tarR)
		if err != nil {
			return "", fmt.Errorf("debcontrol: ungzipping %s: %w", memberName, err)
		}
		defer gzr.Close()
		tr = tar.NewReader(gzr)
	} else {
		tr = tar.NewReader(tarR)
	}

	for {
		th, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("debcontrol: reading tar entry: %w", err)
		}
		if path.Base(th.Name) != "control" {
			continue
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, tr); err != nil {
			return "", fmt.Errorf("debcontrol: reading control entry: %w", err)
		}
		return buf.String(), nil
	}

	return "", ErrControlNotFound
}
