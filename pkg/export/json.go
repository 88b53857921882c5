package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/OFFIS-RIT/companynet/pkg/common"
)

const fileNamePrefix = "company_network_"

// WriteNetwork writes network as one indented JSON document. Non-ASCII text
// is written verbatim and HTML characters are not escaped.
func WriteNetwork(w io.Writer, network *common.Network) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(network); err != nil {
		return fmt.Errorf("failed to encode network: %w", err)
	}
	return nil
}

// MarshalNetwork returns the document produced by WriteNetwork.
func MarshalNetwork(network *common.Network) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteNetwork(&buf, network); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileName derives the output file name from the seed query, replacing every
// whitespace character and path separator with an underscore.
func FileName(query string) string {
	slug := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, query)
	return fileNamePrefix + slug + ".json"
}

// WriteFile writes the network document to dir/FileName(network.Query) and
// returns the path written. The file is replaced atomically.
func WriteFile(dir string, network *common.Network) (string, error) {
	if dir == "" {
		dir = "."
	}
	data, err := MarshalNetwork(network)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName(network.Query))
	tmp, err := os.CreateTemp(dir, ".company_network_*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write network file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to set network file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close network file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move network file into place: %w", err)
	}

	return path, nil
}
