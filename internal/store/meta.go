package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// checksumPrefix tags SHA-256 checksums.
const checksumPrefix = "sha256:"

// Meta describes one stored dictionary. It is rewritten atomically after
// every save and commits the first LogBytes bytes of the node log.
type Meta struct {
	Name      string    `json:"name"`
	Rule      string    `json:"rule"`
	SessionID string    `json:"session_id"`
	LastSeq   uint64    `json:"last_seq"`
	Log       string    `json:"log"`
	Nodes     int       `json:"nodes"`
	Rows      int       `json:"rows"`
	LogBytes  int64     `json:"log_bytes"`
	Patterns  []string  `json:"patterns"`
	SavedAt   time.Time `json:"saved_at"`
	Checksum  string    `json:"checksum"`
}

// logName returns the node log m commits, or "" for a nil Meta.
func (m *Meta) logName() string {
	if m == nil {
		return ""
	}
	return m.Log
}

// marshalMeta serializes m with a checksum computed over the JSON with the
// checksum field empty.
func marshalMeta(m *Meta) ([]byte, error) {
	sum, err := metaChecksum(m)
	if err != nil {
		return nil, err
	}
	m.Checksum = sum

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal meta")
	}
	return data, nil
}

// unmarshalMeta parses data and verifies its checksum.
func unmarshalMeta(data []byte) (*Meta, error) {
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "unmarshal meta: %v", err)
	}
	saved := m.Checksum
	sum, err := metaChecksum(&m)
	if err != nil {
		return nil, err
	}
	if sum != saved {
		return nil, errors.Wrapf(ErrCorrupt, "meta checksum: expected %s, got %s", saved, sum)
	}
	return &m, nil
}

func metaChecksum(m *Meta) (string, error) {
	saved := m.Checksum
	m.Checksum = ""
	defer func() { m.Checksum = saved }()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "marshal meta for checksum")
	}
	sum := sha256.Sum256(data)
	return checksumPrefix + hex.EncodeToString(sum[:]), nil
}
