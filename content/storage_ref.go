package content

import "strings"

type RefKind int

const (
	RefKey RefKind = iota
	RefLegacyURL
)

// StorageRef points at stored audio. Older rows kept a full public URL where newer
// rows keep the bare storage key.
type StorageRef struct {
	Kind  RefKind
	Value string
}

func KeyRef(key string) StorageRef { return StorageRef{Kind: RefKey, Value: key} }

func LegacyURLRef(url string) StorageRef { return StorageRef{Kind: RefLegacyURL, Value: url} }

// ParseStorageRef classifies a stored value once, at the persistence boundary.
func ParseStorageRef(raw string) StorageRef {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return LegacyURLRef(raw)
	}
	return KeyRef(strings.TrimPrefix(raw, "/"))
}

func (r StorageRef) String() string { return r.Value }
