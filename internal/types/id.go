package types

import (
	"crypto/rand"
	"strings"

	"github.com/oklog/ulid/v2"
)

// ID prefixes for generated references.
const (
	IDPrefixTariff = "tariff"
)

// GenerateIDWithPrefix returns a new prefixed ULID, e.g.
// "tariff_01h4x...". Used for tariff references when the source attribute
// data carries no name of its own.
func GenerateIDWithPrefix(prefix string) string {
	id := strings.ToLower(ulid.MustNew(ulid.Now(), rand.Reader).String())
	return prefix + "_" + id
}
