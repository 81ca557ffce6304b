package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey_Deterministic(t *testing.T) {
	a := Key("search", "Manchester", []string{"roofer", "plumber"}, 20000)
	b := Key("search", "Manchester", []string{"roofer", "plumber"}, 20000)
	assert.Equal(t, a, b)
}

func TestKey_NamespacePrefix(t *testing.T) {
	key := Key("coords", "M1 1AE")
	assert.True(t, strings.HasPrefix(key, "coords:"))
}

func TestKey_CaseAndWhitespaceInsensitive(t *testing.T) {
	a := Key("search", "Manchester  City Centre")
	b := Key("search", "manchester city centre")
	assert.Equal(t, a, b)
}

func TestKey_ListOrderInsensitive(t *testing.T) {
	a := Key("search", []string{"roofer", "plumber", "electrician"})
	b := Key("search", []string{"electrician", "roofer", "plumber"})
	assert.Equal(t, a, b)
}

func TestKey_DistinctParamsDistinctKeys(t *testing.T) {
	a := Key("search", "Manchester", 20000)
	b := Key("search", "Manchester", 30000)
	assert.NotEqual(t, a, b)
}

func TestKey_NamespacesIsolated(t *testing.T) {
	assert.NotEqual(t, Key("search", "M1 1AE"), Key("coords", "M1 1AE"))
}
