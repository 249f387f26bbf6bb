package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustforge/internal/trust"
)

func TestString(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"plain text passes through", "Senior Go Engineer", "Senior Go Engineer"},
		{"script tag stripped", "<script>alert(1)</script>Hello", "alert(1)Hello"},
		{"nested tags stripped", "<<b>i>deep</i>", "i&gt;deep"},
		{"null bytes removed", "a\x00b\x01c", "abc"},
		{"reserved set encoded", `Tom & "Jerry"`, "Tom &amp; &quot;Jerry&quot;"},
		{"quote and slash encoded", "a'b/c", "a&#x27;b&#x2F;c"},
		{"whitespace trimmed", "  hello  ", "hello"},
		{"empty stays empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, String(tc.in))
		})
	}
}

func TestStringIdempotent(t *testing.T) {
	inputs := []string{
		"plain",
		"<script>alert(1)</script>Hello",
		"already &amp; encoded &lt;tag&gt;",
		`mix & match <b>"bold"</b> 'x' a/b`,
		"&#x27;quoted&#x27; and &#x2F;slashed&#x2F;",
		"& alone",
		"trailing & ",
		"<unclosed",
		"5 > 3 and 2 < 4",
	}
	for _, in := range inputs {
		once := String(in)
		twice := String(once)
		assert.Equal(t, once, twice, "sanitizing twice changed %q", in)
	}
}

func TestStringRemovesScriptPayload(t *testing.T) {
	out := String("<script>alert(1)</script>Hello")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "Hello")
}

func TestURL(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"https accepted", "https://example.com/proof?id=1", "https://example.com/proof?id=1"},
		{"http accepted", "http://example.com", "http://example.com"},
		{"javascript rejected", "javascript:alert(1)", ""},
		{"data URI rejected", "data:text/html,<script>", ""},
		{"relative rejected", "/just/a/path", ""},
		{"garbage rejected", "http://[::1]:namedport", ""},
		{"empty rejected", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, URL(tc.in))
		})
	}
}

func TestMetadata(t *testing.T) {
	rating := 4.5
	candidate := trust.CredentialMetadata{
		Type:        "bogus",
		Name:        "  <b>Go</b> Expert  ",
		Description: "wrote <script>evil()</script> services",
		Issuer:      "ACME & Co",
		Rating:      &rating,
		Timestamp:   " 2024-01-01T00:00:00.000Z ",
		Visibility:  "friends-only",
		ProofHash:   strings.Repeat("a", 64),
		Metadata: &trust.ExtraMetadata{
			VerificationURL: "javascript:alert(1)",
			Notes:           "<i>note</i>",
		},
	}

	got := Metadata(candidate)

	assert.Equal(t, "Go Expert", got.Name)
	assert.Equal(t, "wrote evil() services", got.Description)
	assert.Equal(t, "ACME &amp; Co", got.Issuer)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", got.Timestamp)
	assert.Equal(t, trust.CredentialType(""), got.Type, "invalid enum collapses")
	assert.Equal(t, trust.VisibilityPublic, got.Visibility, "invalid visibility falls back")
	assert.Equal(t, strings.Repeat("a", 64), got.ProofHash, "proof hash untouched")
	assert.Empty(t, got.Metadata.VerificationURL, "non-http scheme rejected")
	assert.Equal(t, "note", got.Metadata.Notes)
	// Input is never mutated.
	assert.Equal(t, "  <b>Go</b> Expert  ", candidate.Name)
}

func TestMetadataKeepsValidEnums(t *testing.T) {
	got := Metadata(trust.CredentialMetadata{Type: trust.TypeSkill, Visibility: trust.VisibilityPrivate})
	assert.Equal(t, trust.TypeSkill, got.Type)
	assert.Equal(t, trust.VisibilityPrivate, got.Visibility)
}

func TestJSON(t *testing.T) {
	t.Run("deep sanitizes leaves and keys", func(t *testing.T) {
		doc, err := JSON(`{"<b>k</b>": ["<script>x</script>hi", {"inner": "a & b"}], "n": 3}`)
		require.NoError(t, err)

		m, ok := doc.(map[string]any)
		require.True(t, ok)
		arr, ok := m["k"].([]any)
		require.True(t, ok)
		assert.Equal(t, "xhi", arr[0])
		inner, ok := arr[1].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "a &amp; b", inner["inner"])
		assert.Equal(t, float64(3), m["n"])
	})

	t.Run("malformed input fails", func(t *testing.T) {
		_, err := JSON(`{"unterminated`)
		require.Error(t, err)
	})
}
