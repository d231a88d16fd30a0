package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Net Banking Login", CleanText("  Net\n\tBanking   Login "))
	assert.Equal(t, "", CleanText(" \n "))
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", TruncateText("short", 10))
	assert.Equal(t, "secure online...", TruncateText("secure online banking", 15))
	assert.Equal(t, "ünï...", TruncateText("ünïcode", 3))
}

func TestContainsAnyKeyword(t *testing.T) {
	k, ok := ContainsAnyKeyword("https://SBI-NetBanking.example/login", []string{"verify", "netbanking"})
	assert.True(t, ok)
	assert.Equal(t, "netbanking", k)

	_, ok = ContainsAnyKeyword("https://example.com/about", []string{"login", ""})
	assert.False(t, ok)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "https___www.hdfcbank.com_login", SanitizeFilename("https://www.hdfcbank.com/login"))
	assert.Equal(t, "ab", SanitizeFilename("a\x00b"))
	assert.Len(t, SanitizeFilename(strings.Repeat("x", 300)), 255)
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"HTTPS://WWW.OnlineSBI.sbi/", "https://www.onlinesbi.sbi"},
		{"https://example.com/Login#top", "https://example.com/Login"},
		{"https://example.com/a?b=1", "https://example.com/a?b=1"},
		{"not a url/", "not a url"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeURL(tt.in))
		})
	}
}

func TestGetDomainFromURL(t *testing.T) {
	assert.Equal(t, "secure.hdfcbank.com", GetDomainFromURL("https://Secure.HDFCBank.com:443/x"))
	assert.Equal(t, "onlinesbi.sbi", GetDomainFromURL("onlinesbi.sbi/login"))
}

func TestReadURLList(t *testing.T) {
	input := "https://a.example\n\n# comment\n  https://b.example  \n"
	urls, err := ReadURLList(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, urls)
}
