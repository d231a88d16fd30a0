package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/phishsmith/internal/models"
)

const loginPage = `<!DOCTYPE html>
<html>
<head><title>  SBI   Net Banking </title></head>
<body>
	<h1>Welcome to Online Banking</h1>
	<form action="/auth">
		<input type="text" name="user">
		<input type="password" name="pass">
	</form>
	<a href="/verify?step=1">Verify your account</a>
	<a href="https://secure-sbi.example/login#form">Login</a>
	<a href="https://secure-sbi.example/login">Login again</a>
	<a href="#top">Top</a>
	<a href="mailto:help@example.com">Mail</a>
	<a href="javascript:void(0)">Noop</a>
	<a href="ftp://files.example/x">Files</a>
	<a href="/help"><img src="/h.png" alt="Help"></a>
	<script>var hidden = "do not index";</script>
</body>
</html>`

func TestExtract(t *testing.T) {
	e := New()
	page, err := e.Extract([]byte(loginPage), "https://phish.example/start/index.html")
	require.NoError(t, err)

	assert.Equal(t, "https://phish.example/start/index.html", page.URL)
	assert.Equal(t, "SBI Net Banking", page.Title)
	assert.True(t, page.HasPasswordField)
	assert.NotEmpty(t, page.Text)
	assert.NotContains(t, page.Text, "do not index")

	assert.Equal(t, []models.Link{
		{ToURL: "https://phish.example/verify?step=1", AnchorText: "Verify your account"},
		{ToURL: "https://secure-sbi.example/login", AnchorText: "Login"},
		{ToURL: "https://phish.example/help", AnchorText: "Help"},
	}, page.Links)
}

func TestExtractPlainPage(t *testing.T) {
	page, err := New().Extract([]byte(`<html><body><p>About us</p></body></html>`), "https://example.com/")
	require.NoError(t, err)
	assert.False(t, page.HasPasswordField)
	assert.Empty(t, page.Links)
	assert.Contains(t, page.Text, "About us")
}

func TestFallbackText(t *testing.T) {
	text := fallbackText([]byte(`<html><head><style>p{}</style></head><body><p>One</p><div>Two</div></body></html>`))
	assert.Equal(t, "One Two ", text)
}
