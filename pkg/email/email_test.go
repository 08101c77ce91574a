package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderGeneratedPasswordEscapes(t *testing.T) {
	body := renderGeneratedPassword("https://carga.example", "ana<script>", "a&b!")

	assert.Contains(t, body, "ana&lt;script&gt;")
	assert.Contains(t, body, "a&amp;b!")
	assert.Contains(t, body, `href="https://carga.example/login"`)
	assert.NotContains(t, body, "<script>")
}
