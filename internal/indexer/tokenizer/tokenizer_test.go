package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tokens := Tokenize("The Dogs were RUNNING to the park")
	require.Len(t, tokens, 3)
	assert.Equal(t, Token{Term: "dog", Position: 0}, tokens[0])
	assert.Equal(t, Token{Term: "run", Position: 1}, tokens[1])
	assert.Equal(t, Token{Term: "park", Position: 2}, tokens[2])
}

func TestTermsSplitsCompounds(t *testing.T) {
	assert.Equal(t, []string{"near", "death"}, Terms("near-death"))
}

func TestTermsStopWordOnly(t *testing.T) {
	assert.Empty(t, Terms("the"))
	assert.Empty(t, Terms(""))
}

func TestTermsFoldsCompatibilityForms(t *testing.T) {
	// fullwidth letters fold to ASCII
	assert.Equal(t, []string{"cat"}, Terms("ＣＡＴ"))
}

func TestAnalyzer(t *testing.T) {
	assert.Equal(t, []string{"cat"}, Analyzer{}.Analyze("Cats"))
}

func TestExtractText(t *testing.T) {
	doc := `<html><head><title>Dog Park</title><style>p{}</style></head>
<body><p>Cats <b>and</b> dogs</p><script>var x = 1;</script></body></html>`
	text, err := ExtractText(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "Dog Park Cats and dogs", text)
}

func TestExtractTextPlain(t *testing.T) {
	text, err := ExtractText(strings.NewReader("just words"))
	require.NoError(t, err)
	assert.Equal(t, "just words", text)
}
