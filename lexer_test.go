package chp

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lexAll(t *testing.T, src string) ([]Token, error) {
	t.Helper()
	lex := NewLexer()
	require.NoError(t, lex.StartFile("t.chp", strings.NewReader(src)))
	var toks []Token
	for {
		tok, err := lex.Next()
		if err != nil {
			return toks, err
		}
		toks = append(toks, tok)
		if tok.Kind == TokEOF {
			return toks, nil
		}
	}
}

func TestLexer_PeekLexesAsOneTokenNotProbeThenRecv(t *testing.T) {
	toks, err := lexAll(t, "a#?b")
	require.NoError(t, err)
	kinds := make([]TokenKind, len(toks))
	for i, tk := range toks {
		kinds[i] = tk.Kind
	}
	assert.Contains(t, kinds, TokPeek, "a#? lexes as the dedicated peek token, not # followed by ?")
}

func TestLexer_DoubleEqualsFixupWarns(t *testing.T) {
	var buf bytes.Buffer
	saved := errOut
	errOut = &buf
	defer func() { errOut = saved }()
	_, err := lexAll(t, "a == b;")
	require.NoError(t, err, "the fix-up does not fail lexing by default")
	assert.Contains(t, buf.String(), "Warning:", "the fix-up prints a warning")
}

func TestLexer_HexAndBinaryLiterals(t *testing.T) {
	toks, err := lexAll(t, "0xFF 0b101")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(toks), 2)
	assert.Equal(t, int64(255), toks[0].IVal)
	assert.Equal(t, int64(5), toks[1].IVal)
}

func TestLexer_BigIntPromotion(t *testing.T) {
	toks, err := lexAll(t, "99999999999999999999999999")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(toks), 1)
	assert.Equal(t, TokBigInt, toks[0].Kind)
	require.NotNil(t, toks[0].BVal)
}

func TestLexer_UnterminatedStringIsLexError(t *testing.T) {
	_, err := lexAll(t, `"never closed`)
	require.Error(t, err)
	var le *LexError
	assert.ErrorAs(t, err, &le)
}

func TestLexer_NestedCommentWarnsButDoesNotFail(t *testing.T) {
	_, err := lexAll(t, "/* outer /* inner */ still-in-comment */ x")
	assert.NoError(t, err, "a nested /* only warns; it never fails the lex")
}

func TestLexer_LeadingDotFloat(t *testing.T) {
	toks, err := lexAll(t, ".5")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(toks), 1)
	assert.Equal(t, TokFloat, toks[0].Kind, "a leading dot followed by a digit starts a float literal, not TokDot")
	assert.Equal(t, 0.5, toks[0].FVal)
}

func TestLexer_LoneDotIsStillTokDot(t *testing.T) {
	toks, err := lexAll(t, ".x")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(toks), 1)
	assert.Equal(t, TokDot, toks[0].Kind, "a dot not followed by a digit is still the member-access operator")
}
