package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadHashDeterministic(t *testing.T) {
	a := Obj(O("color", IRString("red")), O("size", IRInt(7)))
	b := Obj(O("size", IRInt(7)), O("color", IRString("red")))

	ha, err := PayloadHash(a)
	require.NoError(t, err)
	hb, err := PayloadHash(b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb, "key order must not affect the hash")
	assert.Len(t, ha, 64, "SHA-256 hex is 64 characters")
}

func TestPayloadHashChangesWithContent(t *testing.T) {
	h1 := MustPayloadHash(Obj(O("color", IRString("red"))))
	h2 := MustPayloadHash(Obj(O("color", IRString("blue"))))
	h3 := MustPayloadHash(Obj(O("color", IRNull{})))
	h4 := MustPayloadHash(Obj())

	assert.NotEqual(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.NotEqual(t, h3, h4, "explicit null differs from absence")
}

func TestPayloadHashRejectsAbsentValue(t *testing.T) {
	_, err := PayloadHash(IRObject{"color": nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PayloadHash")
}

func TestConversionIDDistinguishesInputs(t *testing.T) {
	id := func(runID, version, direction string) string {
		t.Helper()
		h, err := ConversionID(runID, "widgets", version, "Widget", direction, "abc")
		require.NoError(t, err)
		return h
	}
	base := id("run-1", "2021-01-01", "to_normalized")

	assert.Len(t, base, 64)
	assert.Equal(t, base, id("run-1", "2021-01-01", "to_normalized"))
	assert.NotEqual(t, base, id("run-2", "2021-01-01", "to_normalized"))
	assert.NotEqual(t, base, id("run-1", "2021-01-01", "to_versioned"))
	assert.NotEqual(t, base, id("run-1", "2022-01-01", "to_normalized"))
}
