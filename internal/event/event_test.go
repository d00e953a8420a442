package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadJSONShape(t *testing.T) {
	b, err := Payload{Kind: KindText, Content: "hi"}.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"text","content":"hi"}`, string(b))
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	_, err := Decode([]byte(`{"kind":"rtf","content":"x"}`))
	require.Error(t, err)

	p, err := Decode([]byte(`{"kind":"image","content":"AAAA"}`))
	require.NoError(t, err)
	assert.Equal(t, KindImage, p.Kind)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("text")
	require.NoError(t, err)
	assert.Equal(t, KindText, k)

	_, err = ParseKind("TEXT")
	require.Error(t, err)
}

func TestTeeOrderAndNilSkip(t *testing.T) {
	var got []string
	a := SinkFunc(func(p Payload) { got = append(got, "a:"+p.Content) })
	b := SinkFunc(func(p Payload) { got = append(got, "b:"+p.Content) })

	Tee(a, nil, b).Notify(Payload{Kind: KindText, Content: "x"})
	assert.Equal(t, []string{"a:x", "b:x"}, got)
}

func TestEnvelopeFlattens(t *testing.T) {
	b, err := json.Marshal(Wrap(Payload{Kind: KindImage, Content: "QQ=="}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"clipboard-changed","kind":"image","content":"QQ=="}`, string(b))
}
