package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-focus/neuron"
)

func TestParseSequence(t *testing.T) {
	input := `[
		{"command": "keymap.custom", "data": "0 1 2"},
		{"command": "led.brightness", "data": 200},
		{"command": "keymap.onlyCustom", "data": true},
		{"command": "mouse.speed"}
	]`

	p, err := ParseReader(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, KindSequence, p.Kind)
	assert.Nil(t, p.Neuron)
	require.Len(t, p.Entries, 4)

	lines := make([]string, 0, len(p.Entries))
	for _, e := range p.Entries {
		lines = append(lines, e.Line())
	}
	assert.Equal(t, []string{
		"keymap.custom 0 1 2",
		"led.brightness 200",
		"keymap.onlyCustom 1",
		"mouse.speed",
	}, lines)
}

func TestParseEnvelope(t *testing.T) {
	input := `{
		"backup": [{"command": "keymap.custom", "data": "5"}],
		"neuron": {"id": "old-1", "name": "Office", "layers": 10}
	}`

	p, err := ParseReader(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, KindEnvelope, p.Kind)
	require.NotNil(t, p.Neuron)
	assert.Equal(t, "old-1", p.Neuron.ID)
	assert.Equal(t, "Office", p.Neuron.Name)
	assert.JSONEq(t, `10`, string(p.Neuron.Extra["layers"]))
	require.Len(t, p.Entries, 1)
	assert.Equal(t, "keymap.custom 5", p.Entries[0].Line())
}

func TestParseVirtualKeepsOrder(t *testing.T) {
	input := `{"virtual": {
		"zeta":     {"data": "1", "eraseable": true},
		"alpha":    {"data": 2, "eraseable": false},
		"mid":      {"data": true, "eraseable": "true"},
		"last":     {"data": "x"}
	}}`

	p, err := ParseReader(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, KindVirtual, p.Kind)
	require.Len(t, p.Virtual, 4)

	names := []string{}
	for _, f := range p.Virtual {
		names = append(names, f.Command)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid", "last"}, names)

	assert.True(t, p.Virtual[0].Eraseable)
	assert.False(t, p.Virtual[1].Eraseable)
	assert.False(t, p.Virtual[2].Eraseable, "only a literal true marks a field eraseable")
	assert.False(t, p.Virtual[3].Eraseable)

	assert.Equal(t, "zeta 1", p.Virtual[0].Line())
	assert.Equal(t, "mid true", p.Virtual[2].Line())
}

func TestParseVirtualDuplicateKey(t *testing.T) {
	input := `{"virtual": {
		"a": {"data": "1", "eraseable": true},
		"b": {"data": "2", "eraseable": true},
		"a": {"data": "3", "eraseable": true}
	}}`

	p, err := ParseReader(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, p.Virtual, 2)
	assert.Equal(t, "a 3", p.Virtual[0].Line())
	assert.Equal(t, "b 2", p.Virtual[1].Line())
}

func TestParseFormatErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: "   "},
		{name: "not json", input: "keymap.custom 1 2 3"},
		{name: "scalar", input: `42`},
		{name: "empty sequence", input: `[]`},
		{name: "entry without command", input: `[{"data": "1"}]`},
		{name: "entry is not an object", input: `["keymap.custom"]`},
		{name: "object data", input: `[{"command": "a", "data": {"x": 1}}]`},
		{name: "unknown object", input: `{"settings": []}`},
		{name: "envelope without neuron", input: `{"backup": [{"command": "a", "data": "1"}]}`},
		{name: "envelope with null neuron", input: `{"backup": [{"command": "a", "data": "1"}], "neuron": null}`},
		{name: "envelope with empty backup", input: `{"backup": [], "neuron": {"id": "n"}}`},
		{name: "virtual is an array", input: `{"virtual": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseReader(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Nil(t, p)
			assert.True(t, IsFormatError(err), "expected FormatError, got %v", err)
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"command":"a","data":"1"}]`), 0o644))

	p, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Len())

	_, err = Parse(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.False(t, IsFormatError(err))
}

func TestWriteThenParse(t *testing.T) {
	payloads := []*Payload{
		NewSequence([]Entry{{Command: "a", Data: StringValue("1 2")}, {Command: "b", Data: BoolValue(false)}}),
		NewEnvelope([]Entry{{Command: "a", Data: IntValue(3)}}, neuron.Record{ID: "n-1", Name: "Desk"}),
		NewVirtual([]Field{
			{Command: "z", Data: StringValue("9"), Eraseable: true},
			{Command: "a", Data: StringValue("1")},
		}),
	}

	for _, want := range payloads {
		t.Run(want.Kind.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, want))

			got, err := ParseReader(&buf)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestPayloadLen(t *testing.T) {
	var p *Payload
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 2, NewVirtual([]Field{{Command: "a"}, {Command: "b"}}).Len())
}
