package contracts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skip-mev/deploybench/chains/ethereum/txfactory"
	loadtesttypes "github.com/skip-mev/deploybench/chains/types"
)

func TestLoadArtifact(t *testing.T) {
	a, err := LoadArtifact(filepath.Join("testdata", "greeter.json"))
	require.NoError(t, err)
	require.Equal(t, "Greeter", a.Name)
	require.Equal(t, txfactory.Bytecode{0x60, 0x00, 0x60, 0x00, 0x53, 0x60, 0x01, 0x60, 0x00, 0xf3}, a.Bytecode)
	require.True(t, a.HasMethod("setGreeting"))
	require.False(t, a.HasMethod("transfer"))
	require.Equal(t, "0xa4136862{arg}", a.CallTemplate)
}

func TestLoadArtifactErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		return p
	}

	tests := []struct {
		name string
		path string
	}{
		{name: "missing_file", path: filepath.Join(dir, "nope.json")},
		{name: "bad_json", path: write("bad.json", "{")},
		{name: "no_bytecode", path: write("nobytecode.json", `{"abi":[]}`)},
		{name: "empty_bytecode", path: write("empty.json", `{"abi":[],"bytecode":"0x"}`)},
		{name: "bad_bytecode", path: write("badhex.json", `{"bytecode":"0xzz"}`)},
		{name: "bad_abi", path: write("badabi.json", `{"abi":[{"type":"function","inputs":[{"type":"notatype"}]}],"bytecode":"0x00"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadArtifact(tt.path)
			var cfgErr *loadtesttypes.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			require.Equal(t, "artifact", cfgErr.Field)
		})
	}
}

func TestCallPayload(t *testing.T) {
	a, err := LoadArtifact(filepath.Join("testdata", "greeter.json"))
	require.NoError(t, err)

	p, err := a.CallPayload("setGreeting", "Grace Hopper")
	require.NoError(t, err)
	require.IsType(t, txfactory.ABICall{}, p)

	abiData, err := p.Payload()
	require.NoError(t, err)
	require.Equal(t, []byte{0xa4, 0x13, 0x68, 0x62}, abiData[:4])

	// unknown to the abi, falls back to the template.
	p, err = a.CallPayload("legacyGreeting", "Grace Hopper")
	require.NoError(t, err)
	require.IsType(t, txfactory.TemplateCall{}, p)

	noTemplate, err := ParseArtifact([]byte(`{"bytecode":"0x00"}`))
	require.NoError(t, err)
	_, err = noTemplate.CallPayload("setGreeting", "x")
	require.ErrorIs(t, err, ErrUnknownMethod)
	var cfgErr *loadtesttypes.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "method", cfgErr.Field)
}

func TestDeployPayload(t *testing.T) {
	a, err := LoadArtifact(filepath.Join("testdata", "reverter.json"))
	require.NoError(t, err)

	data, err := a.DeployPayload().Payload()
	require.NoError(t, err)
	require.Equal(t, []byte(a.Bytecode), data)
}
