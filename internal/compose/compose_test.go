package compose

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	f, err := Generate(3)
	require.NoError(t, err)

	require.Len(t, f.Services, 4)
	assert.Equal(t, "server", f.Services[0].Name)
	assert.Contains(t, f.Services[0].Service.Environment, "LOTTERY_AGENCIES=3")

	c2 := f.Services[2]
	assert.Equal(t, "client2", c2.Name)
	assert.Equal(t, []string{"CLI_ID=2", "CLI_LOG_LEVEL=debug", "CLI_DATA_FILE=/data/agency-2.csv"}, c2.Service.Environment)
	assert.Equal(t, []string{"server"}, c2.Service.DependsOn)
	assert.Equal(t, []string{NetworkName}, c2.Service.Networks)
}

func TestGenerateRejectsZeroClients(t *testing.T) {
	t.Parallel()

	_, err := Generate(0)
	assert.Error(t, err)
}

func TestWriteKeepsServiceOrder(t *testing.T) {
	t.Parallel()

	f, err := Generate(10)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, f))
	out := buf.String()

	assert.Less(t, strings.Index(out, "  server:"), strings.Index(out, "  client1:"))
	assert.Less(t, strings.Index(out, "  client2:"), strings.Index(out, "  client10:"))

	var parsed struct {
		Services map[string]Service `yaml:"services"`
		Networks map[string]Network `yaml:"networks"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &parsed))
	assert.Len(t, parsed.Services, 11)
	assert.Equal(t, "client10", parsed.Services["client10"].ContainerName)
	assert.Equal(t, "172.25.125.0/24", parsed.Networks[NetworkName].IPAM.Config[0].Subnet)
}
