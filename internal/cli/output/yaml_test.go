package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintYAML(t *testing.T) {
	data := struct {
		Username string `yaml:"username"`
		Devices  int    `yaml:"devices"`
	}{
		Username: "alice",
		Devices:  2,
	}

	var buf bytes.Buffer
	err := PrintYAML(&buf, data)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "username: alice")
	assert.Contains(t, output, "devices: 2")
}

func TestPrintYAMLArray(t *testing.T) {
	data := []struct {
		Device string `yaml:"device"`
	}{
		{Device: "laptop"},
		{Device: "phone"},
	}

	var buf bytes.Buffer
	err := PrintYAML(&buf, data)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "- device: laptop")
	assert.Contains(t, output, "- device: phone")
}
