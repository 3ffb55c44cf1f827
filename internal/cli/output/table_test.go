package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableData(t *testing.T) {
	table := NewTableData("Username", "Device", "State")

	assert.Equal(t, []string{"Username", "Device", "State"}, table.Headers())
	assert.Empty(t, table.Rows())

	table.AddRow("alice", "laptop", "authenticated")
	table.AddRow("bob", "phone", "pending")

	rows := table.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"alice", "laptop", "authenticated"}, rows[0])
	assert.Equal(t, []string{"bob", "phone", "pending"}, rows[1])
}

func TestPrintTable(t *testing.T) {
	table := NewTableData("Token", "Username")
	table.AddRow("3f2a9c", "alice")
	table.AddRow("b71e04", "bob")

	var buf bytes.Buffer
	err := PrintTable(&buf, table)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "TOKEN")
	assert.Contains(t, output, "USERNAME")
	assert.Contains(t, output, "3f2a9c")
	assert.Contains(t, output, "alice")
	assert.Contains(t, output, "b71e04")
	assert.Contains(t, output, "bob")
}

func TestSimpleTable(t *testing.T) {
	pairs := [][2]string{
		{"Username", "alice"},
		{"Devices", "laptop, phone"},
	}

	var buf bytes.Buffer
	err := SimpleTable(&buf, pairs)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Username")
	assert.Contains(t, output, "alice")
	assert.Contains(t, output, "Devices")
	assert.Contains(t, output, "laptop, phone")
}
