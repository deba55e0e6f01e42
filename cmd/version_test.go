package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion(t *testing.T) {
	env := newTestEnv(t)

	out := env.run("version")
	env.contains(out, "Build Tag:    dev")
	env.contains(out, "MCP Protocol:")

	var info map[string]string
	env.runJSON(&info, "version")
	assert.Equal(t, "dev", info["build_tag"])
	assert.NotEmpty(t, info["mcp_protocol"])
}
