package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionCmd_Use(t *testing.T) {
	assert.Equal(t, "version", versionCmd.Use)
}

func TestVersionCmd_PrintsVersion(t *testing.T) {
	_, _, buf := setupCommandTest(t)

	err := execute(t, "version")

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "notelink version dev")
}
