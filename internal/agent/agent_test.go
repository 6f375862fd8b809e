package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "project-7-my-shop", SessionKey(7, "my shop"))
	assert.Equal(t, "project-12-landing", SessionKey(12, "landing"))
}

func TestBuildPrompt_WithDescription(t *testing.T) {
	p := BuildPrompt(Instruction{
		ProjectID:   3,
		ProjectName: "my shop",
		Description: "An online store for plants",
		RulesetPath: "rule.md",
	})

	assert.Contains(t, p, "Project name: my shop")
	assert.Contains(t, p, "Description: An online store for plants")
	assert.Contains(t, p, "rule.md")
	assert.Contains(t, p, "Verify deployment.")
}

func TestBuildPrompt_WithoutDescription(t *testing.T) {
	p := BuildPrompt(Instruction{
		ProjectName: "landing",
		RulesetPath: "rule.md",
	})

	assert.NotContains(t, p, "Description:")
	assert.Contains(t, p, "Project name: landing")
}

func TestNewCLIRunner_DefaultBin(t *testing.T) {
	assert.Equal(t, "openclaw", NewCLIRunner("").Bin)
	assert.Equal(t, "/usr/local/bin/openclaw", NewCLIRunner("/usr/local/bin/openclaw").Bin)
}
