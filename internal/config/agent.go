package config

import (
	"errors"
	"os"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

const (
	EnvAgentProviderName = "VIGIL_AGENT_PROVIDER_NAME"
	EnvAgentBaseURL      = "VIGIL_AGENT_BASE_URL"
	EnvAgentToken        = "VIGIL_AGENT_TOKEN"
	EnvAgentDeployment   = "VIGIL_AGENT_DEPLOYMENT"
	EnvAgentAPIVersion   = "VIGIL_AGENT_API_VERSION"
	EnvAgentAuthType     = "VIGIL_AGENT_AUTH_TYPE"
	EnvAgentModelName    = "VIGIL_AGENT_MODEL_NAME"
)

// agentOptions maps environment variables onto provider options. Values
// here are credentials and endpoints that should not live in config.toml.
var agentOptions = map[string]string{
	EnvAgentToken:      "token",
	EnvAgentDeployment: "deployment",
	EnvAgentAPIVersion: "api_version",
	EnvAgentAuthType:   "auth_type",
}

// FinalizeAgent completes the LLM judge configuration. The go-agents
// defaults sit underneath whatever config.toml supplied, environment
// variables sit on top.
func FinalizeAgent(c *gaconfig.AgentConfig) error {
	base := gaconfig.DefaultAgentConfig()
	base.Merge(c)
	*c = base

	applyAgentEnv(c)

	switch {
	case c.Name == "":
		return errors.New("agent name required")
	case c.Provider == nil || c.Provider.Name == "":
		return errors.New("agent provider name required")
	case c.Model == nil:
		return errors.New("agent model required")
	}
	return nil
}

func applyAgentEnv(c *gaconfig.AgentConfig) {
	if c.Provider == nil {
		c.Provider = &gaconfig.ProviderConfig{}
	}
	if c.Model == nil {
		c.Model = &gaconfig.ModelConfig{}
	}

	for name, dst := range map[string]*string{
		EnvAgentProviderName: &c.Provider.Name,
		EnvAgentBaseURL:      &c.Provider.BaseURL,
		EnvAgentModelName:    &c.Model.Name,
	} {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	for name, key := range agentOptions {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		if c.Provider.Options == nil {
			c.Provider.Options = make(map[string]any)
		}
		c.Provider.Options[key] = v
	}
}
