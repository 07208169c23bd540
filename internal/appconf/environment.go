package appconf

import (
	"fmt"
	"strings"
)

// Environment is the deployment stage the server runs in.
type Environment int

const (
	Development Environment = iota
	Test
	Production
)

// EnvFlagToEnvironment converts the -env flag value to an Environment.
// Unknown values fall back to Development.
func EnvFlagToEnvironment(env string) Environment {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod":
		return Production
	case "test":
		return Test
	default:
		return Development
	}
}

func (e Environment) String() string {
	switch e {
	case Development:
		return "development"
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return fmt.Sprintf("Environment(%d)", int(e))
	}
}

// UnmarshalText lets viper decode the env key straight into an Environment.
func (e *Environment) UnmarshalText(text []byte) error {
	*e = EnvFlagToEnvironment(string(text))
	return nil
}

func (e Environment) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}
