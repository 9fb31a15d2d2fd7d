package utcptypes

import (
	"encoding/json"
	"fmt"
)

// VariableLoaderKind discriminates the VariableLoader tagged union.
type VariableLoaderKind string

// VariableLoaderDotenv reads key/value pairs from a dotenv-formatted file.
const VariableLoaderDotenv VariableLoaderKind = "dotenv"

// VariableLoaderConfig is the tagged-union configuration for one variable
// loader entry in a client config's variable_loaders list. The loader
// implementation itself lives in pkg/variables; this type is the decoded
// configuration handed to it.
type VariableLoaderConfig interface {
	// Kind returns the variable_loader_type discriminator.
	Kind() VariableLoaderKind
}

// DotenvLoaderConfig configures a dotenv VariableLoader.
type DotenvLoaderConfig struct {
	// FilePath is the dotenv file to read, relative to the client's root
	// directory unless absolute.
	FilePath string `json:"file_path"`
}

func (c *DotenvLoaderConfig) Kind() VariableLoaderKind { return VariableLoaderDotenv }

type variableLoaderEnvelope struct {
	VariableLoaderType VariableLoaderKind `json:"variable_loader_type"`
}

// DecodeVariableLoaderConfig parses a JSON variable loader entry into its
// concrete configuration variant.
func DecodeVariableLoaderConfig(data []byte) (VariableLoaderConfig, error) {
	var env variableLoaderEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode variable loader envelope: %w", err)
	}
	switch env.VariableLoaderType {
	case VariableLoaderDotenv:
		var c DotenvLoaderConfig
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decode dotenv loader config: %w", err)
		}
		return &c, nil
	default:
		return nil, fmt.Errorf("unknown variable_loader_type %q", env.VariableLoaderType)
	}
}
