package variables

import (
	"fmt"
	"path/filepath"

	"github.com/subosito/gotenv"
	"goa.design/utcp/pkg/kindregistry"
	"goa.design/utcp/pkg/utcptypes"
)

// DotenvLoader implements Loader by reading key/value pairs from a
// dotenv-formatted file, the shipped VariableLoader kind from spec §3.
type DotenvLoader struct {
	values map[string]string
}

// NewDotenvLoader reads filePath (resolved against rootDir unless absolute)
// using subosito/gotenv and returns a Loader over its contents.
func NewDotenvLoader(rootDir string, cfg *utcptypes.DotenvLoaderConfig) (*DotenvLoader, error) {
	path := cfg.FilePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(rootDir, path)
	}
	env, err := gotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read dotenv file %s: %w", path, err)
	}
	return &DotenvLoader{values: env}, nil
}

// Get implements Loader.
func (d *DotenvLoader) Get(key string) (string, bool) {
	v, ok := d.values[key]
	return v, ok
}

// LoaderFactory builds a Loader from a decoded VariableLoaderConfig and the
// client's root directory.
type LoaderFactory func(rootDir string, cfg utcptypes.VariableLoaderConfig) (Loader, error)

// Kinds is the registry of variable-loader kinds, keyed by
// variable_loader_type. Built-ins are installed once via Bootstrap.
var Kinds = kindregistry.New[LoaderFactory]("variable_loader")

var bootstrap kindregistry.Guard

// Bootstrap installs the built-in dotenv loader kind. It is safe to call
// repeatedly; only the first call has an effect.
func Bootstrap() {
	bootstrap.Do(func() {
		Kinds.Register(string(utcptypes.VariableLoaderDotenv), func(rootDir string, cfg utcptypes.VariableLoaderConfig) (Loader, error) {
			dc, ok := cfg.(*utcptypes.DotenvLoaderConfig)
			if !ok {
				return nil, fmt.Errorf("dotenv loader factory received %T", cfg)
			}
			return NewDotenvLoader(rootDir, dc)
		}, false)
	})
}

// Build decodes a single load_variables_from entry and constructs its
// Loader via the registered factory for its kind.
func Build(rootDir string, raw []byte) (Loader, error) {
	Bootstrap()
	cfg, err := utcptypes.DecodeVariableLoaderConfig(raw)
	if err != nil {
		return nil, err
	}
	factory, err := Kinds.Get(string(cfg.Kind()))
	if err != nil {
		return nil, err
	}
	return factory(rootDir, cfg)
}
