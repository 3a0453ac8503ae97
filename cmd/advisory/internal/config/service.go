package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
)

// serviceExt is the extension of service files.
const serviceExt = ".yaml"

// ErrServiceNotFound is returned by LoadService when the service file is
// missing.
var ErrServiceNotFound = errors.New("service config not found")

func serviceFile(contextDir, service string) string {
	return filepath.Join(contextDir, service+serviceExt)
}

// ServicePath returns the file of a service within a context.
func (c *Config) ServicePath(context, service string) string {
	return serviceFile(c.ContextDir(context), service)
}

// LoadService decodes the service file of contextDir. Struct targets reject
// unknown keys; map targets take the file as is. A file without a document
// yields the zero T.
func LoadService[T any](contextDir, service string) (*T, error) {
	path := serviceFile(contextDir, service)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s in %s", ErrServiceNotFound, service, contextDir)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	v := new(T)
	var opts []yaml.DecodeOption
	if _, loose := any(v).(*map[string]any); !loose {
		opts = append(opts, yaml.Strict())
	}
	if err := yaml.NewDecoder(f, opts...).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s service:\n%s", service, yaml.FormatError(err, false, true))
	}
	return v, nil
}

// SaveService writes v as the service file of contextDir. Service files
// hold credentials and are private to the user.
func SaveService[T any](contextDir, service string, v *T) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s service: %w", service, err)
	}
	return writeFile(serviceFile(contextDir, service), data, 0o600)
}

// ListServices returns the services configured in contextDir, sorted.
func ListServices(contextDir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(contextDir, "*"+serviceExt))
	if err != nil {
		return nil, err
	}
	services := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSuffix(filepath.Base(m), serviceExt)
		if !strings.HasPrefix(name, ".") {
			services = append(services, name)
		}
	}
	slices.Sort(services)
	return services, nil
}
