// Package policy holds the per-bucket access rules: which roles may write to
// a bucket and whether reads (list/download) require authentication. Rules
// ship as an embedded YAML file and can be overridden per deployment.
package policy

import (
	"embed"
	"fmt"
	"os"
	"sync"

	"lectern/internal/domain/models"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// ReadAuth controls whether list/download on a bucket require a bearer token.
type ReadAuth string

const (
	ReadAnonymous ReadAuth = "anonymous"
	ReadRequired  ReadAuth = "required"
)

// BucketPolicy declares the access rules for one logical bucket.
type BucketPolicy struct {
	Name        string   `yaml:"name"`
	WriterRoles []string `yaml:"writer_roles"`
	ReadAuth    ReadAuth `yaml:"read_auth"`
}

// Writers returns the parsed writer role set.
func (p *BucketPolicy) Writers() []models.Role {
	roles := make([]models.Role, 0, len(p.WriterRoles))
	for _, r := range p.WriterRoles {
		roles = append(roles, models.ParseRole(r))
	}
	return roles
}

// CanWrite is the role authorization gate: a role may write iff it is admin
// or appears in the bucket's writer set.
func (p *BucketPolicy) CanWrite(role models.Role) bool {
	return role.SatisfiesAny(p.Writers())
}

// RequiresReadAuth reports whether list/download need an authenticated caller.
func (p *BucketPolicy) RequiresReadAuth() bool {
	return p.ReadAuth == ReadRequired
}

type policyFile struct {
	Buckets []BucketPolicy `yaml:"buckets"`
}

// Registry manages bucket policies, keyed by bucket name.
type Registry struct {
	buckets map[string]*BucketPolicy
	order   []string
	mu      sync.RWMutex
}

// NewRegistry loads the embedded default policy file.
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/buckets.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded bucket policy: %w", err)
	}
	return parseRegistry(data)
}

// NewRegistryFromFile loads bucket policies from an external file, replacing
// the embedded defaults. Used for per-deployment overrides.
func NewRegistryFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bucket policy %s: %w", path, err)
	}
	return parseRegistry(data)
}

func parseRegistry(data []byte) (*Registry, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal bucket policy: %w", err)
	}
	if len(file.Buckets) == 0 {
		return nil, fmt.Errorf("bucket policy declares no buckets")
	}

	r := &Registry{buckets: make(map[string]*BucketPolicy)}
	for i := range file.Buckets {
		p := &file.Buckets[i]
		if p.Name == "" {
			return nil, fmt.Errorf("bucket policy entry %d has no name", i)
		}
		if p.ReadAuth == "" {
			p.ReadAuth = ReadAnonymous
		}
		if p.ReadAuth != ReadAnonymous && p.ReadAuth != ReadRequired {
			return nil, fmt.Errorf("bucket %s: unknown read_auth %q", p.Name, p.ReadAuth)
		}
		if _, dup := r.buckets[p.Name]; dup {
			return nil, fmt.Errorf("bucket %s declared twice", p.Name)
		}
		r.buckets[p.Name] = p
		r.order = append(r.order, p.Name)
	}
	return r, nil
}

// Lookup returns the policy for a bucket, or false for unknown buckets.
func (r *Registry) Lookup(bucket string) (*BucketPolicy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.buckets[bucket]
	return p, ok
}

// Buckets returns bucket names in declaration order.
func (r *Registry) Buckets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
