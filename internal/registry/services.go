package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrServiceNotFound is returned when no service is registered at a path
	ErrServiceNotFound = errors.New("service not found")
	// ErrServiceConflict is returned when a path is both a service and a namespace
	ErrServiceConflict = errors.New("service path conflict")
)

// Services is a tree of services addressed by slash-separated paths such as
// "billing/invoice". Intermediate segments are namespaces.
type Services struct {
	mu   sync.RWMutex
	root *serviceNode
}

type serviceNode struct {
	service  any
	children map[string]*serviceNode
}

// NewServices creates an empty service tree
func NewServices() *Services {
	return &Services{root: &serviceNode{}}
}

// Register stores a service at the given path. A trailing file extension on
// the last segment is dropped, so "billing/invoice.go" and "billing/invoice"
// address the same service.
func (s *Services) Register(servicePath string, service any) error {
	segments := splitServicePath(servicePath)
	if len(segments) == 0 {
		return fmt.Errorf("invalid service path %q", servicePath)
	}
	if service == nil {
		return fmt.Errorf("service %q is nil", servicePath)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	node := s.root
	for i, segment := range segments {
		if node.service != nil {
			return fmt.Errorf("%w: %s is a service", ErrServiceConflict, strings.Join(segments[:i], "/"))
		}
		if node.children == nil {
			node.children = make(map[string]*serviceNode)
		}
		child, ok := node.children[segment]
		if !ok {
			child = &serviceNode{}
			node.children[segment] = child
		}
		node = child
	}

	if len(node.children) > 0 {
		return fmt.Errorf("%w: %s is a namespace", ErrServiceConflict, strings.Join(segments, "/"))
	}
	node.service = service
	return nil
}

// Lookup returns the service registered at the path
func (s *Services) Lookup(servicePath string) (any, error) {
	segments := splitServicePath(servicePath)

	s.mu.RLock()
	defer s.mu.RUnlock()

	node := s.root
	for _, segment := range segments {
		child, ok := node.children[segment]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, servicePath)
		}
		node = child
	}
	if node.service == nil {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, servicePath)
	}
	return node.service, nil
}

// Paths returns every registered service path, sorted
func (s *Services) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var paths []string
	var walk func(prefix string, node *serviceNode)
	walk = func(prefix string, node *serviceNode) {
		if node.service != nil {
			paths = append(paths, prefix)
		}
		for name, child := range node.children {
			walk(path.Join(prefix, name), child)
		}
	}
	walk("", s.root)

	sort.Strings(paths)
	return paths
}

// Tree returns the services as nested maps, mirroring their paths
func (s *Services) Tree() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root.tree()
}

func (n *serviceNode) tree() map[string]any {
	out := make(map[string]any, len(n.children))
	for name, child := range n.children {
		if child.service != nil {
			out[name] = child.service
			continue
		}
		out[name] = child.tree()
	}
	return out
}

func splitServicePath(servicePath string) []string {
	cleaned := strings.Trim(path.Clean("/"+strings.ReplaceAll(servicePath, "\\", "/")), "/")
	if cleaned == "" {
		return nil
	}
	segments := strings.Split(cleaned, "/")
	last := segments[len(segments)-1]
	if ext := path.Ext(last); ext != "" && ext != last {
		segments[len(segments)-1] = strings.TrimSuffix(last, ext)
	}
	return segments
}

type servicesKey struct{}

// WithServices returns a context carrying the service tree
func WithServices(ctx context.Context, services *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, services)
}

// ServicesFromContext returns the service tree stored in the context, if any
func ServicesFromContext(ctx context.Context) *Services {
	services, _ := ctx.Value(servicesKey{}).(*Services)
	return services
}

// Middleware exposes the service tree to every request
func (s *Services) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithServices(r.Context(), s)))
	})
}
