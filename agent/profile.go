package agent

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

const (
	ModelGPT35Turbo = "azure-gpt-35-turbo-16k"
	ModelGPT4       = "azure-gpt-4-32k"

	// Slack rejects posts longer than 4000 characters, so replies are capped
	// a little below that.
	defaultReservedResponse = 3950
)

var ErrUnknownModel = errors.New("unknown model")

// UnknownModelError is returned by Resolve for names with no registered profile.
type UnknownModelError struct {
	Name string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("invalid model name: %q", e.Name)
}

func (e *UnknownModelError) Is(target error) bool {
	return target == ErrUnknownModel
}

// ModelProfile is the static token budget of one deployed model.
type ModelProfile struct {
	Name             string `yaml:"name"`
	ContextWindow    int    `yaml:"context_window"`
	ReservedResponse int    `yaml:"reserved_response"`
}

func (p ModelProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("model profile name is required")
	}
	if p.ContextWindow <= 0 {
		return fmt.Errorf("model profile %q: context window must be positive", p.Name)
	}
	if p.ReservedResponse < 0 || p.ReservedResponse >= p.ContextWindow {
		return fmt.Errorf("model profile %q: reserved response %d must be in [0, %d)", p.Name, p.ReservedResponse, p.ContextWindow)
	}
	return nil
}

// Budget is the number of prompt tokens a request may use.
func (p ModelProfile) Budget() int {
	return p.ContextWindow - p.ReservedResponse
}

func DefaultProfiles() []ModelProfile {
	return []ModelProfile{
		{Name: ModelGPT35Turbo, ContextWindow: 16_384, ReservedResponse: defaultReservedResponse},
		{Name: ModelGPT4, ContextWindow: 32_768, ReservedResponse: defaultReservedResponse},
	}
}

type Registry struct {
	mu       sync.RWMutex
	profiles map[string]ModelProfile
}

func NewRegistry(profiles ...ModelProfile) (*Registry, error) {
	r := &Registry{profiles: make(map[string]ModelProfile, len(profiles))}
	for _, p := range profiles {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// NewDefaultRegistry returns a registry holding DefaultProfiles.
func NewDefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultProfiles()...)
	if err != nil {
		panic(err)
	}
	return r
}

// Register adds or replaces a profile.
func (r *Registry) Register(p ModelProfile) error {
	p.Name = strings.TrimSpace(p.Name)
	if err := p.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.Name] = p
	return nil
}

func (r *Registry) Resolve(name string) (ModelProfile, error) {
	if r == nil {
		return ModelProfile{}, &UnknownModelError{Name: name}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[strings.TrimSpace(name)]
	if !ok {
		return ModelProfile{}, &UnknownModelError{Name: name}
	}
	return p, nil
}

// Profiles lists registered profiles sorted by name.
func (r *Registry) Profiles() []ModelProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ModelProfile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ParseProfiles parses "name:window:reserved" entries separated by commas.
func ParseProfiles(raw string) ([]ModelProfile, error) {
	var out []ModelProfile
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("model profile %q: want name:context_window:reserved_response", item)
		}
		window, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("model profile %q: context window: %w", item, err)
		}
		reserved, err := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, fmt.Errorf("model profile %q: reserved response: %w", item, err)
		}
		p := ModelProfile{Name: strings.TrimSpace(parts[0]), ContextWindow: window, ReservedResponse: reserved}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
