package node

// Option customizes a Marshal or Unmarshal call.
type Option func(*config)

type config struct {
	name     string
	file     string
	path     string
	platform string

	overrides []ShapeOverride
	resolver  BindingResolver
}

func newConfig(opts []Option) *config {
	cfg := &config{
		platform: PlatformTag(),
		resolver: func(s Symbol) *Binding { return &Binding{Name: s} },
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithName records a descriptive name for the graph in the container. The
// name is informational and has no effect on decoding.
func WithName(name string) Option {
	return func(cfg *config) { cfg.name = name }
}

// WithOrigin records the source file and load path the graph came from.
// Both strings are informational.
func WithOrigin(file, path string) Option {
	return func(cfg *config) {
		cfg.file = file
		cfg.path = path
	}
}

// WithPlatformTag overrides the platform identifier. On Marshal it is
// stamped into the container; on Unmarshal it is the tag the container
// must carry. The default on both sides is PlatformTag().
func WithPlatformTag(tag string) Option {
	return func(cfg *config) { cfg.platform = tag }
}

// WithShapeOverride registers a content-dependent shape refinement.
// Overrides apply in registration order, each receiving the shape the
// previous one produced.
func WithShapeOverride(ov ShapeOverride) Option {
	return func(cfg *config) { cfg.overrides = append(cfg.overrides, ov) }
}

// WithBindingResolver sets the resolver consulted once per binding entry
// in the container during Unmarshal. The default allocates a fresh
// Binding on every call.
func WithBindingResolver(r BindingResolver) Option {
	return func(cfg *config) { cfg.resolver = r }
}
