package config

// DomainConfig holds configurable business rules and constraints
type DomainConfig struct {
	// Graph constraints
	MaxNodesPerSession int
	MaxEdgesPerSession int

	// Traversal limits. MaxTraversalDepth is a defensive bound against
	// pathological graphs, not a domain rule.
	MaxTraversalDepth int

	// Node constraints
	MaxLabelLength       int
	MaxDescriptionLength int

	// Edge constraints
	DefaultEdgeWeight float64
	MaxEdgeLabelLen   int

	// Scoring
	DefaultBlitzMultiplier float64
	DownstreamWeight       int

	// Validation settings
	AllowSelfReferences bool
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MaxNodesPerSession: 10000,
		MaxEdgesPerSession: 50000,

		MaxTraversalDepth: 100,

		MaxLabelLength:       500,
		MaxDescriptionLength: 10000,

		DefaultEdgeWeight: 1.0,
		MaxEdgeLabelLen:   200,

		DefaultBlitzMultiplier: 2.0,
		DownstreamWeight:       2,

		AllowSelfReferences: false,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	cfg := DefaultDomainConfig()
	cfg.MaxNodesPerSession = 5000
	cfg.MaxEdgesPerSession = 25000
	return cfg
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	cfg := DefaultDomainConfig()
	cfg.MaxNodesPerSession = 100000
	cfg.MaxEdgesPerSession = 500000
	return cfg
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}
