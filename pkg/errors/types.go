package errors

// Predeclared errors for every failure mode the planning engine can surface.
// Handlers and services match these with errors.Is; WithDetail copies keep
// the shared values immutable.

var (
	// Session errors

	ErrSessionNotFound = New(
		ErrorTypeNotFound,
		"SESSION_NOT_FOUND",
		"The requested session does not exist",
	)

	ErrSessionArchived = New(
		ErrorTypeBusinessRule,
		"SESSION_ARCHIVED",
		"The session is archived and cannot be modified",
	)

	// Node errors

	ErrNodeNotFound = New(
		ErrorTypeNotFound,
		"NODE_NOT_FOUND",
		"The requested node does not exist",
	)

	ErrNodeLabelRequired = New(
		ErrorTypeValidation,
		"NODE_LABEL_REQUIRED",
		"Node label is required",
	)

	ErrInvalidNodeType = New(
		ErrorTypeValidation,
		"INVALID_NODE_TYPE",
		"Node type is not one of goal, milestone, task, idea, note, resource",
	)

	ErrInvalidNodeStatus = New(
		ErrorTypeValidation,
		"INVALID_NODE_STATUS",
		"Node status is not one of pending, in_progress, completed, blocked, cancelled",
	)

	// UnmetDependencies carries a "dependencies" detail listing the
	// incomplete prerequisite nodes (id, label, status)
	ErrUnmetDependencies = New(
		ErrorTypeConflict,
		"UNMET_DEPENDENCIES",
		"Node cannot be completed while prerequisite nodes are incomplete",
	)

	// Edge errors

	ErrEdgeNotFound = New(
		ErrorTypeNotFound,
		"EDGE_NOT_FOUND",
		"The requested edge does not exist",
	)

	ErrSelfReferentialEdge = New(
		ErrorTypeValidation,
		"SELF_REFERENTIAL_EDGE",
		"Cannot create an edge from a node to itself",
	)

	ErrDuplicateEdge = New(
		ErrorTypeConflict,
		"DUPLICATE_EDGE",
		"An edge between these nodes already exists",
	)

	ErrCycleDetected = New(
		ErrorTypeConflict,
		"CYCLE_DETECTED",
		"Creating this edge would close a dependency cycle",
	)

	ErrInvalidEdgeType = New(
		ErrorTypeValidation,
		"INVALID_EDGE_TYPE",
		"Edge type is not one of dependency, association, hierarchy, sequence",
	)

	ErrCrossSessionReference = New(
		ErrorTypeValidation,
		"CROSS_SESSION_REFERENCE",
		"Edge endpoints must belong to the same session",
	)

	// Blitz errors

	ErrBlitzNotFound = New(
		ErrorTypeNotFound,
		"BLITZ_NOT_FOUND",
		"The requested blitz does not exist",
	)

	// BlitzAlreadyActive carries an "active_blitz_id" detail naming the
	// blitz currently holding the active slot
	ErrBlitzAlreadyActive = New(
		ErrorTypeConflict,
		"BLITZ_ALREADY_ACTIVE",
		"Another blitz is already active in this session",
	)

	ErrBlitzNotActive = New(
		ErrorTypeBusinessRule,
		"BLITZ_NOT_ACTIVE",
		"The blitz is not active",
	)

	ErrInvalidBlitzOutcome = New(
		ErrorTypeValidation,
		"INVALID_BLITZ_OUTCOME",
		"Blitz outcome must be completed or abandoned",
	)

	// Scoring errors

	ErrInvalidMultiplier = New(
		ErrorTypeValidation,
		"INVALID_MULTIPLIER",
		"Blitz multiplier must be a positive finite number",
	)

	// Concurrency errors

	ErrConcurrentModification = New(
		ErrorTypeConflict,
		"CONCURRENT_MODIFICATION",
		"The session graph was modified by another request",
	).WithRetryable(true)

	ErrSessionLockTimeout = New(
		ErrorTypeConflict,
		"SESSION_LOCK_TIMEOUT",
		"Timed out waiting for the session write lock",
	).WithRetryable(true)

	// Rate limiting

	ErrRateLimitExceeded = New(
		ErrorTypeRateLimit,
		"RATE_LIMIT_EXCEEDED",
		"Too many requests, please try again later",
	).WithRetryable(true)
)

// UnmetDependency describes one incomplete prerequisite blocking completion
type UnmetDependency struct {
	NodeID string `json:"node_id"`
	Label  string `json:"label"`
	Status string `json:"status"`
}

// NewUnmetDependenciesError builds the completion-gate rejection with the
// offending prerequisite nodes enumerated in the details
func NewUnmetDependenciesError(unmet []UnmetDependency) *DomainError {
	return ErrUnmetDependencies.WithDetail("dependencies", unmet)
}
