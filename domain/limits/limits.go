// Package limits centralizes the business-rule constants the domain services
// enforce, adapted from the teacher's domain/config.DomainConfig: a single
// struct of named constraints rather than scattering magic numbers across
// services.
package limits

// WorkItemLimits holds all configurable business-rule constraints for the
// work-item core.
type WorkItemLimits struct {
	MaxNameLength        int
	MaxDescriptionLength int
	MaxShortnameLength   int

	MaxDeleteBatch int

	MaxHistoryLimit     int
	DefaultHistoryLimit int

	DefaultTreeDepth int
	MaxTreeDepth     int

	MaxImportDocumentBytes int
}

// Default returns the constraint set used unless overridden, matching the
// numbers spec.md calls out explicitly (name/description length, the 1-100
// delete batch, history limit <=1000/default 100, tree depth default
// 10/cap 20, 1 MiB import documents).
func Default() WorkItemLimits {
	return WorkItemLimits{
		MaxNameLength:        255,
		MaxDescriptionLength: 1024,
		MaxShortnameLength:   64,

		MaxDeleteBatch: 100,

		MaxHistoryLimit:     1000,
		DefaultHistoryLimit: 100,

		DefaultTreeDepth: 10,
		MaxTreeDepth:     20,

		MaxImportDocumentBytes: 1 << 20, // 1 MiB
	}
}
