package storage

import (
	"gorm.io/gorm"
)

// GORM Scopes for common run and snapshot filters
// Scopes provide a clean way to compose queries

// WithRunID filters rows by run identifier
func WithRunID(runID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if runID != "" {
			return db.Where("run_id = ?", runID)
		}
		return db
	}
}

// WithRunKind filters runs by kind
func WithRunKind(kind string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if kind != "" {
			return db.Where("kind = ?", kind)
		}
		return db
	}
}

// WithRunStatus filters runs by status (single or multiple)
func WithRunStatus(status interface{}) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch v := status.(type) {
		case string:
			if v != "" {
				return db.Where("status = ?", v)
			}
		case []string:
			if len(v) > 0 {
				return db.Where("status IN ?", v)
			}
		}
		return db
	}
}

// WithProjectKey filters snapshots by project key
func WithProjectKey(projectKey string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if projectKey != "" {
			return db.Where("project_key = ?", projectKey)
		}
		return db
	}
}

// WithGateStatus filters metrics snapshots by quality gate status
func WithGateStatus(status string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if status != "" {
			return db.Where("quality_gate_status = ?", status)
		}
		return db
	}
}

// NewestFirst orders by descending ID so the latest inserts come back first
func NewestFirst() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order("id DESC")
	}
}

// ByProjectKey orders snapshot rows alphabetically by project key
func ByProjectKey() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order("project_key ASC")
	}
}

// WithLimit caps the result set when limit is positive
func WithLimit(limit int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if limit > 0 {
			return db.Limit(limit)
		}
		return db
	}
}
