package models

import "time"

// CollectionRun is the persisted record of one metrics or classification
// run. Progress counters are updated while the run executes; snapshots are
// written only after it completes.
type CollectionRun struct {
	ID            int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	RunID         string     `json:"run_id" gorm:"uniqueIndex;size:36"`
	Kind          string     `json:"kind" gorm:"index"` // metrics or classification
	Status        string     `json:"status"`            // running, completed, failed
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	TotalProjects int        `json:"total_projects" gorm:"default:0"`
	Succeeded     int        `json:"succeeded" gorm:"default:0"`
	Failed        int        `json:"failed" gorm:"default:0"`
	ActiveCount   int        `json:"active_count" gorm:"default:0"`
	InactiveCount int        `json:"inactive_count" gorm:"default:0"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
}

// TableName specifies the table name for CollectionRun
func (CollectionRun) TableName() string { return "collection_runs" }

// MetricsSnapshot stores one project's collected metrics within a run
type MetricsSnapshot struct {
	ID                     int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	RunID                  string    `json:"run_id" gorm:"index;size:36"`
	ProjectKey             string    `json:"project_key" gorm:"index"`
	ProjectName            string    `json:"project_name"`
	QualityGateStatus      string    `json:"quality_gate_status"`
	Coverage               *string   `json:"coverage,omitempty"`
	DuplicatedLinesDensity *string   `json:"duplicated_lines_density,omitempty"`
	MaintainabilityRating  *string   `json:"maintainability_rating,omitempty"`
	ReliabilityRating      *string   `json:"reliability_rating,omitempty"`
	SecurityRating         *string   `json:"security_rating,omitempty"`
	Vulnerabilities        *string   `json:"vulnerabilities,omitempty"`
	Bugs                   *string   `json:"bugs,omitempty"`
	CodeSmells             *string   `json:"code_smells,omitempty"`
	TechnicalDebt          *string   `json:"technical_debt,omitempty"`
	LinesOfCode            *string   `json:"lines_of_code,omitempty"`
	LastAnalysisDate       *string   `json:"last_analysis_date,omitempty"`
	CreatedAt              time.Time `json:"created_at"`
}

// TableName specifies the table name for MetricsSnapshot
func (MetricsSnapshot) TableName() string { return "metrics_snapshots" }

// NewMetricsSnapshot builds a snapshot row from collected metrics.
func NewMetricsSnapshot(runID string, m QualityMetrics) MetricsSnapshot {
	return MetricsSnapshot{
		RunID:                  runID,
		ProjectKey:             m.ProjectKey,
		ProjectName:            m.ProjectName,
		QualityGateStatus:      m.QualityGateStatus,
		Coverage:               m.Coverage,
		DuplicatedLinesDensity: m.DuplicatedLinesDensity,
		MaintainabilityRating:  m.MaintainabilityRating,
		ReliabilityRating:      m.ReliabilityRating,
		SecurityRating:         m.SecurityRating,
		Vulnerabilities:        m.Vulnerabilities,
		Bugs:                   m.Bugs,
		CodeSmells:             m.CodeSmells,
		TechnicalDebt:          m.TechnicalDebt,
		LinesOfCode:            m.LinesOfCode,
		LastAnalysisDate:       m.LastAnalysisDate,
	}
}

// ToQualityMetrics converts a snapshot row back to the in-memory form.
func (s MetricsSnapshot) ToQualityMetrics() QualityMetrics {
	return QualityMetrics{
		ProjectKey:             s.ProjectKey,
		ProjectName:            s.ProjectName,
		QualityGateStatus:      s.QualityGateStatus,
		Coverage:               s.Coverage,
		DuplicatedLinesDensity: s.DuplicatedLinesDensity,
		MaintainabilityRating:  s.MaintainabilityRating,
		ReliabilityRating:      s.ReliabilityRating,
		SecurityRating:         s.SecurityRating,
		Vulnerabilities:        s.Vulnerabilities,
		Bugs:                   s.Bugs,
		CodeSmells:             s.CodeSmells,
		TechnicalDebt:          s.TechnicalDebt,
		LinesOfCode:            s.LinesOfCode,
		LastAnalysisDate:       s.LastAnalysisDate,
	}
}

// ClassificationSnapshot stores one project's activity assessment within a
// run
type ClassificationSnapshot struct {
	ID                     int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	RunID                  string    `json:"run_id" gorm:"index;size:36"`
	ProjectKey             string    `json:"project_key" gorm:"index"`
	ProjectName            string    `json:"project_name"`
	Status                 string    `json:"status"`
	LastAnalysisDate       *string   `json:"last_analysis_date,omitempty"`
	LinesOfCode            int       `json:"lines_of_code" gorm:"default:0"`
	Coverage               *float64  `json:"coverage,omitempty"`
	DuplicatedLinesPercent *float64  `json:"duplicated_lines_percent,omitempty"`
	Bugs                   int       `json:"bugs" gorm:"default:0"`
	Vulnerabilities        int       `json:"vulnerabilities" gorm:"default:0"`
	CodeSmells             int       `json:"code_smells" gorm:"default:0"`
	HasRecentAnalysis      bool      `json:"has_recent_analysis" gorm:"default:false"`
	HasMetrics             bool      `json:"has_metrics" gorm:"default:false"`
	CreatedAt              time.Time `json:"created_at"`
}

// TableName specifies the table name for ClassificationSnapshot
func (ClassificationSnapshot) TableName() string { return "classification_snapshots" }

// NewClassificationSnapshot builds a snapshot row from a classification.
func NewClassificationSnapshot(runID string, c ProjectClassification) ClassificationSnapshot {
	return ClassificationSnapshot{
		RunID:                  runID,
		ProjectKey:             c.ProjectKey,
		ProjectName:            c.ProjectName,
		Status:                 c.Status,
		LastAnalysisDate:       c.LastAnalysisDate,
		LinesOfCode:            c.LinesOfCode,
		Coverage:               c.Coverage,
		DuplicatedLinesPercent: c.DuplicatedLinesPercent,
		Bugs:                   c.Bugs,
		Vulnerabilities:        c.Vulnerabilities,
		CodeSmells:             c.CodeSmells,
		HasRecentAnalysis:      c.HasRecentAnalysis,
		HasMetrics:             c.HasMetrics,
	}
}

// ToProjectClassification converts a snapshot row back to the in-memory
// form.
func (s ClassificationSnapshot) ToProjectClassification() ProjectClassification {
	return ProjectClassification{
		ProjectKey:             s.ProjectKey,
		ProjectName:            s.ProjectName,
		Status:                 s.Status,
		LastAnalysisDate:       s.LastAnalysisDate,
		LinesOfCode:            s.LinesOfCode,
		Coverage:               s.Coverage,
		DuplicatedLinesPercent: s.DuplicatedLinesPercent,
		Bugs:                   s.Bugs,
		Vulnerabilities:        s.Vulnerabilities,
		CodeSmells:             s.CodeSmells,
		HasRecentAnalysis:      s.HasRecentAnalysis,
		HasMetrics:             s.HasMetrics,
	}
}
