package search

import "time"

type Config struct {
	// IndexPath 为空时使用内存索引
	IndexPath       string
	DefaultAnalyzer string
	QueryTimeout    time.Duration
	BatchSize       int
}

const DocTypeAlert = "alert"

// AlertDoc 警报的可检索字段
type AlertDoc struct {
	ID               string
	ChildName        string
	LastSeenLocation string
	Description      string
	RiskLevel        string
	Status           string
	CreatedAt        time.Time
}

func (d AlertDoc) fields() map[string]any {
	return map[string]any{
		"type":             DocTypeAlert,
		"childName":        d.ChildName,
		"lastSeenLocation": d.LastSeenLocation,
		"description":      d.Description,
		"riskLevel":        d.RiskLevel,
		"status":           d.Status,
		"createdAt":        d.CreatedAt,
	}
}

// Hit 命中结果，按相关度降序
type Hit struct {
	ID    string
	Score float64
}
