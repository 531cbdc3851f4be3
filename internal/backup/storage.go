package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
)

// Capacity is the nominal storage budget usage is measured against.
const Capacity = 50 * 1024 * 1024

const (
	warningRatio  = 0.8
	criticalRatio = 0.95
)

// StorageInfo measures the store by the size of its JSON encoding.
type StorageInfo struct {
	Used       int64   `json:"used"`
	Available  int64   `json:"available"`
	Total      int64   `json:"total"`
	UsageRatio float64 `json:"usageRatio"`
}

type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

type Health struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message"`
	Info    StorageInfo  `json:"info"`
}

// Statistics summarises the store for the storage command.
type Statistics struct {
	ProjectCount      int    `json:"projectCount"`
	TaskCount         int    `json:"taskCount"`
	YearCount         int    `json:"yearCount"`
	StorageSize       string `json:"storageSize"`
	EstimatedProjects int64  `json:"estimatedProjects"`
	EstimatedTasks    int64  `json:"estimatedTasks"`
	EstimatedCapacity string `json:"estimatedCapacity"`
}

func newStorageInfo(used int64) StorageInfo {
	return StorageInfo{
		Used:       used,
		Available:  Capacity - used,
		Total:      Capacity,
		UsageRatio: float64(used) / Capacity,
	}
}

func (doc *Document) storageInfo() (StorageInfo, error) {
	var used int64
	for _, v := range []any{doc.Tasks, doc.Projects, doc.Years} {
		data, err := json.Marshal(v)
		if err != nil {
			return StorageInfo{}, fmt.Errorf("failed to measure storage: %w", err)
		}
		used += int64(len(data))
	}
	return newStorageInfo(used), nil
}

// Info measures the current store.
func Info(ctx context.Context, store Store) (StorageInfo, error) {
	doc, err := snapshot(ctx, store)
	if err != nil {
		return StorageInfo{}, fmt.Errorf("failed to read store: %w", err)
	}
	return doc.storageInfo()
}

// Health grades the usage ratio.
func (s StorageInfo) Health() Health {
	pct := fmt.Sprintf("%.1f%%", s.UsageRatio*100)
	switch {
	case s.UsageRatio > criticalRatio:
		return Health{HealthCritical, "存储空间严重不足 (" + pct + ")，请立即导出数据备份", s}
	case s.UsageRatio > warningRatio:
		return Health{HealthWarning, "存储空间使用率较高 (" + pct + ")，建议定期导出数据备份", s}
	default:
		return Health{HealthHealthy, "存储空间充足 (" + pct + ")", s}
	}
}

// Stats counts the store's rows and estimates the remaining headroom.
func Stats(ctx context.Context, store Store) (Statistics, error) {
	doc, err := snapshot(ctx, store)
	if err != nil {
		return Statistics{}, fmt.Errorf("failed to read store: %w", err)
	}
	info, err := doc.storageInfo()
	if err != nil {
		return Statistics{}, err
	}

	perProject := float64(info.Used) / float64(max(len(doc.Projects), 1))
	perTask := float64(info.Used) / float64(max(len(doc.Tasks), 1))
	s := Statistics{
		ProjectCount: len(doc.Projects),
		TaskCount:    len(doc.Tasks),
		YearCount:    len(doc.Years),
		StorageSize:  fmt.Sprintf("%.2f KB", float64(info.Used)/1024),
	}
	if perProject > 0 {
		s.EstimatedProjects = int64(math.Floor(float64(info.Available) / perProject))
	}
	if perTask > 0 {
		s.EstimatedTasks = int64(math.Floor(float64(info.Available) / perTask))
	}
	s.EstimatedCapacity = fmt.Sprintf("约可再存储 %d 个项目或 %d 个任务", s.EstimatedProjects, s.EstimatedTasks)
	return s, nil
}
