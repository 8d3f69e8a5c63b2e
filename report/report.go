package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

type TileReport struct {
	Tile       string   `json:"tile"`
	Output     string   `json:"output,omitempty"`
	Quicklook  string   `json:"quicklook,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMs int64    `json:"duration_ms"`
	Summary    *Summary `json:"summary,omitempty"`
}

// 批处理运行报告
type RunReport struct {
	RunID     string       `json:"run_id"`
	Version   string       `json:"version,omitempty"`
	Started   time.Time    `json:"started"`
	Finished  time.Time    `json:"finished"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Config    any          `json:"config,omitempty"`
	Tiles     []TileReport `json:"tiles"`
}

func NewRunReport(runID, version string, cfg any) *RunReport {
	return &RunReport{
		RunID:   runID,
		Version: version,
		Started: time.Now().UTC(),
		Config:  cfg,
	}
}

func (r *RunReport) Add(t TileReport) {
	if t.Error == "" {
		r.Succeeded++
	} else {
		r.Failed++
	}
	r.Tiles = append(r.Tiles, t)
}

// 写出JSON报告（先写临时文件再改名）
func (r *RunReport) WriteJSON(path string) (err error) {
	if r.Finished.IsZero() {
		r.Finished = time.Now().UTC()
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return
	}
	tmp := filepath.Join(filepath.Dir(path), "."+uuid.NewString()+".json")
	if err = os.WriteFile(tmp, data, 0o644); err != nil {
		return
	}
	if err = os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
	}
	return
}
